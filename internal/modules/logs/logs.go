// Package logs serves the session-gated fingerprint log table.
package logs

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mx-space/fpcollector/internal/middleware"
	"github.com/mx-space/fpcollector/internal/pkg/response"
	"github.com/mx-space/fpcollector/internal/render"
	"github.com/mx-space/fpcollector/internal/store"
	"go.uber.org/zap"
)

// UnauthenticatedAlert is shown above the login form when the session
// cookie is missing or does not verify.
const UnauthenticatedAlert = "É necessário estar autenticado. Por favor, faça o login para continuar..."

// Handler renders the logs page. It expects middleware.SessionGuard to run
// first.
type Handler struct {
	gateway store.Gateway
	logger  *zap.Logger
}

// NewHandler creates a logs handler reading through gateway.
func NewHandler(gateway store.Gateway, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{gateway: gateway, logger: logger.Named("logs")}
}

// List renders every stored record newest first. Without a valid session,
// or when the store cannot be read, it renders the login page with an alert
// instead. Both are 200.
func (h *Handler) List(c *gin.Context) {
	subject, ok := middleware.CurrentSubject(c)
	if !ok {
		h.renderLoginAlert(c)
		return
	}

	records, err := h.gateway.ListFingerprints(c.Request.Context())
	if err != nil {
		h.logger.Error("list fingerprints", zap.String("subject", subject), zap.Error(err))
		_ = c.Error(err)
		h.renderLoginAlert(c)
		return
	}
	h.render(c, func() ([]byte, error) { return render.Logs(records) })
}

func (h *Handler) renderLoginAlert(c *gin.Context) {
	h.render(c, func() ([]byte, error) {
		return render.Login(render.LoginView{Alert: UnauthenticatedAlert})
	})
}

func (h *Handler) render(c *gin.Context, page func() ([]byte, error)) {
	body, err := page()
	if err != nil {
		h.logger.Error("render logs page", zap.Error(err))
		response.InternalError(c)
		return
	}
	response.HTML(c, http.StatusOK, body)
}
