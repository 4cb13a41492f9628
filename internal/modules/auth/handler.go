package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mx-space/fpcollector/internal/middleware"
	"github.com/mx-space/fpcollector/internal/pkg/metrics"
	"github.com/mx-space/fpcollector/internal/pkg/response"
	"github.com/mx-space/fpcollector/internal/render"
	"go.uber.org/zap"
)

const (
	// MismatchMessage is shown under the form when no credential matched.
	MismatchMessage = "Usuário não encontrado"
	// LoginSuccessBody accompanies the redirect after a successful login.
	LoginSuccessBody = "Login realizado com sucesso. Redirecionando..."

	loggedInLocation = "/logs"
)

// TokenIssuer signs a session token for a subject.
type TokenIssuer interface {
	Issue(subject string) (string, error)
}

// Handler serves the login page and the login form submission.
type Handler struct {
	verifier Verifier
	tokens   TokenIssuer
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewHandler creates a login handler.
func NewHandler(verifier Verifier, tokens TokenIssuer, m *metrics.Metrics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{verifier: verifier, tokens: tokens, metrics: m, logger: logger.Named("auth")}
}

// LoginPage renders the empty login form.
func (h *Handler) LoginPage(c *gin.Context) {
	h.renderLogin(c, render.LoginView{})
}

// Login checks the submitted email and password. A match sets the session
// cookie and redirects to the logs; a mismatch re-renders the form.
func (h *Handler) Login(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")

	cred, err := h.verifier.Verify(c.Request.Context(), email, password)
	switch {
	case errors.Is(err, ErrCredentialMismatch):
		h.metrics.Login(metrics.OutcomeMismatch)
		h.logger.Info("login rejected", zap.String("email", email))
		h.renderLogin(c, render.LoginView{Error: MismatchMessage})
		return
	case err != nil:
		h.metrics.Login(metrics.OutcomeStorageError)
		h.logger.Error("credential lookup", zap.Error(err))
		_ = c.Error(err)
		response.InternalError(c)
		return
	}

	token, err := h.tokens.Issue(cred.Name)
	if err != nil {
		h.logger.Error("issue session token", zap.Error(err))
		_ = c.Error(err)
		response.InternalError(c)
		return
	}

	h.metrics.Login(metrics.OutcomeOK)
	h.logger.Info("login accepted", zap.String("email", email))
	c.Header("Set-Cookie", middleware.TokenCookieName+"="+token+"; HttpOnly; Path=/")
	response.Redirect(c, loggedInLocation, LoginSuccessBody)
}

func (h *Handler) renderLogin(c *gin.Context, view render.LoginView) {
	page, err := render.Login(view)
	if err != nil {
		h.logger.Error("render login page", zap.Error(err))
		response.InternalError(c)
		return
	}
	response.HTML(c, http.StatusOK, page)
}
