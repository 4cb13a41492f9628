package fingerprint

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mx-space/fpcollector/internal/pkg/metrics"
	"github.com/mx-space/fpcollector/internal/pkg/response"
	"github.com/mx-space/fpcollector/internal/store"
	"go.uber.org/zap"
)

// Handler serves the collection script and the ingestion endpoint.
type Handler struct {
	svc     *Service
	scripts *ScriptBuilder
	scheme  string
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewHandler wires the fingerprint routes. scheme is the URL scheme the
// script uses to reach the ingest endpoint.
func NewHandler(svc *Service, scripts *ScriptBuilder, scheme string, m *metrics.Metrics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, scripts: scripts, scheme: scheme, metrics: m, logger: logger.Named("fingerprint")}
}

type ingestResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ServeScript returns the collector, posting back to the requesting host.
func (h *Handler) ServeScript(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	response.JavaScript(c, http.StatusOK, h.scripts.Build(EndpointURL(h.scheme, c.Request.Host)))
}

// Preflight answers the CORS preflight for the ingest endpoint.
func (h *Handler) Preflight(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type")
	c.Header("Access-Control-Max-Age", "86400")
	response.NoContent(c)
}

// Ingest stores one fingerprint. Every failure is a 500 carrying the error
// text, without the CORS header.
func (h *Handler) Ingest(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.fail(c, metrics.OutcomeMalformed, err)
		return
	}
	if _, err := h.svc.Ingest(c.Request.Context(), raw); err != nil {
		outcome := metrics.OutcomeStorageError
		if errors.Is(err, ErrMalformedPayload) {
			outcome = metrics.OutcomeMalformed
		} else if !errors.Is(err, store.ErrStorage) {
			h.logger.Error("unexpected ingest failure", zap.Error(err))
		}
		h.fail(c, outcome, err)
		return
	}

	h.metrics.Ingest(metrics.OutcomeOK)
	c.Header("Access-Control-Allow-Origin", "*")
	response.JSON(c, http.StatusOK, ingestResult{Success: true})
}

// Recover turns a panic in the ingest handlers into the same JSON 500 as
// any other ingest failure.
func (h *Handler) Recover() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		c.Abort()
		h.logger.Error("ingest panic", zap.Any("panic", recovered), zap.Stack("stack"))
		h.fail(c, metrics.OutcomeStorageError, fmt.Errorf("%v", recovered))
	})
}

func (h *Handler) fail(c *gin.Context, outcome string, err error) {
	h.metrics.Ingest(outcome)
	_ = c.Error(err)
	response.JSON(c, http.StatusInternalServerError, ingestResult{Error: err.Error()})
}
