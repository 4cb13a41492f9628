package announcement

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mx-space/fpcollector/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShowRendersMarkdownOnce(t *testing.T) {
	h, err := NewHandler(config.AnnouncementConfig{
		Title:     "Anúncio de Produto",
		Heading:   "Bem-vindo",
		Markdown:  "**Oferta** por tempo limitado\n\n<script>alert(1)</script>",
		ImageURL:  "https://cdn.example/produto.png",
		ScriptSrc: "/fingerprint.js",
	})
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/announcement", h.Show)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/announcement", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "<strong>Oferta</strong>")
	assert.NotContains(t, body, "<script>alert(1)</script>")
	assert.Contains(t, body, `<img src="https://cdn.example/produto.png"`)
	assert.Contains(t, body, `<script src="/fingerprint.js"></script>`)
}
