// Package announcement serves the public page that embeds the collector.
package announcement

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mx-space/fpcollector/internal/config"
	"github.com/mx-space/fpcollector/internal/pkg/response"
	"github.com/mx-space/fpcollector/internal/render"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

var markdownEngine = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Typographer,
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithHardWraps(),
	),
)

// Handler serves a page rendered once at startup.
type Handler struct {
	page []byte
}

// NewHandler renders the configured announcement. Raw HTML in the markdown
// is dropped by goldmark's default renderer.
func NewHandler(cfg config.AnnouncementConfig) (*Handler, error) {
	var body bytes.Buffer
	if err := markdownEngine.Convert([]byte(cfg.Markdown), &body); err != nil {
		return nil, fmt.Errorf("convert announcement markdown: %w", err)
	}
	page, err := render.Announcement(render.AnnouncementView{
		Title:     cfg.Title,
		Heading:   cfg.Heading,
		Body:      template.HTML(body.String()),
		ImageURL:  cfg.ImageURL,
		ScriptSrc: cfg.ScriptSrc,
	})
	if err != nil {
		return nil, err
	}
	return &Handler{page: page}, nil
}

// Show writes the page.
func (h *Handler) Show(c *gin.Context) {
	response.HTML(c, http.StatusOK, h.page)
}
