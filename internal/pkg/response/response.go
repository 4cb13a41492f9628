package response

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	// ContentTypeHTML is used for every rendered page.
	ContentTypeHTML = "text/html; charset=utf-8"
	// ContentTypeJSON matches what browsers get from the ingestion endpoint.
	ContentTypeJSON = "application/json"
	// ContentTypeJavaScript is used for the collection script.
	ContentTypeJavaScript = "application/javascript"
	// ContentTypeText is used for plain-text errors.
	ContentTypeText = "text/plain; charset=utf-8"

	// NotFoundBody is returned for any unrouted non-GET request.
	NotFoundBody = "Página não encontrada"
)

// HTML writes a rendered page.
func HTML(c *gin.Context, status int, body []byte) {
	c.Data(status, ContentTypeHTML, body)
}

// JSON writes v compactly with a bare application/json content type.
func JSON(c *gin.Context, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		InternalError(c)
		return
	}
	c.Data(status, ContentTypeJSON, body)
}

// JavaScript writes a script body.
func JavaScript(c *gin.Context, status int, body []byte) {
	c.Data(status, ContentTypeJavaScript, body)
}

// Text writes a plain-text body.
func Text(c *gin.Context, status int, body string) {
	c.Data(status, ContentTypeText, []byte(body))
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
	c.Writer.WriteHeaderNow()
}

// Redirect sends a 302 to location with an optional plain-text body.
func Redirect(c *gin.Context, location, body string) {
	c.Header("Location", location)
	if body == "" {
		c.Status(http.StatusFound)
		c.Writer.WriteHeaderNow()
		return
	}
	Text(c, http.StatusFound, body)
}

// NotFound sends the plain 404 page.
func NotFound(c *gin.Context) {
	c.Abort()
	Text(c, http.StatusNotFound, NotFoundBody)
}

// InternalError sends a bare 500. The cause is logged by the caller, never echoed.
func InternalError(c *gin.Context) {
	c.Abort()
	Text(c, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}
