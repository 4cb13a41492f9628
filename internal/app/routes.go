package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mx-space/fpcollector/internal/middleware"
	"github.com/mx-space/fpcollector/internal/modules/announcement"
	"github.com/mx-space/fpcollector/internal/modules/auth"
	"github.com/mx-space/fpcollector/internal/modules/fingerprint"
	"github.com/mx-space/fpcollector/internal/modules/logs"
	"github.com/mx-space/fpcollector/internal/pkg/response"
)

// AnnouncementPath is where unknown GET requests are sent.
const AnnouncementPath = "/announcement"

type handlers struct {
	fingerprint  *fingerprint.Handler
	auth         *auth.Handler
	logs         *logs.Handler
	announcement *announcement.Handler
}

type route struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// routeTable lists every public route in dispatch order.
func (a *App) routeTable(h handlers) []route {
	return []route{
		{http.MethodGet, "/fingerprint.js", chain(h.fingerprint.ServeScript)},
		{http.MethodOptions, fingerprint.IngestPath, chain(h.fingerprint.Recover(), h.fingerprint.Preflight)},
		{http.MethodPost, fingerprint.IngestPath, chain(h.fingerprint.Recover(), h.fingerprint.Ingest)},
		{http.MethodGet, "/logs", chain(middleware.SessionGuard(a.tokens, a.metrics), h.logs.List)},
		{http.MethodGet, "/login", chain(h.auth.LoginPage)},
		{http.MethodPost, "/login", chain(h.auth.Login)},
		{http.MethodGet, AnnouncementPath, chain(h.announcement.Show)},
	}
}

func (a *App) registerRoutes(h handlers) {
	for _, rt := range a.routeTable(h) {
		a.router.Handle(rt.method, rt.path, rt.handlers...)
	}
	a.router.NoRoute(fallback)
}

// fallback redirects unknown GET requests to the announcement and rejects
// everything else.
func fallback(c *gin.Context) {
	if c.Request.Method == http.MethodGet {
		response.Redirect(c, AnnouncementPath, "")
		return
	}
	response.NotFound(c)
}

func chain(fns ...gin.HandlerFunc) []gin.HandlerFunc { return fns }
