package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mx-space/fpcollector/internal/pkg/cookie"
	"github.com/mx-space/fpcollector/internal/pkg/metrics"
)

const (
	// TokenCookieName is the cookie that carries the session token.
	TokenCookieName = "token"

	contextKeySubject = "session_subject"
)

// TokenVerifier returns the subject of a valid token.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// CheckSession extracts the token cookie and verifies it. Every failure,
// including a missing cookie, yields ok == false with no further detail.
func CheckSession(r *http.Request, verifier TokenVerifier) (subject string, ok bool) {
	subject, outcome := checkSession(r, verifier)
	return subject, outcome == metrics.OutcomeAuthenticated
}

func checkSession(r *http.Request, verifier TokenVerifier) (string, string) {
	token, found := cookie.FromRequest(r, TokenCookieName)
	if !found || token == "" {
		return "", metrics.OutcomeNoCookie
	}
	subject, err := verifier.Verify(token)
	if err != nil {
		return "", metrics.OutcomeInvalidToken
	}
	return subject, metrics.OutcomeAuthenticated
}

// SessionGuard records the session decision on the context. It never aborts:
// handlers decide what an unauthenticated request sees.
func SessionGuard(verifier TokenVerifier, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject, outcome := checkSession(c.Request, verifier)
		m.SessionCheck(outcome)
		if outcome == metrics.OutcomeAuthenticated {
			c.Set(contextKeySubject, subject)
		}
		c.Next()
	}
}

// CurrentSubject returns the authenticated subject set by SessionGuard.
func CurrentSubject(c *gin.Context) (string, bool) {
	v, exists := c.Get(contextKeySubject)
	if !exists {
		return "", false
	}
	subject, ok := v.(string)
	return subject, ok
}
