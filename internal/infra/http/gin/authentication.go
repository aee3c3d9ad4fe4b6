package ginserver

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"
)

const principalContextKey = "rateplans.principal"

type principal struct {
	HostID string
	Token  string
}

// AuthMiddleware resolves bearer tokens against a static token -> host table.
// Requests without a known token continue anonymously; host routes reject them.
type AuthMiddleware struct {
	Tokens map[string]string
	Logger *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || len(m.Tokens) == 0 {
		c.Next()
		return
	}
	hostID, ok := m.lookup(token)
	if !ok {
		if m.Logger != nil {
			m.Logger.Debug("unknown api token", "path", c.FullPath())
		}
		c.Next()
		return
	}
	setPrincipal(c, principal{HostID: hostID, Token: token})
	c.Next()
}

func (m AuthMiddleware) lookup(token string) (string, bool) {
	for known, hostID := range m.Tokens {
		if subtle.ConstantTimeCompare([]byte(known), []byte(token)) == 1 {
			hostID = strings.TrimSpace(hostID)
			return hostID, hostID != ""
		}
	}
	return "", false
}

func setPrincipal(c *gin.Context, p principal) {
	c.Set(principalContextKey, p)
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal{}, false
	}
	p, ok := val.(principal)
	return p, ok
}

func requireHost(c *gin.Context) (principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return principal{}, false
	}
	return p, true
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
