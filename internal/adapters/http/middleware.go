package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Chatter/internal/auth"
	"github.com/dkeye/Chatter/internal/domain"
)

const memberKey = "member"

// AuthMiddleware resolves the member from a bearer token. Browsers cannot
// set headers on a WebSocket handshake, so ?token= is accepted too.
func AuthMiddleware(tokens *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if raw == "" {
			raw = c.Query("token")
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		member, err := tokens.Validate(raw)
		if err != nil {
			log.Debug().Err(err).Str("module", "adapters.http").Msg("token rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(memberKey, member)
		c.Next()
	}
}

func memberFrom(c *gin.Context) domain.MemberID {
	m, _ := c.Get(memberKey)
	id, _ := m.(domain.MemberID)
	return id
}
