package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/collab-backend/internal/domain/entity"
	"github.com/ignatzorin/collab-backend/internal/domain/valueobject"
	"github.com/ignatzorin/collab-backend/internal/interface/http/response"
	"github.com/ignatzorin/collab-backend/internal/pkg/apperror"
)

// ContextPrincipalKey - ключ gin.Context с проверенным entity.Principal.
const ContextPrincipalKey = "principal"

type AccessTokenParser interface {
	ParseAccess(raw string) (entity.Principal, error)
}

// AuthMiddleware проверяет JWT access токен и кладёт principal в контекст.
// Для websocket токен можно передать в query-параметре token.
func AuthMiddleware(tokens AccessTokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearer(c.GetHeader("Authorization"))
		if raw == "" {
			raw = c.Query("token")
		}
		if raw == "" {
			response.Abort(c, apperror.ErrUnauthorized)
			return
		}

		principal, err := tokens.ParseAccess(raw)
		if err != nil {
			response.Abort(c, apperror.New(apperror.ErrCodeUnauthorized, "токен невалиден или истёк"))
			return
		}

		c.Set(ContextPrincipalKey, principal)
		c.Next()
	}
}

func bearer(header string) string {
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// RequireRole пропускает только перечисленные роли.
func RequireRole(roles ...valueobject.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := Principal(c)
		if !ok {
			response.Abort(c, apperror.ErrUnauthorized)
			return
		}
		for _, r := range roles {
			if p.Role == r {
				c.Next()
				return
			}
		}
		response.Abort(c, apperror.ErrForbidden)
	}
}

func Principal(c *gin.Context) (entity.Principal, bool) {
	v, ok := c.Get(ContextPrincipalKey)
	if !ok {
		return entity.Principal{}, false
	}
	p, ok := v.(entity.Principal)
	return p, ok
}
