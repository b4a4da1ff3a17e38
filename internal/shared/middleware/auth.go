package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"wordmint-backend/internal/shared/response"
	"wordmint-backend/internal/shared/session"
	"wordmint-backend/pkg/jwt"
)

// AuthMiddleware - xác thực Bearer token và set Session vào context
func AuthMiddleware(tokens *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. Lấy token từ Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}

		// 2. Extract token từ "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			response.Unauthorized(c, "invalid authorization header format")
			c.Abort()
			return
		}

		// 3. Verify và parse JWT
		claims, err := tokens.ValidateAccessToken(parts[1])
		if err != nil {
			log.Debug().Err(err).Str("request_id", c.GetString("request_id")).Msg("token rejected")
			response.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}

		// 4. Session được truyền tường minh xuống service layer
		session.Set(c, session.Session{
			FID:         claims.FID,
			Username:    claims.Username,
			DisplayName: claims.DisplayName,
			PfpURL:      claims.PfpURL,
			Address:     claims.Address,
		})

		c.Next()
	}
}
