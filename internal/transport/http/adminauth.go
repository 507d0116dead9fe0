package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ashbrook/roomengine/internal/apperr"
	"github.com/ashbrook/roomengine/internal/auth"
)

// ContextKeyAdminSubject is the gin context key set once a request has
// passed admin authentication.
const ContextKeyAdminSubject = "admin_subject"

// AdminAuthConfig bundles what the middleware needs to verify either the
// raw shared-secret key or a previously issued session token.
type AdminAuthConfig struct {
	APIKeyHash string
	JWT        *auth.JWTConfig
}

// AdminLoginRequest is the body of POST /api/admin/login.
type AdminLoginRequest struct {
	APIKey string `json:"api_key" binding:"required"`
}

// AdminLoginResponse carries the issued session token.
type AdminLoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in_seconds"`
}

// AdminLoginHandler exchanges the raw shared-secret key for a short-lived
// JWT, so subsequent admin calls don't resend the secret on every request.
func AdminLoginHandler(cfg AdminAuthConfig, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AdminLoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apperr.Write(c, logger, apperr.BadRequest("invalid request body"))
			return
		}
		if err := auth.ComparePassword(cfg.APIKeyHash, req.APIKey); err != nil {
			logger.Debug().Msg("admin login rejected: bad api key")
			apperr.Write(c, logger, apperr.Unauthorized("unauthorized"))
			return
		}

		token, err := auth.GenerateAdminToken(cfg.JWT, "admin")
		if err != nil {
			logger.Error().Err(err).Msg("failed to generate admin token")
			apperr.WriteInternal(c)
			return
		}

		c.JSON(http.StatusOK, AdminLoginResponse{
			Token:     token,
			ExpiresIn: int64(cfg.JWT.TTL.Seconds()),
		})
	}
}

// AdminAuthMiddleware accepts either a raw X-Api-Key header or a Bearer
// session token minted by AdminLoginHandler.
func AdminAuthMiddleware(cfg AdminAuthConfig, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey := c.GetHeader("X-Api-Key"); apiKey != "" {
			if err := auth.ComparePassword(cfg.APIKeyHash, apiKey); err != nil {
				logger.Debug().Msg("rejected request with bad X-Api-Key")
				apperr.Write(c, logger, apperr.Unauthorized("unauthorized"))
				c.Abort()
				return
			}
			c.Set(ContextKeyAdminSubject, "admin")
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			apperr.Write(c, logger, apperr.Unauthorized("missing credentials"))
			c.Abort()
			return
		}

		claims, err := auth.ValidateAdminToken(cfg.JWT, parts[1])
		if err != nil {
			logger.Debug().Err(err).Msg("rejected request with bad admin token")
			apperr.Write(c, logger, apperr.Unauthorized("unauthorized"))
			c.Abort()
			return
		}

		c.Set(ContextKeyAdminSubject, claims.Subject)
		c.Next()
	}
}

// LoggerMiddleware logs every completed request.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}
