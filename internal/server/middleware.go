package server

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	tenantHeader = "X-Tenant-ID"
	userHeader   = "X-User-ID"

	ctxTenantID = "tenant_id"
	ctxUserID   = "user_id"
)

// IdentityRequired resolves the caller's tenant and user from request
// headers. Authentication itself happens upstream at the gateway; here we
// only require that the identity headers are present and well formed.
func (s *Server) IdentityRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, err := parseSnowflake(c.GetHeader(tenantHeader))
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		userID, err := parseSnowflake(c.GetHeader(userHeader))
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(ctxTenantID, tenantID)
		c.Set(ctxUserID, userID)
		c.Next()
	}
}

func tenantID(c *gin.Context) snowflake.ID {
	v, _ := c.Get(ctxTenantID)
	id, _ := v.(snowflake.ID)
	return id
}

func userID(c *gin.Context) snowflake.ID {
	v, _ := c.Get(ctxUserID)
	id, _ := v.(snowflake.ID)
	return id
}

func parseSnowflake(raw string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(raw))
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http.request")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
