package api

import (
	"net/http"
	"strings"

	"github.com/annel0/voxelforge/internal/middleware"
	"github.com/annel0/voxelforge/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ctxActor    = middleware.ActorKey
	ctxOperator = "is_op"
)

// jwtMiddleware проверяет JWT токен в заголовке Authorization
func (rs *RestServer) jwtMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, GenericResponse{
				Success: false,
				Message: "Отсутствует токен авторизации",
			})
			return
		}

		// Проверяем формат "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, GenericResponse{
				Success: false,
				Message: "Неверный формат токена",
			})
			return
		}

		id, err := rs.auth.Validate(parts[1])
		if err != nil {
			rs.logger.Debug("Отклонён токен: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, GenericResponse{
				Success: false,
				Message: "Недействительный токен",
			})
			return
		}

		c.Set(ctxActor, id.Actor)
		c.Set(ctxOperator, id.IsOperator)
		if id.IsOperator {
			c.Request = c.Request.WithContext(security.AsOperator(c.Request.Context()))
		}

		c.Next()
	}
}

// operatorMiddleware пропускает только токены с is_op.
func (rs *RestServer) operatorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(ctxOperator) {
			c.AbortWithStatusJSON(http.StatusForbidden, GenericResponse{
				Success: false,
				Message: "Недостаточно прав доступа",
			})
			return
		}
		c.Next()
	}
}

// actorOf возвращает игрока, установленного jwtMiddleware.
func actorOf(c *gin.Context) uuid.UUID {
	v, _ := c.Get(ctxActor)
	id, _ := v.(uuid.UUID)
	return id
}
