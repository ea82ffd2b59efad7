package http

import "github.com/gin-gonic/gin"

func RegisterUserRoutes(r gin.IRouter, handler *UserHandler) {
	users := r.Group("/users")
	{
		users.POST("", handler.CreateUser)
		users.GET("/:id", handler.GetUser)
		users.PUT("/:id/currency", handler.UpdateCurrency)
		users.DELETE("/:id", handler.DeleteUser)
	}
}
