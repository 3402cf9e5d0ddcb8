package student

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	students := r.Group("/students")
	{
		students.GET("", h.GetAll)
		students.POST("", h.Create)
		students.POST("/import", h.Import)
	}
}
