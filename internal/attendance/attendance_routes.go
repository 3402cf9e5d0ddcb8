package attendance

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the attendance endpoints; extra handlers guard the batch write.
func RegisterRoutes(r *gin.RouterGroup, h *Handler, batchGuards ...gin.HandlerFunc) {
	batch := make([]gin.HandlerFunc, 0, len(batchGuards)+1)
	batch = append(batch, batchGuards...)
	batch = append(batch, h.UpsertBatch)

	attendance := r.Group("/attendance")
	{
		attendance.GET("", h.List)
		attendance.POST("", h.Upsert)
		attendance.POST("/batch", batch...)
	}
}

// WriteRoutes names the write endpoints as "METHOD /full/path" for the group mounted at prefix.
func WriteRoutes(prefix string) []string {
	return []string{
		"POST " + prefix + "/attendance",
		"POST " + prefix + "/attendance/batch",
	}
}
