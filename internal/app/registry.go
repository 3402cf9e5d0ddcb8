package app

import (
	"net/http"

	"go-attendance/internal/attendance"
	"go-attendance/internal/config"
	"go-attendance/internal/middleware"
	"go-attendance/internal/shared/response"
	"go-attendance/internal/student"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const apiPrefix = "/api"

func registerModules(
	router *gin.Engine,
	cfg config.Config,
	st stores,
	rdb *redis.Client,
) {
	logger := zap.L()

	registry := prometheus.NewRegistry()
	metrics := middleware.NewHTTPMetrics(registry)

	attendanceWrites := attendance.WriteRoutes(apiPrefix)
	router.Use(
		middleware.ContextLogger(logger),
		metrics.Middleware(),
		middleware.RateLimitByIP(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst, attendanceWrites...),
		middleware.RateLimitRoutesByIP(rate.Limit(cfg.AttendanceWriteRPS), cfg.AttendanceWriteBurst, attendanceWrites...),
	)

	router.GET("/healthz", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok", "store": cfg.StoreDriver})
	})
	router.GET("/metrics", middleware.MetricsHandler(registry))

	// --- Services ---
	studentService := student.NewServiceWithOutbox(st.runner, st.students, st.outbox, rdb, student.Options{Topic: cfg.KafkaTopic})

	opts := attendance.Options{BatchLimit: cfg.BatchConcurrency, Topic: cfg.KafkaTopic}
	if cfg.RequireStudent {
		opts.Students = studentService
	}
	attendanceService := attendance.NewServiceWithOutbox(st.runner, st.attendance, st.outbox, rdb, opts)

	// --- Handlers ---
	studentHandler := student.NewHandler(studentService)
	attendanceHandler := attendance.NewHandler(attendanceService)

	// --- Routes Registration ---
	var batchGuards []gin.HandlerFunc
	if rdb != nil {
		batchGuards = append(batchGuards, middleware.Idempotency(rdb))
	}

	api := router.Group(apiPrefix)
	{
		student.RegisterRoutes(api, studentHandler)
		attendance.RegisterRoutes(api, attendanceHandler, batchGuards...)
	}
}
