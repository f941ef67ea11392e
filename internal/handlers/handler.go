package handlers

import (
	"gridreplay/internal/logger"
	"gridreplay/internal/metrics"
	"gridreplay/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	// Live row stream for the dashboard, same port.
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.requireOperator)
	{
		h.registerDatasetRoutes(api)
		h.registerSessionRoutes(api)
	}
}

func (h *Handler) registerDatasetRoutes(api *gin.RouterGroup) {
	datasets := api.Group("/datasets")
	{
		// multipart form, field "file"
		datasets.POST("", h.uploadDataset)
		datasets.GET("", h.listDatasets)
	}
}

func (h *Handler) registerSessionRoutes(api *gin.RouterGroup) {
	sessions := api.Group("/sessions")
	{
		// Body example: {"dataset_id":"...","interval_ms":500}
		sessions.POST("", h.createSession)
		sessions.POST("/:id/load", h.reloadSession)
		sessions.POST("/:id/advance", h.advance)
		sessions.GET("/:id/summary", h.getSummary)
		sessions.GET("/:id/status", h.getStatus)
		sessions.GET("/:id/rows", h.getRows)
		sessions.GET("/:id/export", h.export)
		sessions.GET("/:id/events", h.getEvents)
		sessions.POST("/:id/play", h.play)
		sessions.POST("/:id/pause", h.pause)
		sessions.PUT("/:id/speed", h.setSpeed)
		sessions.DELETE("/:id", h.closeSession)
	}
}
