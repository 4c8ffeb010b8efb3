package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/agritrace/internal/server/handlers"
)

// RequestIDHeader is echoed on every response.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// New wires the Gin engine with required routes and middlewares. messages may
// be nil when outbound messaging is not configured.
func New(batches *handlers.BatchHandler, messages *handlers.MessageHandler, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestIDMiddleware())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/trace/:id", batches.Trace)

	api := r.Group("/api")
	{
		b := api.Group("/batches")
		b.POST("", batches.CreateBatch)
		b.GET("", batches.ListBatches)
		b.GET("/stats", batches.Stats)
		b.GET("/:id", batches.GetBatch)
		b.GET("/:id/next", batches.NextStatus)
		b.POST("/:id/events", batches.AppendEvent)
		b.POST("/:id/advance", batches.Advance)
		b.GET("/:id/qr", batches.QRCode)

		api.GET("/reports/digest", batches.Digest)

		if messages != nil {
			api.POST("/messages", messages.SendMessage)
		}
	}

	logger.Info("router initialized", zap.Bool("messaging", messages != nil))

	return r
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
