package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"deskhub/internal/api"
	"deskhub/internal/notification"
)

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{Status: "ok"})
}

func Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// NotificationQueue reports the depth of the outbound notification queue.
func NotificationQueue(notifier *notification.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"queue_length": notifier.QueueLength(c.Request.Context()),
		})
	}
}
