package relay

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"go.klb.dev/wmglue/internal/metrics"
	"go.klb.dev/wmglue/internal/middleware"
)

type putRequest struct {
	Content *string  `json:"content"`
	Time    *float64 `json:"time"`
}

// NewRouter returns the relay's HTTP routes. token may be empty to disable
// auth; /healthz and /metrics are always open.
func NewRouter(store *Store, token string, reg *prometheus.Registry) *gin.Engine {
	r := middleware.NewEngine()
	if reg != nil {
		r.Use(middleware.Metrics(metrics.NewHTTP(reg, "wmglue_relay")))
		r.GET("/metrics", gin.WrapH(metrics.Handler(reg)))
	}
	r.Use(middleware.BearerAuth(token, "/healthz", "/metrics"))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/get", func(c *gin.Context) {
		c.JSON(http.StatusOK, store.Get())
	})

	r.POST("/put", func(c *gin.Context) {
		var req putRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.Error(c, http.StatusBadRequest, err)
			return
		}
		if req.Content == nil || req.Time == nil {
			middleware.Error(c, http.StatusBadRequest, errors.New("content and time are required"))
			return
		}
		res := store.Put(*req.Content, *req.Time)
		if !res.Accepted() {
			c.JSON(http.StatusOK, gin.H{"status": 0})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": 1, "content": res.Content, "time": res.Time})
	})

	return r
}
