package prometheus

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler exposes the collectors of one registry
type Handler struct {
	handler http.Handler
}

func New(gatherer prometheus.Gatherer) *Handler {
	return &Handler{
		handler: promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
	}
}

func (h *Handler) RegisterRoutes(r gin.IRouter, path string) {
	if path == "" {
		path = "/metrics"
	}
	r.GET(path, h.Metrics)
}

func (h *Handler) Metrics(c *gin.Context) {
	h.handler.ServeHTTP(c.Writer, c.Request)
}
