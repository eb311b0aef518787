package server

import (
	"net/http"
	"sort"

	"github.com/edge-sentinel/agent/engine/infra/server/routes"
	"github.com/gin-gonic/gin"
)

const (
	statusReady    = "ready"
	statusNotReady = "not_ready"
)

func registerHealthRoutes(r *gin.Engine, deps Deps) {
	r.GET(routes.Healthz, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"data":    gin.H{"status": "ok", "version": deps.Version},
			"message": "Success",
		})
	})
	r.GET(routes.Readyz, createReadyHandler(deps))
}

func createReadyHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ready := true
		components := gin.H{}
		if _, err := deps.Twin.Snapshot(); err != nil {
			ready = false
			components["twin"] = gin.H{"ready": false, "error": err.Error()}
		} else {
			components["twin"] = gin.H{"ready": true}
		}
		names := make([]string, 0, len(deps.Checks))
		for name := range deps.Checks {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if err := deps.Checks[name].HealthCheck(ctx); err != nil {
				ready = false
				components[name] = gin.H{"ready": false, "error": err.Error()}
				continue
			}
			components[name] = gin.H{"ready": true}
		}
		status, code := statusReady, http.StatusOK
		if !ready {
			status, code = statusNotReady, http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"data": gin.H{
				"status":     status,
				"ready":      ready,
				"version":    deps.Version,
				"components": components,
			},
			"message": "Success",
		})
	}
}
