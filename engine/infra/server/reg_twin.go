package server

import (
	"errors"
	"net/http"

	"github.com/edge-sentinel/agent/engine/infra/server/router"
	"github.com/edge-sentinel/agent/engine/infra/server/routes"
	"github.com/edge-sentinel/agent/engine/twinconfig"
	"github.com/gin-gonic/gin"
)

const maxHistoryLimit = 500

type statusResponse struct {
	twinconfig.UpdateOutcome
	Mode      string   `json:"mode,omitempty"`
	Applied   bool     `json:"applied"`
	Rejected  []string `json:"rejected"`
	Namespace string   `json:"namespace"`
}

func registerTwinRoutes(r *gin.Engine, deps Deps) {
	g := r.Group(routes.Twin())
	g.GET("/reported", reportedHandler(deps.Twin))
	g.GET("/snapshot", snapshotHandler(deps.Twin))
	g.GET("/status", statusHandler(deps.Twin))
	g.GET("/history", historyHandler(deps.History))
}

// reportedHandler serves the reported document exactly as the store renders it.
func reportedHandler(twin TwinReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := twin.SerializedConfiguration()
		if err != nil {
			router.RespondWithError(c, storeStatus(err),
				router.NewRequestError(storeStatus(err), "failed to serialize configuration", err))
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", data)
	}
}

func snapshotHandler(twin TwinReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := twin.Snapshot()
		if err != nil {
			router.RespondWithError(c, storeStatus(err),
				router.NewRequestError(storeStatus(err), "failed to read configuration", err))
			return
		}
		router.RespondOK(c, snap)
	}
}

func statusHandler(twin TwinReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		outcome := twin.LastUpdateOutcome()
		resp := statusResponse{
			UpdateOutcome: outcome,
			Applied:       outcome.Applied(),
			Rejected:      outcome.Bundle.Rejected(),
			Namespace:     twin.Namespace(),
		}
		if outcome.Result != twinconfig.ResultNone {
			resp.Mode = outcome.Mode.String()
		}
		if resp.Rejected == nil {
			resp.Rejected = []string{}
		}
		router.RespondOK(c, resp)
	}
}

func historyHandler(history HistoryReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		if history == nil {
			router.RespondWithError(c, http.StatusServiceUnavailable,
				router.NewRequestError(http.StatusServiceUnavailable, "update history is disabled", nil))
			return
		}
		limit := router.LimitOrDefault(c.Query("limit"), 0, maxHistoryLimit)
		entries, err := history.List(c.Request.Context(), limit)
		if err != nil {
			router.RespondWithError(c, http.StatusInternalServerError,
				router.NewRequestError(http.StatusInternalServerError, "failed to list history", err))
			return
		}
		router.RespondOK(c, gin.H{"entries": entries, "limit": limit})
	}
}

func storeStatus(err error) int {
	if errors.Is(err, twinconfig.ErrClosed) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
