package http

import (
	"github.com/gin-gonic/gin"
)

// Register mounts the playground REST routes on r.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	api := r.Group("/api")
	api.GET("/metrics", h.MetricsSummary)

	pg := api.Group("/playground")
	pg.GET("", h.GetPlayground)
	pg.PUT("/code", h.SetCode)
	pg.POST("/run", h.Run)
	pg.POST("/stop", h.Stop)
	pg.POST("/reset", h.Reset)
	pg.DELETE("/output", h.ClearOutput)
	pg.PUT("/error", h.SetError)
	pg.PUT("/theme", h.SetTheme)
	pg.PUT("/handoff", h.PutHandoff)
	pg.POST("/handoff/claim", h.ClaimHandoff)
}
