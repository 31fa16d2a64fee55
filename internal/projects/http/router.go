package http

import "github.com/gin-gonic/gin"

// Register attaches project routes to the given router group. The generate
// middleware wraps every route that calls the text generator.
func (h *Handler) Register(rg *gin.RouterGroup, generate ...gin.HandlerFunc) {
	rg.POST("", h.create)
	rg.GET("", h.list)
	rg.GET("/:id", h.get)
	rg.DELETE("/:id", h.delete)
	rg.GET("/:id/export", h.export)
	rg.PUT("/:id/sections/:index/feedback", h.feedback)
	rg.POST("/:id/sections/:index/comments", h.comment)

	gen := rg.Group("", generate...)
	gen.POST("/:id/outline", h.outline)
	gen.POST("/:id/generate-outline", h.outline)
	gen.POST("/:id/sections/generate", h.generate)
	gen.POST("/:id/sections/refine", h.refine)
}
