package http

import "github.com/gin-gonic/gin"

// Register attaches project routes to the given router group. limit guards
// the mutation endpoints and may be nil.
func (h *Handler) Register(rg *gin.RouterGroup, limit gin.HandlerFunc) {
	guarded := func(final gin.HandlerFunc) []gin.HandlerFunc {
		if limit == nil {
			return []gin.HandlerFunc{final}
		}
		return []gin.HandlerFunc{limit, final}
	}

	rg.GET("", h.list)
	rg.GET("/stream", h.stream)
	rg.POST("", guarded(h.create)...)
	rg.DELETE("/:id", guarded(h.delete)...)
}
