package image

import "github.com/gin-gonic/gin"

// RegisterPublicRoutes exposes the read-only gallery.
func (h *Handler) RegisterPublicRoutes(v1 *gin.RouterGroup) {
	v1.GET("/gallery", h.Gallery)
}

// RegisterProtectedRoutes expects JWT middleware on the group.
func (h *Handler) RegisterProtectedRoutes(protected *gin.RouterGroup) {
	images := protected.Group("/images")
	{
		images.GET("", h.ListMine)
		images.GET("/create", h.CreateForm)
		images.POST("", h.Create)
		images.GET("/:id/edit", h.Edit)
		images.PUT("/:id", h.Update)
		images.DELETE("/:id", h.Delete)
	}
}
