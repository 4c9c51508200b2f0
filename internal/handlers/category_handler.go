package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.catalog.Categories(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	if categories == nil {
		categories = []string{}
	}

	c.JSON(http.StatusOK, gin.H{
		"categories": append([]string{"All"}, categories...),
	})
}
