package handler

import (
	"net/http"

	"tycoon-engine/internal/catalog"
	"tycoon-engine/pkg/response"
)

// CatalogHandler serves the economy tables.
type CatalogHandler struct {
	catalog *catalog.Catalog
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(c *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: c}
}

// Get handles GET /catalog
func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=300")
	response.OK(w, h.catalog)
}
