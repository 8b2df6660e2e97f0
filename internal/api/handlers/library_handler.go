package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/buildsafe/backend/internal/legislation"
	"github.com/buildsafe/backend/internal/library"
	"github.com/buildsafe/backend/internal/storage/models"
	"github.com/buildsafe/backend/pkg/logger"
)

type LibraryHandler struct {
	store   *library.Store
	fetcher *legislation.Fetcher
}

func NewLibraryHandler(store *library.Store, fetcher *legislation.Fetcher) *LibraryHandler {
	return &LibraryHandler{store: store, fetcher: fetcher}
}

func (h *LibraryHandler) GetLibrary(c *fiber.Ctx) error {
	kind := models.LibraryKind(c.Params("kind"))
	if !kind.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown library kind",
		})
	}

	tenantID := c.Query("tenant_id")

	category := c.Query("category")
	var entries []models.LibraryEntry
	var err error
	if category != "" {
		entries, err = h.store.FetchByCategory(c.Context(), kind, category)
	} else {
		entries, err = h.store.FetchActive(c.Context(), kind, tenantID)
	}

	if err != nil {
		logger.Error("Failed to load library", zap.String("kind", string(kind)), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load library",
		})
	}

	return c.JSON(fiber.Map{
		"kind":    kind,
		"entries": entries,
	})
}

// GetLegislationReference resolves the official title and intro text of a
// legislation.gov.uk citation for library curation.
func (h *LibraryHandler) GetLegislationReference(c *fiber.Ctx) error {
	urlStr := c.Query("url")
	if urlStr == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "url is required",
		})
	}

	ref, err := h.fetcher.FetchReference(c.Context(), urlStr)
	if err != nil {
		logger.Warn("Failed to fetch legislation reference", zap.String("url", urlStr), zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to fetch legislation reference",
		})
	}

	return c.JSON(ref)
}
