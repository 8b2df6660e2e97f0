package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/buildsafe/backend/internal/audit"
	"github.com/buildsafe/backend/internal/metrics"
	"github.com/buildsafe/backend/internal/storage/models"
	"github.com/buildsafe/backend/internal/suggestion"
	"github.com/buildsafe/backend/pkg/logger"
	"github.com/buildsafe/backend/pkg/utils"
)

type suggestionCache interface {
	GetSuggestion(ctx context.Context, requestHash string) (*models.SuggestionResponse, bool, error)
	SetSuggestion(ctx context.Context, requestHash string, response *models.SuggestionResponse, ttl time.Duration) error
}

type SuggestionHandler struct {
	orchestrator *suggestion.Orchestrator
	auditLog     *audit.Log
	feed         *ActivityFeed
	cache        suggestionCache
	cacheTTL     time.Duration
}

func NewSuggestionHandler(orchestrator *suggestion.Orchestrator, auditLog *audit.Log, feed *ActivityFeed, cache suggestionCache, cacheTTL time.Duration) *SuggestionHandler {
	return &SuggestionHandler{
		orchestrator: orchestrator,
		auditLog:     auditLog,
		feed:         feed,
		cache:        cache,
		cacheTTL:     cacheTTL,
	}
}

// HandleSuggest always returns a response object; only success=false should
// surface as an error in the consuming UI. Identical requests within the cache
// TTL replay the original response, audit record id included, instead of
// creating a duplicate audit record.
func (h *SuggestionHandler) HandleSuggest(c *fiber.Ctx) error {
	var req models.SuggestionRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	requestHash := hashRequest(req)
	if h.cache != nil && requestHash != "" {
		cached, hit, err := h.cache.GetSuggestion(c.Context(), requestHash)
		if err != nil {
			logger.Warn("Suggestion cache read failed", zap.Error(err))
		} else if hit {
			metrics.CacheHits.WithLabelValues("suggestion").Inc()
			return c.JSON(cached)
		}
		metrics.CacheMisses.WithLabelValues("suggestion").Inc()
	}

	resp := h.orchestrator.Suggest(c.Context(), req)

	if resp.Success {
		if h.cache != nil && requestHash != "" {
			if err := h.cache.SetSuggestion(c.Context(), requestHash, resp, h.cacheTTL); err != nil {
				logger.Warn("Suggestion cache write failed", zap.Error(err))
			}
		}

		if h.feed != nil {
			h.feed.Publish(ActivityEvent{
				Type:       "suggestion",
				AuditLogID: resp.AuditLogID,
				UsedAI:     resp.UsedAI,
			})
		}
	}

	return c.JSON(resp)
}

func hashRequest(req models.SuggestionRequest) string {
	data, err := json.Marshal(req)
	if err != nil {
		return ""
	}
	return utils.HashString(string(data))
}

func (h *SuggestionHandler) HandleDecide(c *fiber.Ctx) error {
	auditID := c.Params("id")
	if auditID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Audit record id is required",
		})
	}

	var req struct {
		Accepted bool `json:"accepted"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	err := h.orchestrator.Decide(c.Context(), auditID, req.Accepted)
	if errors.Is(err, audit.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Audit record not found",
		})
	}
	if err != nil {
		logger.Error("Failed to record decision", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to record decision",
		})
	}

	if h.feed != nil {
		h.feed.Publish(ActivityEvent{
			Type:       "decision",
			AuditLogID: auditID,
			Accepted:   &req.Accepted,
		})
	}

	return c.JSON(fiber.Map{
		"audit_log_id": auditID,
		"accepted":     req.Accepted,
	})
}

func (h *SuggestionHandler) GetAuditRecord(c *fiber.Ctx) error {
	record, err := h.auditLog.Get(c.Context(), c.Params("id"))
	if errors.Is(err, audit.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Audit record not found",
		})
	}
	if err != nil {
		logger.Error("Failed to load audit record", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load audit record",
		})
	}

	return c.JSON(record)
}

func (h *SuggestionHandler) GetHistory(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)

	records, err := h.auditLog.List(c.Context(), limit)
	if err != nil {
		logger.Error("Failed to list audit records", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load suggestion history",
		})
	}

	return c.JSON(fiber.Map{
		"history": records,
	})
}
