package suggestion

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/buildsafe/backend/internal/metrics"
	"github.com/buildsafe/backend/internal/risk"
	"github.com/buildsafe/backend/internal/storage/models"
	"github.com/buildsafe/backend/pkg/logger"
)

type libraryStore interface {
	FetchActive(ctx context.Context, kind models.LibraryKind, tenantID string) ([]models.LibraryEntry, error)
}

type termMatcher interface {
	Match(query, categoryHint string, entries []models.LibraryEntry) []models.Match
}

type generator interface {
	Generate(ctx context.Context, kind models.LibraryKind, req models.SuggestionRequest) (string, error)
}

type auditLog interface {
	Create(ctx context.Context, req models.SuggestionRequest, resp models.SuggestionResponse) (string, error)
	Decide(ctx context.Context, id string, accepted bool) error
	AcceptRate(ctx context.Context) (float64, int, error)
}

// CoveragePolicy decides whether structured matches are strong and numerous
// enough to skip the generative fallback.
type CoveragePolicy struct {
	MinBestConfidence float64
	MinMatches        int
}

func (p CoveragePolicy) Sufficient(matches []models.Match) bool {
	if len(matches) < p.MinMatches || len(matches) == 0 {
		return false
	}
	return matches[0].Confidence >= p.MinBestConfidence
}

type Config struct {
	ControlCoverage CoveragePolicy
	SupportCoverage CoveragePolicy
}

func DefaultConfig() Config {
	return Config{
		ControlCoverage: CoveragePolicy{MinBestConfidence: 0.4, MinMatches: 2},
		SupportCoverage: CoveragePolicy{MinBestConfidence: 0.25, MinMatches: 1},
	}
}

// Orchestrator composes the term matcher across the four libraries, applies
// the coverage policy, falls back to generative text where coverage is
// insufficient, computes residual risk and writes the audit record.
type Orchestrator struct {
	libraries libraryStore
	matcher   termMatcher
	generator generator
	audit     auditLog
	cfg       Config
}

func NewOrchestrator(libraries libraryStore, matcher termMatcher, generator generator, audit auditLog, cfg Config) *Orchestrator {
	if cfg.ControlCoverage.MinMatches == 0 {
		cfg.ControlCoverage = DefaultConfig().ControlCoverage
	}
	if cfg.SupportCoverage.MinMatches == 0 {
		cfg.SupportCoverage = DefaultConfig().SupportCoverage
	}

	return &Orchestrator{
		libraries: libraries,
		matcher:   matcher,
		generator: generator,
		audit:     audit,
		cfg:       cfg,
	}
}

// Suggest runs the full suggestion flow. The returned response always carries
// Success/ErrorMessage; only structural failures (validation, audit write)
// set Success=false. Absence of matches is a normal empty response.
func (o *Orchestrator) Suggest(ctx context.Context, req models.SuggestionRequest) *models.SuggestionResponse {
	start := time.Now()

	if msg := validate(req); msg != "" {
		metrics.SuggestionsTotal.WithLabelValues("validation_error").Inc()
		return &models.SuggestionResponse{Success: false, ErrorMessage: msg}
	}

	req.InitialLikelihood = risk.ClampScale(req.InitialLikelihood)
	req.InitialSeverity = risk.ClampScale(req.InitialSeverity)

	hint := categoryHint(req.ProjectType)
	combinedQuery := strings.TrimSpace(req.TaskActivity + " " + req.HazardIdentified)

	// The four library passes share no mutable state, only read access to
	// their own snapshots, so they run concurrently.
	var wg sync.WaitGroup
	results := make(map[models.LibraryKind][]models.Match, 4)
	var mu sync.Mutex

	passes := []struct {
		kind  models.LibraryKind
		query string
	}{
		{models.KindHazard, req.HazardIdentified},
		{models.KindControl, combinedQuery},
		{models.KindLegislation, combinedQuery},
		{models.KindSop, combinedQuery},
	}

	for _, pass := range passes {
		wg.Add(1)
		go func(kind models.LibraryKind, query string) {
			defer wg.Done()
			matches := o.matchLibrary(ctx, kind, query, hint, req.TenantID)
			mu.Lock()
			results[kind] = matches
			mu.Unlock()
		}(pass.kind, pass.query)
	}
	wg.Wait()

	resp := &models.SuggestionResponse{
		MatchedHazards: results[models.KindHazard],
		RelevantSops:   results[models.KindSop],
		Success:        true,
	}

	// Controls and legislation run through the explicit fallback pipeline:
	// structured matches, then generative text, then empty.
	controls := o.resolve(ctx, models.KindControl, results[models.KindControl], o.cfg.ControlCoverage, req)
	resp.SuggestedControls = controls.matches
	resp.AIGeneratedControlMeasures = controls.aiText

	legislation := o.resolve(ctx, models.KindLegislation, results[models.KindLegislation], o.cfg.SupportCoverage, req)
	resp.RelevantLegislation = legislation.matches
	resp.AIGeneratedLegislation = legislation.aiText

	resp.UsedAI = controls.usedAI || legislation.usedAI

	// Residual risk comes from structured controls only. AI prose carries no
	// numeric reduction; a human judges its effect manually.
	selected := make([]models.LibraryEntry, 0, len(resp.SuggestedControls))
	for _, m := range resp.SuggestedControls {
		selected = append(selected, m.Entry)
	}
	resp.SuggestedResidualLikelihood, resp.SuggestedResidualSeverity =
		risk.Residual(req.InitialLikelihood, req.InitialSeverity, selected)

	resp.LatencyMS = int(time.Since(start).Milliseconds())

	auditID, err := o.audit.Create(ctx, req, *resp)
	if err != nil {
		// An unlogged suggestion breaks the compliance guarantee, so unlike
		// adapter failures this one is fatal to the call.
		logger.Error("Audit write failed", zap.Error(err))
		metrics.SuggestionsTotal.WithLabelValues("audit_error").Inc()
		return &models.SuggestionResponse{
			Success:      false,
			ErrorMessage: "failed to record suggestion for audit",
		}
	}
	resp.AuditLogID = auditID

	metrics.SuggestionsTotal.WithLabelValues("ok").Inc()
	metrics.SuggestionDuration.Observe(time.Since(start).Seconds())

	logger.Info("Suggestion generated",
		zap.String("audit_id", auditID),
		zap.Int("hazards", len(resp.MatchedHazards)),
		zap.Int("controls", len(resp.SuggestedControls)),
		zap.Int("legislation", len(resp.RelevantLegislation)),
		zap.Int("sops", len(resp.RelevantSops)),
		zap.Bool("used_ai", resp.UsedAI),
		zap.Int("latency_ms", resp.LatencyMS),
	)

	return resp
}

// Decide records the reviewer's accept/reject verdict for a prior suggestion.
func (o *Orchestrator) Decide(ctx context.Context, auditID string, accepted bool) error {
	if err := o.audit.Decide(ctx, auditID, accepted); err != nil {
		return err
	}

	decision := "rejected"
	if accepted {
		decision = "accepted"
	}
	metrics.DecisionsTotal.WithLabelValues(decision).Inc()

	if rate, decided, err := o.audit.AcceptRate(ctx); err == nil && decided > 0 {
		metrics.AcceptRate.Set(rate)
	}

	return nil
}

func validate(req models.SuggestionRequest) string {
	if strings.TrimSpace(req.TaskActivity) == "" {
		return "task_activity is required"
	}
	if strings.TrimSpace(req.HazardIdentified) == "" {
		return "hazard_identified is required"
	}
	return ""
}

func (o *Orchestrator) matchLibrary(ctx context.Context, kind models.LibraryKind, query, hint, tenantID string) []models.Match {
	entries, err := o.libraries.FetchActive(ctx, kind, tenantID)
	if err != nil {
		// Degrade to an empty candidate set: partial matches from the other
		// libraries still carry value for the reviewer.
		logger.Warn("Library fetch failed", zap.String("kind", string(kind)), zap.Error(err))
		return nil
	}

	matches := o.matcher.Match(query, hint, entries)

	metrics.MatchResultsCount.WithLabelValues(string(kind)).Observe(float64(len(matches)))
	if len(matches) > 0 {
		metrics.MatchConfidence.WithLabelValues(string(kind)).Observe(matches[0].Confidence)
	}

	return matches
}

type resolution struct {
	matches []models.Match
	aiText  string
	usedAI  bool
}

// resolve is the ordered degradation pipeline for one library: structured
// matches when coverage clears the policy, generative text instead of matches
// when it does not, and whatever matches exist (possibly none) when the
// generator also fails. Each library decides independently.
func (o *Orchestrator) resolve(ctx context.Context, kind models.LibraryKind, matches []models.Match, policy CoveragePolicy, req models.SuggestionRequest) resolution {
	if policy.Sufficient(matches) {
		return resolution{matches: matches}
	}

	if o.generator == nil {
		return resolution{matches: matches}
	}

	text, err := o.generator.Generate(ctx, kind, req)
	if err != nil {
		logger.Warn("Generative fallback unavailable",
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		metrics.AIFallbackTotal.WithLabelValues(string(kind), "error").Inc()
		return resolution{matches: matches}
	}

	metrics.AIFallbackTotal.WithLabelValues(string(kind), "ok").Inc()
	return resolution{aiText: text, usedAI: true}
}

// categoryHint normalizes a free-form project type into the library category
// token form ("Working at Height" -> "working-at-height").
func categoryHint(projectType string) string {
	projectType = strings.TrimSpace(strings.ToLower(projectType))
	if projectType == "" {
		return ""
	}
	return strings.Join(strings.Fields(projectType), "-")
}
