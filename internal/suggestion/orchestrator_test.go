package suggestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/buildsafe/backend/internal/audit"
	"github.com/buildsafe/backend/internal/matching"
	"github.com/buildsafe/backend/internal/storage/models"
)

type fakeLibraries struct {
	entries map[models.LibraryKind][]models.LibraryEntry
	errKind models.LibraryKind
}

func (f *fakeLibraries) FetchActive(ctx context.Context, kind models.LibraryKind, tenantID string) ([]models.LibraryEntry, error) {
	if f.errKind != "" && kind == f.errKind {
		return nil, errors.New("library store unavailable")
	}
	return f.entries[kind], nil
}

type fakeGenerator struct {
	text  string
	err   error
	calls []models.LibraryKind
}

func (f *fakeGenerator) Generate(ctx context.Context, kind models.LibraryKind, req models.SuggestionRequest) (string, error) {
	f.calls = append(f.calls, kind)
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type fakeAudit struct {
	created   int
	createErr error
	decisions map[string]bool
}

func newFakeAudit() *fakeAudit {
	return &fakeAudit{decisions: make(map[string]bool)}
}

func (f *fakeAudit) Create(ctx context.Context, req models.SuggestionRequest, resp models.SuggestionResponse) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created++
	return fmt.Sprintf("audit-%d", f.created), nil
}

func (f *fakeAudit) Decide(ctx context.Context, id string, accepted bool) error {
	if id == "missing" {
		return audit.ErrNotFound
	}
	f.decisions[id] = accepted
	return nil
}

func (f *fakeAudit) AcceptRate(ctx context.Context) (float64, int, error) {
	return 0, 0, nil
}

func entry(kind models.LibraryKind, code, name string, sortOrder, lr, sr int, keywords ...string) models.LibraryEntry {
	return models.LibraryEntry{
		ID:                  code,
		Kind:                kind,
		Code:                code,
		Name:                name,
		Keywords:            keywords,
		SortOrder:           sortOrder,
		IsActive:            true,
		LikelihoodReduction: lr,
		SeverityReduction:   sr,
	}
}

// coveredLibraries returns a library set where the standard request below
// clears the control and support coverage bars with structured matches.
func coveredLibraries() *fakeLibraries {
	return &fakeLibraries{entries: map[models.LibraryKind][]models.LibraryEntry{
		models.KindHazard: {
			entry(models.KindHazard, "HAZ-001", "Fall from Height", 10, 0, 0, "fall", "height"),
		},
		models.KindControl: {
			entry(models.KindControl, "CTL-001", "Edge Protection", 10, 2, 1,
				"fit", "edge", "protection", "rails", "fall", "height"),
			entry(models.KindControl, "CTL-002", "Rail Inspection", 20, 1, 0,
				"edge", "protection", "rails", "fall"),
		},
		models.KindLegislation: {
			entry(models.KindLegislation, "LEG-001", "Work at Height Regulations 2005", 10, 0, 0,
				"fall", "height", "edge", "protection", "rails"),
		},
		models.KindSop: {
			entry(models.KindSop, "SOP-001", "Working at Height Procedure", 10, 0, 0,
				"height", "fall", "rails"),
		},
	}}
}

func standardRequest() models.SuggestionRequest {
	return models.SuggestionRequest{
		TaskActivity:      "fit edge protection rails",
		HazardIdentified:  "fall from height",
		InitialLikelihood: 4,
		InitialSeverity:   5,
	}
}

func newTestOrchestrator(libs *fakeLibraries, gen *fakeGenerator, aud *fakeAudit) *Orchestrator {
	matcher := matching.NewMatcher(matching.Config{})
	if gen == nil {
		return NewOrchestrator(libs, matcher, nil, aud, DefaultConfig())
	}
	return NewOrchestrator(libs, matcher, gen, aud, DefaultConfig())
}

func TestSuggestValidationFailure(t *testing.T) {
	aud := newFakeAudit()
	o := newTestOrchestrator(coveredLibraries(), nil, aud)

	for _, req := range []models.SuggestionRequest{
		{TaskActivity: "", HazardIdentified: "fall", InitialLikelihood: 3, InitialSeverity: 3},
		{TaskActivity: "   ", HazardIdentified: "fall", InitialLikelihood: 3, InitialSeverity: 3},
		{TaskActivity: "roofing", HazardIdentified: "", InitialLikelihood: 3, InitialSeverity: 3},
	} {
		resp := o.Suggest(context.Background(), req)
		if resp.Success {
			t.Errorf("expected success=false for invalid request %+v", req)
		}
		if resp.ErrorMessage == "" {
			t.Errorf("expected an error message for invalid request")
		}
	}

	if aud.created != 0 {
		t.Errorf("validation failures must not create audit records, got %d", aud.created)
	}
}

func TestSuggestSufficientCoverageSkipsAI(t *testing.T) {
	gen := &fakeGenerator{text: "should not be used"}
	aud := newFakeAudit()
	o := newTestOrchestrator(coveredLibraries(), gen, aud)

	resp := o.Suggest(context.Background(), standardRequest())

	if !resp.Success {
		t.Fatalf("expected success, got error %q", resp.ErrorMessage)
	}
	if resp.UsedAI {
		t.Error("expected usedAI=false when coverage is sufficient")
	}
	if len(gen.calls) != 0 {
		t.Errorf("generator should not be called, got calls for %v", gen.calls)
	}
	if len(resp.SuggestedControls) < 2 {
		t.Fatalf("expected at least 2 structured controls, got %d", len(resp.SuggestedControls))
	}
	if resp.SuggestedControls[0].Entry.Code != "CTL-001" {
		t.Errorf("expected CTL-001 ranked first, got %s", resp.SuggestedControls[0].Entry.Code)
	}
	if len(resp.MatchedHazards) == 0 || resp.MatchedHazards[0].Entry.Code != "HAZ-001" {
		t.Errorf("expected HAZ-001 in matched hazards")
	}
	if len(resp.RelevantLegislation) == 0 {
		t.Error("expected structured legislation matches")
	}
	if len(resp.RelevantSops) == 0 {
		t.Error("expected SOP matches")
	}
	if resp.AuditLogID == "" {
		t.Error("expected audit log id on successful suggestion")
	}

	// Reductions: CTL-001 (2,1) + CTL-002 (1,0) against initial (4,5).
	if resp.SuggestedResidualLikelihood != 1 {
		t.Errorf("residual likelihood = %d, want 1", resp.SuggestedResidualLikelihood)
	}
	if resp.SuggestedResidualSeverity != 4 {
		t.Errorf("residual severity = %d, want 4", resp.SuggestedResidualSeverity)
	}
}

func TestSuggestInsufficientCoverageUsesAI(t *testing.T) {
	gen := &fakeGenerator{text: "Provide solvent-resistant gloves and ventilation."}
	aud := newFakeAudit()
	o := newTestOrchestrator(coveredLibraries(), gen, aud)

	req := models.SuggestionRequest{
		TaskActivity:      "paint interior walls",
		HazardIdentified:  "solvent fumes",
		InitialLikelihood: 3,
		InitialSeverity:   3,
	}

	resp := o.Suggest(context.Background(), req)

	if !resp.Success {
		t.Fatalf("expected success, got error %q", resp.ErrorMessage)
	}
	if !resp.UsedAI {
		t.Error("expected usedAI=true after fallback")
	}
	if resp.AIGeneratedControlMeasures == "" {
		t.Error("expected AI control measure text")
	}
	if len(resp.SuggestedControls) != 0 {
		t.Errorf("AI text replaces structured controls, got %d matches", len(resp.SuggestedControls))
	}
	if resp.AIGeneratedLegislation == "" {
		t.Error("expected AI legislation text")
	}

	// With no structured controls, residual equals the initial values.
	if resp.SuggestedResidualLikelihood != 3 || resp.SuggestedResidualSeverity != 3 {
		t.Errorf("residual = (%d,%d), want (3,3)",
			resp.SuggestedResidualLikelihood, resp.SuggestedResidualSeverity)
	}
}

func TestSuggestAdapterFailureDegradesGracefully(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("upstream timeout")}
	aud := newFakeAudit()

	// One qualifying control match, below the 2-match coverage bar.
	libs := &fakeLibraries{entries: map[models.LibraryKind][]models.LibraryEntry{
		models.KindControl: {
			entry(models.KindControl, "CTL-009", "Edge Protection", 10, 1, 1,
				"fit", "edge", "protection", "rails"),
		},
	}}
	o := newTestOrchestrator(libs, gen, aud)

	resp := o.Suggest(context.Background(), standardRequest())

	if !resp.Success {
		t.Fatalf("adapter failure must not fail the call, got error %q", resp.ErrorMessage)
	}
	if resp.UsedAI {
		t.Error("expected usedAI=false when the adapter fails")
	}
	if resp.AIGeneratedControlMeasures != "" || resp.AIGeneratedLegislation != "" {
		t.Error("expected no AI text when the adapter fails")
	}
	if len(resp.SuggestedControls) != 1 {
		t.Errorf("expected the partial structured match to be kept, got %d", len(resp.SuggestedControls))
	}
	if resp.AuditLogID == "" {
		t.Error("expected audit record despite adapter failure")
	}
}

func TestSuggestNoMatchesIsStillSuccess(t *testing.T) {
	aud := newFakeAudit()
	libs := &fakeLibraries{entries: map[models.LibraryKind][]models.LibraryEntry{}}
	o := newTestOrchestrator(libs, nil, aud)

	resp := o.Suggest(context.Background(), standardRequest())

	if !resp.Success {
		t.Fatalf("empty result is not an error, got %q", resp.ErrorMessage)
	}
	if resp.ErrorMessage != "" {
		t.Errorf("expected no error message, got %q", resp.ErrorMessage)
	}
	if len(resp.MatchedHazards) != 0 || len(resp.SuggestedControls) != 0 {
		t.Error("expected empty match lists")
	}
	if aud.created != 1 {
		t.Errorf("empty suggestions are still audited, got %d records", aud.created)
	}
}

func TestSuggestLibraryFetchFailureDegrades(t *testing.T) {
	aud := newFakeAudit()
	libs := coveredLibraries()
	libs.errKind = models.KindHazard
	o := newTestOrchestrator(libs, nil, aud)

	resp := o.Suggest(context.Background(), standardRequest())

	if !resp.Success {
		t.Fatalf("library fetch failure should degrade, got error %q", resp.ErrorMessage)
	}
	if len(resp.MatchedHazards) != 0 {
		t.Error("expected no hazard matches when the hazard library is down")
	}
	if len(resp.SuggestedControls) == 0 {
		t.Error("other libraries should still produce matches")
	}
}

func TestSuggestAuditWriteFailureIsFatal(t *testing.T) {
	aud := newFakeAudit()
	aud.createErr = errors.New("disk full")
	o := newTestOrchestrator(coveredLibraries(), nil, aud)

	resp := o.Suggest(context.Background(), standardRequest())

	if resp.Success {
		t.Error("audit write failure must fail the call")
	}
	if resp.AuditLogID != "" {
		t.Error("expected no audit log id on audit failure")
	}
	if resp.ErrorMessage == "" {
		t.Error("expected a generic error message")
	}
}

func TestSuggestClampsOutOfRangeInitialValues(t *testing.T) {
	aud := newFakeAudit()
	libs := &fakeLibraries{entries: map[models.LibraryKind][]models.LibraryEntry{}}
	o := newTestOrchestrator(libs, nil, aud)

	req := standardRequest()
	req.InitialLikelihood = 0
	req.InitialSeverity = 9

	resp := o.Suggest(context.Background(), req)

	if resp.SuggestedResidualLikelihood != 1 || resp.SuggestedResidualSeverity != 5 {
		t.Errorf("residual = (%d,%d), want clamped (1,5)",
			resp.SuggestedResidualLikelihood, resp.SuggestedResidualSeverity)
	}
}

func TestDecideLastWriteWins(t *testing.T) {
	aud := newFakeAudit()
	o := newTestOrchestrator(coveredLibraries(), nil, aud)

	if err := o.Decide(context.Background(), "audit-1", true); err != nil {
		t.Fatalf("first decide failed: %v", err)
	}
	if err := o.Decide(context.Background(), "audit-1", false); err != nil {
		t.Fatalf("second decide failed: %v", err)
	}

	if accepted, ok := aud.decisions["audit-1"]; !ok || accepted {
		t.Errorf("expected last decision (rejected) to win, got accepted=%v", accepted)
	}
}

func TestDecideUnknownRecord(t *testing.T) {
	aud := newFakeAudit()
	o := newTestOrchestrator(coveredLibraries(), nil, aud)

	err := o.Decide(context.Background(), "missing", true)
	if !errors.Is(err, audit.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCategoryHint(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", ""},
		{"Working at Height", "working-at-height"},
		{"  Manual   Handling ", "manual-handling"},
		{"electrical", "electrical"},
	}
	for _, tc := range cases {
		if got := categoryHint(tc.in); got != tc.want {
			t.Errorf("categoryHint(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCoveragePolicy(t *testing.T) {
	policy := CoveragePolicy{MinBestConfidence: 0.4, MinMatches: 2}

	strong := []models.Match{{Confidence: 0.7}, {Confidence: 0.2}}
	if !policy.Sufficient(strong) {
		t.Error("expected coverage sufficient with best 0.7 and 2 matches")
	}

	tooFew := []models.Match{{Confidence: 0.9}}
	if policy.Sufficient(tooFew) {
		t.Error("expected coverage insufficient with a single match")
	}

	weakBest := []models.Match{{Confidence: 0.3}, {Confidence: 0.25}}
	if policy.Sufficient(weakBest) {
		t.Error("expected coverage insufficient with best below the bar")
	}

	if policy.Sufficient(nil) {
		t.Error("expected empty matches to be insufficient")
	}
}

func TestValidateMessages(t *testing.T) {
	if msg := validate(models.SuggestionRequest{HazardIdentified: "x"}); !strings.Contains(msg, "task_activity") {
		t.Errorf("expected task_activity in message, got %q", msg)
	}
	if msg := validate(models.SuggestionRequest{TaskActivity: "x"}); !strings.Contains(msg, "hazard_identified") {
		t.Errorf("expected hazard_identified in message, got %q", msg)
	}
	if msg := validate(models.SuggestionRequest{TaskActivity: "x", HazardIdentified: "y"}); msg != "" {
		t.Errorf("expected valid request, got %q", msg)
	}
}
