package matching

import (
	"reflect"
	"testing"

	"github.com/buildsafe/backend/internal/storage/models"
)

func hazard(code, name string, sortOrder int, keywords ...string) models.LibraryEntry {
	return models.LibraryEntry{
		ID:       code,
		Kind:     models.KindHazard,
		Code:     code,
		Name:     name,
		Keywords: keywords,
		Category: "working-at-height",
		SortOrder: sortOrder,
		IsActive: true,
	}
}

func TestMatchFallFromHeightScenario(t *testing.T) {
	entries := []models.LibraryEntry{
		hazard("HAZ-001", "Fall from Height", 10, "fall", "height", "ladder"),
		hazard("HAZ-050", "Noise Exposure", 20, "noise", "hearing", "decibel"),
		hazard("HAZ-051", "Vibration", 30, "vibration", "havs", "tools"),
	}

	m := NewMatcher(Config{})
	matches := m.Match("ladder fall risk", "", entries)

	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Entry.Code != "HAZ-001" {
		t.Errorf("expected HAZ-001 first, got %s", matches[0].Entry.Code)
	}
	// Token overlap 2/4 weighted 0.6 = 0.3, no name or category bonus.
	if matches[0].Confidence < DefaultScoreThreshold {
		t.Errorf("confidence %f below threshold", matches[0].Confidence)
	}
	if matches[0].Confidence < 0.29 || matches[0].Confidence > 0.31 {
		t.Errorf("expected confidence ~0.3, got %f", matches[0].Confidence)
	}
}

func TestMatchCategoryHintBonus(t *testing.T) {
	entries := []models.LibraryEntry{
		hazard("HAZ-001", "Fall from Height", 10, "fall", "height", "ladder"),
	}

	m := NewMatcher(Config{})
	without := m.Match("ladder fall risk", "", entries)
	with := m.Match("ladder fall risk", "working-at-height", entries)

	if len(without) != 1 || len(with) != 1 {
		t.Fatalf("expected single match in both runs")
	}

	diff := with[0].Confidence - without[0].Confidence
	if diff < 0.09 || diff > 0.11 {
		t.Errorf("expected category bonus of 0.1, got %f", diff)
	}
}

func TestMatchNameContainmentBonus(t *testing.T) {
	entries := []models.LibraryEntry{
		hazard("HAZ-001", "Fall from Height", 10, "scaffold"),
	}

	m := NewMatcher(Config{})
	matches := m.Match("worker suffered a fall from height on site", "", entries)

	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	// No keyword overlap; the entry name appears verbatim in the query.
	if matches[0].Confidence < 0.29 || matches[0].Confidence > 0.31 {
		t.Errorf("expected confidence ~0.3 from name bonus, got %f", matches[0].Confidence)
	}
}

func TestMatchDeterministicOrdering(t *testing.T) {
	entries := []models.LibraryEntry{
		hazard("HAZ-003", "Ladder Work", 30, "ladder", "fall"),
		hazard("HAZ-001", "Fall from Height", 10, "fall", "height", "ladder"),
		hazard("HAZ-002", "Roof Access", 20, "roof", "fall", "ladder"),
	}

	m := NewMatcher(Config{})

	first := m.Match("ladder fall on roof", "", entries)
	for i := 0; i < 10; i++ {
		again := m.Match("ladder fall on roof", "", entries)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d produced different ordering", i)
		}
	}
}

func TestMatchTieBreakBySortOrderThenCode(t *testing.T) {
	entries := []models.LibraryEntry{
		hazard("HAZ-B", "Entry B", 20, "fall", "height"),
		hazard("HAZ-A", "Entry A", 20, "fall", "height"),
		hazard("HAZ-C", "Entry C", 10, "fall", "height"),
	}

	m := NewMatcher(Config{})
	matches := m.Match("fall height", "", entries)

	if len(matches) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(matches))
	}

	got := []string{matches[0].Entry.Code, matches[1].Entry.Code, matches[2].Entry.Code}
	want := []string{"HAZ-C", "HAZ-A", "HAZ-B"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tie-break order wrong: got %v, want %v", got, want)
	}
}

func TestMatchMonotonicInTokenOverlap(t *testing.T) {
	entries := []models.LibraryEntry{
		hazard("HAZ-001", "Fall from Height", 10, "fall", "height", "ladder"),
	}

	m := NewMatcher(Config{ScoreThreshold: 0.01})

	base := m.Match("ladder repair", "", entries)
	more := m.Match("ladder fall repair", "", entries)

	if len(base) != 1 || len(more) != 1 {
		t.Fatalf("expected single match in both runs")
	}
	if more[0].Confidence < base[0].Confidence {
		t.Errorf("adding a matching token decreased score: %f -> %f",
			base[0].Confidence, more[0].Confidence)
	}
}

func TestMatchEmptyInputs(t *testing.T) {
	entries := []models.LibraryEntry{
		hazard("HAZ-001", "Fall from Height", 10, "fall", "height"),
	}

	m := NewMatcher(Config{})

	if got := m.Match("", "", entries); len(got) != 0 {
		t.Errorf("empty query should return no matches, got %d", len(got))
	}
	if got := m.Match("   ", "", entries); len(got) != 0 {
		t.Errorf("blank query should return no matches, got %d", len(got))
	}
	if got := m.Match("ladder fall", "", nil); len(got) != 0 {
		t.Errorf("empty candidate set should return no matches, got %d", len(got))
	}
}

func TestMatchSkipsInactiveEntries(t *testing.T) {
	inactive := hazard("HAZ-001", "Fall from Height", 10, "fall", "height", "ladder")
	inactive.IsActive = false

	m := NewMatcher(Config{})
	if got := m.Match("ladder fall", "", []models.LibraryEntry{inactive}); len(got) != 0 {
		t.Errorf("inactive entry should be excluded, got %d matches", len(got))
	}
}

func TestMatchScoreCappedAtOne(t *testing.T) {
	entry := hazard("HAZ-001", "fall height ladder", 10, "fall", "height", "ladder")

	m := NewMatcher(Config{})
	matches := m.Match("fall height ladder", "working-at-height", []models.LibraryEntry{entry})

	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Confidence > 1.0 {
		t.Errorf("confidence exceeds 1.0: %f", matches[0].Confidence)
	}
}

func TestTokenizeDropsPunctuation(t *testing.T) {
	tokens := Tokenize("Working at height - ladders, scaffolds!")

	for _, tok := range tokens {
		if !hasLetterOrDigit(tok) {
			t.Errorf("punctuation token survived: %q", tok)
		}
	}

	found := false
	for _, tok := range tokens {
		if tok == "ladders" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected lowercase token %q in %v", "ladders", tokens)
	}
}
