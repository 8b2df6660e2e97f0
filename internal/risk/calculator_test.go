package risk

import (
	"testing"

	"github.com/buildsafe/backend/internal/storage/models"
)

func TestRating(t *testing.T) {
	if got := Rating(3, 5); got != 15 {
		t.Errorf("Rating(3,5) = %d, want 15", got)
	}
	if got := Rating(1, 1); got != 1 {
		t.Errorf("Rating(1,1) = %d, want 1", got)
	}
	if got := Rating(5, 5); got != 25 {
		t.Errorf("Rating(5,5) = %d, want 25", got)
	}
}

func TestLevelForBuckets(t *testing.T) {
	cases := []struct {
		rating int
		want   Level
	}{
		{1, LevelLow},
		{4, LevelLow},
		{5, LevelMedium},
		{12, LevelMedium},
		{13, LevelHigh},
		{25, LevelHigh},
	}

	for _, tc := range cases {
		if got := LevelFor(tc.rating); got != tc.want {
			t.Errorf("LevelFor(%d) = %s, want %s", tc.rating, got, tc.want)
		}
	}
}

func TestLevelStableAcrossFullRange(t *testing.T) {
	for likelihood := 1; likelihood <= 5; likelihood++ {
		for severity := 1; severity <= 5; severity++ {
			rating := Rating(likelihood, severity)
			level := LevelFor(rating)

			var want Level
			switch {
			case rating <= 4:
				want = LevelLow
			case rating <= 12:
				want = LevelMedium
			default:
				want = LevelHigh
			}

			if level != want {
				t.Errorf("LevelFor(%d) = %s, want %s", rating, level, want)
			}
		}
	}
}

func control(lr, sr int) models.LibraryEntry {
	return models.LibraryEntry{
		Kind:                models.KindControl,
		LikelihoodReduction: lr,
		SeverityReduction:   sr,
	}
}

func TestResidualExactReduction(t *testing.T) {
	l, s := Residual(3, 5, []models.LibraryEntry{control(2, 0)})
	if l != 1 || s != 5 {
		t.Errorf("Residual(3,5) with (2,0) reduction = (%d,%d), want (1,5)", l, s)
	}
}

func TestResidualFloorsAtOne(t *testing.T) {
	// Total reduction exceeds the initial values on both axes.
	controls := []models.LibraryEntry{control(3, 4), control(2, 3)}

	l, s := Residual(2, 3, controls)
	if l != 1 {
		t.Errorf("residual likelihood = %d, want floor of 1", l)
	}
	if s != 1 {
		t.Errorf("residual severity = %d, want floor of 1", s)
	}
}

func TestResidualNoControls(t *testing.T) {
	l, s := Residual(4, 3, nil)
	if l != 4 || s != 3 {
		t.Errorf("Residual with no controls = (%d,%d), want (4,3)", l, s)
	}
}

func TestResidualSumsAcrossControls(t *testing.T) {
	controls := []models.LibraryEntry{control(1, 1), control(1, 0), control(0, 1)}

	l, s := Residual(5, 5, controls)
	if l != 3 || s != 3 {
		t.Errorf("Residual(5,5) = (%d,%d), want (3,3)", l, s)
	}
}

func TestClampScale(t *testing.T) {
	cases := []struct{ in, want int }{
		{0, 1}, {-3, 1}, {1, 1}, {3, 3}, {5, 5}, {6, 5}, {99, 5},
	}
	for _, tc := range cases {
		if got := ClampScale(tc.in); got != tc.want {
			t.Errorf("ClampScale(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
