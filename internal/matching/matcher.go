package matching

import (
	"sort"
	"strings"
	"unicode"

	"github.com/jdkato/prose/v2"

	"github.com/buildsafe/backend/internal/storage/models"
)

const (
	DefaultScoreThreshold = 0.15
	DefaultKeywordWeight  = 0.6
	DefaultNameWeight     = 0.3
	DefaultCategoryWeight = 0.1
)

// Matcher scores free-text input against a library's keyword and category
// metadata. Output ordering is fully deterministic for a given library
// snapshot, because matches feed an audit trail that must be reproducible.
type Matcher struct {
	scoreThreshold float64
	keywordWeight  float64
	nameWeight     float64
	categoryWeight float64
}

type Config struct {
	ScoreThreshold float64
	KeywordWeight  float64
	NameWeight     float64
	CategoryWeight float64
}

func NewMatcher(cfg Config) *Matcher {
	m := &Matcher{
		scoreThreshold: cfg.ScoreThreshold,
		keywordWeight:  cfg.KeywordWeight,
		nameWeight:     cfg.NameWeight,
		categoryWeight: cfg.CategoryWeight,
	}

	if m.scoreThreshold == 0 {
		m.scoreThreshold = DefaultScoreThreshold
	}
	if m.keywordWeight == 0 {
		m.keywordWeight = DefaultKeywordWeight
	}
	if m.nameWeight == 0 {
		m.nameWeight = DefaultNameWeight
	}
	if m.categoryWeight == 0 {
		m.categoryWeight = DefaultCategoryWeight
	}

	return m
}

// Match ranks entries against query, dropping scores below the threshold.
// Empty query or empty candidate set yields an empty result, never an error.
func (m *Matcher) Match(query, categoryHint string, entries []models.LibraryEntry) []models.Match {
	tokens := Tokenize(query)
	if len(tokens) == 0 || len(entries) == 0 {
		return nil
	}

	loweredQuery := strings.ToLower(strings.TrimSpace(query))

	var matches []models.Match
	for _, entry := range entries {
		if !entry.IsActive {
			continue
		}

		score := m.score(tokens, loweredQuery, categoryHint, entry)
		if score < m.scoreThreshold {
			continue
		}

		matches = append(matches, models.Match{Entry: entry, Confidence: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		if matches[i].Entry.SortOrder != matches[j].Entry.SortOrder {
			return matches[i].Entry.SortOrder < matches[j].Entry.SortOrder
		}
		return matches[i].Entry.Code < matches[j].Entry.Code
	})

	return matches
}

func (m *Matcher) score(tokens []string, loweredQuery, categoryHint string, entry models.LibraryEntry) float64 {
	score := m.keywordWeight * jaccard(tokens, entry.Keywords)

	name := strings.ToLower(entry.Name)
	if name != "" && (strings.Contains(loweredQuery, name) || strings.Contains(name, loweredQuery)) {
		score += m.nameWeight
	}

	if categoryHint != "" && entry.Category != "" && strings.EqualFold(categoryHint, entry.Category) {
		score += m.categoryWeight
	}

	if score > 1.0 {
		score = 1.0
	}

	return score
}

// jaccard is |intersection| / |union| over the query tokens and the entry's
// keyword set. Duplicate tokens collapse, so keyword insertion order and
// repetition never affect the score.
func jaccard(tokens, keywords []string) float64 {
	if len(tokens) == 0 || len(keywords) == 0 {
		return 0
	}

	union := make(map[string]bool, len(tokens)+len(keywords))
	inKeywords := make(map[string]bool, len(keywords))

	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		union[kw] = true
		inKeywords[kw] = true
	}

	intersection := 0
	seen := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		if seen[tok] {
			continue
		}
		seen[tok] = true
		if inKeywords[tok] {
			intersection++
		}
		union[tok] = true
	}

	return float64(intersection) / float64(len(union))
}

// Tokenize lowercases and splits free text into word tokens via the prose
// tokenizer, discarding punctuation-only tokens. Falls back to whitespace
// splitting if the tokenizer fails, so matching stays available.
func Tokenize(text string) []string {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return nil
	}

	doc, err := prose.NewDocument(text,
		prose.WithExtraction(false),
		prose.WithTagging(false),
		prose.WithSegmentation(false),
	)
	if err != nil {
		return strings.Fields(text)
	}

	var tokens []string
	for _, tok := range doc.Tokens() {
		if hasLetterOrDigit(tok.Text) {
			tokens = append(tokens, tok.Text)
		}
	}

	return tokens
}

func hasLetterOrDigit(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
