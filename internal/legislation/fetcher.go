package legislation

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/buildsafe/backend/pkg/logger"
)

// Fetcher pulls the title and introductory text of a cited act from
// legislation.gov.uk so library entries can be enriched with the official
// wording. Best-effort: callers treat any failure as "no reference text".
type Fetcher struct {
	httpClient *http.Client
}

type Reference struct {
	URL     string
	Title   string
	Summary string
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (f *Fetcher) FetchReference(ctx context.Context, urlStr string) (*Reference, error) {
	if !strings.Contains(urlStr, "legislation.gov.uk") {
		return nil, fmt.Errorf("unsupported legislation source: %s", urlStr)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch legislation page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("legislation page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	title := strings.TrimSpace(doc.Find("h1").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	doc.Find("script, style, nav, footer, header").Remove()

	var summary string
	doc.Find("#content p, .LegSnippet p, p").EachWithBreak(func(i int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return true
		}
		if summary != "" {
			summary += "\n"
		}
		summary += text
		return len(summary) < 2000
	})

	if len(summary) > 2000 {
		summary = summary[:2000]
	}

	logger.Debug("Legislation reference fetched",
		zap.String("url", urlStr),
		zap.String("title", title),
	)

	return &Reference{URL: urlStr, Title: title, Summary: summary}, nil
}
