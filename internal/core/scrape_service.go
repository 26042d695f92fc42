package core

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/go-resty/resty/v2"
	"pagechat.io/pagechat/internal/utils"
)

const scrapeTimeout = 30 * time.Second

// Accepts http/https URLs with a domain, localhost or an IPv4 host, an
// optional port and an optional path.
var urlPattern = regexp.MustCompile(
	`(?i)^https?://` +
		`(?:(?:[A-Z0-9](?:[A-Z0-9-]{0,61}[A-Z0-9])?\.)+[A-Z]{2,6}\.?|` +
		`localhost|` +
		`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})` +
		`(?::\d+)?` +
		`(?:/?|[/?]\S+)$`,
)

// ScrapeService is the Fetcher: it retrieves a page over HTTP and reduces it
// to readable text.
type ScrapeService struct {
	client *resty.Client
}

func NewScrapeService() *ScrapeService {
	client := resty.New().
		SetTimeout(scrapeTimeout).
		SetHeader("User-Agent", "Mozilla/5.0 (compatible; pagechat/1.0)")

	return &ScrapeService{client: client}
}

// Fetch validates the URL, retrieves the page and extracts its text content
// and title. Every failure mode returns an error; no partial results.
func (s *ScrapeService) Fetch(ctx context.Context, url string) (*FetchResult, error) {
	if !IsValidURL(url) {
		return nil, fmt.Errorf("invalid URL format")
	}

	resp, err := s.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode())
	}

	content, title := utils.ExtractText(resp.String())
	if content == "" {
		return nil, fmt.Errorf("no readable content extracted from page")
	}

	return &FetchResult{Content: content, Title: title}, nil
}

func IsValidURL(url string) bool {
	return url != "" && urlPattern.MatchString(url)
}
