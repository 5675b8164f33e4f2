package scrape

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/rotisserie/eris"
)

const maxBodyBytes = 2 << 20

// LocalScraper fetches HTML via net/http, detects blocks, and extracts the
// main article text with go-readability. Free, no API calls.
type LocalScraper struct {
	client *http.Client
}

// NewLocalScraper creates a LocalScraper with sensible defaults.
func NewLocalScraper() *LocalScraper {
	return &LocalScraper{
		client: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

func (l *LocalScraper) Name() string           { return "local_http" }
func (l *LocalScraper) Supports(_ string) bool { return true }

// Scrape fetches a URL, detects blocks, and extracts readable text.
func (l *LocalScraper) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	pageURL, err := url.Parse(targetURL)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: parse url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: create request")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; ColdEmailResearch/1.0)")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "local_http: read body")
	}

	if reason := DetectBlock(resp, body); reason != BlockNone {
		return nil, &BlockedError{Scraper: l.Name(), URL: targetURL, Reason: reason}
	}

	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("local_http: status %d", resp.StatusCode)
	}

	if len(body) < 100 {
		return nil, eris.New("local_http: empty page")
	}

	title, text := extract(body, pageURL)
	if text == "" {
		return nil, eris.New("local_http: no readable content")
	}

	return &Result{
		Page: Page{
			URL:        targetURL,
			Title:      title,
			Content:    text,
			StatusCode: resp.StatusCode,
		},
		Source: "local_http",
	}, nil
}

// extract runs readability over the document and falls back to tag
// stripping when no article body is found.
func extract(body []byte, pageURL *url.URL) (title, text string) {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err == nil {
		title = strings.TrimSpace(article.Title)
		text = collapseWhitespace(article.TextContent)
	}
	if title == "" {
		title = extractTitle(body)
	}
	if text == "" {
		text = stripHTML(string(body))
	}
	return title, text
}

var (
	titleRe   = regexp.MustCompile(`(?i)<title[^>]*>(.*?)</title>`)
	tagRe     = regexp.MustCompile(`<[^>]+>`)
	spaceRe   = regexp.MustCompile(`[ \t]+`)
	newlineRe = regexp.MustCompile(`\n{3,}`)
	dropRes   = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
		regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`),
		regexp.MustCompile(`(?is)<nav[^>]*>.*?</nav>`),
		regexp.MustCompile(`(?is)<footer[^>]*>.*?</footer>`),
	}
	entityReplacer = strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
)

// extractTitle pulls the <title> from HTML.
func extractTitle(body []byte) string {
	m := titleRe.FindSubmatch(body)
	if len(m) > 1 {
		return strings.TrimSpace(string(m[1]))
	}
	return ""
}

// stripHTML removes scripts, styles, nav and footer blocks, strips tags and
// decodes common entities.
func stripHTML(html string) string {
	for _, re := range dropRes {
		html = re.ReplaceAllString(html, "")
	}
	html = tagRe.ReplaceAllString(html, " ")
	html = entityReplacer.Replace(html)
	return collapseWhitespace(html)
}

func collapseWhitespace(s string) string {
	s = spaceRe.ReplaceAllString(s, " ")
	s = newlineRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
