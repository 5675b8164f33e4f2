package scrape

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"
)

// BlockReason names the wall a fetch hit instead of the page.
type BlockReason string

const (
	BlockNone         BlockReason = ""
	BlockCloudflare   BlockReason = "cloudflare"
	BlockCaptcha      BlockReason = "captcha"
	BlockJSShell      BlockReason = "js_shell"
	BlockRateLimited  BlockReason = "rate_limited"
	BlockLoginWall    BlockReason = "login_wall"
	BlockConsent      BlockReason = "consent_wall"
	BlockAccessDenied BlockReason = "access_denied"
)

// Reader output longer than this is treated as a real page even when it
// mentions a block marker.
const maxChallengeLen = 1000

const maxShellBody = 2000

// BlockedError reports a scraper that reached a block page. The chain moves
// on to the next scraper; breakers do not count it as a failure.
type BlockedError struct {
	Scraper string
	URL     string
	Reason  BlockReason
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("%s: blocked (%s) fetching %s", e.Scraper, e.Reason, e.URL)
}

// BlockedBy returns the reason when err came from a block page.
func BlockedBy(err error) (BlockReason, bool) {
	var be *BlockedError
	if eris.As(err, &be) {
		return be.Reason, true
	}
	return BlockNone, false
}

type markerSet struct {
	reason  BlockReason
	markers []string
}

// blockMarkers are matched against lowercased page text in order.
var blockMarkers = []markerSet{
	{BlockCloudflare, []string{"checking your browser", "cf-browser-verification", "just a moment...", "attention required! | cloudflare"}},
	{BlockCaptcha, []string{"captcha"}},
	{BlockRateLimited, []string{"whoa there, pardner", "too many requests", "you are being rate limited"}},
	{BlockLoginWall, []string{"blocked by network security", "log in to continue", "sign in to continue"}},
	{BlockConsent, []string{"before you continue to youtube", "before you continue to google"}},
}

// readerMarkers are extra signatures of a hosted reader relaying a
// challenge page as markdown.
var readerMarkers = []markerSet{
	{BlockCloudflare, []string{"just a moment", "attention required", "cloudflare"}},
	{BlockJSShell, []string{"enable javascript", "please enable cookies"}},
	{BlockAccessDenied, []string{"access denied", "403 forbidden"}},
}

// DetectBlock checks a raw HTTP response for an anti-bot, rate-limit, login
// or consent wall.
func DetectBlock(resp *http.Response, body []byte) BlockReason {
	if resp != nil {
		if resp.StatusCode == http.StatusTooManyRequests {
			return BlockRateLimited
		}
		if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
			if resp.Header.Get("cf-ray") != "" || resp.Header.Get("cf-cache-status") != "" ||
				resp.Header.Get("server") == "cloudflare" {
				return BlockCloudflare
			}
		}
		if resp.Request != nil && resp.Request.URL != nil && strings.HasPrefix(resp.Request.URL.Host, "consent.") {
			return BlockConsent
		}
	}

	lower := strings.ToLower(string(body))
	if strings.Contains(lower, "cloudflare") && strings.Contains(lower, "challenge") {
		return BlockCloudflare
	}
	if r := matchMarkers(lower, blockMarkers); r != BlockNone {
		return r
	}

	if len(body) < maxShellBody {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return BlockJSShell
		}
		if strings.Contains(lower, `meta http-equiv="refresh"`) {
			return BlockJSShell
		}
	}
	return BlockNone
}

// detectReaderBlock checks text returned by a hosted reader. Only short
// output is inspected since real pages routinely mention these words.
func detectReaderBlock(content string) BlockReason {
	content = strings.TrimSpace(content)
	if content == "" || len(content) >= maxChallengeLen {
		return BlockNone
	}
	lower := strings.ToLower(content)
	if r := matchMarkers(lower, blockMarkers); r != BlockNone {
		return r
	}
	return matchMarkers(lower, readerMarkers)
}

func matchMarkers(lower string, table []markerSet) BlockReason {
	for _, entry := range table {
		for _, m := range entry.markers {
			if strings.Contains(lower, m) {
				return entry.reason
			}
		}
	}
	return BlockNone
}
