package provider

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/contact-discovery/internal/model"
	"github.com/sells-group/contact-discovery/internal/validate"
)

// Crawl bounds. MaxDepth/MaxPages/Timeout from the SearchContext override
// these when set.
const (
	defaultMaxDepth    = 2
	defaultMaxPages    = 25
	defaultPageTimeout = 10 * time.Second
	fetchParallelism   = 5
	maxBodyBytes       = 512 * 1024
	crawlerUserAgent   = "Mozilla/5.0 (compatible; ContactDiscoveryBot/1.0)"
)

// contactKeywords select which linked pages are worth following: a link is
// enqueued only when its anchor text (or path) mentions one of these.
var contactKeywords = []string{"contact", "about", "team", "people", "staff", "leadership", "impressum"}

var (
	emailTextRe  = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	mailtoRe     = regexp.MustCompile(`(?i)href="mailto:([^"?]+)`)
	anchorRe     = regexp.MustCompile(`(?is)<a\s+[^>]*href="([^"#]+)"[^>]*>(.*?)</a>`)
	htmlTagRe    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// CrawlerAdapter performs a bounded breadth-first crawl of the company
// website, harvesting emails from page text and mailto links. It backs the
// comprehensive (last-resort) search.
type CrawlerAdapter struct {
	http *http.Client
}

// NewCrawlerAdapter creates the website crawler adapter.
func NewCrawlerAdapter() *CrawlerAdapter {
	return &CrawlerAdapter{
		http: &http.Client{
			Timeout: defaultPageTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

// Tag implements Adapter.
func (c *CrawlerAdapter) Tag() model.ProviderTag { return model.TagComprehensiveSearch }

// Execute implements Adapter: crawl, harvest, and fall back to
// pattern-validated candidate guesses when nothing concrete is found. A guess
// is only promoted to the primary email when the contact's name appears in
// the crawled text.
func (c *CrawlerAdapter) Execute(ctx context.Context, sc model.SearchContext) Result {
	site := sc.Website
	if site == "" {
		site = sc.Domain
	}
	if site == "" {
		return empty(c.Tag(), "no website to crawl")
	}

	start, err := normalizeURL(site)
	if err != nil {
		return empty(c.Tag(), "invalid website url: "+err.Error())
	}
	base, err := url.Parse(start)
	if err != nil {
		return empty(c.Tag(), "invalid website url: "+err.Error())
	}

	maxDepth := sc.MaxDepth
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}
	maxPages := sc.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	timeout := sc.Timeout
	if timeout <= 0 {
		timeout = defaultPageTimeout
	}

	harvest := c.crawl(ctx, base, start, maxDepth, maxPages, timeout)

	first, last := SplitName(sc.ContactName)
	nameSeen := harvest.nameSeen(first, last)

	// Rank harvested emails by pattern score; prefer ones carrying the
	// contact's name tokens.
	best, rest := rankEmails(harvest.emails, first, last)

	meta := map[string]string{
		"pages_crawled": strconv.Itoa(harvest.fetched),
		"pages_skipped": strconv.Itoa(harvest.skipped),
	}

	if best != "" {
		return Result{
			Source:     c.Tag(),
			Email:      best,
			Confidence: validate.ScoreEmailPattern(best),
			Emails:     rest,
			Metadata:   meta,
		}
	}

	// Nothing on the site: generate candidates for the resolved domain.
	domain := sc.Domain
	if domain == "" {
		domain = base.Hostname()
	}
	candidates := CandidateEmails(first, last, strings.TrimPrefix(domain, "www."))
	if len(candidates) == 0 {
		return Result{Source: c.Tag(), Metadata: meta}
	}

	meta["candidates_generated"] = strconv.Itoa(len(candidates))
	res := Result{Source: c.Tag(), Emails: candidates, Metadata: meta}
	if nameSeen {
		// Name overlap in page text corroborates the top guess.
		res.Email = candidates[0]
		res.Confidence = candidateMinScore
		res.Emails = candidates[1:]
		meta["corroboration"] = "name_in_page_text"
	}
	return res
}

// harvestState accumulates crawl output across parallel fetches.
type harvestState struct {
	mu      sync.Mutex
	emails  []string
	seen    map[string]bool // case-insensitive email dedup
	text    strings.Builder
	fetched int
	skipped int
}

func (h *harvestState) addEmail(email string) {
	key := strings.ToLower(strings.TrimSpace(email))
	if key == "" || h.seen[key] {
		return
	}
	if validate.ScoreEmailPattern(key) < candidateMinScore {
		return
	}
	h.seen[key] = true
	h.emails = append(h.emails, key)
}

func (h *harvestState) nameSeen(first, last string) bool {
	text := strings.ToLower(h.text.String())
	if first == "" {
		return false
	}
	if last != "" {
		return strings.Contains(text, strings.ToLower(first)) && strings.Contains(text, strings.ToLower(last))
	}
	return strings.Contains(text, strings.ToLower(first))
}

type crawlItem struct {
	url   string
	depth int
}

// crawl runs the bounded BFS. Pages within one breadth level fetch in
// parallel; link filtering (same host, contact keyword) happens before
// enqueueing. A page that fails to fetch is counted as skipped and the crawl
// continues.
func (c *CrawlerAdapter) crawl(ctx context.Context, base *url.URL, start string, maxDepth, maxPages int, timeout time.Duration) *harvestState {
	h := &harvestState{seen: make(map[string]bool)}
	visited := map[string]bool{start: true}
	queue := []crawlItem{{url: start, depth: 0}}

	var mu sync.Mutex

	for len(queue) > 0 && h.fetched+h.skipped < maxPages {
		// Drain up to one parallel batch from the queue.
		var batch []crawlItem
		mu.Lock()
		for len(batch) < fetchParallelism && len(queue) > 0 {
			batch = append(batch, queue[0])
			queue = queue[1:]
		}
		mu.Unlock()

		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(fetchParallelism)

		for _, item := range batch {
			item := item
			g.Go(func() error {
				select {
				case <-gCtx.Done():
					return nil
				default:
				}

				body, err := c.fetchPage(gCtx, item.url, timeout)
				if err != nil {
					zap.L().Debug("crawler: page skipped",
						zap.String("url", item.url),
						zap.Error(err),
					)
					h.mu.Lock()
					h.skipped++
					h.mu.Unlock()
					return nil
				}

				links := contactLinks(body, base)

				h.mu.Lock()
				h.fetched++
				for _, m := range emailTextRe.FindAllString(body, -1) {
					h.addEmail(m)
				}
				for _, m := range mailtoRe.FindAllStringSubmatch(body, -1) {
					h.addEmail(m[1])
				}
				h.text.WriteString(visibleText(body))
				h.mu.Unlock()

				if item.depth >= maxDepth {
					return nil
				}

				mu.Lock()
				for _, link := range links {
					if visited[link] || len(visited) >= maxPages*2 {
						continue
					}
					visited[link] = true
					queue = append(queue, crawlItem{url: link, depth: item.depth + 1})
				}
				mu.Unlock()
				return nil
			})
		}

		_ = g.Wait()

		if ctx.Err() != nil {
			break
		}
	}

	return h
}

func (c *CrawlerAdapter) fetchPage(ctx context.Context, pageURL string, timeout time.Duration) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", crawlerUserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", &httpStatusError{status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

type httpStatusError struct {
	status int
}

func (e *httpStatusError) Error() string {
	return "unexpected status " + strconv.Itoa(e.status)
}

// contactLinks extracts same-host links whose anchor text or path mentions a
// contact-related keyword.
func contactLinks(html string, base *url.URL) []string {
	var out []string
	seen := make(map[string]bool)

	for _, m := range anchorRe.FindAllStringSubmatch(html, -1) {
		href, anchorText := m[1], strings.ToLower(htmlTagRe.ReplaceAllString(m[2], " "))

		if strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") {
			continue
		}

		resolved, err := url.Parse(href)
		if err != nil {
			continue
		}
		absolute := base.ResolveReference(resolved)
		if absolute.Host != base.Host {
			continue
		}
		absolute.Fragment = ""
		normalized := absolute.String()
		if seen[normalized] {
			continue
		}

		haystack := anchorText + " " + strings.ToLower(absolute.Path)
		for _, kw := range contactKeywords {
			if strings.Contains(haystack, kw) {
				seen[normalized] = true
				out = append(out, normalized)
				break
			}
		}
	}
	return out
}

// visibleText strips tags and collapses whitespace for name-overlap checks.
func visibleText(html string) string {
	return whitespaceRe.ReplaceAllString(htmlTagRe.ReplaceAllString(html, " "), " ")
}

// rankEmails orders harvested emails: ones containing the contact's name
// tokens first, then by pattern score. Returns the best and the remainder.
func rankEmails(emails []string, first, last string) (string, []string) {
	if len(emails) == 0 {
		return "", nil
	}

	scoreOf := func(e string) int {
		s := validate.ScoreEmailPattern(e)
		lf, ll := strings.ToLower(first), strings.ToLower(last)
		if lf != "" && strings.Contains(e, lf) {
			s += 30
		}
		if ll != "" && strings.Contains(e, ll) {
			s += 30
		}
		return s
	}

	bestIdx := 0
	bestScore := scoreOf(emails[0])
	for i := 1; i < len(emails); i++ {
		if s := scoreOf(emails[i]); s > bestScore {
			bestIdx, bestScore = i, s
		}
	}

	rest := make([]string, 0, len(emails)-1)
	for i, e := range emails {
		if i != bestIdx {
			rest = append(rest, e)
		}
	}
	return emails[bestIdx], rest
}

func normalizeURL(raw string) (string, error) {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}
