package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/contact-discovery/internal/model"
)

func newCrawlSite(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><body>
			<h1>Acme Corp</h1>
			<a href="/about">About Us</a>
			<a href="/pricing">Pricing</a>
			<a href="/team">Our Team</a>
		</body></html>`)
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body>
			<p>Acme builds widgets.</p>
			<a href="/contact">Contact</a>
			<a href="/">Back to about home</a>
		</body></html>`)
	})
	mux.HandleFunc("/contact", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body>
			<p>Reach Jane Doe, our CTO.</p>
			<a href="mailto:jane.doe@acme.com">Email Jane</a>
			<p>General inquiries: info@acme.com</p>
			<a href="/about">about</a>
		</body></html>`)
	})
	// /team has no handler registered on purpose: the root mux 404s it.

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCrawlerAdapter_FindsEmailOnContactPage(t *testing.T) {
	srv := newCrawlSite(t)
	a := NewCrawlerAdapter()

	res := a.Execute(context.Background(), model.SearchContext{
		ContactName: "Jane Doe",
		CompanyName: "Acme Corp",
		Website:     srv.URL,
	})

	require.True(t, res.Found())
	assert.Equal(t, model.TagComprehensiveSearch, res.Source)
	assert.Equal(t, "jane.doe@acme.com", res.Email)
	assert.Equal(t, 95, res.Confidence)
	assert.NotContains(t, res.Emails, "info@acme.com", "role addresses score below the candidate floor")
	assert.Equal(t, "3", res.Metadata["pages_crawled"])
	assert.Equal(t, "1", res.Metadata["pages_skipped"])
}

func TestCrawlerAdapter_TerminatesOnCyclicLinks(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<a href="/contact">Contact</a>`)
	})
	mux.HandleFunc("/contact", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<a href="/">Contact home</a><a href="/contact">Contact</a>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	a := NewCrawlerAdapter()
	res := a.Execute(context.Background(), model.SearchContext{
		ContactName: "Jane Doe",
		Website:     srv.URL,
		MaxDepth:    5,
		MaxPages:    50,
	})

	assert.Equal(t, "2", res.Metadata["pages_crawled"])
}

func TestCrawlerAdapter_RespectsPageBudget(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// Every page links to two fresh contact pages.
		prefix := strings.TrimSuffix(r.URL.Path, "/")
		fmt.Fprintf(w, `<a href="%s/contact-a">Contact</a><a href="%s/contact-b">Contact</a>`,
			prefix, prefix)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	a := NewCrawlerAdapter()
	res := a.Execute(context.Background(), model.SearchContext{
		ContactName: "Jane Doe",
		Website:     srv.URL,
		MaxDepth:    10,
		MaxPages:    6,
	})

	assert.LessOrEqual(t, mustAtoi(t, res.Metadata["pages_crawled"]), 6+fetchParallelism)
}

func TestCrawlerAdapter_CorroboratedCandidateFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><p>Led by Jane Doe since 2019.</p></body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	a := NewCrawlerAdapter()
	res := a.Execute(context.Background(), model.SearchContext{
		ContactName: "Jane Doe",
		Website:     srv.URL,
		Domain:      "acme.com",
	})

	require.True(t, res.Found())
	assert.Equal(t, "jane.doe@acme.com", res.Email)
	assert.Equal(t, candidateMinScore, res.Confidence)
	assert.Equal(t, "name_in_page_text", res.Metadata["corroboration"])
	assert.NotEmpty(t, res.Emails)
}

func TestCrawlerAdapter_UncorroboratedCandidatesStayAlternative(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><p>Widgets for everyone.</p></body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	a := NewCrawlerAdapter()
	res := a.Execute(context.Background(), model.SearchContext{
		ContactName: "Jane Doe",
		Website:     srv.URL,
		Domain:      "acme.com",
	})

	assert.False(t, res.Found())
	assert.Contains(t, res.Emails, "jane.doe@acme.com")
	assert.NotEmpty(t, res.Metadata["candidates_generated"])
}

func TestCrawlerAdapter_NoWebsite(t *testing.T) {
	a := NewCrawlerAdapter()
	res := a.Execute(context.Background(), model.SearchContext{ContactName: "Jane Doe"})

	assert.False(t, res.Found())
	assert.NotEmpty(t, res.Metadata["error"])
}

func TestContactLinks_FiltersByHostAndKeyword(t *testing.T) {
	base := mustParseURL(t, "https://acme.com/")

	html := `
		<a href="/contact">Contact</a>
		<a href="/pricing">Pricing</a>
		<a href="https://other.com/contact">Contact</a>
		<a href="/jobs">Join our team</a>
		<a href="mailto:hi@acme.com">Mail</a>
		<a href="/contact">Contact again</a>`

	links := contactLinks(html, base)
	assert.Equal(t, []string{"https://acme.com/contact", "https://acme.com/jobs"}, links)
}

func mustAtoi(t *testing.T, s string) int {
	t.Helper()
	n, err := strconv.Atoi(s)
	require.NoError(t, err)
	return n
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}
