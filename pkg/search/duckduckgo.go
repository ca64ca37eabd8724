package search

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

const (
	DefaultInstantURL = "https://api.duckduckgo.com/"
	DefaultHTMLURL    = "https://html.duckduckgo.com/html/"
	CacheTTL          = 15 * time.Minute
)

type Result struct {
	Title string
	URL   string
	Body  string
}

type Options struct {
	InstantURL string
	HTMLURL    string
	HTTPClient *http.Client
	CacheSize  int
}

// Client searches DuckDuckGo: instant answers first, then the HTML result
// page when the instant answer API has nothing.
type Client struct {
	instantURL string
	htmlURL    string
	http       *http.Client
	cache      *expirable.LRU[string, []Result]
	userAgents []string
}

func NewClient(opts Options) *Client {
	if opts.InstantURL == "" {
		opts.InstantURL = DefaultInstantURL
	}
	if opts.HTMLURL == "" {
		opts.HTMLURL = DefaultHTMLURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	return &Client{
		instantURL: opts.InstantURL,
		htmlURL:    opts.HTMLURL,
		http:       opts.HTTPClient,
		cache:      expirable.NewLRU[string, []Result](opts.CacheSize, nil, CacheTTL),
		userAgents: []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
		},
	}
}

// Search returns up to n results for query.
func (c *Client) Search(ctx context.Context, query string, n int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if n <= 0 {
		n = 3
	}
	key := fmt.Sprintf("%d:%s", n, strings.ToLower(query))
	if cached, ok := c.cache.Get(key); ok {
		return cached, nil
	}

	results, err := c.instant(ctx, query, n)
	if err != nil {
		log.Warn().Str("component", "search").Err(err).Str("query", query).Msg("instant answer failed, trying html")
	}
	if len(results) == 0 {
		results, err = c.html(ctx, query, n)
		if err != nil {
			return nil, err
		}
	}

	c.cache.Add(key, results)
	return results, nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgents[rand.IntN(len(c.userAgents))])
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) instant(ctx context.Context, query string, n int) ([]Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_html", "1")
	params.Set("skip_disambig", "1")

	body, err := c.get(ctx, c.instantURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("instant answer: invalid json")
	}
	doc := gjson.ParseBytes(body)

	var results []Result
	if answer := doc.Get("Answer").String(); answer != "" {
		results = append(results, Result{Title: query, Body: answer})
	}
	if abstract := doc.Get("AbstractText").String(); abstract != "" {
		results = append(results, Result{
			Title: firstNonEmpty(doc.Get("Heading").String(), query),
			URL:   doc.Get("AbstractURL").String(),
			Body:  abstract,
		})
	}
	doc.Get("RelatedTopics").ForEach(func(_, topic gjson.Result) bool {
		if len(results) >= n {
			return false
		}
		text := topic.Get("Text").String()
		if text == "" {
			return true
		}
		results = append(results, Result{Title: text, URL: topic.Get("FirstURL").String()})
		return true
	})
	if len(results) > n {
		results = results[:n]
	}
	return results, nil
}

func (c *Client) html(ctx context.Context, query string, n int) ([]Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("kl", "us-en")

	body, err := c.get(ctx, c.htmlURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var results []Result
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		link := s.Find("a.result__a").First()
		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		if title == "" || href == "" {
			return true
		}
		results = append(results, Result{
			Title: title,
			URL:   extractActualURL(href),
			Body:  strings.TrimSpace(s.Find(".result__snippet").First().Text()),
		})
		return len(results) < n
	})
	return results, nil
}

// extractActualURL unwraps DuckDuckGo's redirect links.
func extractActualURL(ddgURL string) string {
	if strings.HasPrefix(ddgURL, "//") {
		ddgURL = "https:" + ddgURL
	}
	u, err := url.Parse(ddgURL)
	if err != nil {
		return ddgURL
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return ddgURL
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// truncate cuts s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "…"
}

// Format renders results as a short Discord list.
func Format(results []Result) string {
	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. **%s**", i+1, r.Title)
		if r.URL != "" {
			fmt.Fprintf(&sb, " <%s>", r.URL)
		}
		if r.Body != "" {
			fmt.Fprintf(&sb, "\n   %s", truncate(r.Body, 300))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
