package studytool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/stupiduntilnot/studbot/internal/tool"
)

const (
	maxSearchResults = 5
	minSnippetLen    = 20
)

// OfflineSearchMessage is returned instead of searching in offline mode.
const OfflineSearchMessage = "Offline mode enabled. Cannot perform web searches."

var searchPhrases = []string{"search for", "search", "look up", "google"}

// Search queries a SearXNG-compatible JSON endpoint
// (GET <url>?q=<query>&format=json).
type Search struct {
	endpoint string
	offline  bool
	client   *http.Client
}

func NewSearch(endpoint string, offline bool, client *http.Client) *Search {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Search{endpoint: strings.TrimSpace(endpoint), offline: offline, client: client}
}

func (s *Search) Name() string { return NameSearch }

func (s *Search) Description() string {
	return "Search the web and list the most relevant results."
}

func (s *Search) Schema() tool.Schema {
	return tool.Schema{Params: []tool.Param{
		{Name: "query", Type: tool.TypeString, Required: true},
	}}
}

func (s *Search) Match(utterance string) (tool.Params, bool) {
	q, ok := tool.AfterPhrase(utterance, searchPhrases...)
	if !ok || q == "" {
		return nil, false
	}
	return tool.Params{"query": q}, true
}

type searchResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

func (s *Search) Execute(ctx context.Context, params tool.Params) (string, error) {
	if s.offline {
		return OfflineSearchMessage, nil
	}
	if s.endpoint == "" {
		return "", fmt.Errorf("search is not configured (set STUDBOT_SEARCH_URL)")
	}
	query := strings.TrimSpace(params.String("query"))

	u, err := url.Parse(s.endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid search url: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("format", "json")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read search response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("search api error: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode search response: %w", err)
	}

	var b strings.Builder
	n := 0
	for _, r := range parsed.Results {
		title, link, snippet := strings.TrimSpace(r.Title), strings.TrimSpace(r.URL), strings.TrimSpace(r.Content)
		if title == "" || link == "" || len(snippet) <= minSnippetLen {
			continue
		}
		n++
		fmt.Fprintf(&b, "%d. %s\n   %s\n   %s\n\n", n, title, link, snippet)
		if n == maxSearchResults {
			break
		}
	}
	if n == 0 {
		return "No relevant results found.", nil
	}
	return "Search results:\n\n" + strings.TrimSpace(b.String()), nil
}
