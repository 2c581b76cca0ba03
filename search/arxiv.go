package search

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	defaultArxivBaseURL = "http://export.arxiv.org/api/query"
	arxivMaxResults     = 50
)

// ArxivProvider searches academic papers through the arXiv Atom API
type ArxivProvider struct {
	httpClient HTTPDoer
	baseURL    string
}

// NewArxivProvider creates an arXiv provider. No credentials are needed.
func NewArxivProvider(client HTTPDoer) *ArxivProvider {
	return &ArxivProvider{httpClient: client, baseURL: defaultArxivBaseURL}
}

// WithBaseURL points the provider at a different API host
func (p *ArxivProvider) WithBaseURL(baseURL string) *ArxivProvider {
	p.baseURL = baseURL
	return p
}

func (p *ArxivProvider) Name() string {
	return "arxiv"
}

// Config implements Configurer
func (p *ArxivProvider) Config() map[string]string {
	return map[string]string{
		"base_url":    p.baseURL,
		"max_results": strconv.Itoa(arxivMaxResults),
	}
}

type arxivFeed struct {
	XMLName xml.Name     `xml:"feed"`
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Summary   string `xml:"summary"`
	Published string `xml:"published"`
	Authors   []struct {
		Name string `xml:"name"`
	} `xml:"author"`
	Links []struct {
		Href string `xml:"href,attr"`
		Type string `xml:"type,attr"`
	} `xml:"link"`
}

// Search queries arXiv by free text or by an explicit list of paper IDs
func (p *ArxivProvider) Search(ctx context.Context, req *Request) ([]Result, error) {
	ctx, cancel := withRequestTimeout(ctx, req)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL, nil)
	if err != nil {
		return nil, err
	}

	q := httpReq.URL.Query()
	switch {
	case len(req.IDList) > 0:
		q.Set("id_list", strings.Join(req.IDList, ","))
	case strings.TrimSpace(req.Query) != "":
		q.Set("search_query", "all:"+strings.TrimSpace(req.Query))
	default:
		return nil, fmt.Errorf("%w: arXiv search requires either a search query or ID list", ErrInvalidInput)
	}
	if req.Start > 0 {
		q.Set("start", strconv.Itoa(req.Start))
	}
	q.Set("max_results", strconv.Itoa(req.limit(DefaultMaxResults, arxivMaxResults)))
	if req.SortBy != "" {
		q.Set("sortBy", string(req.SortBy))
	}
	if req.SortOrder != "" {
		q.Set("sortOrder", string(req.SortOrder))
	}
	httpReq.URL.RawQuery = q.Encode()

	req.Debug.LogRequest("arXiv API request", log.Fields{"url": httpReq.URL.String()})

	body, err := do(p.httpClient, p.Name(), httpReq)
	if err != nil {
		return nil, err
	}

	req.Debug.LogResponse("arXiv API response", log.Fields{"bytes": len(body)})

	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, &ParseError{Provider: p.Name(), Err: err}
	}

	results := make([]Result, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		results = append(results, arxivResult(entry))
	}
	return results, nil
}

func arxivResult(entry arxivEntry) Result {
	id := entry.ID
	if i := strings.LastIndex(id, "/abs/"); i >= 0 {
		id = id[i+len("/abs/"):]
	} else if i := strings.LastIndex(id, "/"); i >= 0 {
		id = id[i+1:]
	}

	paperURL := "https://arxiv.org/abs/" + id
	for _, link := range entry.Links {
		if link.Type == "text/html" {
			paperURL = link.Href
			break
		}
	}

	raw := map[string]any{"arxiv_id": id, "published": entry.Published}
	if len(entry.Authors) > 0 {
		names := make([]string, 0, len(entry.Authors))
		for _, a := range entry.Authors {
			names = append(names, a.Name)
		}
		raw["authors"] = strings.Join(names, ", ")
	}

	return Result{
		Title:         strings.Join(strings.Fields(entry.Title), " "),
		URL:           paperURL,
		Snippet:       strings.TrimSpace(entry.Summary),
		Domain:        "arxiv.org",
		PublishedDate: entry.Published,
		Provider:      "arxiv",
		Raw:           raw,
	}
}
