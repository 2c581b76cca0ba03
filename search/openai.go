package search

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultOpenAISearchModel = "gpt-4o-mini-search-preview"

	openAISearchPrompt = "Search the web and cite the most relevant sources for the following query. Answer briefly."
)

// ChatClient is the chat completion surface used by the OpenAI provider.
// Both *openai.ChatCompletionService and the Tinfoil client's completions
// service satisfy it.
type ChatClient interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAIProvider runs a web-search enabled chat completion and turns the
// returned URL citations into results
type OpenAIProvider struct {
	client ChatClient
	model  string
	label  string
}

// NewOpenAIProvider creates an OpenAI search provider. label is reported in
// Config to distinguish the backend (openai or tinfoil).
func NewOpenAIProvider(client ChatClient, model, label string) (*OpenAIProvider, error) {
	if client == nil {
		return nil, &ConfigError{Provider: "openai", Field: "client", Message: "chat client is required"}
	}
	if model == "" {
		model = DefaultOpenAISearchModel
	}
	if label == "" {
		label = "openai"
	}
	return &OpenAIProvider{client: client, model: model, label: label}, nil
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Config implements Configurer
func (p *OpenAIProvider) Config() map[string]string {
	return map[string]string{"model": p.model, "backend": p.label, "api_key": RedactedValue}
}

// Search asks the model to search the web and returns its citations
func (p *OpenAIProvider) Search(ctx context.Context, req *Request) ([]Result, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("%w: query cannot be empty", ErrInvalidInput)
	}

	ctx, cancel := withRequestTimeout(ctx, req)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(openAISearchPrompt),
			openai.UserMessage(req.Query),
		},
		WebSearchOptions: openai.ChatCompletionNewParamsWebSearchOptions{
			SearchContextSize: "medium",
		},
	}

	req.Debug.LogRequest("OpenAI search request", log.Fields{"model": p.model, "query": req.Query})

	resp, err := p.client.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return []Result{}, nil
	}

	msg := resp.Choices[0].Message
	req.Debug.LogResponse("OpenAI search response", log.Fields{"annotations": len(msg.Annotations), "model": resp.Model})

	limit := req.limit(DefaultMaxResults, 0)
	seen := make(map[string]bool)
	results := make([]Result, 0, min(len(msg.Annotations), limit))
	for _, a := range msg.Annotations {
		if len(results) >= limit {
			break
		}
		c := a.URLCitation
		if c.URL == "" || seen[c.URL] {
			continue
		}
		seen[c.URL] = true
		results = append(results, Result{
			Title:    c.Title,
			URL:      c.URL,
			Snippet:  citedText(msg.Content, int(c.StartIndex), int(c.EndIndex)),
			Domain:   extractDomain(c.URL),
			Provider: p.Name(),
		})
	}
	return results, nil
}

// citedText returns the span of the answer that a citation covers
func citedText(content string, start, end int) string {
	runes := []rune(content)
	if start < 0 || end > len(runes) || start >= end {
		return ""
	}
	return truncate(string(runes[start:end]), maxSnippetLength)
}
