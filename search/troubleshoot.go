package search

import (
	"errors"
	"fmt"
)

// Troubleshoot returns a human readable suggestion for a provider failure
func Troubleshoot(provider string, err error) string {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == 401 || httpErr.StatusCode == 403:
			return "This is likely an authentication issue. Check your API key and make sure it's valid and has the correct permissions."
		case httpErr.StatusCode == 400:
			return "This is likely due to invalid request parameters. Check your query and other search options."
		case httpErr.StatusCode == 429:
			return "You've exceeded the rate limit for this API. Try again later or reduce your request frequency."
		case httpErr.StatusCode >= 500 && httpErr.StatusCode <= 599:
			return "The search provider is experiencing server issues. Try again later."
		}
	}

	switch provider {
	case "google":
		return "Make sure your Google API key is valid and has the Custom Search API enabled. Also check if your Search Engine ID (cx) is correct."
	case "serpapi":
		return "Check that your SerpAPI key is valid. Verify that you have enough credits remaining in your SerpAPI account."
	case "brave":
		return "Ensure your Brave Search API token is valid. Check your subscription status in the Brave Developer Hub."
	case "searxng":
		return "Check if your SearXNG instance URL is correct and that the server is running with the JSON format enabled."
	case "duckduckgo":
		return "You may be making too many requests to DuckDuckGo. Try adding a delay between requests or reduce your request frequency."
	case "arxiv":
		return "Check the query or ID list format. ArXiv IDs look like 2301.12345."
	}
	return fmt.Sprintf("Check your %s API credentials and make sure your search request is valid.", provider)
}
