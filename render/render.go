package render

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/tinfoilsh/multisearch/orchestrator"
	"github.com/tinfoilsh/multisearch/search"
)

// Format selects how results are printed
type Format string

const (
	FormatTable  Format = "table"
	FormatJSON   Format = "json"
	FormatSimple Format = "simple"

	snippetWidth = 200
	ruleWidth    = 80
)

// ParseFormat converts a user supplied output format
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatSimple:
		return f, nil
	case "":
		return FormatTable, nil
	}
	return "", fmt.Errorf("unknown output format %q (expected table, json or simple)", s)
}

// Options controls result rendering
type Options struct {
	Format   Format
	Raw      bool   // include provider raw data in table output
	Provider string // shown in the table header when set
}

var (
	bold    = color.New(color.Bold).SprintFunc()
	heading = color.New(color.FgBlue, color.Bold).SprintFunc()
	link    = color.New(color.FgBlue, color.Underline).SprintFunc()
	domain  = color.New(color.FgGreen).SprintFunc()
	italic  = color.New(color.Italic).SprintFunc()
	date    = color.New(color.FgYellow).SprintFunc()
	origin  = color.New(color.FgCyan).SprintFunc()
	faint   = color.New(color.Faint).SprintFunc()
	good    = color.New(color.FgGreen).SprintFunc()
	bad     = color.New(color.FgRed).SprintFunc()
)

// Results writes results in the selected format
func Results(w io.Writer, results []search.Result, opts Options) error {
	switch opts.Format {
	case FormatJSON:
		return writeJSON(w, results)
	case FormatSimple:
		for i, r := range results {
			fmt.Fprintf(w, "%d. %s\n   %s\n", i+1, r.Title, r.URL)
			if r.Snippet != "" {
				fmt.Fprintf(w, "   %s\n", r.Snippet)
			}
			fmt.Fprintln(w)
		}
		return nil
	}

	if opts.Provider != "" {
		fmt.Fprintf(w, "%s %s\n", bold("Search Results from"), heading(opts.Provider))
	} else {
		fmt.Fprintln(w, heading("Search Results"))
	}
	fmt.Fprintln(w, faint(strings.Repeat("─", ruleWidth)))

	for i, r := range results {
		fmt.Fprintf(w, "%s. %s\n", bold(i+1), bold(r.Title))
		fmt.Fprintf(w, "   URL: %s\n", link(r.URL))
		if r.Domain != "" {
			fmt.Fprintf(w, "   Domain: %s\n", domain(r.Domain))
		}
		if r.Snippet != "" {
			fmt.Fprintf(w, "   %s\n", italic(clip(r.Snippet, snippetWidth)))
		}
		if r.PublishedDate != "" {
			fmt.Fprintf(w, "   Published: %s\n", date(r.PublishedDate))
		}
		if r.Provider != "" {
			fmt.Fprintf(w, "   Provider: %s\n", origin(r.Provider))
		}
		if opts.Raw && len(r.Raw) > 0 {
			raw, err := json.MarshalIndent(r.Raw, "   ", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "   Raw: %s\n", raw)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "%s %s\n", bold("Total results:"), bold(len(results)))
	return nil
}

// Stats writes per-provider statistics sorted by provider name
func Stats(w io.Writer, stats map[string]orchestrator.ProviderStats, format Format) error {
	if format == FormatJSON {
		return writeJSON(w, stats)
	}

	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w)
	fmt.Fprintln(w, heading("Provider Statistics:"))
	fmt.Fprintln(w, faint(strings.Repeat("─", ruleWidth)))
	for _, name := range names {
		s := stats[name]
		fmt.Fprintf(w, "%s:\n", bold(name))
		fmt.Fprintf(w, "  Total requests: %d\n", s.TotalRequests)
		fmt.Fprintf(w, "  Successful: %s\n", good(s.SuccessfulRequests))
		fmt.Fprintf(w, "  Failed: %s\n", bad(s.FailedRequests))
		fmt.Fprintf(w, "  Avg response time: %.2fms\n", s.AvgResponseTimeMS)
		if s.TotalRequests > 0 {
			rate := float64(s.SuccessfulRequests) / float64(s.TotalRequests) * 100
			fmt.Fprintf(w, "  Success rate: %.1f%%\n", rate)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// ProviderStatus describes whether a provider can be built from the current
// configuration
type ProviderStatus struct {
	Name        string `json:"name"`
	Available   bool   `json:"available"`
	Requirement string `json:"requirement"`
}

// Providers writes the provider availability listing
func Providers(w io.Writer, providers []ProviderStatus, format Format) error {
	if format == FormatJSON {
		return writeJSON(w, providers)
	}

	fmt.Fprintln(w, heading("Available Search Providers:"))
	fmt.Fprintln(w)
	for _, p := range providers {
		mark := bad("✗")
		if p.Available {
			mark = good("✓")
		}
		fmt.Fprintf(w, "%s %s - %s\n", mark, bold(p.Name), italic(p.Requirement))
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
