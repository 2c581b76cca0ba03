package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	log "github.com/sirupsen/logrus"
	"github.com/tinfoilsh/tinfoil-go"
	"github.com/urfave/cli/v2"

	"github.com/tinfoilsh/multisearch/config"
	"github.com/tinfoilsh/multisearch/orchestrator"
	"github.com/tinfoilsh/multisearch/render"
	"github.com/tinfoilsh/multisearch/search"
)

var providerRequirements = map[string]string{
	"exa":        "Requires EXA_API_KEY (semantic search)",
	"tavily":     "Requires TAVILY_API_KEY (AI-powered search)",
	"openai":     "Requires OPENAI_API_KEY, or TINFOIL_ENABLED with TINFOIL_API_KEY",
	"brave":      "Requires BRAVE_API_KEY",
	"google":     "Requires GOOGLE_API_KEY and GOOGLE_CX",
	"serpapi":    "Requires SERPAPI_API_KEY",
	"searxng":    "Requires SEARXNG_URL",
	"duckduckgo": "No API key required",
	"arxiv":      "No API key required",
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   string(render.FormatTable),
		Usage:   "output format (table, json, simple)",
	}
}

func debugFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "debug",
		Aliases: []string{"d"},
		Usage:   "log provider requests",
	}
}

func maxResultsFlag(value int) cli.Flag {
	return &cli.IntFlag{
		Name:    "max-results",
		Aliases: []string{"m"},
		Value:   value,
		Usage:   "maximum number of results",
	}
}

func singleCommand() *cli.Command {
	return &cli.Command{
		Name:      "single",
		Usage:     "Search using a single provider",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "provider",
				Aliases:  []string{"p"},
				Required: true,
				Usage:    "search provider (" + strings.Join(search.KnownProviders, ", ") + ")",
			},
			maxResultsFlag(search.DefaultMaxResults),
			&cli.StringFlag{Name: "language", Aliases: []string{"l"}, Usage: "language code (e.g. en, es, fr)"},
			&cli.StringFlag{Name: "region", Aliases: []string{"r"}, Usage: "region code (e.g. US, UK, DE)"},
			&cli.StringFlag{Name: "safe-search", Aliases: []string{"s"}, Usage: "safe search level (off, moderate, strict)"},
			&cli.IntFlag{Name: "page", Value: search.DefaultPage, Usage: "result page, starting at 1"},
			debugFlag(),
			&cli.BoolFlag{Name: "raw", Usage: "show raw provider data"},
			formatFlag(),
		},
		Action: func(c *cli.Context) error {
			format, err := render.ParseFormat(c.String("format"))
			if err != nil {
				return err
			}
			req, err := queryRequest(c)
			if err != nil {
				return err
			}
			safe, err := search.ParseSafeSearch(c.String("safe-search"))
			if err != nil {
				return err
			}
			req.Language = c.String("language")
			req.Region = c.String("region")
			req.SafeSearch = safe
			req.Page = c.Int("page")

			cfg := loadedConfig(c)
			searchCfg, err := providerConfig(cfg)
			if err != nil {
				return err
			}
			provider, err := search.NewProvider(c.String("provider"), searchCfg)
			if err != nil {
				return err
			}

			results, err := search.Search(c.Context, provider, req)
			if err != nil {
				return err
			}
			return render.Results(c.App.Writer, results, render.Options{
				Format:   format,
				Raw:      c.Bool("raw"),
				Provider: provider.Name(),
			})
		},
	}
}

func multiCommand() *cli.Command {
	return &cli.Command{
		Name:      "multi",
		Usage:     "Search using multiple providers",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "strategy",
				Aliases: []string{"s"},
				Usage:   "failover, load-balance, aggregate or race (defaults to the configured strategy)",
			},
			&cli.StringSliceFlag{
				Name:    "providers",
				Aliases: []string{"p"},
				Usage:   "providers in priority order (defaults to every available provider)",
			},
			maxResultsFlag(5),
			&cli.DurationFlag{Name: "timeout", Usage: "per-provider timeout"},
			debugFlag(),
			formatFlag(),
			&cli.BoolFlag{Name: "stats", Usage: "show provider statistics"},
		},
		Action: func(c *cli.Context) error {
			format, err := render.ParseFormat(c.String("format"))
			if err != nil {
				return err
			}
			req, err := queryRequest(c)
			if err != nil {
				return err
			}

			cfg := loadedConfig(c)
			orchCfg, err := cfg.OrchestratorConfig()
			if err != nil {
				return err
			}
			if s := c.String("strategy"); s != "" {
				if orchCfg.Strategy, err = orchestrator.ParseStrategy(s); err != nil {
					return err
				}
			}
			if c.IsSet("timeout") {
				orchCfg.TimeoutPerProvider = c.Duration("timeout")
			}

			orch, err := buildOrchestrator(cfg, orchCfg, search.ParseProviderList(strings.Join(c.StringSlice("providers"), ",")))
			if err != nil {
				return err
			}

			results, searchErr := orch.Search(c.Context, req)
			if searchErr == nil {
				if err := render.Results(c.App.Writer, results, render.Options{Format: format}); err != nil {
					return err
				}
			}
			if c.Bool("stats") {
				fmt.Fprintln(c.App.Writer)
				if err := render.Stats(c.App.Writer, orch.Stats(), format); err != nil {
					return err
				}
			}
			return searchErr
		},
	}
}

func arxivCommand() *cli.Command {
	return &cli.Command{
		Name:      "arxiv",
		Usage:     "Look up arXiv papers by ID",
		ArgsUsage: "<id>[,<id>...]",
		Flags: []cli.Flag{
			maxResultsFlag(search.DefaultMaxResults),
			&cli.StringFlag{Name: "sort-by", Usage: "relevance, submitted-date or last-updated-date"},
			&cli.StringFlag{Name: "sort-order", Usage: "ascending or descending"},
			formatFlag(),
		},
		Action: func(c *cli.Context) error {
			format, err := render.ParseFormat(c.String("format"))
			if err != nil {
				return err
			}
			ids := splitIDs(c.Args().Slice())
			if len(ids) == 0 {
				return fmt.Errorf("at least one arXiv ID is required")
			}
			sortBy, err := search.ParseSortBy(c.String("sort-by"))
			if err != nil {
				return err
			}
			sortOrder, err := search.ParseSortOrder(c.String("sort-order"))
			if err != nil {
				return err
			}

			req := search.NewRequest("")
			req.IDList = ids
			req.MaxResults = c.Int("max-results")
			req.SortBy = sortBy
			req.SortOrder = sortOrder

			provider := search.NewArxivProvider(search.NewHTTPClient())
			results, err := search.Search(c.Context, provider, req)
			if err != nil {
				return err
			}
			return render.Results(c.App.Writer, results, render.Options{Format: format, Provider: provider.Name()})
		},
	}
}

func providersCommand() *cli.Command {
	return &cli.Command{
		Name:  "providers",
		Usage: "List providers and whether they are configured",
		Flags: []cli.Flag{formatFlag()},
		Action: func(c *cli.Context) error {
			format, err := render.ParseFormat(c.String("format"))
			if err != nil {
				return err
			}
			searchCfg, err := providerConfig(loadedConfig(c))
			if err != nil {
				return err
			}

			available := make(map[string]bool)
			for _, name := range search.AvailableProviders(searchCfg) {
				available[name] = true
			}
			statuses := make([]render.ProviderStatus, 0, len(search.KnownProviders))
			for _, name := range search.KnownProviders {
				statuses = append(statuses, render.ProviderStatus{
					Name:        name,
					Available:   available[name],
					Requirement: providerRequirements[name],
				})
			}
			return render.Providers(c.App.Writer, statuses, format)
		},
	}
}

// queryRequest builds a request from the positional query and shared flags
func queryRequest(c *cli.Context) (*search.Request, error) {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return nil, fmt.Errorf("a search query is required")
	}
	req := search.NewRequest(query)
	req.MaxResults = c.Int("max-results")
	if c.Bool("debug") {
		req.Debug = search.DebugOptions{Enabled: true, LogRequests: true}
	}
	return req, nil
}

// splitIDs accepts IDs as separate arguments or comma separated
func splitIDs(args []string) []string {
	var ids []string
	for _, arg := range args {
		for _, id := range strings.Split(arg, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// providerConfig returns the factory settings with the OpenAI client wired
// to the configured backend
func providerConfig(cfg *config.Config) (search.Config, error) {
	searchCfg := cfg.SearchConfig()

	switch {
	case cfg.Providers.TinfoilEnabled:
		client, err := tinfoil.NewClient()
		if err != nil {
			return searchCfg, fmt.Errorf("create Tinfoil client: %w", err)
		}
		log.WithField("enclave", client.Enclave()).Debug("Using Tinfoil enclave for openai provider")
		searchCfg.OpenAIClient = &client.Chat.Completions
		searchCfg.OpenAIBackend = "tinfoil"
	case cfg.Providers.OpenAIAPIKey != "":
		client := openai.NewClient(option.WithAPIKey(cfg.Providers.OpenAIAPIKey))
		searchCfg.OpenAIClient = &client.Chat.Completions
		searchCfg.OpenAIBackend = "openai"
	}
	return searchCfg, nil
}

// buildOrchestrator registers the named providers, or every available one
// when names is empty
func buildOrchestrator(cfg *config.Config, orchCfg orchestrator.Config, names []string) (*orchestrator.Orchestrator, error) {
	searchCfg, err := providerConfig(cfg)
	if err != nil {
		return nil, err
	}

	if len(names) == 0 {
		names = cfg.Search.Providers
	}
	strict := len(names) > 0
	if !strict {
		names = search.AvailableProviders(searchCfg)
	}

	orch, err := orchestrator.New(orchCfg)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		p, err := search.NewProvider(name, searchCfg)
		if err != nil {
			if strict {
				return nil, err
			}
			log.WithError(err).WithField("provider", name).Warn("Skipping provider")
			continue
		}
		if err := orch.AddProvider(p); err != nil {
			return nil, err
		}
	}

	log.WithFields(log.Fields{
		"strategy":  orchCfg.Strategy,
		"providers": names,
		"timeout":   orchCfg.TimeoutPerProvider.Round(time.Millisecond),
	}).Debug("Orchestrator ready")
	return orch, nil
}
