package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/tinfoilsh/multisearch/api"
	"github.com/tinfoilsh/multisearch/pipeline"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP search API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "listen address (defaults to LISTEN_ADDR or :8089)",
			},
		},
		Action: func(c *cli.Context) error {
			cfg := loadedConfig(c)
			if addr := c.String("listen"); addr != "" {
				cfg.ListenAddr = addr
			}

			orchCfg, err := cfg.OrchestratorConfig()
			if err != nil {
				return err
			}
			orch, err := buildOrchestrator(cfg, orchCfg, nil)
			if err != nil {
				return err
			}
			if len(orch.Providers()) == 0 {
				log.Warn("No search providers configured; searches will fail until one is set up")
			}

			srv := &api.Server{
				Pipeline: pipeline.NewPipeline([]pipeline.Stage{
					&pipeline.ValidateStage{},
					&pipeline.SearchStage{Searcher: orch},
				}, api.RequestTimeout),
				Orchestrator: orch,
			}

			server := &http.Server{
				Addr:              cfg.ListenAddr,
				Handler:           srv.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       time.Minute,
				WriteTimeout:      0, // Disabled for streaming
			}

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				names := make([]string, 0, len(orch.Providers()))
				for _, p := range orch.Providers() {
					names = append(names, p.Name())
				}
				log.Infof("Starting on %s (strategy: %s, providers: %v)", cfg.ListenAddr, orch.Strategy(), names)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return err
			case <-sigChan:
			}

			log.Info("Shutting down...")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(ctx)
		},
	}
}
