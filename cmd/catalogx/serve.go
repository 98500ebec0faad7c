package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hasan-ston/catalogx/internal/store"
	"github.com/hasan-ston/catalogx/internal/webapi"
)

var (
	serveDBPath string
	serveRunID  string
	servePort   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve precomputed crawl results as the external HTTP view",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveDBPath, "db", "catalogx.db", "SQLite database populated by a prior crawl")
	serveCmd.Flags().StringVar(&serveRunID, "run", "", "Crawl run id to serve; defaults to the latest run")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on; overrides $PORT")
}

func runServe(cmd *cobra.Command, args []string) error {
	dbPath := serveDBPath
	if env := os.Getenv("CATALOGX_DB"); env != "" && !cmd.Flags().Changed("db") {
		dbPath = env
	}

	s, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	runID := serveRunID
	if runID == "" {
		if runID, err = s.LatestRunID(); err != nil {
			cfgLog.Printf("warning: no completed crawl run found yet: %v", err)
			runID = ""
		}
	}

	srv := webapi.New(s, runID)

	addr := ":8080"
	if servePort != "" {
		addr = ":" + servePort
	} else if p := os.Getenv("PORT"); p != "" {
		addr = ":" + p
	}

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		cfgLog.Printf("starting server on %s (db=%s run=%s)", addr, dbPath, runID)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
	}

	return nil
}
