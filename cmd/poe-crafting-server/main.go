// Path of Exile crafting data MCP server
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/exilecraft/poe-crafting-server/internal/poe/archive"
	"github.com/exilecraft/poe-crafting-server/internal/poe/engine"
	"github.com/exilecraft/poe-crafting-server/internal/poe/httpapi"
	"github.com/exilecraft/poe-crafting-server/internal/poe/logging"
	"github.com/exilecraft/poe-crafting-server/internal/poe/mcp"
	"github.com/exilecraft/poe-crafting-server/internal/poe/rules"
)

func main() {
	snapshotDir := flag.String("snapshot-dir", "data/snapshots", "Directory holding data snapshots")
	archiveDB := flag.String("archive-db", "", "Path to SQLite price archive (empty disables price history)")
	pruneDays := flag.Int("prune-days", 0, "Remove archived price points older than this many days (0 keeps everything)")
	httpAddr := flag.String("http", "", "Listen address for the HTTP API (empty disables it)")
	importSnapshot := flag.String("import-snapshot", "", "Import a snapshot bundle from JSON file and exit")
	rulesFile := flag.String("rules", "", "Extra crafting rules JSON merged over the snapshot's rules")
	logDir := flag.String("log-dir", "", "Directory for rotating log files (empty logs to stderr only)")
	jsonLogs := flag.Bool("json-logs", false, "Emit logs as JSON")
	verbose := flag.Bool("verbose", false, "Enable verbose logging")
	flag.Parse()

	logger, err := logging.New(logging.Config{
		LogDir:  *logDir,
		Verbose: *verbose,
		JSON:    *jsonLogs,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to set up logging:", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down...")
		cancel()
	}()

	data := engine.New(*snapshotDir, logger)

	if *importSnapshot != "" {
		logger.Info("importing snapshot", "file", *importSnapshot)
		dir, err := data.Store().ImportFile(*importSnapshot)
		if err != nil {
			logger.Error("failed to import snapshot", "error", err)
			os.Exit(1)
		}
		logger.Info("snapshot imported", "directory", dir)
		return
	}

	if *rulesFile != "" {
		extra, err := rules.LoadFile(*rulesFile)
		if err != nil {
			logger.Error("failed to load rules file", "error", err)
			os.Exit(1)
		}
		data.AddRules(extra)
		logger.Info("loaded extra crafting rules", "file", *rulesFile, "rules", len(extra.Rules))
	}

	if err := data.EnsureReady(ctx); err != nil {
		logger.Error("failed to load snapshot", "error", err)
		os.Exit(1)
	}
	info := data.Info()
	logger.Info("snapshot loaded", "version", info.Version, "league", info.League)

	var arc *archive.Archive
	if *archiveDB != "" {
		database, err := archive.OpenAndInit(ctx, *archiveDB)
		if err != nil {
			logger.Error("failed to open price archive", "error", err)
			os.Exit(1)
		}
		defer func() { _ = database.Close() }()

		arc = archive.NewArchive(database)

		snap, err := data.Snapshot()
		if err != nil {
			logger.Error("failed to read snapshot", "error", err)
			os.Exit(1)
		}
		recorded, err := arc.RecordSnapshot(ctx, snap)
		if err != nil {
			logger.Warn("failed to archive snapshot prices", "error", err)
		} else if recorded > 0 {
			logger.Info("archived snapshot prices", "points", recorded)
		}

		if *pruneDays > 0 {
			pruned, err := arc.PruneOldPoints(ctx, *pruneDays)
			if err != nil {
				logger.Warn("failed to prune price archive", "error", err)
			} else if pruned > 0 {
				logger.Info("pruned old price points", "points", pruned, "older-than-days", *pruneDays)
			}
		}
	}

	if *httpAddr != "" {
		api := httpapi.New(data)
		httpServer := &http.Server{
			Addr:              *httpAddr,
			Handler:           api,
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			logger.Info("starting HTTP API", "addr", *httpAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server error", "error", err)
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = httpServer.Shutdown(shutdownCtx)
		}()
	}

	server := mcp.NewServer(data, arc, logger)

	logger.Info("starting MCP server", "snapshot-dir", *snapshotDir)
	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	fmt.Fprintln(os.Stderr, "server stopped")
}
