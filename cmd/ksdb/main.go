// Package main is the ksdb server entry point: a cobra root command with
// a "serve" subcommand, replacing the teacher's bare flag.Bool("server")
// switch now that the CLI has more than one real command.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leengari/ksdb/internal/config"
	"github.com/leengari/ksdb/internal/logging"
	"github.com/leengari/ksdb/internal/network"
	"github.com/leengari/ksdb/internal/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var dataDir string
	var listenAddr string
	var seqURL string

	root := &cobra.Command{
		Use:   "ksdb",
		Short: "A single-node keyspace/table storage server",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a ksdb.toml config file")
	root.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data root directory (overrides config)")
	root.PersistentFlags().StringVar(&listenAddr, "listen", "", "TCP listen address (overrides config)")
	root.PersistentFlags().StringVar(&seqURL, "seq-url", "", "optional Seq ingestion endpoint for structured logs")

	root.AddCommand(serveCmd(&configPath, &dataDir, &listenAddr, &seqURL))
	root.AddCommand(versionCmd())
	return root
}

func serveCmd(configPath, dataDir, listenAddr, seqURL *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the ksdb TCP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(*configPath, *dataDir, *listenAddr, *seqURL)
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the ksdb version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("ksdb dev")
			return nil
		},
	}
}

func runServe(configPath, dataDirOverride, listenOverride, seqURL string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	var args []string
	if dataDirOverride != "" {
		args = append(args, "-data-dir", dataDirOverride)
	}
	if listenOverride != "" {
		args = append(args, "-listen", listenOverride)
	}
	cfg, err := config.Load(configPath, fs, args)
	if err != nil {
		return fmt.Errorf("serve: load config: %w", err)
	}

	logger, closeLogging := logging.SetupLogger(logging.Options{SeqURL: seqURL, Level: slog.LevelInfo})
	defer closeLogging()
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("serve: create data dir: %w", err)
	}

	s, err := store.New(cfg.DataDir, cfg.EngineSettings())
	if err != nil {
		return fmt.Errorf("serve: open store: %w", err)
	}
	defer s.Shutdown()

	srv, err := network.Listen(cfg.ListenAddr, s)
	if err != nil {
		return fmt.Errorf("serve: listen on %s: %w", cfg.ListenAddr, err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("ksdb listening", "addr", srv.Addr().String(), "data_dir", cfg.DataDir)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ctx)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
		srv.Shutdown()
		<-serveErr
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	}
	return nil
}
