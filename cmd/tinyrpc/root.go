package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mnehpets/tinyrpc/config"
	"github.com/mnehpets/tinyrpc/jsonrpc"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var version = "dev"

// globals holds the persistent flags shared by all subcommands.
type globals struct {
	configPath string
	envFiles   []string
	logLevel   string
	jsonLogs   bool
}

func newRootCommand() *cobra.Command {
	g := &globals{}
	cmd := &cobra.Command{
		Use:   "tinyrpc",
		Short: "tinyrpc - JSON-RPC 2.0 for small devices",
		Long: `tinyrpc serves and calls JSON-RPC 2.0 methods over HTTP, in JSON or CBOR,
with optional sealed bodies and bearer token authentication.`,
		Version:      version,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&g.configPath, "config", "", "YAML config file")
	cmd.PersistentFlags().StringSliceVar(&g.envFiles, "env-file", []string{".env"}, "dotenv files to read")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level (overrides config)")
	cmd.PersistentFlags().BoolVar(&g.jsonLogs, "json-logs", false, "write logs as JSON")

	cmd.AddCommand(newServeCommand(g))
	cmd.AddCommand(newDispatchCommand(g))
	cmd.AddCommand(newCallCommand(g))
	return cmd
}

func execute() error {
	return newRootCommand().Execute()
}

// load reads the config and builds the logger.
func (g *globals) load(stderr io.Writer) (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(g.configPath, g.envFiles...)
	if err != nil {
		return cfg, zerolog.Nop(), err
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	log, err := newLogger(stderr, cfg.LogLevel, g.jsonLogs)
	return cfg, log, err
}

func newLogger(w io.Writer, level string, jsonLogs bool) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level: %w", err)
	}
	if w == nil {
		w = os.Stderr
	}
	if !jsonLogs {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

func isRPCError(err error) bool {
	var rpcErr *jsonrpc.Error
	return errors.As(err, &rpcErr)
}
