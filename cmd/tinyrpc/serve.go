package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/mnehpets/tinyrpc/builtin"
	"github.com/mnehpets/tinyrpc/config"
	"github.com/mnehpets/tinyrpc/endpoint"
	"github.com/mnehpets/tinyrpc/jsonrpc"
	"github.com/mnehpets/tinyrpc/middleware"
	"github.com/mnehpets/tinyrpc/rpchttp"
	"github.com/mnehpets/tinyrpc/seal"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(g *globals) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the builtin methods over HTTP",
		Long: `Serve the builtin methods over HTTP POST.

Methods:
  ping          returns "pong"
  echo(text)    returns text
  add(a, b)     returns a + b (floats)
  not(b)        returns !b
  rpc.methods   lists the registered methods`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := g.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			handler, err := newHandler(ctx, cfg, log)
			if err != nil {
				return err
			}
			mux := http.NewServeMux()
			mux.Handle(cfg.Path, handler)
			return serve(ctx, &http.Server{
				Addr:              cfg.Addr,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			}, log)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

// newRegistry returns a registry holding the builtin methods.
func newRegistry(capacity int) (*jsonrpc.Registry, error) {
	reg := jsonrpc.NewRegistry(capacity)
	if err := builtin.Register(reg); err != nil {
		return nil, fmt.Errorf("register builtin methods: %w", err)
	}
	return reg, nil
}

func newSealer(cfg config.Config) (*seal.Codec, error) {
	keys, err := cfg.DecodeSealKeys()
	if err != nil {
		return nil, err
	}
	return seal.NewCodec(cfg.SealKeyID, keys, nil)
}

// newHandler wires the dispatcher, transport and processors for cfg.
func newHandler(ctx context.Context, cfg config.Config, log zerolog.Logger) (http.Handler, error) {
	reg, err := newRegistry(cfg.Capacity)
	if err != nil {
		return nil, err
	}
	d := jsonrpc.NewDispatcher(reg, jsonrpc.WithLogger(log.With().Str("component", "dispatcher").Logger()))

	opts := []rpchttp.ServerOption{
		rpchttp.WithMaxBodyBytes(cfg.MaxBodyBytes),
		rpchttp.WithServerLogger(log.With().Str("component", "http").Logger()),
	}
	if cfg.Sealed() {
		sealer, err := newSealer(cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, rpchttp.WithSealer(sealer))
	}

	processors := []endpoint.Processor{middleware.NewAPIHeadersProcessor()}
	if cfg.OIDCIssuer != "" {
		bearer, err := middleware.NewBearerProcessorFromIssuer(ctx, cfg.OIDCIssuer, cfg.OIDCClientID)
		if err != nil {
			return nil, err
		}
		processors = append(processors, bearer)
	}
	return rpchttp.NewServer(d, opts...).Handler(processors...), nil
}

func serve(ctx context.Context, srv *http.Server, log zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
