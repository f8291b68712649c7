package main

import (
	"fmt"
	"io"

	"github.com/mnehpets/tinyrpc/cborvalue"
	"github.com/mnehpets/tinyrpc/jsonrpc"
	"github.com/mnehpets/tinyrpc/jsonvalue"
	"github.com/spf13/cobra"
)

func newDispatchCommand(g *globals) *cobra.Command {
	var useCBOR, diag bool

	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Process one request from stdin against the builtin methods",
		Long: `Process one request read from stdin and write the response to stdout.

Useful for testing requests without a network, and for serial links where
the transport is a pipe:

  echo '{"jsonrpc":"2.0","id":1,"method":"ping"}' | tinyrpc dispatch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := g.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			reg, err := newRegistry(cfg.Capacity)
			if err != nil {
				return err
			}
			d := jsonrpc.NewDispatcher(reg, jsonrpc.WithLogger(log))

			in, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), cfg.MaxBodyBytes+1))
			if err != nil {
				return err
			}
			if int64(len(in)) > cfg.MaxBodyBytes {
				return fmt.Errorf("request larger than %d bytes", cfg.MaxBodyBytes)
			}

			var codec jsonrpc.Codec = jsonvalue.Codec{}
			if useCBOR {
				codec = cborvalue.Codec{}
			}
			out, err := dispatchOnce(d, codec, in)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), out, useCBOR && diag)
		},
	}

	cmd.Flags().BoolVar(&useCBOR, "cbor", false, "read and write CBOR instead of JSON")
	cmd.Flags().BoolVar(&diag, "diag", false, "with --cbor, write diagnostic notation instead of binary")
	return cmd
}

// dispatchOnce decodes in, processes it and returns the encoded response.
func dispatchOnce(d *jsonrpc.Dispatcher, codec jsonrpc.Codec, in []byte) ([]byte, error) {
	msg, err := codec.Decode(in)
	if err != nil {
		msg = nil
	}
	doc := codec.NewDocument()
	d.Process(msg, doc)
	return doc.Encode()
}

func writeOutput(w io.Writer, out []byte, diag bool) error {
	if diag {
		s, err := cborvalue.Diagnose(out)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, s)
		return err
	}
	if _, err := w.Write(out); err != nil {
		return err
	}
	if len(out) > 0 && out[0] == '{' {
		_, err := io.WriteString(w, "\n")
		return err
	}
	return nil
}
