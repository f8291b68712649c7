package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/mnehpets/tinyrpc/cborvalue"
	"github.com/mnehpets/tinyrpc/jsonvalue"
	"github.com/mnehpets/tinyrpc/rpchttp"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// callOptions holds the flags of the call command.
type callOptions struct {
	url          string
	useCBOR      bool
	token        string
	tokenURL     string
	clientID     string
	clientSecret string
	scopes       []string
}

func newCallCommand(g *globals) *cobra.Command {
	o := &callOptions{}

	cmd := &cobra.Command{
		Use:   "call METHOD [PARAM...]",
		Short: "Call a method on a remote server",
		Long: `Call a method on a remote server and print the result as JSON.

Params are positional. Each is read as null, true or false, an integer, a
float (a literal with a fraction or exponent) or otherwise a string. Quote
a param in double quotes to force a string:

  tinyrpc call add 1.5 2.0
  tinyrpc call echo '"42"'

A bearer token is taken from --token or TINYRPC_TOKEN, or obtained with the
OAuth2 client credentials flow when --token-url is set.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := g.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if o.url == "" {
				o.url = "http://" + cfg.Addr + cfg.Path
			}
			if o.token == "" {
				o.token = os.Getenv("TINYRPC_TOKEN")
			}

			ctx := cmd.Context()
			clientOpts := []rpchttp.ClientOption{rpchttp.WithHTTPClient(o.httpClient(ctx))}
			if o.useCBOR {
				clientOpts = append(clientOpts, rpchttp.WithClientCodec(cborvalue.Codec{}))
			}
			if cfg.Sealed() {
				sealer, err := newSealer(cfg)
				if err != nil {
					return err
				}
				clientOpts = append(clientOpts, rpchttp.WithClientSealer(sealer))
			}
			client, err := rpchttp.NewClient(o.url, clientOpts...)
			if err != nil {
				return err
			}

			params := make([]any, 0, len(args)-1)
			for _, a := range args[1:] {
				params = append(params, parseParam(a))
			}
			res, err := client.Call(ctx, args[0], params...)
			if err != nil {
				return err
			}
			out, err := jsonvalue.Marshal(res)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}

	cmd.Flags().StringVar(&o.url, "url", "", "endpoint URL (default from config addr and path)")
	cmd.Flags().BoolVar(&o.useCBOR, "cbor", false, "send CBOR instead of JSON")
	cmd.Flags().StringVar(&o.token, "token", "", "bearer token")
	cmd.Flags().StringVar(&o.tokenURL, "token-url", "", "OAuth2 token endpoint for the client credentials flow")
	cmd.Flags().StringVar(&o.clientID, "client-id", "", "OAuth2 client id")
	cmd.Flags().StringVar(&o.clientSecret, "client-secret", "", "OAuth2 client secret")
	cmd.Flags().StringSliceVar(&o.scopes, "scope", nil, "OAuth2 scopes")
	return cmd
}

// httpClient returns an HTTP client adding the configured credentials.
func (o *callOptions) httpClient(ctx context.Context) *http.Client {
	switch {
	case o.token != "":
		return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: o.token}))
	case o.tokenURL != "":
		cc := &clientcredentials.Config{
			ClientID:     o.clientID,
			ClientSecret: o.clientSecret,
			TokenURL:     o.tokenURL,
			Scopes:       o.scopes,
		}
		return cc.Client(ctx)
	}
	return http.DefaultClient
}

// parseParam reads a command line literal.
func parseParam(s string) any {
	switch s {
	case "null":
		return nil
	case "true":
		return true
	case "false":
		return false
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		if u, err := strconv.Unquote(s); err == nil {
			return u
		}
		return s[1 : len(s)-1]
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if strings.ContainsAny(s, ".eE") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}
