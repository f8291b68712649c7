package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/mnehpets/tinyrpc/endpoint"
)

// BearerProcessor authenticates requests carrying an OIDC ID token in the
// Authorization header.
//
// Requests without a token, or with a token the verifier rejects, fail with
// 401 Unauthorized. On success the token's subject is available to later
// processors and the endpoint through SubjectFromContext.
type BearerProcessor struct {
	Verifier *oidc.IDTokenVerifier
	// Realm is reported in the WWW-Authenticate challenge. Optional.
	Realm string
}

// VerifierOption configures the oidc.Config used to build a verifier.
type VerifierOption func(*oidc.Config)

// WithSkipExpiryCheck disables token expiry checks. Intended for tests.
func WithSkipExpiryCheck() VerifierOption {
	return func(c *oidc.Config) {
		c.SkipExpiryCheck = true
	}
}

// NewBearerProcessor returns a BearerProcessor using verifier.
func NewBearerProcessor(verifier *oidc.IDTokenVerifier) *BearerProcessor {
	return &BearerProcessor{Verifier: verifier}
}

// NewBearerProcessorFromIssuer performs OIDC discovery against issuer and
// returns a processor accepting ID tokens issued to clientID.
func NewBearerProcessorFromIssuer(ctx context.Context, issuer, clientID string, opts ...VerifierOption) (*BearerProcessor, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to query provider %q: %w", issuer, err)
	}
	conf := &oidc.Config{ClientID: clientID}
	for _, opt := range opts {
		opt(conf)
	}
	return NewBearerProcessor(provider.Verifier(conf)), nil
}

func (p *BearerProcessor) Process(w http.ResponseWriter, r *http.Request, next func(w http.ResponseWriter, r *http.Request) error) error {
	if p == nil || p.Verifier == nil {
		return endpoint.Error(http.StatusInternalServerError, "authentication not configured", nil)
	}
	raw, ok := bearerToken(r)
	if !ok {
		p.challenge(w, "")
		return endpoint.Error(http.StatusUnauthorized, "", nil)
	}
	tok, err := p.Verifier.Verify(r.Context(), raw)
	if err != nil {
		p.challenge(w, "invalid_token")
		return endpoint.Error(http.StatusUnauthorized, "", err)
	}
	return next(w, r.WithContext(context.WithValue(r.Context(), subjectContextKey{}, tok.Subject)))
}

func (p *BearerProcessor) challenge(w http.ResponseWriter, code string) {
	v := "Bearer"
	if p.Realm != "" {
		v += fmt.Sprintf(" realm=%q", p.Realm)
		if code != "" {
			v += ","
		}
	}
	if code != "" {
		v += fmt.Sprintf(" error=%q", code)
	}
	w.Header().Set("WWW-Authenticate", v)
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, tok, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}

type subjectContextKey struct{}

// SubjectFromContext returns the subject of the verified bearer token, if any.
func SubjectFromContext(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(subjectContextKey{}).(string)
	return sub, ok
}
