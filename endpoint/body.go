package endpoint

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
)

// DefaultMaxBodyBytes is the body limit used by ReadBody when limit <= 0.
const DefaultMaxBodyBytes = 64 << 10

// ReadBody reads the whole request body, refusing bodies larger than limit
// bytes with a 413 EndpointError.
func ReadBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, Error(http.StatusRequestEntityTooLarge, "", err)
		}
		return nil, Error(http.StatusBadRequest, "", err)
	}
	return b, nil
}

// MediaType returns the lower-cased media type of the request's
// Content-Type header without parameters, or "" when the header is absent.
func MediaType(r *http.Request) string {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		// Fall back to the raw value before any parameters.
		mt, _, _ = strings.Cut(ct, ";")
		mt = strings.TrimSpace(mt)
	}
	return strings.ToLower(mt)
}
