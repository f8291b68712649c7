package endpoint

import (
	"net/http"
	"strconv"
)

// BytesRenderer writes a byte slice as the response body.
//
// When Status is 0 it defaults to http.StatusOK; when ContentType is empty
// it defaults to "application/octet-stream".
type BytesRenderer struct {
	Status      int
	ContentType string
	Body        []byte
}

// Render implements Renderer for BytesRenderer.
func (br *BytesRenderer) Render(w http.ResponseWriter, _ *http.Request) error {
	ct := br.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Length", strconv.Itoa(len(br.Body)))

	status := br.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(br.Body) == 0 {
		return nil
	}
	_, err := w.Write(br.Body)
	return err
}

// NoContentRenderer writes a response with no body and a specific status code.
//
// If Status is 0, it defaults to http.StatusNoContent.
type NoContentRenderer struct {
	Status int
}

func (ncr *NoContentRenderer) Render(w http.ResponseWriter, _ *http.Request) error {
	status := ncr.Status
	if status == 0 {
		status = http.StatusNoContent
	}
	w.WriteHeader(status)
	return nil
}
