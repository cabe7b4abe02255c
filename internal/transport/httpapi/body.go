package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzip"
)

var errBodyTooLarge = errors.New("body too large")

// gzipMinBytes is the smallest response worth compressing.
const gzipMinBytes = 1024

// readBody reads at most limit bytes of the (possibly gzip encoded) body.
// The limit applies to the decoded size.
func readBody(r *http.Request, limit int64) ([]byte, error) {
	var src io.Reader = r.Body
	switch enc := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Encoding"))); enc {
	case "", "identity":
	case "gzip":
		zr, err := gzip.NewReader(r.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		src = zr
	default:
		return nil, fmt.Errorf("unsupported content-encoding %q", enc)
	}
	body, err := io.ReadAll(io.LimitReader(src, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, errBodyTooLarge
	}
	return body, nil
}

func writeBody(rw http.ResponseWriter, r *http.Request, status int, body []byte) {
	h := rw.Header()
	h.Set("content-type", "application/json")
	h.Add("Vary", "Accept-Encoding")
	if len(body) >= gzipMinBytes && acceptsGzip(r) {
		var buf bytes.Buffer
		zw, err := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
		if err == nil {
			_, err = zw.Write(body)
		}
		if err == nil {
			err = zw.Close()
		}
		if err == nil {
			h.Set("Content-Encoding", "gzip")
			rw.WriteHeader(status)
			_, _ = rw.Write(buf.Bytes())
			return
		}
	}
	rw.WriteHeader(status)
	_, _ = rw.Write(body)
}
