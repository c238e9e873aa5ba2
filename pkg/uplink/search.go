package uplink

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/lukaszraczylo/uplink/pkg/errors"
	"github.com/lukaszraczylo/uplink/pkg/metrics"
)

// SearchOptions describes a federated search request
type SearchOptions struct {
	URL           string // search path and query, appended to the base URL
	RemoteAddress string
	Headers       http.Header
}

// SearchStream yields the elements of the response's top-level "objects"
// array one at a time. The surrounding fields (total, date) are dropped.
type SearchStream struct {
	dec       *json.Decoder
	body      io.ReadCloser
	cancel    context.CancelFunc
	inArray   bool
	done      bool
	closeOnce sync.Once
}

// Search issues the query against the uplink and returns an object stream
// once response headers arrive. Cancelling ctx aborts the in-flight request
// and tears down the stream.
//
// Auth headers are intentionally not forwarded to search endpoints.
func (u *Uplink) Search(ctx context.Context, opts SearchOptions) (*SearchStream, error) {
	if err := u.preflight(); err != nil {
		return nil, err
	}

	headers, err := u.buildHeaders(headerOptions{
		remoteAddress: opts.RemoteAddress,
		headers:       opts.Headers,
		includeAuth:   false,
	})
	if err != nil {
		return nil, err
	}

	reqURL := joinPath(u.upstream, opts.URL)
	req, err := http.NewRequest(http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeUpstreamError, "failed to create request")
	}
	req.Header = headers

	ctx, cancel := context.WithCancel(ctx)

	start := time.Now()
	resp, err := u.issue(ctx, req)
	if err != nil {
		u.health.recordFailure()
		metrics.RecordRequest(u.name, "search", "error", time.Since(start).Seconds())
		cancel()
		return nil, err
	}

	metrics.RecordRequest(u.name, "search", strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())

	if resp.StatusCode >= 400 {
		if retryableStatus(resp.StatusCode) {
			u.health.recordFailure()
		}
		resp.Body.Close() // #nosec G104 -- Cleanup, error not critical
		cancel()
		return nil, errors.BadStatusCode(resp.StatusCode, reqURL)
	}

	u.health.recordSuccess()

	return &SearchStream{
		dec:    json.NewDecoder(resp.Body),
		body:   resp.Body,
		cancel: cancel,
	}, nil
}

// Next returns the next element of the objects array as raw JSON, or io.EOF
// once the array is exhausted.
func (s *SearchStream) Next() (json.RawMessage, error) {
	if s.done {
		return nil, io.EOF
	}

	if !s.inArray {
		if err := s.seekObjects(); err != nil {
			s.finish()
			return nil, err
		}
		s.inArray = true
	}

	if !s.dec.More() {
		s.finish()
		return nil, io.EOF
	}

	var raw json.RawMessage
	if err := s.dec.Decode(&raw); err != nil {
		s.finish()
		return nil, err
	}
	return raw, nil
}

// seekObjects advances the decoder to the start of the top-level "objects"
// array, skipping sibling fields along the way.
func (s *SearchStream) seekObjects() error {
	tok, err := s.dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("unexpected search response, want object, got %v", tok)
	}

	for {
		tok, err := s.dec.Token()
		if err != nil {
			return err
		}
		if delim, ok := tok.(json.Delim); ok && delim == '}' {
			return io.EOF // no objects array in the response
		}

		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v in search response", tok)
		}

		if key == "objects" {
			open, err := s.dec.Token()
			if err != nil {
				return err
			}
			if delim, ok := open.(json.Delim); !ok || delim != '[' {
				return fmt.Errorf("search objects field is not an array")
			}
			return nil
		}

		// Skip this field's value (total, date, ...)
		var skip json.RawMessage
		if err := s.dec.Decode(&skip); err != nil {
			return err
		}
	}
}

func (s *SearchStream) finish() {
	s.done = true
	s.Close() // #nosec G104 -- Close is idempotent
}

// Close aborts the request and releases the connection. Safe to call more
// than once.
func (s *SearchStream) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.body.Close() // #nosec G104 -- Cleanup, error not critical
	})
	return nil
}
