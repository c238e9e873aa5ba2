package uplink

import (
	"context"
	goerrors "errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/lukaszraczylo/uplink/pkg/errors"
	"github.com/lukaszraczylo/uplink/pkg/metrics"
)

// TarballOptions tunes a single tarball fetch
type TarballOptions struct {
	Etag          string
	RemoteAddress string
	Headers       http.Header
}

// TarballStream is the read side of an in-flight tarball download. Protocol
// errors (bad status, content-length mismatch, transport failures) surface
// exactly once through Read; Close aborts the request and releases the
// connection.
type TarballStream struct {
	pr        *io.PipeReader
	cancel    context.CancelFunc
	clReady   chan struct{}
	clOnce    sync.Once
	length    int64
	closeOnce sync.Once
}

// Read streams body bytes. Backpressure from the consumer propagates to the
// upstream connection through the pipe.
func (s *TarballStream) Read(p []byte) (int, error) {
	return s.pr.Read(p)
}

// ContentLength blocks until response headers arrive and returns the
// advertised length, or -1 when the upstream did not send one (or the
// request failed before headers).
func (s *TarballStream) ContentLength() int64 {
	<-s.clReady
	return s.length
}

// Close aborts the download. Safe to call at any time and more than once.
func (s *TarballStream) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.pr.Close() // #nosec G104 -- Pipe close cannot fail meaningfully
		s.signalLength(-1)
	})
	return nil
}

func (s *TarballStream) signalLength(v int64) {
	s.clOnce.Do(func() {
		s.length = v
		close(s.clReady)
	})
}

// FetchTarball starts a streaming download of rawurl and returns the read
// side immediately. The request runs in a goroutine; early protocol errors
// are emitted on the stream before any body byte, per the
// stream-returning contract.
func (u *Uplink) FetchTarball(ctx context.Context, rawurl string, opts TarballOptions) *TarballStream {
	ctx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()
	stream := &TarballStream{
		pr:      pr,
		cancel:  cancel,
		clReady: make(chan struct{}),
	}

	fail := func(err error) {
		stream.signalLength(-1)
		pw.CloseWithError(err) // #nosec G104 -- First error wins on a pipe
		cancel()
	}

	if err := u.preflight(); err != nil {
		fail(err)
		return stream
	}

	headers, err := u.buildHeaders(headerOptions{
		etag:          opts.Etag,
		remoteAddress: opts.RemoteAddress,
		headers:       opts.Headers,
		includeAuth:   true,
	})
	if err != nil {
		fail(err)
		return stream
	}

	go u.streamTarball(ctx, rawurl, headers, stream, pw, fail)

	return stream
}

func (u *Uplink) streamTarball(ctx context.Context, rawurl string, headers http.Header, stream *TarballStream, pw *io.PipeWriter, fail func(error)) {
	req, err := http.NewRequest(http.MethodGet, rawurl, nil)
	if err != nil {
		fail(errors.Wrap(err, errors.ErrCodeUpstreamError, "failed to create request"))
		return
	}
	req.Header = headers

	start := time.Now()
	resp, err := u.issue(ctx, req)
	if err != nil {
		u.health.recordFailure()
		metrics.RecordRequest(u.name, "tarball", "error", time.Since(start).Seconds())
		fail(err)
		return
	}
	defer resp.Body.Close() // #nosec G104 -- Cleanup, error not critical

	metrics.RecordRequest(u.name, "tarball", strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())

	switch {
	case resp.StatusCode == http.StatusNotFound:
		fail(errors.NotFileUplink(rawurl))
		return
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		if retryableStatus(resp.StatusCode) {
			u.health.recordFailure()
		}
		fail(errors.BadStatusCode(resp.StatusCode, rawurl))
		return
	}

	u.health.recordSuccess()

	expected := resp.ContentLength
	stream.signalLength(expected)

	written, err := io.Copy(pw, resp.Body)
	switch {
	case err != nil && expected >= 0 && written != expected && goerrors.Is(err, io.ErrUnexpectedEOF):
		// The transport noticed the body ended short of Content-Length.
		pw.CloseWithError(errors.ContentMismatch(expected, written)) // #nosec G104 -- First error wins on a pipe
	case err != nil:
		// Either the upstream read failed or the consumer closed the pipe;
		// the pipe keeps whichever error landed first.
		pw.CloseWithError(err) // #nosec G104 -- First error wins on a pipe
	case expected >= 0 && written != expected:
		pw.CloseWithError(errors.ContentMismatch(expected, written)) // #nosec G104 -- First error wins on a pipe
	default:
		pw.Close() // #nosec G104 -- Pipe close cannot fail meaningfully
	}
}
