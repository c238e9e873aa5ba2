package uplink

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/lukaszraczylo/uplink/pkg/errors"
	"github.com/lukaszraczylo/uplink/pkg/metrics"
	"github.com/rs/zerolog/log"
)

// RetryPolicy controls in-operation retries for metadata fetches
type RetryPolicy struct {
	Attempts int           // total attempts, including the first
	Delay    time.Duration // pause between attempts
}

// MetadataOptions tunes a single metadata fetch
type MetadataOptions struct {
	Etag          string        // previous ETag for a conditional request
	RemoteAddress string        // original client address for X-Forwarded-For
	Headers       http.Header   // incoming request headers to forward
	Method        string        // defaults to GET
	Retry         *RetryPolicy  // defaults to a single attempt
	Timeout       time.Duration // overrides the configured uplink timeout
}

// GetRemoteMetadata fetches the package manifest from the uplink. It returns
// the decoded manifest and the response ETag (possibly empty). A 304 against
// the supplied etag surfaces as NOT_MODIFIED_NO_DATA so the enclosing cache
// layer can reuse its copy.
func (u *Uplink) GetRemoteMetadata(ctx context.Context, name string, opts MetadataOptions) (map[string]interface{}, string, error) {
	if err := u.preflight(); err != nil {
		return nil, "", err
	}

	headers, err := u.buildHeaders(headerOptions{
		etag:          opts.Etag,
		remoteAddress: opts.RemoteAddress,
		headers:       opts.Headers,
		includeAuth:   true,
	})
	if err != nil {
		return nil, "", err
	}

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = u.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	retry := RetryPolicy{Attempts: 1}
	if opts.Retry != nil {
		retry = *opts.Retry
	}
	if retry.Attempts < 1 {
		retry.Attempts = 1
	}

	reqURL := u.upstream + "/" + encodePackage(name)

	var lastErr error
	for attempt := 1; attempt <= retry.Attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, "", ctx.Err()
			case <-time.After(retry.Delay):
			}
			log.Debug().
				Str("uplink", u.name).
				Str("package", name).
				Int("attempt", attempt).
				Msg("Retrying metadata request")
		}

		manifest, etag, retriable, err := u.fetchMetadataOnce(ctx, method, reqURL, name, headers)
		if err == nil {
			return manifest, etag, nil
		}
		lastErr = err
		if !retriable {
			return nil, "", err
		}
	}

	return nil, "", lastErr
}

// fetchMetadataOnce performs one attempt and classifies the outcome. The
// retriable flag tells the caller whether another attempt makes sense.
func (u *Uplink) fetchMetadataOnce(ctx context.Context, method, reqURL, name string, headers http.Header) (map[string]interface{}, string, bool, error) {
	req, err := http.NewRequest(method, reqURL, nil)
	if err != nil {
		return nil, "", false, errors.Wrap(err, errors.ErrCodeUpstreamError, "failed to create request")
	}
	req.Header = headers.Clone()

	start := time.Now()
	resp, err := u.issue(ctx, req)
	if err != nil {
		u.health.recordFailure()
		metrics.RecordRequest(u.name, "metadata", "error", time.Since(start).Seconds())
		// Transport and timeout errors propagate unchanged.
		return nil, "", true, err
	}
	defer resp.Body.Close() // #nosec G104 -- Cleanup, error not critical

	metrics.RecordRequest(u.name, "metadata", strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return nil, "", false, errors.NotModifiedNoData()

	case resp.StatusCode == http.StatusNotFound:
		return nil, "", false, errors.NotFoundUplink(name)

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		u.health.recordSuccess()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, "", false, err
		}
		var manifest map[string]interface{}
		if err := json.Unmarshal(body, &manifest); err != nil {
			return nil, "", false, errors.Wrapf(err, errors.ErrCodeUpstreamError, "invalid manifest from %s", reqURL)
		}
		return manifest, resp.Header.Get(headerETag), false, nil

	case retryableStatus(resp.StatusCode):
		u.health.recordFailure()
		return nil, "", true, errors.BadStatusCode(resp.StatusCode, reqURL)

	default:
		return nil, "", false, errors.BadStatusCode(resp.StatusCode, reqURL)
	}
}
