// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package acquire retrieves article sources by DOI and decides which file
// the pipeline parses: a caller-supplied PDF or a freshly downloaded one.
package acquire

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/pdiddy/paper-reader/internal/httputil"
	"github.com/pdiddy/paper-reader/pkg/types"
)

// DefaultURLTemplate is the Elsevier full-text endpoint. {doi} and {key}
// are substituted per request.
const DefaultURLTemplate = "https://api.elsevier.com/content/article/doi/{doi}?apiKey={key}&httpAccept=application/xml"

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "paper-reader/0.1"
)

// FetchResult is the outcome of one download attempt. Path is empty when
// the article is absent; Reason says why.
type FetchResult struct {
	Path     string
	Reason   types.Degradation
	Attempts int
}

// OK reports whether a document was written.
func (r FetchResult) OK() bool {
	return r.Path != "" && !r.Reason.Degraded()
}

// Fetcher downloads article XML from the content API.
type Fetcher struct {
	client  *http.Client
	cfg     types.FetchConfig
	limiter *rate.Limiter
	log     logrus.FieldLogger
}

// NewFetcher creates a Fetcher. A nil client gets one with cfg.Timeout
// (default 30s); a nil logger uses the logrus standard logger.
func NewFetcher(client *http.Client, cfg types.FetchConfig, log logrus.FieldLogger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.URLTemplate == "" {
		cfg.URLTemplate = DefaultURLTemplate
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	return &Fetcher{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		log:     log,
	}
}

// HasCredential reports whether downloads can be attempted at all.
func (f *Fetcher) HasCredential() bool {
	return f.cfg.APIKey != ""
}

// URL builds the request URL for doi. Each path segment of the DOI is
// escaped; the slashes between them are kept.
func (f *Fetcher) URL(doi string) string {
	segments := strings.Split(doi, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.NewReplacer(
		"{doi}", strings.Join(segments, "/"),
		"{key}", url.QueryEscape(f.cfg.APIKey),
	).Replace(f.cfg.URLTemplate)
}

// Fetch downloads the article named by doi to dest. It never returns an
// error: an absent article is reported through FetchResult.Reason.
//
// Without a credential no request is made. A 404/401/403 ends the attempt
// immediately; other failures are retried per the configured policy.
func (f *Fetcher) Fetch(ctx context.Context, doi, dest string) FetchResult {
	log := f.log.WithFields(logrus.Fields{"doi": doi, "stage": "fetch"})

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		log.WithError(err).Error("creating download directory")
		return FetchResult{Reason: types.DegradedTransport}
	}

	if !f.HasCredential() {
		log.Error("content API key missing, cannot download")
		if f.cfg.PlaceholderOnMissingKey {
			if err := os.WriteFile(dest, nil, 0o644); err != nil {
				log.WithError(err).Warn("writing placeholder file")
			}
		}
		return FetchResult{Reason: types.DegradedNoCredential}
	}

	if err := f.limiter.Wait(ctx); err != nil {
		log.WithError(err).Error("rate limiter wait")
		return FetchResult{Reason: types.DegradedTransport}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL(doi), nil)
	if err != nil {
		log.WithError(err).Error("creating request")
		return FetchResult{Reason: types.DegradedTransport}
	}
	req.Header.Set("Accept", "application/xml")
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	policy := httputil.Policy{MaxAttempts: f.cfg.MaxRetries, Delay: f.cfg.RetryDelay}
	resp, attempts, err := httputil.DoWithRetry(ctx, f.client, req, policy, log)
	if err != nil {
		log.WithError(err).WithField("attempts", attempts).Error("download failed")
		return FetchResult{Reason: types.DegradedTransport, Attempts: attempts}
	}
	defer resp.Body.Close()

	log = log.WithFields(logrus.Fields{"status": resp.StatusCode, "attempts": attempts})
	switch {
	case httputil.Success(resp.StatusCode):
		if err := writeAtomic(resp.Body, dest); err != nil {
			log.WithError(err).Error("writing download")
			return FetchResult{Reason: types.DegradedTransport, Attempts: attempts}
		}
		log.Info("downloaded article")
		return FetchResult{Path: dest, Attempts: attempts}
	case resp.StatusCode == http.StatusNotFound:
		log.Warn("article not found or not entitled")
		return FetchResult{Reason: types.DegradedNotFound, Attempts: attempts}
	case httputil.Permanent(resp.StatusCode):
		log.Warn("content API refused credential")
		return FetchResult{Reason: types.DegradedUnauthorized, Attempts: attempts}
	default:
		log.Error("download failed after retries")
		return FetchResult{Reason: types.DegradedRetriesExhausted, Attempts: attempts}
	}
}

// writeAtomic copies r to a temporary file next to destPath and renames it
// into place, so a failed copy never leaves a partial document behind.
func writeAtomic(r io.Reader, destPath string) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".fetch-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, copyErr := io.Copy(tmpFile, r)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
