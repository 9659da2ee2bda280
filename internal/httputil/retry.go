// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across stages.
package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// RetryDelay is the default fixed pause between attempts. Tests override
// this to avoid real sleeps.
var RetryDelay = 3 * time.Second

const defaultMaxAttempts = 3

// Policy bounds a retry loop. Zero values select the defaults (3 attempts,
// RetryDelay between them).
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

func (p Policy) normalize() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.Delay <= 0 {
		p.Delay = RetryDelay
	}
	return p
}

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
}

// Permanent reports whether a status means the resource does not exist for
// this credential. Such responses are never retried.
func Permanent(status int) bool {
	switch status {
	case http.StatusNotFound, http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	return false
}

// Success reports whether status is 2xx.
func Success(status int) bool {
	return status >= 200 && status < 300
}

// DoWithRetry executes an HTTP request up to policy.MaxAttempts times,
// pausing policy.Delay between attempts. Transport errors and non-2xx
// statuses other than the permanent ones are retried.
//
// The returned count is the number of attempts made. A 2xx or permanent
// response is returned as soon as it arrives; after exhausting attempts the
// last response (or the last transport error) is returned so the caller can
// inspect it. If the context is cancelled during a wait the function returns
// ctx.Err().
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, policy Policy, log logrus.FieldLogger) (*http.Response, int, error) {
	policy = policy.normalize()
	maxAttempts := policy.MaxAttempts
	if log == nil {
		log = logrus.StandardLogger()
	}

	for attempt := 1; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err == nil && (Success(resp.StatusCode) || Permanent(resp.StatusCode)) {
			return resp, attempt, nil
		}

		if attempt >= maxAttempts {
			return resp, attempt, err
		}

		entry := log.WithFields(logrus.Fields{
			"url":          req.URL.Host + req.URL.Path,
			"attempt":      attempt,
			"max_attempts": maxAttempts,
		})
		if err != nil {
			entry.WithError(err).Warn("request failed, retrying")
		} else {
			entry.WithField("status", resp.StatusCode).Warn("transient status, retrying")
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		select {
		case <-ctx.Done():
			return nil, attempt, ctx.Err()
		case <-time.After(policy.Delay):
		}
	}
}
