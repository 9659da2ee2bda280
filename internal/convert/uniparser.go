// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/paper-reader/internal/httputil"
	"github.com/pdiddy/paper-reader/pkg/types"
)

// Defaults for the Uni-parser service.
const (
	DefaultHost        = "http://101.126.82.63:40001"
	DefaultToken       = "article"
	DefaultTriggerPath = "/trigger-file-async"
	DefaultResultPath  = "/get-result"

	defaultTimeout   = 120 * time.Second
	defaultUserAgent = "paper-reader/0.1"
)

// captureFlags are sent with every trigger: everything the service can
// recognise is requested.
var captureFlags = []string{"textual", "table", "figure", "expression", "molecule", "chart"}

// ErrTriggerRejected is returned when the trigger call answers with a
// status other than "success".
var ErrTriggerRejected = errors.New("parser rejected document")

// UniParser talks to the remote structural-parsing service. A document is
// submitted with Trigger and its structure collected with Result; both
// calls share the configured session token.
type UniParser struct {
	client *http.Client
	cfg    types.ParserConfig
}

// NewUniParser creates a client for the parsing service. Empty settings
// take the package defaults.
func NewUniParser(client *http.Client, cfg types.ParserConfig) *UniParser {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Token == "" {
		cfg.Token = DefaultToken
	}
	if cfg.TriggerPath == "" {
		cfg.TriggerPath = DefaultTriggerPath
	}
	if cfg.ResultPath == "" {
		cfg.ResultPath = DefaultResultPath
	}
	cfg.Host = strings.TrimRight(cfg.Host, "/")
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &UniParser{client: client, cfg: cfg}
}

type triggerResponse struct {
	Status string `json:"status"`
}

// Trigger uploads the file at sourcePath with all capture flags enabled.
func (u *UniParser) Trigger(ctx context.Context, sourcePath string) error {
	body, contentType, err := u.triggerForm(sourcePath)
	if err != nil {
		return err
	}

	endpoint := u.cfg.Host + u.cfg.TriggerPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return fmt.Errorf("creating trigger request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", u.cfg.UserAgent)

	resp, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("trigger request: %w", err)
	}
	defer resp.Body.Close()

	if !httputil.Success(resp.StatusCode) {
		return &httputil.StatusError{StatusCode: resp.StatusCode, URL: endpoint}
	}

	var tr triggerResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return fmt.Errorf("decoding trigger response: %w", err)
	}
	if tr.Status != "success" {
		return fmt.Errorf("%w: status %q", ErrTriggerRejected, tr.Status)
	}
	return nil
}

func (u *UniParser) triggerForm(sourcePath string) (io.Reader, string, error) {
	f, err := os.Open(sourcePath)
	if err != nil {
		return nil, "", fmt.Errorf("opening source %s: %w", sourcePath, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filepath.Base(sourcePath))
	if err != nil {
		return nil, "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("copying source into form: %w", err)
	}

	fields := append([]string{"token"}, captureFlags...)
	for _, name := range fields {
		value := "true"
		if name == "token" {
			value = u.cfg.Token
		}
		if err := mw.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("writing form field %s: %w", name, err)
		}
	}
	if err := mw.WriteField("sync", "true"); err != nil {
		return nil, "", fmt.Errorf("writing form field sync: %w", err)
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("closing form: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

// resultRequest selects the shape of the returned document.
type resultRequest struct {
	Token    string `json:"token"`
	Content  bool   `json:"content"`
	Objects  bool   `json:"objects"`
	Metadata bool   `json:"metadata"`
	Pages    bool   `json:"pages_dict"`
}

// Result fetches the structured document for the current session token.
func (u *UniParser) Result(ctx context.Context) (types.StructuredDocument, error) {
	payload, err := json.Marshal(resultRequest{
		Token:    u.cfg.Token,
		Content:  true,
		Objects:  true,
		Metadata: true,
	})
	if err != nil {
		return types.StructuredDocument{}, fmt.Errorf("marshaling result request: %w", err)
	}

	endpoint := u.cfg.Host + u.cfg.ResultPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return types.StructuredDocument{}, fmt.Errorf("creating result request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", u.cfg.UserAgent)

	resp, err := u.client.Do(req)
	if err != nil {
		return types.StructuredDocument{}, fmt.Errorf("result request: %w", err)
	}
	defer resp.Body.Close()

	if !httputil.Success(resp.StatusCode) {
		return types.StructuredDocument{}, &httputil.StatusError{StatusCode: resp.StatusCode, URL: endpoint}
	}

	var doc types.StructuredDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return types.StructuredDocument{}, fmt.Errorf("decoding result: %w", err)
	}
	return doc, nil
}
