// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/coursereq/internal/httputil"
	"github.com/pdiddy/coursereq/pkg/types"
)

// responsesFile is the on-disk format read by FileBackend: raw expressions
// keyed by course code, produced by an offline run of the service.
type responsesFile struct {
	Responses map[string]types.RawRequisites `yaml:"responses"`
}

// FileBackend answers from precomputed raw expressions.
type FileBackend struct {
	responses map[string]types.RawRequisites
}

// NewFileBackend builds a FileBackend from an in-memory map.
func NewFileBackend(responses map[string]types.RawRequisites) *FileBackend {
	return &FileBackend{responses: responses}
}

// LoadFileBackend reads a YAML responses file.
func LoadFileBackend(path string) (*FileBackend, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading responses %s: %w", path, err)
	}
	var f responsesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing responses %s: %w", path, err)
	}
	return NewFileBackend(f.Responses), nil
}

// Requisites returns the stored answer for course.Code.
func (b *FileBackend) Requisites(_ context.Context, course types.Course) (types.RawRequisites, error) {
	raw, ok := b.responses[course.Code]
	if !ok {
		return types.RawRequisites{}, fmt.Errorf("%w %s", ErrNoResponse, course.Code)
	}
	return raw, nil
}

// HTTPBackend posts course descriptions to a remote text-transformation
// service and reads back the raw expression strings.
type HTTPBackend struct {
	Endpoint   string
	Token      string
	UserAgent  string
	MaxRetries int
	Client     *http.Client
}

// serviceRequest is the body sent to the service.
type serviceRequest struct {
	Code        string `json:"code"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description"`
}

// NewHTTPBackend builds an HTTPBackend from service settings.
func NewHTTPBackend(cfg types.ServiceConfig) *HTTPBackend {
	return &HTTPBackend{
		Endpoint:   cfg.Endpoint,
		Token:      cfg.Token,
		UserAgent:  cfg.UserAgent,
		MaxRetries: cfg.MaxRetries,
		Client:     &http.Client{Timeout: cfg.Timeout},
	}
}

// Requisites sends one course to the service.
func (b *HTTPBackend) Requisites(ctx context.Context, course types.Course) (types.RawRequisites, error) {
	if b.Endpoint == "" {
		return types.RawRequisites{}, fmt.Errorf("service endpoint not configured")
	}

	body, err := json.Marshal(serviceRequest{
		Code:        course.Code,
		Title:       course.Title,
		Description: course.Description,
	})
	if err != nil {
		return types.RawRequisites{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.Endpoint, bytes.NewReader(body))
	if err != nil {
		return types.RawRequisites{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if b.Token != "" {
		req.Header.Set("Authorization", "Bearer "+b.Token)
	}
	if b.UserAgent != "" {
		req.Header.Set("User-Agent", b.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, b.Client, req, b.MaxRetries)
	if err != nil {
		return types.RawRequisites{}, fmt.Errorf("calling requisite service: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return types.RawRequisites{}, fmt.Errorf("%w %s", ErrNoResponse, course.Code)
	case resp.StatusCode != http.StatusOK:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return types.RawRequisites{}, fmt.Errorf("requisite service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var raw types.RawRequisites
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return types.RawRequisites{}, fmt.Errorf("decoding service response: %w", err)
	}
	return raw, nil
}
