// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings for backends that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "coursereq/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// BackendKind selects where raw requisite strings come from.
type BackendKind string

const (
	// BackendFile reads precomputed strings from a YAML responses file.
	BackendFile BackendKind = "file"

	// BackendHTTP calls a remote text-transformation service.
	BackendHTTP BackendKind = "http"
)

// ServiceConfig holds settings for the external text-transformation service.
type ServiceConfig struct {
	HTTPConfig `yaml:",inline"`

	// Endpoint is the URL that receives course descriptions.
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// Token is the bearer token for the service, if it needs one.
	Token string `json:"token,omitempty" yaml:"token,omitempty"`

	// MaxRetries is the number of retry attempts for failed calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// ParseConfig holds parser limits.
type ParseConfig struct {
	// MaxDepth bounds expression nesting (default 64).
	MaxDepth int `json:"max_depth" yaml:"max_depth"`
}

// ExtractionConfig holds settings for the extraction stage.
type ExtractionConfig struct {
	Service ServiceConfig `json:"service" yaml:"service"`
	Parse   ParseConfig   `json:"parse" yaml:"parse"`

	// Backend selects file or http.
	Backend BackendKind `json:"backend" yaml:"backend"`

	// CatalogPath is the YAML catalog of course descriptions.
	CatalogPath string `json:"catalog" yaml:"catalog"`

	// ResponsesPath is the YAML file read by the file backend.
	ResponsesPath string `json:"responses,omitempty" yaml:"responses,omitempty"`

	// OutDir receives one result file per course.
	OutDir string `json:"out_dir" yaml:"out_dir"`

	// Force re-extracts courses whose results are up to date.
	Force bool `json:"force" yaml:"force"`
}

// StoreConfig holds settings for the SQLite index.
type StoreConfig struct {
	// Dir contains the database file.
	Dir string `json:"dir" yaml:"dir"`
}
