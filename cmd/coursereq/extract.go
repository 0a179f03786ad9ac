// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/coursereq/internal/extract"
	"github.com/pdiddy/coursereq/internal/secrets"
	"github.com/pdiddy/coursereq/pkg/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract requisite trees for every course in a catalog",
	Long: `Extract reads a YAML catalog of course descriptions, obtains the raw
prerequisite and corequisite expressions for each course from a backend,
parses them and writes one result file per course.

Backends:
  file  precomputed expressions from --responses (YAML keyed by course code)
  http  a text-transformation service at --endpoint; the bearer token is read
        from .secrets/requisite-service-token or --token

Courses whose description has not changed since the last clean run are
skipped. Malformed expressions are recorded in the result file and reported;
they do not stop the batch.`,
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg := extractionConfig()

	backend, err := newBackend(cfg)
	if err != nil {
		return err
	}

	summary, err := extract.ExtractAll(context.Background(), backend, cfg, os.Stdout)
	if err != nil {
		return err
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d course(s) failed extraction", summary.Failed)
	}
	return nil
}

func extractionConfig() types.ExtractionConfig {
	return types.ExtractionConfig{
		Service: types.ServiceConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("extract.timeout"),
				UserAgent: "coursereq/" + version,
			},
			Endpoint:   viper.GetString("extract.endpoint"),
			Token:      secrets.Resolve(viper.GetString("extract.token"), loadedSecrets, secrets.ServiceTokenKey),
			MaxRetries: viper.GetInt("extract.max_retries"),
		},
		Parse:         types.ParseConfig{MaxDepth: viper.GetInt("parse.max_depth")},
		Backend:       types.BackendKind(viper.GetString("extract.backend")),
		CatalogPath:   viper.GetString("extract.catalog"),
		ResponsesPath: viper.GetString("extract.responses"),
		OutDir:        viper.GetString("extract.out_dir"),
		Force:         viper.GetBool("extract.force"),
	}
}

func newBackend(cfg types.ExtractionConfig) (extract.Backend, error) {
	switch cfg.Backend {
	case types.BackendFile, "":
		if cfg.ResponsesPath == "" {
			return nil, fmt.Errorf("file backend requires --responses")
		}
		return extract.LoadFileBackend(cfg.ResponsesPath)
	case types.BackendHTTP:
		if cfg.Service.Endpoint == "" {
			return nil, fmt.Errorf("http backend requires --endpoint")
		}
		return extract.NewHTTPBackend(cfg.Service), nil
	default:
		return nil, fmt.Errorf("unsupported backend %q: use file or http", cfg.Backend)
	}
}

func init() {
	extractCmd.Flags().String("catalog", "catalog.yaml", "YAML catalog of course descriptions")
	extractCmd.Flags().String("out-dir", "requisites", "directory for per-course result files")
	extractCmd.Flags().String("backend", "file", "where raw expressions come from: file or http")
	extractCmd.Flags().String("responses", "", "YAML file of precomputed expressions (file backend)")
	extractCmd.Flags().String("endpoint", "", "text-transformation service URL (http backend)")
	extractCmd.Flags().String("token", "", "service bearer token (overrides .secrets)")
	extractCmd.Flags().Duration("timeout", 0, "HTTP request timeout (0 = none)")
	extractCmd.Flags().Int("max-retries", 3, "retry attempts per course")
	extractCmd.Flags().Bool("force", false, "re-extract courses that are up to date")

	for key, flag := range map[string]string{
		"extract.catalog":     "catalog",
		"extract.out_dir":     "out-dir",
		"extract.backend":     "backend",
		"extract.responses":   "responses",
		"extract.endpoint":    "endpoint",
		"extract.token":       "token",
		"extract.timeout":     "timeout",
		"extract.max_retries": "max-retries",
		"extract.force":       "force",
	} {
		viper.BindPFlag(key, extractCmd.Flags().Lookup(flag))
	}

	rootCmd.AddCommand(extractCmd)
}
