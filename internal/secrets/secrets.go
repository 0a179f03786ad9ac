// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files.
// The filename is the key and the trimmed contents are the value.
package secrets

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ServiceTokenKey is the file that holds the bearer token for the
// requisite text-transformation service.
const ServiceTokenKey = "requisite-service-token"

// Load reads every regular, non-hidden file in dir. A missing directory is
// not an error and yields an empty map. Unreadable files are reported on
// warn and skipped.
func Load(dir string, warn io.Writer) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	loaded := make(map[string]string, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(warn, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			loaded[name] = value
		}
	}

	return loaded, nil
}

// Resolve returns explicit when it is set, otherwise the loaded value for key.
func Resolve(explicit string, loaded map[string]string, key string) string {
	if explicit != "" {
		return explicit
	}
	return loaded[key]
}
