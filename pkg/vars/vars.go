// Package vars collects placeholder variable mappings from CLI flags and
// shell-style variable files.
package vars

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/opslab/labseed/pkg/render"
)

// ParsePairs parses repeated `key=value` flag values.
func ParsePairs(pairs []string) (render.Vars, error) {
	vars := make(render.Vars, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid variable %q (expected key=value)", pair)
		}
		vars[key] = value
	}
	return vars, nil
}

// LoadFile parses a shell-style variable file: one key=value per line,
// blank lines and #-comments skipped, surrounding quotes stripped.
func LoadFile(path string) (render.Vars, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read variable file: %w", err)
	}
	defer file.Close()

	vars := make(render.Vars)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}
		vars[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read variable file: %w", err)
	}
	return vars, nil
}
