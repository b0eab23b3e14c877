// Package manifest loads the YAML batch file that drives multi-import
// runs. Each entry maps one source CSV to one target lookup and may
// override the generator settings for that import only.
package manifest

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"csvlookup/internal/spl"
)

// Import is one source-to-lookup mapping.
type Import struct {
	SourceFile   string `yaml:"source_file"`
	TargetLookup string `yaml:"target_lookup"`

	// Optional per-import overrides. Zero values fall back to the
	// environment configuration.
	Delimiter string `yaml:"delimiter,omitempty"`
	ChunkSize int    `yaml:"chunk_size,omitempty"`
}

// Manifest is the root of the batch file.
type Manifest struct {
	Imports []Import `yaml:"imports"`
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the logical structure of the manifest and reports
// every problem at once.
func (m *Manifest) Validate() error {
	var problems []string

	if len(m.Imports) == 0 {
		problems = append(problems, "no entries under imports")
	}

	seenTargets := map[string]bool{}

	for i, imp := range m.Imports {
		ctx := fmt.Sprintf("imports[%d]", i)

		if strings.TrimSpace(imp.SourceFile) == "" {
			problems = append(problems, ctx+": source_file is empty")
		}

		target := strings.TrimSpace(imp.TargetLookup)
		switch {
		case target == "":
			problems = append(problems, ctx+": target_lookup is empty")
		default:
			if err := spl.ValidateLookupName(target); err != nil {
				problems = append(problems, fmt.Sprintf("%s: %v", ctx, err))
			}
			if seenTargets[target] {
				problems = append(problems, fmt.Sprintf("%s: duplicate target_lookup %q", ctx, target))
			}
			seenTargets[target] = true
		}

		if imp.Delimiter != "" {
			if strings.ContainsAny(imp.Delimiter, `"\`) {
				problems = append(problems, ctx+`: delimiter must not contain " or \`)
			}
		}
		if imp.ChunkSize < 0 {
			problems = append(problems, ctx+": chunk_size must not be negative")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid manifest:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}
