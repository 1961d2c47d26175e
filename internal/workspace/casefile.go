package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/QTest-hq/casegen/pkg/model"
	"gopkg.in/yaml.v3"
)

// LoadCase reads a test case from a YAML file, or JSON when the extension
// is .json. Step invariants are restored after decoding.
func LoadCase(path string) (*model.TestCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read test case: %w", err)
	}

	tc, err := ParseCase(data, isJSON(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tc, nil
}

// ParseCase decodes a test case from YAML or JSON bytes.
func ParseCase(data []byte, asJSON bool) (*model.TestCase, error) {
	var tc model.TestCase
	if asJSON {
		if err := json.Unmarshal(data, &tc); err != nil {
			return nil, fmt.Errorf("failed to parse test case JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &tc); err != nil {
			return nil, fmt.Errorf("failed to parse test case YAML: %w", err)
		}
	}
	tc.Normalize()
	return &tc, nil
}

// SaveCase writes tc as YAML, or JSON when the extension is .json.
func SaveCase(path string, tc *model.TestCase) error {
	var (
		data []byte
		err  error
	)
	if isJSON(path) {
		data, err = json.MarshalIndent(tc, "", "  ")
	} else {
		data, err = yaml.Marshal(tc)
	}
	if err != nil {
		return fmt.Errorf("failed to encode test case: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write test case: %w", err)
	}
	return nil
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}
