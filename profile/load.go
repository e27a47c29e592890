package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"
)

// Load reads and validates a profile set from a JSON, YAML or TOML file,
// selected by extension.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}

	set := &Set{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, set)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, set)
	case ".toml":
		err = toml.Unmarshal(data, set)
	default:
		return nil, fmt.Errorf("unsupported profile format %q (want .json, .yaml or .toml)", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", filepath.Base(path), err)
	}

	if err := set.Validate(); err != nil {
		return nil, fmt.Errorf("profile %s: %w", filepath.Base(path), err)
	}
	return set, nil
}
