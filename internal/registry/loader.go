package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"chatd/internal/common/fsutil"
	"chatd/pkg/types"
)

// catalogFile is the on-disk catalog layout.
type catalogFile struct {
	Models []types.ModelDescriptor `json:"models" yaml:"models" toml:"models"`
}

// LoadFile reads a catalog from disk and builds a registry from it.
// Supports: .yaml/.yml, .json, .toml
func LoadFile(path string) (*Registry, error) {
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var cat catalogFile
	switch ext := strings.ToLower(filepath.Ext(p)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cat)
	case ".json":
		err = json.Unmarshal(b, &cat)
	case ".toml":
		err = toml.Unmarshal(b, &cat)
	default:
		return nil, fmt.Errorf("unsupported catalog extension: %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", p, err)
	}
	if len(cat.Models) == 0 {
		return nil, fmt.Errorf("catalog %s lists no models", p)
	}
	return New(cat.Models)
}

// Load returns the catalog at path, or the builtin catalog when path is empty.
func Load(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return Builtin(), nil
	}
	return LoadFile(path)
}
