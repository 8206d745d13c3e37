package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig is the optional single-file configuration schema. Flags always
// win over file values; the file only fills what was left unset.
type FileConfig struct {
	DB       string `yaml:"db" json:"db"`
	Language string `yaml:"language" json:"language"`

	Sort struct {
		Key string `yaml:"key" json:"key"`
		Dir string `yaml:"dir" json:"dir"`
	} `yaml:"sort" json:"sort"`

	Takeout struct {
		ASINKeys  []string `yaml:"asinKeys" json:"asinKeys"`
		TitleKeys []string `yaml:"titleKeys" json:"titleKeys"`
		PriceKeys []string `yaml:"priceKeys" json:"priceKeys"`
	} `yaml:"takeout" json:"takeout"`

	Verbose      bool `yaml:"verbose" json:"verbose"`
	DebugExtract bool `yaml:"debugExtract" json:"debugExtract"`
}

// LoadConfigFile reads YAML or JSON into FileConfig, dispatching on the
// extension and trying both for anything else.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig fills empty Config fields from the file. Boolean toggles
// are or-ed so a file cannot silence a flag.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg.DBPath == "" {
		cfg.DBPath = fc.DB
	}
	if cfg.Language == "" {
		cfg.Language = fc.Language
	}
	if cfg.SortKey == "" {
		cfg.SortKey = fc.Sort.Key
	}
	if cfg.SortDir == "" {
		cfg.SortDir = fc.Sort.Dir
	}
	if len(cfg.TakeoutASINKeys) == 0 {
		cfg.TakeoutASINKeys = fc.Takeout.ASINKeys
	}
	if len(cfg.TakeoutTitleKeys) == 0 {
		cfg.TakeoutTitleKeys = fc.Takeout.TitleKeys
	}
	if len(cfg.TakeoutPriceKeys) == 0 {
		cfg.TakeoutPriceKeys = fc.Takeout.PriceKeys
	}
	cfg.Verbose = cfg.Verbose || fc.Verbose
	cfg.DebugExtract = cfg.DebugExtract || fc.DebugExtract
}
