package app

import (
	"errors"
	"fmt"

	"github.com/vk/protocheck/internal/model"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ProtocolPath string // protocol hcl file
	CatalogPath  string // optional extra labware definitions

	Mode       string // "strict" or "permissive"
	FindAll    bool
	NodeBudget int
	Workers    int

	LogFormat string
	LogLevel  string
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.ProtocolPath == "" {
		return nil, errors.New("ProtocolPath is a required configuration field and cannot be empty")
	}
	if _, err := ParseMode(cfg.Mode); err != nil {
		return nil, err
	}
	if cfg.NodeBudget < 0 {
		return nil, errors.New("NodeBudget cannot be negative")
	}
	if cfg.Workers < 0 {
		return nil, errors.New("Workers cannot be negative")
	}
	return &cfg, nil
}

// ParseMode maps the CLI mode string onto the analysis mode. An empty
// string defaults to strict.
func ParseMode(s string) (model.Mode, error) {
	switch s {
	case "", "strict":
		return model.ModeStrict, nil
	case "permissive":
		return model.ModePermissive, nil
	default:
		return model.ModeStrict, fmt.Errorf("invalid mode %q: must be 'strict' or 'permissive'", s)
	}
}
