package engine

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/triangle/engine/core"
)

//go:embed application.toml
var defaultConfig []byte

type ApplicationConfig struct {
	// Window starting position x axis, if applicable.
	StartPosX uint32 `toml:"start_pos_x"`
	// Window starting position y axis, if applicable.
	StartPosY uint32 `toml:"start_pos_y"`
	// Window starting width, if applicable.
	StartWidth uint32 `toml:"start_width"`
	// Window starting height, if applicable.
	StartHeight uint32 `toml:"start_height"`
	// The application name used in windowing, if applicable.
	Name     string         `toml:"name"`
	LogLevel core.LogLevel  `toml:"log_level"`
	Renderer RendererConfig `toml:"renderer"`
}

type RendererConfig struct {
	ClearColor         [4]float32 `toml:"clear_color"`
	Validation         bool       `toml:"validation"`
	PowerPreference    string     `toml:"power_preference"`
	InitialPresentMode string     `toml:"initial_present_mode"`
	ResizePresentMode  string     `toml:"resize_present_mode"`
}

// DefaultApplicationConfig decodes the configuration compiled into the
// binary.
func DefaultApplicationConfig() (*ApplicationConfig, error) {
	return ParseApplicationConfig(defaultConfig)
}

// ParseApplicationConfig decodes a TOML document. Unknown keys are rejected
// so that typos do not silently fall back to zero values.
func ParseApplicationConfig(data []byte) (*ApplicationConfig, error) {
	cfg := &ApplicationConfig{}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		err = fmt.Errorf("invalid application config: %w", err)
		core.LogError("%s", err)
		return nil, err
	}
	if cfg.StartWidth == 0 || cfg.StartHeight == 0 {
		err := fmt.Errorf("invalid application config: window size %dx%d", cfg.StartWidth, cfg.StartHeight)
		core.LogError("%s", err)
		return nil, err
	}
	return cfg, nil
}
