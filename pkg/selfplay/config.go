package selfplay

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"

	"shogi/pkg/shogi"
)

const (
	configName = "config.json"
	xdgConfig  = "shogi-selfplay/config.json"
)

type InvalidConfig struct {
	err string
}

func (e *InvalidConfig) Error() string {
	return fmt.Sprintf("config error: %s", e.err)
}

type Players struct {
	Sente string `json:"sente"`
	Gote  string `json:"gote"`
}

type Config struct {
	Games    int     `json:"games"`
	MaxMoves int     `json:"max_moves"`
	Seed     int64   `json:"seed"`
	Workers  int     `json:"workers"`
	Players  Players `json:"players"`

	// Engine players only.
	MoveTimeMs    int               `json:"movetime_ms"`
	EngineOptions map[string]string `json:"engine_options,omitempty"`
}

var DefaultConfig = Config{
	Games:    100,
	MaxMoves: shogi.DefaultMaxMoves,
	Seed:     1,
	Workers:  1,
	Players:  Players{Sente: "random", Gote: "random"},

	MoveTimeMs: 100,
}

func (c *Config) Validate() error {
	if c.Games < 0 {
		return &InvalidConfig{"games must be >= 0"}
	}
	if c.MaxMoves <= 0 {
		return &InvalidConfig{"max_moves must be > 0"}
	}
	if c.Workers <= 0 {
		return &InvalidConfig{"workers must be > 0"}
	}
	if c.MoveTimeMs <= 0 {
		return &InvalidConfig{"movetime_ms must be > 0"}
	}
	for _, player := range []string{c.Players.Sente, c.Players.Gote} {
		if !validPlayer(player) {
			return &InvalidConfig{fmt.Sprintf("unknown player %q, want random or usi:<path>", player)}
		}
	}
	return nil
}

// FindConfigPath looks for config.json in the working directory and its
// parents, then in the XDG config directories. It returns the file and the
// directory it was found in.
func FindConfigPath() (string, string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", "", err
	}
	dir := cwd
	for {
		path := filepath.Join(dir, configName)
		if _, err := os.Stat(path); err == nil {
			return path, filepath.Dir(path), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	if path, err := xdg.SearchConfigFile(xdgConfig); err == nil {
		return path, filepath.Dir(path), nil
	}
	return "", "", fmt.Errorf("%s not found from %s or in XDG config dirs", configName, cwd)
}

// LoadConfig reads path over DefaultConfig, so omitted keys keep their
// defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ResolveConfig loads the file at arg, or the one FindConfigPath finds
// when arg is empty. With no file anywhere it returns DefaultConfig.
func ResolveConfig(arg string) (Config, string, error) {
	path := arg
	if path == "" {
		found, _, err := FindConfigPath()
		if err != nil {
			return DefaultConfig, "", nil
		}
		path = found
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return Config{}, "", err
	}
	return cfg, path, nil
}

// Save writes c to the user's XDG config directory and returns the path.
func (c *Config) Save() (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	path, err := xdg.ConfigFile(xdgConfig)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o664); err != nil {
		return "", err
	}
	return path, nil
}

// IsInvalidConfig reports whether err came from Validate.
func IsInvalidConfig(err error) bool {
	var invalid *InvalidConfig
	return errors.As(err, &invalid)
}
