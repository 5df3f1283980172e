// Package config loads server and client settings from an HCL file.
package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// Config is the top-level configuration. Every field is optional; zero
// values fall back to the defaults below.
type Config struct {
	// Listen is the HTTP server bind address.
	Listen string `hcl:"listen,optional"`
	// Script is the JSONL patch script the demo server replays.
	Script string `hcl:"script,optional"`
	// CatalogDir holds per-type props schemas (<Type>.schema.json).
	CatalogDir string `hcl:"catalog_dir,optional"`
	// SessionDB is the SQLite file for session snapshots.
	SessionDB string `hcl:"session_db,optional"`
	// Endpoint is the generation endpoint the client posts prompts to.
	Endpoint string `hcl:"endpoint,optional"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Listen:    ":8600",
		SessionDB: "genui-sessions.db",
		Endpoint:  "http://localhost:8600/v1/stream",
	}
}

// Load reads path and overlays it on the defaults. A missing path ("" or a
// nonexistent file) returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	var file Config
	if err := hclsimple.DecodeFile(path, nil, &file); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.merge(file)
	return cfg, nil
}

func (c *Config) merge(o Config) {
	if o.Listen != "" {
		c.Listen = o.Listen
	}
	if o.Script != "" {
		c.Script = o.Script
	}
	if o.CatalogDir != "" {
		c.CatalogDir = o.CatalogDir
	}
	if o.SessionDB != "" {
		c.SessionDB = o.SessionDB
	}
	if o.Endpoint != "" {
		c.Endpoint = o.Endpoint
	}
}
