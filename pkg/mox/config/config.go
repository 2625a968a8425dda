// Copyright 2020-2021 The Mox Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package config holds process-startup defaults for the shared thread
// pool, KAG size, and default codec quality, decoded from YAML.
package config

import (
	"fmt"
	"io/ioutil"
	"runtime"

	"gopkg.in/yaml.v2"

	"mox/pkg/mox/threadpool"
)

// Config is the decoded process-startup configuration.
type Config struct {
	// WorkerCount sizes the shared thread pool. 0 means
	// runtime.GOMAXPROCS(0).
	WorkerCount int `yaml:"workerCount"`

	// KAGSize overrides the container's key alignment grid in bytes.
	// 0 means the default of 512.
	KAGSize int `yaml:"kagSize"`

	// DefaultVideoQuality is the lossy quality setting applied to a new
	// Header when the caller doesn't set one explicitly. 0 means
	// lossless (no videoQuality attribute).
	DefaultVideoQuality int `yaml:"defaultVideoQuality"`
}

// Default KAG size in bytes.
const DefaultKAGSize = 512

// Load reads and decodes a YAML config file at path.
func Load(path string) (*Config, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}
	c.applyDefaults()
	return &c, nil
}

// Defaults returns a Config with every field at its process default.
func Defaults() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Apply installs the configuration's process-wide effects, currently
// just sizing the shared thread pool. Call it once at startup, before
// any frame or audio conversion runs.
func (c *Config) Apply() {
	threadpool.Init(c.WorkerCount)
}

func (c *Config) applyDefaults() {
	if c.WorkerCount <= 0 {
		c.WorkerCount = runtime.GOMAXPROCS(0)
	}
	if c.KAGSize <= 0 {
		c.KAGSize = DefaultKAGSize
	}
}
