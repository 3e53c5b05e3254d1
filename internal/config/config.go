// Copyright 2026 Harald Albrecht.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

/*
Package config loads the immutable server configuration from the environment.
*/
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// DefaultPort is used whenever PORT is unset or not a usable TCP port number.
const DefaultPort = 8080

// DefaultStaticDir is the name of the SPA bundle directory, located next to
// the server executable.
const DefaultStaticDir = "build"

// Config is the server configuration, read once at startup and never changed
// afterwards.
type Config struct {
	Port       Port   `mapstructure:"port"`
	StaticRoot string `mapstructure:"spa_static_dir"`
	Index      string `mapstructure:"spa_index"`

	LogLevel      string `mapstructure:"log_level"`
	LogFile       string `mapstructure:"log_file"`
	LogMaxSize    int    `mapstructure:"log_max_size"` // megabytes
	LogMaxBackups int    `mapstructure:"log_max_backups"`
	LogCompress   bool   `mapstructure:"log_compress"`
}

// Port is a TCP port number in the range 1..65535.
type Port int

// Addr returns the address to listen on: all IPv4 interfaces on the
// configured port.
func (c *Config) Addr() string {
	return net.JoinHostPort("0.0.0.0", strconv.Itoa(int(c.Port)))
}

// Validate checks the configuration for values that cannot be fixed up by
// falling back to defaults.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return newFieldError("PORT", fmt.Sprintf("invalid port %d", c.Port))
	}
	if strings.TrimSpace(c.StaticRoot) == "" {
		return newFieldError("SPA_STATIC_DIR", "must not be empty")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return newFieldError("LOG_LEVEL", err.Error())
	}
	if c.LogMaxSize < 0 {
		return newFieldError("LOG_MAX_SIZE", "must not be negative")
	}
	if c.LogMaxBackups < 0 {
		return newFieldError("LOG_MAX_BACKUPS", "must not be negative")
	}
	return nil
}

// FieldError reports an unusable configuration value.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

func newFieldError(field, msg string) error {
	return FieldError{Field: field, Message: msg}
}
