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

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// envBindings maps configuration keys to the environment variables they are
// read from.
var envBindings = map[string]string{
	"port":            "PORT",
	"spa_static_dir":  "SPA_STATIC_DIR",
	"spa_index":       "SPA_INDEX",
	"log_level":       "LOG_LEVEL",
	"log_file":        "LOG_FILE",
	"log_max_size":    "LOG_MAX_SIZE",
	"log_max_backups": "LOG_MAX_BACKUPS",
	"log_compress":    "LOG_COMPRESS",
}

// executable returns the path of the running server binary; tests replace it.
var executable = os.Executable

// Load reads the configuration from the environment, applying defaults. An
// unset or unusable PORT falls back to DefaultPort. The static root defaults
// to the "build" directory next to the server executable; a relative
// SPA_STATIC_DIR is taken relative to the executable's directory too, but
// never to the current working directory.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("cannot bind environment variable %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(portDecodeHook())); err != nil {
		return nil, fmt.Errorf("cannot decode configuration: %w", err)
	}

	root, err := resolveStaticRoot(cfg.StaticRoot)
	if err != nil {
		return nil, err
	}
	cfg.StaticRoot = root
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", DefaultPort)
	v.SetDefault("spa_static_dir", DefaultStaticDir)
	v.SetDefault("spa_index", "index.html")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("log_max_size", 100)
	v.SetDefault("log_max_backups", 10)
	v.SetDefault("log_compress", true)
}

// resolveStaticRoot returns the absolute static root directory, resolving
// relative paths against the directory of the (symlink-resolved) executable.
func resolveStaticRoot(dir string) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = DefaultStaticDir
	}
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir), nil
	}
	exe, err := executable()
	if err != nil {
		return "", fmt.Errorf("cannot determine server executable location: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), dir), nil
}

// portDecodeHook decodes anything not being a valid TCP port number into
// DefaultPort, instead of failing.
func portDecodeHook() mapstructure.DecodeHookFuncType {
	target := reflect.TypeOf(Port(0))
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != target {
			return data, nil
		}
		return parsePort(data), nil
	}
}

func parsePort(data interface{}) Port {
	var n int64
	switch v := data.(type) {
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return DefaultPort
		}
		n = parsed
	case int:
		n = int64(v)
	case int64:
		n = v
	case Port:
		n = int64(v)
	default:
		return DefaultPort
	}
	if n < 1 || n > 65535 {
		return DefaultPort
	}
	return Port(n)
}
