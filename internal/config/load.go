// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/hashlock/hashlock/internal/xdg"
)

// EnvPrefix prefixes every environment override. Nesting uses a double
// underscore: HASHLOCK_RATELIMIT__REDIS__ADDR sets ratelimit.redis.addr.
const EnvPrefix = "HASHLOCK_"

// DatabaseURLEnv is honoured in addition to HASHLOCK_DATABASE__URL.
const DatabaseURLEnv = "DATABASE_URL"

// ConfigFlag names the flag pointing at a YAML file.
const ConfigFlag = "config"

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"addr":               "server.addr",
	"app-url":            "app_url",
	"environment":        "environment",
	"log-format":         "log.format",
	"log-level":          "log.level",
	"database-url":       "database.url",
	"observability-addr": "observability.addr",
}

// listKeys hold comma-separated lists when set from the environment.
var listKeys = map[string]bool{
	"server.allowed_origins": true,
	"server.trusted_proxies": true,
}

// RegisterFlags adds the configuration flags to fs. Pass the same set to
// Load after parsing.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String(ConfigFlag, "", "path to a YAML config file (default $XDG_CONFIG_HOME/hashlock/config.yaml)")
	fs.String("addr", d.Server.Addr, "gateway listen address")
	fs.String("app-url", d.AppURL, "public base URL used in redirects and e-mails")
	fs.String("environment", d.Environment, "development, test or production")
	fs.String("log-format", d.Log.Format, "log format (json, text)")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.String("database-url", "", "Postgres connection URL")
	fs.String("observability-addr", d.Observability.Addr, "metrics and health probe listen address (empty to disable)")
}

// Load builds the effective configuration and validates it. flags may be
// nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, oops.Code("CONFIG_DEFAULTS_FAILED").Wrap(err)
	}

	path, err := configPath(flags)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_READ_FAILED").With("path", path).Wrap(err)
		}
	}

	// DATABASE_URL sits below the HASHLOCK_ variables.
	if url := os.Getenv(DatabaseURLEnv); url != "" {
		if err := k.Set("database.url", url); err != nil {
			return nil, oops.Code("CONFIG_ENV_FAILED").Wrap(err)
		}
	}
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, oops.Code("CONFIG_ENV_FAILED").Wrap(err)
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// configPath returns the explicit --config file, else the XDG default
// when it exists.
func configPath(flags *pflag.FlagSet) (string, error) {
	if flags != nil {
		if explicit, err := flags.GetString(ConfigFlag); err == nil && explicit != "" {
			return explicit, nil
		}
	}
	path, exists, err := xdg.ConfigFile()
	if err != nil || !exists {
		return "", err
	}
	return path, nil
}

// envKey maps HASHLOCK_RATELIMIT__REDIS__ADDR to ratelimit.redis.addr.
func envKey(name, value string) (string, any) {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")
	if listKeys[key] {
		return key, splitList(value)
	}
	return key, value
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
