// Package config loads the fixed, enumerated configuration surface
// described in spec.md §9 ("Config as enumerated options"): TOML
// defaults overridden by SIFTD_-prefixed environment variables, in turn
// overridden by CLI flags the caller binds with BindFlag. The shape of
// this package (a package-level viper instance, Initialize() resetting
// it, Get* accessors) mirrors beads' internal/config package and its
// BD_/BEADS_ dual-prefix environment convention.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/kgruel/siftd-sub000/internal/paths"
)

var v *viper.Viper

// Keys is the fixed set of recognized configuration keys. Anything else
// set via `siftd config set` is rejected — there is no arbitrary code
// evaluation in this layer (spec.md §9).
var Keys = []string{
	"search.formatter",
	"search.limit",
	"search.threshold",
	"search.lambda",
	"search.recall",
	"indexer.target-tokens",
	"indexer.max-tokens",
	"indexer.overlap-tokens",
	"indexer.batch-size",
	"embed.backend",
	"embed.model",
	"json",
	"db",
	"embeddings-db",
}

var defaults = map[string]any{
	"search.formatter":       "default",
	"search.limit":           20,
	"search.threshold":       0.0,
	"search.lambda":          0.7,
	"search.recall":          100,
	"indexer.target-tokens":  256,
	"indexer.max-tokens":     512,
	"indexer.overlap-tokens": 25,
	"indexer.batch-size":     64,
	"embed.backend":          "",
	"embed.model":            "",
	"json":                   false,
	"db":                     "",
	"embeddings-db":          "",
}

// Initialize (re)creates the package-level viper instance: defaults,
// then an optional config.toml, then SIFTD_ environment overrides. Safe
// to call multiple times (tests call it per-case the way
// config_test.go does in the teacher repo).
func Initialize() error {
	v = viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	v.SetEnvPrefix("SIFTD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	cfgPath, err := paths.ConfigFilePath()
	if err != nil {
		return err
	}
	var raw map[string]any
	if _, statErr := tomlDecodeFile(cfgPath, &raw); statErr == nil {
		for key, val := range flatten(raw, "") {
			v.SetDefault(key, val)
		}
	}
	return nil
}

func tomlDecodeFile(path string, out *map[string]any) (toml.MetaData, error) {
	return toml.DecodeFile(path, out)
}

func flatten(m map[string]any, prefix string) map[string]any {
	out := map[string]any{}
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := val.(map[string]any); ok {
			for nk, nv := range flatten(nested, key) {
				out[nk] = nv
			}
			continue
		}
		out[key] = val
	}
	return out
}

// BindFlag wires a CLI flag as the highest-priority override for key,
// the way cmd/siftd commands bind persistent flags.
func BindFlag(key string, flag *pflag.Flag) error {
	if v == nil {
		if err := Initialize(); err != nil {
			return err
		}
	}
	return v.BindPFlag(key, flag)
}

func ensure() {
	if v == nil {
		_ = Initialize()
	}
}

func GetString(key string) string     { ensure(); return v.GetString(key) }
func GetBool(key string) bool         { ensure(); return v.GetBool(key) }
func GetInt(key string) int           { ensure(); return v.GetInt(key) }
func GetFloat64(key string) float64   { ensure(); return v.GetFloat64(key) }
func GetDuration(key string) time.Duration { ensure(); return v.GetDuration(key) }

// IsKnownKey reports whether key is part of the fixed configuration
// surface.
func IsKnownKey(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}

// Set stores a value in the running viper instance for the remainder of
// the process (used by `siftd config set` before persisting to disk).
func Set(key string, value any) {
	ensure()
	v.Set(key, value)
}

// AllSettings returns the effective configuration map, used by
// `siftd config get`/`--json` output.
func AllSettings() map[string]any {
	ensure()
	return v.AllSettings()
}

// Get returns a single key's effective value, resolving dotted keys
// the way viper's own Get does (AllSettings()[key] won't: AllSettings
// nests "embed.backend" under an "embed" map, not a flat "embed.backend"
// entry).
func Get(key string) any {
	ensure()
	return v.Get(key)
}

// Persist writes the known keys' current values to config.toml,
// building the nested table by hand from Keys (the same
// flatten/unflatten shape Initialize uses to read the file back)
// rather than through viper's WriteConfig. Each value is the key's
// effective v.Get value, so an environment or flag override active
// during the call is written to the file as well.
func Persist() error {
	ensure()
	nested := map[string]any{}
	for _, key := range Keys {
		setNested(nested, strings.Split(key, "."), v.Get(key))
	}

	path, err := paths.ConfigFilePath()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(nested)
}

func setNested(m map[string]any, parts []string, value any) {
	if len(parts) == 1 {
		m[parts[0]] = value
		return
	}
	child, ok := m[parts[0]].(map[string]any)
	if !ok {
		child = map[string]any{}
		m[parts[0]] = child
	}
	setNested(child, parts[1:], value)
}
