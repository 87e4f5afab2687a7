package confloader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/maps"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Layer is one configuration source. Layers passed to Load are merged in
// order, so a later layer overrides keys set by an earlier one.
type Layer struct {
	name string
	read func(k *koanf.Koanf) error
}

// Defaults is a layer of dotted keys, e.g. {"api.timeout": "10s"}.
func Defaults(values map[string]any) Layer {
	return Map("defaults", values)
}

// Map is a named layer of dotted keys. Command-line flags use it.
func Map(name string, values map[string]any) Layer {
	return Layer{name: name, read: func(k *koanf.Koanf) error {
		if len(values) == 0 {
			return nil
		}
		return k.Load(dotted(values), nil)
	}}
}

// File is a YAML file layer. A missing file is an error unless optional.
func File(path string, optional bool) Layer {
	return Layer{name: "file " + path, read: func(k *koanf.Koanf) error {
		if path == "" {
			return nil
		}
		if _, err := os.Stat(path); err != nil {
			if optional && errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		return k.Load(file.Provider(path), yaml.Parser())
	}}
}

// Env reads variables starting with prefix, mapped to keys by EnvKey.
func Env(prefix string) Layer {
	return Layer{name: "env " + prefix + "*", read: func(k *koanf.Koanf) error {
		return k.Load(env.Provider(prefix, ".", func(name string) string {
			return EnvKey(prefix, name)
		}), nil)
	}}
}

// EnvKey converts a variable name to a dotted key. Only the first underscore
// after the prefix separates section from key, so LIBCAT_API_RATE_LIMIT maps
// to api.rate_limit.
func EnvKey(prefix, name string) string {
	s := strings.ToLower(strings.TrimPrefix(name, prefix))
	if section, key, ok := strings.Cut(s, "_"); ok {
		return section + "." + key
	}
	return s
}

// Config is the merged result of a Load.
type Config struct {
	k *koanf.Koanf
}

// Load merges layers in order.
func Load(layers ...Layer) (*Config, error) {
	c := &Config{k: koanf.New(".")}
	for _, layer := range layers {
		lk := koanf.New(".")
		if err := layer.read(lk); err != nil {
			return nil, fmt.Errorf("load %s: %w", layer.name, err)
		}
		if err := c.k.Merge(lk); err != nil {
			return nil, fmt.Errorf("merge %s: %w", layer.name, err)
		}
	}
	return c, nil
}

// Unmarshal decodes the merged values into target using koanf tags.
func (c *Config) Unmarshal(target any) error {
	return c.k.Unmarshal("", target)
}

// String returns the value at key, or "".
func (c *Config) String(key string) string {
	return c.k.String(key)
}

// dotted is a koanf provider over a flat map of dotted keys.
type dotted map[string]any

func (d dotted) ReadBytes() ([]byte, error) {
	return nil, errors.New("confloader: map layer has no byte form")
}

func (d dotted) Read() (map[string]any, error) {
	flat := make(map[string]any, len(d))
	for k, v := range d {
		flat[k] = v
	}
	return maps.Unflatten(flat, "."), nil
}
