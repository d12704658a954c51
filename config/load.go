package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Source describes where configuration comes from. The zero value reads
// no file and the process environment.
type Source struct {
	// Path of an optional YAML file. Empty means defaults + environment only.
	Path string

	// Reader overrides Path when non-nil. Used by tests.
	Reader io.Reader

	// Environment replaces the process environment when non-nil, both for
	// ${VAR} expansion in YAML and for env binding.
	Environment map[string]string
}

func (s Source) lookup(key string) (string, bool) {
	if s.Environment != nil {
		v, ok := s.Environment[key]
		return v, ok
	}
	return os.LookupEnv(key)
}

// LoadAPIConfig resolves the API service configuration.
func LoadAPIConfig(src Source) (*APIConfig, error) {
	cfg := DefaultAPIConfig()
	if err := load(cfg, src); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// LoadModelServerConfig resolves the model server configuration.
func LoadModelServerConfig(src Source) (*ModelServerConfig, error) {
	cfg := DefaultModelServerConfig()
	if err := load(cfg, src); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// load decodes YAML (if any) and then environment variables on top of the
// defaults already present in target.
func load(target interface{}, src Source) error {
	r := src.Reader
	if r == nil && src.Path != "" {
		f, err := os.Open(src.Path)
		if err != nil {
			return fmt.Errorf("open config file: %w", err)
		}
		defer f.Close()
		r = f
	}

	if r != nil {
		data, err := io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}

		expanded, err := expandEnvVars(string(data), src.lookup)
		if err != nil {
			return fmt.Errorf("expand environment variables: %w", err)
		}

		dec := yaml.NewDecoder(strings.NewReader(expanded))
		if err := dec.Decode(target); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("decode config: %w", err)
		}
	}

	// Fields without a matching variable keep their current value.
	opts := env.Options{}
	if src.Environment != nil {
		opts.Environment = src.Environment
	}
	if err := env.ParseWithOptions(target, opts); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}

// expandEnvVars resolves ${VAR} and ${VAR:-default} references in s.
// Unset variables expand to the empty string. Nested references produced
// by an expansion are resolved until the string stops changing.
//
// Examples:
//   - "${MODEL_HOST}" → "10.0.0.5"
//   - "${MODEL_PORT:-9000}" → "9000" (if MODEL_PORT is unset or empty)
func expandEnvVars(s string, lookup func(string) (string, bool)) (string, error) {
	if strings.Count(s, "${") > strings.Count(s, "}") {
		return "", fmt.Errorf("invalid syntax: unterminated variable reference")
	}

	mapping := func(key string) string {
		if i := strings.Index(key, ":-"); i >= 0 {
			if val, ok := lookup(key[:i]); ok && val != "" {
				return val
			}
			return key[i+2:]
		}
		val, _ := lookup(key)
		return val
	}

	result := os.Expand(s, mapping)
	// Bounded so a self-referencing variable cannot loop forever.
	for i := 0; i < 10; i++ {
		next := os.Expand(result, mapping)
		if next == result {
			break
		}
		result = next
	}
	return result, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env")
// into the process environment. Variables already set are never
// overridden and missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}
