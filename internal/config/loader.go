package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load overlays the given .env files onto the environment, fills a
// Config from its env tags and validates it. Missing .env files are
// skipped.
func Load(envFiles ...string) (*Config, error) {
	for _, p := range envFiles {
		if err := overlayEnvFile(p); err != nil {
			return nil, fmt.Errorf("config env %s: %w", p, err)
		}
	}

	cfg := &Config{}
	if err := fill(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func overlayEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return godotenv.Overload(path)
}

// envField is the parsed set of struct tags on one config field:
//
//	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`
type envField struct {
	name, alt, def string
	required       bool
}

func envFieldOf(f reflect.StructField) (envField, bool) {
	name, ok := f.Tag.Lookup("env")
	if !ok || name == "" {
		return envField{}, false
	}
	return envField{
		name:     name,
		alt:      f.Tag.Get("envAlt"),
		def:      f.Tag.Get("default"),
		required: f.Tag.Get("required") == "true",
	}, true
}

// value resolves the raw string for the field: the primary variable,
// then the alternate, then the default.
func (e envField) value() (string, error) {
	for _, n := range []string{e.name, e.alt} {
		if n == "" {
			continue
		}
		if v := strings.TrimSpace(os.Getenv(n)); v != "" {
			return v, nil
		}
	}
	if e.required {
		return "", fmt.Errorf("required environment variable %s is not set", e.name)
	}
	return e.def, nil
}

// fill walks section structs and sets every env-tagged leaf.
func fill(v reflect.Value) error {
	t := v.Type()
	for i := range t.NumField() {
		sf, fv := t.Field(i), v.Field(i)
		if !fv.CanSet() {
			continue
		}
		if sf.Type.Kind() == reflect.Struct {
			if err := fill(fv); err != nil {
				return err
			}
			continue
		}

		ef, ok := envFieldOf(sf)
		if !ok {
			continue
		}
		raw, err := ef.value()
		if err != nil {
			return err
		}
		if raw == "" {
			continue
		}
		if err := assign(fv, raw); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", ef.name, raw, err)
		}
	}
	return nil
}

var durationType = reflect.TypeFor[time.Duration]()

func assign(fv reflect.Value, raw string) error {
	switch {
	case fv.Type() == durationType:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		fv.SetInt(int64(d))
	case fv.Kind() == reflect.String:
		fv.SetString(raw)
	case fv.CanInt():
		n, err := strconv.ParseInt(raw, 10, fv.Type().Bits())
		if err != nil {
			return err
		}
		fv.SetInt(n)
	case fv.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		fv.SetBool(b)
	case fv.Type() == reflect.TypeFor[[]string]():
		fv.Set(reflect.ValueOf(splitList(raw)))
	default:
		return fmt.Errorf("unsupported field type %s", fv.Type())
	}
	return nil
}

// splitList parses a comma separated list, dropping blanks.
func splitList(raw string) []string {
	var items []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	return items
}
