package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"time"
)

// MergeFromEnv overlays environment variables onto cfg. Fields opt in via the
// `env` struct tag; nested structs are walked recursively. Unset variables
// leave the field untouched.
func MergeFromEnv(cfg interface{}) error {
	return mergeFromEnv(reflect.ValueOf(cfg))
}

func mergeFromEnv(v reflect.Value) error {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if !field.CanSet() {
			continue
		}
		if field.Kind() == reflect.Struct {
			if err := mergeFromEnv(field); err != nil {
				return err
			}
			continue
		}

		name := t.Field(i).Tag.Get("env")
		if name == "" {
			continue
		}
		raw, ok := os.LookupEnv(name)
		if !ok || raw == "" {
			continue
		}
		if err := setField(field, raw, name); err != nil {
			return err
		}
	}
	return nil
}

func setField(field reflect.Value, raw, name string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)

	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(raw)
			if err != nil {
				return fmt.Errorf("%s: invalid duration %q: %w", name, raw, err)
			}
			field.SetInt(int64(d))
			return nil
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: invalid integer %q: %w", name, raw, err)
		}
		field.SetInt(n)

	case reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("%s: invalid float %q: %w", name, raw, err)
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%s: invalid boolean %q: %w", name, raw, err)
		}
		field.SetBool(b)

	default:
		return fmt.Errorf("%s: unsupported field kind %s", name, field.Kind())
	}
	return nil
}
