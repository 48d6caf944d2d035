package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/epeers/fundsync/internal/util"
)

// lookup returns obj[key]; an absent key is a MissingField error naming path.
func lookup(obj map[string]any, key, path string) (any, error) {
	v, ok := obj[key]
	if !ok {
		return nil, missing(path)
	}
	return v, nil
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// object reads a nested JSON object. JSON null yields (nil, nil).
func object(obj map[string]any, key, path string) (map[string]any, error) {
	v, err := lookup(obj, key, path)
	if err != nil || v == nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, invalid(path, fmt.Errorf("expected object, got %T", v))
	}
	return m, nil
}

// optString reads a scalar as text. Numbers are kept in their JSON spelling.
func optString(obj map[string]any, key, path string) (*string, error) {
	v, err := lookup(obj, key, path)
	if err != nil || v == nil {
		return nil, err
	}
	s, err := asString(v)
	if err != nil {
		return nil, invalid(path, err)
	}
	return &s, nil
}

func requiredString(obj map[string]any, key, path string) (string, error) {
	s, err := optString(obj, key, path)
	if err != nil {
		return "", err
	}
	if s == nil || *s == "" {
		return "", missing(path)
	}
	return *s, nil
}

func asString(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(t), nil
	default:
		return "", fmt.Errorf("expected scalar, got %T", v)
	}
}

// optFloat reads a number; numeric strings are accepted.
func optFloat(obj map[string]any, key, path string) (*float64, error) {
	v, err := lookup(obj, key, path)
	if err != nil || v == nil {
		return nil, err
	}
	f, err := asFloat(v)
	if err != nil {
		return nil, invalid(path, err)
	}
	return &f, nil
}

func asFloat(v any) (float64, error) {
	switch t := v.(type) {
	case json.Number:
		return t.Float64()
	case float64:
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, fmt.Errorf("empty number")
		}
		return strconv.ParseFloat(s, 64)
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}

func optInt32(obj map[string]any, key, path string) (*int32, error) {
	f, err := optFloat(obj, key, path)
	if err != nil || f == nil {
		return nil, err
	}
	if *f != math.Trunc(*f) || *f > math.MaxInt32 || *f < math.MinInt32 {
		return nil, invalid(path, fmt.Errorf("expected integer, got %v", *f))
	}
	n := int32(*f)
	return &n, nil
}

// optTime reads an RFC3339 timestamp or a plain date. Empty strings are NULL.
func optTime(obj map[string]any, key, path string) (*time.Time, error) {
	s, err := optString(obj, key, path)
	if err != nil || s == nil || strings.TrimSpace(*s) == "" {
		return nil, err
	}
	t, err := util.ParseFlexibleDate(*s)
	if err != nil {
		return nil, invalid(path, err)
	}
	return &t, nil
}

// optDate is optTime truncated to the calendar date in UTC.
func optDate(obj map[string]any, key, path string) (*time.Time, error) {
	t, err := optTime(obj, key, path)
	if err != nil || t == nil {
		return nil, err
	}
	d := util.DateOnly(*t)
	return &d, nil
}
