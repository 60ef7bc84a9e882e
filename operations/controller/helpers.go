package controller

import (
	"maps"
	"strings"

	"github.com/mohae/deepcopy"
	"github.com/spf13/cast"
)

// cloneMap deep copies m so normalizers never write through to their input.
func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	cpy, ok := deepcopy.Copy(m).(map[string]any)
	if !ok || cpy == nil {
		return map[string]any{}
	}
	return cpy
}

// labelMap accepts labels as a mapping or as a list of key=value strings and
// always returns a non-nil map.
func labelMap(service string, v any) (map[string]any, error) {
	switch l := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return maps.Clone(l), nil
	case []any:
		labels := make(map[string]any, len(l))
		for _, entry := range l {
			key, value, _ := strings.Cut(cast.ToString(entry), "=")
			labels[key] = value
		}
		return labels, nil
	default:
		return nil, labelError(service, "labels must be a mapping or a list")
	}
}

func asList(v any) []any {
	switch l := v.(type) {
	case nil:
		return nil
	case []any:
		return l
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out
	default:
		return []any{l}
	}
}

// setList stores list under key, dropping the key when nothing is left.
func setList(m map[string]any, key string, list []any) {
	if len(list) == 0 {
		delete(m, key)
		return
	}
	m[key] = list
}
