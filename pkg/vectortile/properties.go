package vectortile

import (
	"strconv"
	"strings"
)

// decoded vector tile values are float64 for every numeric type, encoded ones may still carry the go type.

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case float32:
		return int64(n), true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	default:
		return 0, false
	}
}

func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		i, ok := toInt64(v)
		return float64(i), ok
	}
}

func toBool(v interface{}) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(b)
		return parsed, err == nil
	default:
		i, ok := toInt64(v)
		return i != 0, ok
	}
}

// toOneway. osm oneway tag values: yes, true, 1 and -1 (oneway against the way direction).
func toOneway(v interface{}) (bool, bool) {
	s, ok := v.(string)
	if !ok {
		return toBool(v)
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "1", "-1", "reversible":
		return true, true
	case "no", "false", "0", "":
		return false, true
	default:
		return false, false
	}
}

// toIDList. a single integer or a colon separated list of integers.
func toIDList(v interface{}) ([]int64, bool) {
	if id, ok := toInt64(v); ok {
		return []int64{id}, true
	}

	s, ok := v.(string)
	if !ok || s == "" {
		return nil, false
	}

	parts := strings.Split(s, ":")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}
