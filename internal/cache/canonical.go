package cache

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// roundDecimals is the float precision canonical payloads are rounded to.
// Inputs that differ only by float noise below this precision hash to the
// same key.
const roundDecimals = 6

// angleKeys marks payload fields that are circular: their values are
// wrapped into [0,360) before rounding, so 370° and 10° canonicalise
// identically.
var angleKeys = map[string]bool{
	"longitude": true,
	"lon":       true,
	"angle":     true,
	"ascendant": true,
}

// CanonicalKey reduces any JSON-able payload to a stable hex digest:
// floats rounded, circular fields wrapped, map keys sorted, then hashed
// with xxhash. Two requests that are numerically equivalent produce the
// same key regardless of field order or wraparound formatting.
func CanonicalKey(payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("canonical key: marshal: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", fmt.Errorf("canonical key: remarshal: %w", err)
	}

	var b strings.Builder
	writeCanonical(&b, generic, "")
	return fmt.Sprintf("%016x", xxhash.Sum64String(b.String())), nil
}

// writeCanonical serialises a decoded JSON value deterministically. The
// enclosing key rides along so angle fields can be wrapped.
func writeCanonical(b *strings.Builder, v any, key string) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(k))
			b.WriteByte(':')
			writeCanonical(b, val[k], k)
		}
		b.WriteByte('}')
	case []any:
		b.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonical(b, item, key)
		}
		b.WriteByte(']')
	case float64:
		b.WriteString(canonicalFloat(val, angleKeys[strings.ToLower(key)]))
	case nil:
		b.WriteString("null")
	case bool:
		b.WriteString(strconv.FormatBool(val))
	case string:
		b.WriteString(strconv.Quote(val))
	default:
		b.WriteString(fmt.Sprintf("%v", val))
	}
}

func canonicalFloat(v float64, circular bool) string {
	if circular {
		v = math.Mod(v, 360)
		if v < 0 {
			v += 360
		}
	}
	shift := math.Pow(10, roundDecimals)
	v = math.Round(v*shift) / shift
	// Rounding can land exactly on 360; keep the wrap closed.
	if circular && v >= 360 {
		v -= 360
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
