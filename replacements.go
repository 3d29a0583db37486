package docstamp

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/goccy/go-json"
)

// Replacements maps token keys (without brackets) to replacement text.
type Replacements map[string]string

// DecodeReplacements reads a JSON object of replacements. String values are
// used as is, numbers keep their literal form, booleans become "true" or
// "false", null becomes "" and nested arrays or objects become compact
// JSON.
func DecodeReplacements(r io.Reader) (Replacements, error) {
	const errCtx = "decoding replacements"

	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}
	return replacementsFrom(raw)
}

// ReplacementsFromMap converts already decoded JSON values.
func ReplacementsFromMap(raw map[string]any) (Replacements, error) {
	return replacementsFrom(raw)
}

func replacementsFrom(raw map[string]any) (Replacements, error) {
	out := make(Replacements, len(raw))
	for k, v := range raw {
		s, err := stringify(v)
		if err != nil {
			return nil, fmt.Errorf("value of %q: %w", k, err)
		}
		out[k] = s
	}
	return out, nil
}

func stringify(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case bool:
		if t {
			return "true", nil
		}
		return "false", nil
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(t); err != nil {
			return "", err
		}
		return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
	}
}
