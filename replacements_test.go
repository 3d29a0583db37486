package docstamp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeReplacements_value_kinds(t *testing.T) {
	t.Parallel()
	repl, err := DecodeReplacements(strings.NewReader(`{
		"name": "Ada",
		"amount": 12.50,
		"count": 3,
		"big": 12345678901234567890,
		"signed": true,
		"draft": false,
		"missing": null,
		"nested": {"k": "<v>"},
		"list": [1, "two"]
	}`))
	require.NoError(t, err)

	assert.Equal(t, Replacements{
		"name":    "Ada",
		"amount":  "12.50",
		"count":   "3",
		"big":     "12345678901234567890",
		"signed":  "true",
		"draft":   "false",
		"missing": "",
		"nested":  `{"k":"<v>"}`,
		"list":    `[1,"two"]`,
	}, repl)
}

func TestDecodeReplacements_rejects_non_objects(t *testing.T) {
	t.Parallel()
	for _, in := range []string{`[1, 2]`, `"text"`, `{"a": `, ``} {
		_, err := DecodeReplacements(strings.NewReader(in))
		assert.Error(t, err, in)
	}
}

func TestReplacementsFromMap(t *testing.T) {
	t.Parallel()
	repl, err := ReplacementsFromMap(map[string]any{
		"f":   1.5,
		"i":   float64(3),
		"s":   "x",
		"nil": nil,
	})
	require.NoError(t, err)
	assert.Equal(t, Replacements{"f": "1.5", "i": "3", "s": "x", "nil": ""}, repl)

	empty, err := ReplacementsFromMap(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
