package docstamp

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/VantageDataChat/GoDocStamp/internal/docxtest"
)

// openDocx reads the package built by b.
func openDocx(t *testing.T, b *docxtest.Builder) *Document {
	t.Helper()
	data := b.Bytes(t)
	doc, err := ReadFrom(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	return doc
}

// roundTrip writes doc to a buffer and reads it back.
func roundTrip(t *testing.T, doc *Document) *Document {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, doc.Write(&buf))
	data := buf.Bytes()
	back, err := ReadFrom(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	return back
}
