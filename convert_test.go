package docstamp

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSoffice mimics the soffice command line: it writes
// <outdir>/<input base>.pdf.
const fakeSoffice = `#!/bin/sh
while [ $# -gt 1 ]; do
  if [ "$1" = "--outdir" ]; then out="$2"; fi
  shift
done
name=$(basename "$1" .docx)
printf '%%PDF-1.7' > "$out/$name.pdf"
`

// writeScript installs an executable script. Tests that run scripts stay
// sequential: a parallel fork can inherit the script's write descriptor
// and make exec fail with ETXTBSY.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts stand in for soffice")
	}
	path := filepath.Join(t.TempDir(), "soffice")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
	return path
}

func TestSofficeConverter_success(t *testing.T) {
	bin := writeScript(t, fakeSoffice)
	out := t.TempDir()
	input := filepath.Join(t.TempDir(), "report.v2.docx")
	require.NoError(t, os.WriteFile(input, []byte("x"), 0o644))

	res, err := (&SofficeConverter{Binary: bin}).Convert(context.Background(), input, out)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, filepath.Join(out, "report.v2.pdf"), res.OutputPath)
	assert.FileExists(t, res.OutputPath)
}

func TestSofficeConverter_exit_code(t *testing.T) {
	bin := writeScript(t, "#!/bin/sh\necho 'cannot load source' >&2\nexit 3\n")

	res, err := (&SofficeConverter{Binary: bin}).Convert(context.Background(), "in.docx", t.TempDir())
	require.NoError(t, err, "a non-zero exit is reported through ExitCode")
	assert.Equal(t, 3, res.ExitCode)
	assert.Contains(t, res.Stderr, "cannot load source")
}

func TestSofficeConverter_missing_binary(t *testing.T) {
	t.Parallel()
	res, err := (&SofficeConverter{Binary: filepath.Join(t.TempDir(), "no-soffice")}).
		Convert(context.Background(), "in.docx", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, -1, res.ExitCode)
}

func TestSofficeConverter_killed_on_deadline(t *testing.T) {
	bin := writeScript(t, "#!/bin/sh\nexec sleep 10\n")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	res, _ := (&SofficeConverter{Binary: bin}).Convert(ctx, "in.docx", t.TempDir())
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.NotEqual(t, 0, res.ExitCode)
}

func TestSofficeConverter_kills_forked_children(t *testing.T) {
	// The shell forks sleep instead of replacing itself, like the soffice
	// wrapper forks soffice.bin.
	bin := writeScript(t, "#!/bin/sh\nsleep 8\necho done\n")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	res, _ := (&SofficeConverter{Binary: bin}).Convert(ctx, "in.docx", t.TempDir())
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.NotEqual(t, 0, res.ExitCode)
}

func TestPipeline_with_soffice_command(t *testing.T) {
	bin := writeScript(t, fakeSoffice)
	f := newFixture(t)
	tpl := f.template(t, "contract.docx")

	p := NewPipeline(&Options{
		Converter: &SofficeConverter{Binary: bin},
		Fonts:     NewIsolatedFontCache(),
	})
	pdf, err := p.Run(context.Background(), tpl, Replacements{"name": "Ada"}, f.inputs, f.out)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.out, "contract.pdf"), pdf)
	assert.Equal(t, []string{"contract.pdf"}, listDir(t, f.out))
}

func TestBaseName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "letter", baseName("/tmp/x/letter.docx"))
	assert.Equal(t, "report.v2", baseName("report.v2.docx"))
	assert.Equal(t, "noext", baseName("noext"))
}
