package docstamp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VantageDataChat/GoDocStamp/internal/docxtest"
)

// fakeConverter writes a stub PDF for every input, the way soffice names
// its output.
func fakeConverter(calls *atomic.Int32) ConverterFunc {
	return func(ctx context.Context, input, outDir string) (ConvertResult, error) {
		calls.Add(1)
		out := filepath.Join(outDir, baseName(input)+".pdf")
		if err := os.WriteFile(out, []byte("%PDF-1.7 stub"), 0o644); err != nil {
			return ConvertResult{ExitCode: -1}, err
		}
		return ConvertResult{OutputPath: out}, nil
	}
}

func testPipeline(conv Converter) *Pipeline {
	return NewPipeline(&Options{
		Converter: conv,
		Timeout:   5 * time.Second,
		Stamp:     DefaultStampOptions(),
		Fonts:     NewIsolatedFontCache(),
	})
}

type fixture struct {
	dir    string
	out    string
	inputs StampInputs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	return &fixture{
		dir: dir,
		out: filepath.Join(dir, "out"),
		inputs: StampInputs{
			QRPath:  docxtest.WritePNG(t, dir, "qr.png", 21, 21),
			Caption: testCaption,
		},
	}
}

func (f *fixture) template(t *testing.T, name string) string {
	t.Helper()
	return twoSectionTemplate().WriteFile(t, f.dir, name)
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestRun_single_template(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	tpl := f.template(t, "letter.docx")

	var seen *Document
	conv := ConverterFunc(func(ctx context.Context, input, outDir string) (ConvertResult, error) {
		doc, err := Open(input)
		if err != nil {
			return ConvertResult{ExitCode: 1}, err
		}
		seen = doc
		var calls atomic.Int32
		return fakeConverter(&calls)(ctx, input, outDir)
	})

	pdf, err := testPipeline(conv).Run(context.Background(), tpl, Replacements{"name": "Ada"}, f.inputs, f.out)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.out, "letter.pdf"), pdf)
	assert.FileExists(t, pdf)
	assert.Equal(t, []string{"letter.pdf"}, listDir(t, f.out), "intermediates are removed")

	require.NotNil(t, seen)
	assert.Equal(t, "Dear Ada,", seen.Paragraphs()[0].Text())
	require.NoError(t, seen.Validate())
	for _, s := range seen.Sections() {
		footer, err := s.Footer()
		require.NoError(t, err)
		require.Len(t, footer.Paragraphs(), 1)
		assert.Len(t, footer.Paragraphs()[0].Runs()[0].Pictures(), 1)
	}

	// The template itself is never modified.
	orig, err := Open(tpl)
	require.NoError(t, err)
	assert.Equal(t, "Dear [name],", orig.Paragraphs()[0].Text())
}

func TestRunBatch_mixed_templates(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	good := f.template(t, "good.docx")
	notes := filepath.Join(f.dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("hello"), 0o644))
	broken := filepath.Join(f.dir, "broken.docx")
	require.NoError(t, os.WriteFile(broken, []byte("this is not a package"), 0o644))

	var calls atomic.Int32
	res, err := testPipeline(fakeConverter(&calls)).RunBatch(context.Background(),
		[]string{notes, good, broken}, Replacements{"name": "Ada"}, f.inputs, f.out)
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(f.out, "good.pdf")}, res.Documents)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, notes, res.Errors[0].Template)
	assert.Equal(t, broken, res.Errors[1].Template)
	for _, e := range res.Errors {
		assert.True(t, errors.Is(e, ErrInvalidTemplate), e.Error())
	}
	assert.Equal(t, int32(1), calls.Load(), "invalid templates never reach the converter")
	assert.True(t, res.LogoFallback)
}

func TestRunBatch_duplicate_base_names(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	require.NoError(t, os.MkdirAll(filepath.Join(f.dir, "a"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(f.dir, "b"), 0o755))
	first := twoSectionTemplate().WriteFile(t, filepath.Join(f.dir, "a"), "letter.docx")
	second := twoSectionTemplate().WriteFile(t, filepath.Join(f.dir, "b"), "letter.docx")

	var calls atomic.Int32
	res, err := testPipeline(fakeConverter(&calls)).RunBatch(context.Background(),
		[]string{first, second}, nil, f.inputs, f.out)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(f.out, "letter.pdf"),
		filepath.Join(f.out, "letter-2.pdf"),
	}, res.Documents)
}

func TestRunBatch_missing_qr_is_fatal(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	tpl := f.template(t, "letter.docx")
	f.inputs.QRPath = filepath.Join(f.dir, "missing-qr.png")

	var calls atomic.Int32
	_, err := testPipeline(fakeConverter(&calls)).RunBatch(context.Background(), []string{tpl}, nil, f.inputs, f.out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingAsset))
	assert.Equal(t, int32(0), calls.Load())
	assert.NoDirExists(t, f.out)
}

func TestRun_conversion_timeout(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	tpl := f.template(t, "slow.docx")

	conv := ConverterFunc(func(ctx context.Context, input, outDir string) (ConvertResult, error) {
		<-ctx.Done()
		return ConvertResult{ExitCode: -1, Stderr: "killed"}, ctx.Err()
	})
	p := NewPipeline(&Options{Converter: conv, Timeout: 50 * time.Millisecond, Fonts: NewIsolatedFontCache()})

	_, err := p.Run(context.Background(), tpl, nil, f.inputs, f.out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConversionTimeout))
	assert.False(t, errors.Is(err, ErrConversion))

	var te *ConversionTimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "50ms", te.Timeout)
	assert.Empty(t, listDir(t, f.out))
}

func TestRun_conversion_failure(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	tpl := f.template(t, "letter.docx")

	conv := ConverterFunc(func(ctx context.Context, input, outDir string) (ConvertResult, error) {
		return ConvertResult{ExitCode: 1, Stderr: "Error: source file could not be loaded"}, nil
	})
	_, err := testPipeline(conv).Run(context.Background(), tpl, nil, f.inputs, f.out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConversion))

	var ce *ConversionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 1, ce.ExitCode)
	assert.True(t, strings.Contains(ce.Error(), "could not be loaded"))
}

func TestRun_converter_without_output(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	tpl := f.template(t, "letter.docx")

	conv := ConverterFunc(func(ctx context.Context, input, outDir string) (ConvertResult, error) {
		return ConvertResult{}, nil
	})
	_, err := testPipeline(conv).Run(context.Background(), tpl, nil, f.inputs, f.out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConversion))
}

func TestRun_stale_output_is_not_a_success(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	tpl := f.template(t, "letter.docx")
	require.NoError(t, os.MkdirAll(f.out, 0o755))
	stale := filepath.Join(f.out, "letter.pdf")
	require.NoError(t, os.WriteFile(stale, []byte("OLD RUN"), 0o644))

	conv := ConverterFunc(func(ctx context.Context, input, outDir string) (ConvertResult, error) {
		return ConvertResult{}, nil
	})
	_, err := testPipeline(conv).Run(context.Background(), tpl, nil, f.inputs, f.out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConversion))
	assert.NoFileExists(t, stale)
}

func TestRun_prefers_converter_output_path(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	tpl := f.template(t, "letter.docx")

	conv := ConverterFunc(func(ctx context.Context, input, outDir string) (ConvertResult, error) {
		out := filepath.Join(outDir, "renamed.pdf")
		if err := os.WriteFile(out, []byte("%PDF-1.7"), 0o644); err != nil {
			return ConvertResult{ExitCode: -1}, err
		}
		return ConvertResult{OutputPath: out}, nil
	})
	pdf, err := testPipeline(conv).Run(context.Background(), tpl, nil, f.inputs, f.out)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.out, "renamed.pdf"), pdf)

	conv = ConverterFunc(func(ctx context.Context, input, outDir string) (ConvertResult, error) {
		return ConvertResult{OutputPath: filepath.Join(outDir, "never-written.pdf")}, nil
	})
	_, err = testPipeline(conv).Run(context.Background(), tpl, nil, f.inputs, f.out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConversion))
}

func TestRunBatch_cancel_removes_outputs(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	one := f.template(t, "one.docx")
	two := f.template(t, "two.docx")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	write := fakeConverter(&calls)
	conv := ConverterFunc(func(cctx context.Context, input, outDir string) (ConvertResult, error) {
		if calls.Load() == 1 {
			cancel()
			return ConvertResult{ExitCode: -1}, cctx.Err()
		}
		return write(cctx, input, outDir)
	})

	_, err := testPipeline(conv).RunBatch(ctx, []string{one, two}, nil, f.inputs, f.out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, listDir(t, f.out), "finished documents and work files are removed")
}

func TestValidateTemplate(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	assert.NoError(t, validateTemplate(f.template(t, "ok.docx")))
	assert.NoError(t, validateTemplate(f.template(t, "UPPER.DOCX")))

	txt := filepath.Join(f.dir, "a.txt")
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0o644))
	assert.True(t, errors.Is(validateTemplate(txt), ErrInvalidTemplate))

	missing := validateTemplate(filepath.Join(f.dir, "missing.docx"))
	assert.True(t, errors.Is(missing, ErrInvalidTemplate))
}

func TestUniqueBase(t *testing.T) {
	t.Parallel()
	used := map[string]int{}
	var got []string
	for _, b := range []string{"a", "a", "b", "a", "a-2"} {
		got = append(got, uniqueBase(b, used))
	}
	assert.Equal(t, []string{"a", "a-2", "b", "a-3", "a-2-2"}, got)
}
