package docstamp

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// DefaultConversionTimeout bounds one converter run.
const DefaultConversionTimeout = 60 * time.Second

// Options configures a Pipeline.
type Options struct {
	// Converter produces the PDF. Default: SofficeConverter.
	Converter Converter
	// Timeout bounds each conversion. Default: DefaultConversionTimeout.
	Timeout time.Duration
	// Stamp configures the stamp image. Default: DefaultStampOptions.
	Stamp *StampOptions
	// Fonts is shared by every composition. Default: NewFontCache.
	Fonts *FontCache
	// Layout, when set, is applied to every section.
	Layout *SectionLayout
	// FooterRule, when set, draws a rule above the stamp.
	FooterRule *Border
	Logger     *slog.Logger
}

// DefaultOptions returns the default pipeline options.
func DefaultOptions() *Options {
	return &Options{
		Timeout: DefaultConversionTimeout,
		Stamp:   DefaultStampOptions(),
	}
}

// Pipeline renders templates to stamped PDFs.
type Pipeline struct {
	opts     Options
	composer *Composer
	walker   *Walker
	logger   *slog.Logger
}

// NewPipeline creates a Pipeline. Nil options select the defaults.
func NewPipeline(opts *Options) *Pipeline {
	if opts == nil {
		opts = DefaultOptions()
	}
	o := *opts
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultConversionTimeout
	}
	if o.Converter == nil {
		o.Converter = &SofficeConverter{Logger: o.Logger}
	}
	return &Pipeline{
		opts:     o,
		composer: NewComposer(o.Stamp, o.Fonts, o.Logger),
		walker:   &Walker{Layout: o.Layout, FooterRule: o.FooterRule, Logger: o.Logger},
		logger:   o.Logger,
	}
}

// TemplateError is a failure confined to one template of a batch.
type TemplateError struct {
	Template string
	Err      error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("%s: %v", e.Template, e.Err)
}

func (e *TemplateError) Unwrap() error { return e.Err }

// BatchResult lists the PDFs produced by RunBatch and the templates that
// failed.
type BatchResult struct {
	Documents    []string
	Errors       []*TemplateError
	LogoFallback bool
}

// Run renders one template into outputDir and returns the PDF path.
func (p *Pipeline) Run(ctx context.Context, templatePath string, repl Replacements, in StampInputs, outputDir string) (string, error) {
	res, err := p.RunBatch(ctx, []string{templatePath}, repl, in, outputDir)
	if err != nil {
		return "", err
	}
	if len(res.Errors) > 0 {
		return "", res.Errors[0].Err
	}
	return res.Documents[0], nil
}

// RunBatch renders every template into outputDir. The QR image is checked
// and the stamp composed once, before any template is opened; failing
// that is fatal. Per-template failures are collected in BatchResult.Errors.
// Cancelling ctx aborts the batch and removes the PDFs it produced.
func (p *Pipeline) RunBatch(ctx context.Context, templates []string, repl Replacements, in StampInputs, outputDir string) (*BatchResult, error) {
	const errCtx = "rendering documents"

	if _, err := os.Stat(in.QRPath); err != nil || in.QRPath == "" {
		if err == nil {
			err = fs.ErrNotExist
		}
		return nil, &MissingAssetError{Asset: "qr", Path: in.QRPath, Err: err}
	}
	if err := os.MkdirAll(outputDir, 0750); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	work := &scratch{logger: p.logger}
	defer work.release()

	workDir := filepath.Join(outputDir, ".docstamp-"+uuid.NewString())
	if err := os.MkdirAll(workDir, 0750); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}
	work.track(workDir)

	stamp, err := p.composer.Compose(in, filepath.Join(workDir, "stamp.png"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	res := &BatchResult{LogoFallback: stamp.LogoFallback}
	used := make(map[string]int)
	for _, tpl := range templates {
		base := uniqueBase(baseName(tpl), used)
		start := time.Now()

		pdf, err := p.render(ctx, tpl, base, repl, stamp, workDir, outputDir)
		if err != nil {
			if ctx.Err() != nil {
				for _, done := range res.Documents {
					os.Remove(done)
				}
				return nil, fmt.Errorf("%s: %w", errCtx, ctx.Err())
			}
			p.logger.Warn("template failed", "template", tpl, "error", err)
			res.Errors = append(res.Errors, &TemplateError{Template: tpl, Err: err})
			continue
		}

		p.logger.Info("document rendered",
			"template", tpl,
			"output", pdf,
			"duration", time.Since(start),
		)
		res.Documents = append(res.Documents, pdf)
	}
	return res, nil
}

// render stamps one template, saves the intermediate package in workDir
// and converts it into outputDir.
func (p *Pipeline) render(ctx context.Context, tpl, base string, repl Replacements, stamp *Stamp, workDir, outputDir string) (string, error) {
	if err := validateTemplate(tpl); err != nil {
		return "", err
	}

	doc, err := Open(tpl)
	if err != nil {
		return "", &InvalidTemplateError{Template: tpl, Reason: "unreadable document", Err: err}
	}
	defer doc.Close()

	report, err := p.walker.Walk(doc, repl, stamp)
	if err != nil {
		return "", err
	}
	if err := doc.Validate(); err != nil {
		return "", err
	}

	intermediate := filepath.Join(workDir, base+".docx")
	if err := doc.Save(intermediate); err != nil {
		return "", fmt.Errorf("saving %s: %w", intermediate, err)
	}

	p.logger.Debug("document stamped",
		"template", tpl,
		"paragraphs", report.Paragraphs,
		"rewritten", report.Rewritten,
		"sections", report.Sections,
		"footers_with_content", report.FootersWithContent,
	)

	return p.convert(ctx, intermediate, outputDir)
}

// convert runs the converter under the conversion timeout and checks that
// it produced its output. A PDF left at the target by an earlier run is
// removed first so it cannot pass for this run's output.
func (p *Pipeline) convert(ctx context.Context, input, outputDir string) (string, error) {
	target := filepath.Join(outputDir, baseName(input)+".pdf")
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("removing stale %s: %w", target, err)
	}

	cctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	res, err := p.opts.Converter.Convert(cctx, input, outputDir)
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if errors.Is(cctx.Err(), context.DeadlineExceeded) {
		return "", &ConversionTimeoutError{Input: input, Timeout: p.opts.Timeout.String(), Stderr: res.Stderr}
	}
	if err != nil {
		return "", &ConversionError{Input: input, ExitCode: res.ExitCode, Stderr: res.Stderr, Err: err}
	}
	if res.ExitCode != 0 {
		return "", &ConversionError{Input: input, ExitCode: res.ExitCode, Stderr: res.Stderr}
	}

	out := res.OutputPath
	if out == "" {
		out = target
	}
	info, err := os.Stat(out)
	if err != nil {
		return "", &ConversionError{Input: input, Stderr: res.Stderr, Err: fmt.Errorf("expected output %s: %w", out, err)}
	}
	if !info.Mode().IsRegular() {
		return "", &ConversionError{Input: input, Stderr: res.Stderr, Err: fmt.Errorf("expected output %s is not a file", out)}
	}
	return out, nil
}

// validateTemplate accepts .docx files whose content sniffs as an OOXML
// word processing package.
func validateTemplate(path string) error {
	if !strings.EqualFold(filepath.Ext(path), ".docx") {
		return &InvalidTemplateError{Template: path, Reason: "not a .docx file"}
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return &InvalidTemplateError{Template: path, Reason: "unreadable file", Err: err}
	}
	if !mt.Is(mimeDocx) && !mt.Is("application/zip") {
		return &InvalidTemplateError{Template: path, Reason: "content is " + mt.String()}
	}
	return nil
}

// uniqueBase suffixes repeated base names within a batch: a, a-2, a-3.
func uniqueBase(base string, used map[string]int) string {
	name := base
	for n := 2; used[name] > 0; n++ {
		name = fmt.Sprintf("%s-%d", base, n)
	}
	used[name]++
	return name
}
