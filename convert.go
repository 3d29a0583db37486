package docstamp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ConvertResult is the outcome of one converter run.
type ConvertResult struct {
	ExitCode   int
	Stderr     string
	OutputPath string
}

// Converter turns a .docx file into a PDF in outputDir. Implementations
// must honour ctx cancellation.
type Converter interface {
	Convert(ctx context.Context, inputPath, outputDir string) (ConvertResult, error)
}

// ConverterFunc adapts a function to Converter.
type ConverterFunc func(ctx context.Context, inputPath, outputDir string) (ConvertResult, error)

// Convert calls f.
func (f ConverterFunc) Convert(ctx context.Context, inputPath, outputDir string) (ConvertResult, error) {
	return f(ctx, inputPath, outputDir)
}

// DefaultSofficeBinary is the LibreOffice binary looked up in PATH.
const DefaultSofficeBinary = "soffice"

// killWaitDelay bounds how long Convert waits for the output pipes to close
// once the converter was killed.
const killWaitDelay = 2 * time.Second

// SofficeConverter converts with a headless LibreOffice. Every call uses
// its own throwaway user profile so concurrent conversions do not contend
// for the profile lock.
type SofficeConverter struct {
	Binary string
	Logger *slog.Logger
}

// Convert runs soffice --convert-to pdf. The expected output is
// <outputDir>/<input base>.pdf.
func (c *SofficeConverter) Convert(ctx context.Context, inputPath, outputDir string) (ConvertResult, error) {
	const errCtx = "running soffice"

	bin := c.Binary
	if bin == "" {
		bin = DefaultSofficeBinary
	}
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	profile := filepath.Join(os.TempDir(), "docstamp-lo-"+uuid.NewString())
	defer os.RemoveAll(profile)

	args := []string{
		"--headless",
		"--norestore",
		"-env:UserInstallation=file://" + filepath.ToSlash(profile),
		"--convert-to", "pdf",
		"--outdir", outputDir,
		inputPath,
	}
	logger.Info(
		"executing",
		"cmd", bin,
		"args", strings.Join(args, " "),
	)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = killWaitDelay
	startInOwnGroup(cmd)

	err := cmd.Run()
	res := ConvertResult{
		Stderr:     stderr.String(),
		OutputPath: filepath.Join(outputDir, baseName(inputPath)+".pdf"),
	}
	logger.Debug("output", "stdout", stdout.String(), "stderr", res.Stderr)

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return res, nil
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	default:
		res.ExitCode = -1
		return res, fmt.Errorf("%s: %w", errCtx, err)
	}
}

// baseName returns the file name of p without its extension.
func baseName(p string) string {
	b := filepath.Base(p)
	return strings.TrimSuffix(b, filepath.Ext(b))
}
