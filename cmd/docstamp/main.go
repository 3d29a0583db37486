// Package main provides the docstamp CLI: the HTTP service and one-shot
// rendering from the command line.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	docstamp "github.com/VantageDataChat/GoDocStamp"
	"github.com/VantageDataChat/GoDocStamp/server"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "docstamp",
		Short: "Stamp .docx footers with a QR authenticity mark and render PDFs",
		Long: `docstamp substitutes [key] tokens in .docx templates, replaces every
section footer with a QR stamp and converts the result to PDF.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")

	rootCmd.AddCommand(serveCmd(), renderCmd(), stampCmd(), versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the configuration and installs the configured logger as the
// default.
func setup() (*docstamp.Config, *slog.Logger, error) {
	cfg, err := docstamp.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func serveCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Server.Listen = listen
			}

			srv := server.New(cfg, docstamp.NewPipeline(cfg.PipelineOptions(logger)), logger)
			httpServer := &http.Server{
				Addr:              cfg.Server.Listen,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			return server.RunWithGracefulShutdown(httpServer, logger, cfg.Server.ShutdownTimeout)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (overrides server.listen)")
	return cmd
}

func renderCmd() *cobra.Command {
	var (
		outputDir string
		dataPath  string
		qrPath    string
		logoPath  string
		caption1  string
		caption2  string
	)
	cmd := &cobra.Command{
		Use:   "render [template.docx ...]",
		Short: "Render templates to stamped PDFs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}

			repl := docstamp.Replacements{}
			if dataPath != "" {
				f, err := os.Open(dataPath)
				if err != nil {
					return fmt.Errorf("failed to open data file: %w", err)
				}
				repl, err = docstamp.DecodeReplacements(f)
				f.Close()
				if err != nil {
					return err
				}
			}

			in := cfg.StampInputs()
			for dst, v := range map[*string]string{
				&in.QRPath: qrPath, &in.LogoPath: logoPath,
				&in.Caption[0]: caption1, &in.Caption[1]: caption2,
			} {
				if v != "" {
					*dst = v
				}
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			p := docstamp.NewPipeline(cfg.PipelineOptions(logger))
			res, err := p.RunBatch(ctx, args, repl, in, outputDir)
			if err != nil {
				return err
			}
			for _, doc := range res.Documents {
				fmt.Fprintln(cmd.OutOrStdout(), doc)
			}
			for _, e := range res.Errors {
				logger.Error("template failed", "template", e.Template, "error", e.Err)
			}
			if len(res.Errors) > 0 {
				return fmt.Errorf("%d of %d templates failed", len(res.Errors), len(args))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "Output directory")
	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "JSON file with replacement values")
	cmd.Flags().StringVar(&qrPath, "qr", "", "QR code image (overrides stamp.qr_path)")
	cmd.Flags().StringVar(&logoPath, "logo", "", "Logo image (overrides stamp.logo_path)")
	cmd.Flags().StringVar(&caption1, "caption1", "", "First caption line")
	cmd.Flags().StringVar(&caption2, "caption2", "", "Second caption line")
	return cmd
}

func stampCmd() *cobra.Command {
	var (
		output   string
		qrPath   string
		logoPath string
	)
	cmd := &cobra.Command{
		Use:   "stamp",
		Short: "Render only the stamp image as PNG",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			in := cfg.StampInputs()
			if qrPath != "" {
				in.QRPath = qrPath
			}
			if logoPath != "" {
				in.LogoPath = logoPath
			}

			opts := cfg.PipelineOptions(logger)
			st, err := docstamp.NewComposer(opts.Stamp, opts.Fonts, logger).Compose(in, output)
			if err != nil {
				return err
			}
			abs, _ := filepath.Abs(st.Path)
			fmt.Fprintf(cmd.OutOrStdout(), "%s %dx%d px font=%s logo_fallback=%t\n",
				abs, st.Pixels.X, st.Pixels.Y, st.Layout.Font, st.LogoFallback)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "stamp.png", "Output PNG path")
	cmd.Flags().StringVar(&qrPath, "qr", "", "QR code image (overrides stamp.qr_path)")
	cmd.Flags().StringVar(&logoPath, "logo", "", "Logo image (overrides stamp.logo_path)")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), docstamp.Version)
		},
	}
}
