// Package commands wires the moneybin-w2 CLI.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moneybin/moneybin-w2/internal/common"
	"github.com/moneybin/moneybin-w2/internal/extract"
	"github.com/moneybin/moneybin-w2/internal/ocr"
	"github.com/moneybin/moneybin-w2/internal/repository"
)

// Version is set at build time with -ldflags "-X ...commands.Version=...".
var Version = "dev"

// app is the state shared by every subcommand once flags and config are loaded.
type app struct {
	cfgFile  string
	logLevel string

	cfg    *common.Config
	logger *slog.Logger
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "moneybin-w2",
		Short: "Extract W-2 wage statements from PDFs",
		Long: `moneybin-w2 reads W-2 PDFs through two independent methods (the embedded
text layer and OCR of the rendered page), cross-checks them and keeps the
result only when they agree.`,
		Version: Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd.ErrOrStderr())
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: ./moneybin.yaml or ~/.moneybin/moneybin.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newExtractCommand(a),
		newBatchCommand(a),
		newWatchCommand(a),
		newListCommand(a),
		newExportCommand(a),
		newConfigCommand(a),
		newDBCommand(a),
	)
	return rootCmd
}

func (a *app) load(logOut io.Writer) error {
	cfg, err := common.LoadConfig(a.cfgFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log, logOut)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	a.cfg = cfg
	a.logger = logger
	return nil
}

func newLogger(cfg common.LogConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("invalid log.level %q", cfg.Level), common.ErrInvalidInput)
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(cfg.Format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("invalid log.format %q", cfg.Format), common.ErrInvalidInput)
	}
}

// extractService builds the extraction service from config; flags adjust the policy.
func (a *app) extractService(enableOCR, allowDisagreement bool) *extract.Service {
	opts := extract.OptionsFromConfig(a.cfg.Extraction)
	opts.EnableOCR = opts.EnableOCR && enableOCR
	if allowDisagreement {
		opts.Policy.RequireDualExtraction = false
	}
	source := ocr.NewExtractor(ocr.ConfigFromApp(a.cfg.OCR), a.logger)
	return extract.NewService(source, opts, a.logger)
}

// openStore opens the configured database and makes sure the schema exists.
func (a *app) openStore(ctx context.Context) (*repository.DB, repository.W2FormRepository, error) {
	db, err := repository.Open(ctx, repository.ConfigFromApp(a.cfg.Database), a.logger)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, repository.NewW2FormRepository(db, a.logger), nil
}
