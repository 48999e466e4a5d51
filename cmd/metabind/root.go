package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/aretw0/metabind"
	"github.com/aretw0/metabind/internal/config"
)

var (
	cfgFile  string
	settings = config.New()
	cfg      *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "metabind",
	Short: "Edit and render block fields stored as attributes or post meta",
	Long: `metabind binds the fields of editor blocks to their storage.
Attribute fields belong to one block placement, meta fields are shared by
every placement on a post. Values can be edited, watched and rendered to HTML.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.ReadFile(settings, cfgFile, configDirs()...); err != nil {
			return err
		}
		loaded, err := config.Load(settings)
		if err != nil {
			return err
		}
		cfg = loaded

		opts := &slog.HandlerOptions{Level: cfg.Log.Level()}
		logger := slog.New(slog.NewTextHandler(logWriter(cfg.Log), opts))
		slog.SetDefault(logger)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: metabind.yaml in the site root)")
	flags.BoolP("verbose", "v", false, "Enable verbose logging")
	flags.String("log-file", "", "Also write logs to this file (rotated)")
	flags.String("adapter", metabind.AdapterFS, "Storage backend: fs, sqlite or memory")
	flags.String("path", ".", "Site directory (fs) or database file (sqlite)")
	flags.StringSlice("schema", nil, "Additional block definition files")
	flags.Bool("read-only", false, "Reject every write")

	for key, name := range map[string]string{
		"log.verbose":    "verbose",
		"log.file":       "log-file",
		"site.adapter":   "adapter",
		"site.path":      "path",
		"site.schema":    "schema",
		"site.read_only": "read-only",
	} {
		if err := settings.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

// configDirs lists where metabind.yaml is looked up: the site root, then the working directory.
func configDirs() []string {
	wd, err := os.Getwd()
	if err != nil {
		return nil
	}
	if root, err := metabind.FindSiteRoot(wd); err == nil && root != wd {
		return []string{root, wd}
	}
	return []string{wd}
}

// logWriter returns stderr, teed into a rotating file when one is configured.
func logWriter(c config.LogConfig) io.Writer {
	if c.File == "" {
		return os.Stderr
	}
	return io.MultiWriter(os.Stderr, &lumberjack.Logger{
		Filename:   c.File,
		MaxSize:    c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAgeDays,
	})
}

// openSite opens the configured site.
func openSite(extra ...metabind.Option) (*metabind.Site, error) {
	opts := append(cfg.Site.Options(slog.Default()), extra...)
	site, err := metabind.New(cfg.Site.Path, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open site: %w", err)
	}
	return site, nil
}
