package main

import (
	"context"
	"fmt"
	"os"

	designaudit "github.com/hellenic-development/design-audit"
	"github.com/hellenic-development/design-audit/config"
	"github.com/hellenic-development/design-audit/pkg/cache"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	envFiles  []string
	verbose   bool
	maxFrames int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "design-audit",
		Short: "Audit UI designs against usability heuristics",
		Long: `Export frames from Figma files and audit screens with a vision model
against usability, accessibility and visual design heuristics.

Configuration is read from the environment and from .env files.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "Env files to load (default .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log progress")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("design-audit version %s\n", designaudit.Version)
		},
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newFramesCmd(),
		newAuditCmd(),
		newAuditFramesCmd(),
		newPersonasCmd(),
		versionCmd,
	)

	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newService loads configuration and wires a Service. The export cache is
// nil when REDIS_ADDR is unset or Redis cannot be reached; callers close it.
func newService(ctx context.Context, logger designaudit.Logger) (*designaudit.Service, *config.Config, *cache.ExportCache, error) {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, nil, nil, err
	}

	opts, err := designaudit.OptionsFromConfig(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	opts.Logger = logger
	if maxFrames > 0 {
		opts.MaxFrames = maxFrames
	}

	var exportCache *cache.ExportCache
	if cfg.Cache.Enabled() {
		exportCache, err = cache.Dial(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword,
			cache.WithTTL(cfg.Cache.TTL), cache.WithLogger(logger))
		if err != nil {
			printWarning(fmt.Sprintf("Redis at %s unavailable, continuing without cache: %v", cfg.Cache.RedisAddr, err))
			exportCache = nil
		} else {
			opts.Cache = exportCache
		}
	}

	svc, err := designaudit.New(opts)
	if err != nil {
		if exportCache != nil {
			exportCache.Close()
		}
		return nil, nil, nil, err
	}
	return svc, cfg, exportCache, nil
}

func closeCache(c *cache.ExportCache) {
	if c != nil {
		c.Close()
	}
}

// progressLogger returns the CLI logger when --verbose is set.
func progressLogger() designaudit.Logger {
	if verbose {
		return &cliLogger{}
	}
	return nil
}

func writeOutput(path, content string) error {
	green := color.New(color.FgGreen)
	green.Printf("\n💾 Writing to %s... ", path)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		color.New(color.FgRed).Println("✗")
		return err
	}
	green.Println("✓")
	return nil
}

func printHeader(title string) {
	cyan := color.New(color.FgCyan, color.Bold)
	fmt.Println()
	cyan.Println(title)
	cyan.Println("==========================")
	fmt.Println()
}

func printSuccess(msg string) {
	color.New(color.FgGreen).Printf("✓ %s\n", msg)
}

func printWarning(msg string) {
	color.New(color.FgYellow).Printf("⚠ %s\n", msg)
}
