package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"crate/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to set paths.library_roots before scanning.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, cfg)
			}

			out := cmd.OutOrStdout()
			for _, root := range cfg.Paths.LibraryRoots {
				fmt.Fprintf(out, "library root:         %s\n", root)
			}
			fmt.Fprintf(out, "database dir:         %s\n", cfg.Paths.DatabaseDir)
			fmt.Fprintf(out, "log dir:              %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "lock dir:             %s\n", cfg.Paths.LockDir)
			fmt.Fprintf(out, "scan workers:         %d\n", cfg.Scan.Workers)
			fmt.Fprintf(out, "max deleted fraction: %.2f\n", cfg.Scan.MaxDeletedFraction)
			fmt.Fprintf(out, "missing grace hours:  %d\n", cfg.Scan.MissingGraceHours)
			fmt.Fprintf(out, "watch debounce ms:    %d\n", cfg.Scan.WatchDebounceMS)
			fmt.Fprintf(out, "analysis queue size:  %d\n", cfg.Analysis.QueueSize)
			fmt.Fprintf(out, "log format:           %s\n", cfg.Logging.Format)
			fmt.Fprintf(out, "log level:            %s\n", cfg.Logging.Level)
			return nil
		},
	}
}
