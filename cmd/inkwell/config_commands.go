package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"inkwell/internal/config"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "config",
		Short:       "Manage inkwell configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}
	cmd.AddCommand(newConfigInitCommand())
	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigValidateCommand())
	return cmd
}

func newConfigShowCommand() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, resolvedPath, _, err := config.Load(path)
			if err != nil {
				return err
			}
			if resolvedPath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", resolvedPath)
			}
			return writeJSON(cmd, cfg)
		},
	}

	cmd.Flags().StringVarP(&path, "path", "p", "", "Config file to show (default: the standard config path)")
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		path      string
		overwrite bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(path)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				target = defaultPath
			}
			expanded, err := config.ExpandPath(target)
			if err != nil {
				return err
			}

			if _, err := os.Stat(expanded); err == nil && !overwrite {
				return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", expanded)
			}

			if err := config.CreateSample(expanded); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", expanded)
			fmt.Fprintln(out, "Edit the storage and engine sections, then run 'inkwell start'.")
			fmt.Fprintln(out, "Secrets can also come from the environment: INKWELL_API_TOKEN, INKWELL_S3_ACCESS_KEY, INKWELL_S3_SECRET_KEY.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "path", "p", "", "Where to write the config (default: the standard config path)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing config file")
	return cmd
}

func newConfigValidateCommand() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check that the configuration loads and validates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			cfg, resolvedPath, exists, err := config.Load(path)
			if resolvedPath != "" {
				fmt.Fprintln(out, renderStatusLine(colorize, statusInfo, "Config path", resolvedPath))
			}
			fmt.Fprintln(out, renderStatusLine(colorize, statusInfo, "File exists", yesNo(exists)))
			if err != nil {
				fmt.Fprintln(out, renderStatusLine(colorize, statusError, "Valid", err.Error()))
				return fmt.Errorf("configuration invalid")
			}

			fmt.Fprintln(out, renderStatusLine(colorize, statusOK, "Valid", "configuration loads"))
			fmt.Fprintln(out, renderStatusLine(colorize, statusInfo, "Data directory", cfg.Paths.DataDir))
			fmt.Fprintln(out, renderStatusLine(colorize, statusInfo, "Log directory", cfg.Paths.LogDir))
			fmt.Fprintln(out, renderStatusLine(colorize, statusInfo, "API bind", cfg.Paths.APIBind))
			fmt.Fprintln(out, renderStatusLine(colorize, statusInfo, "Storage bucket", cfg.Storage.Bucket))
			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "path", "p", "", "Config file to validate (default: the standard config path)")
	return cmd
}
