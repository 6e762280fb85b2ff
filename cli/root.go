// Package cli provides the Cobra-based CLI for farmstock.
package cli

import (
	"bufio"
	"errors"
	"farmstock/domain"
	"farmstock/store"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	rootCmd = &cobra.Command{
		Use:           "farmstock",
		Short:         "Farm-supply catalog and kit stock tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// IMPORTANT: allow tests to inject store
			if productStore != nil {
				return nil
			}

			if env := viper.GetString("env-file"); env != "" {
				if err := godotenv.Load(env); err != nil && !errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("load env file: %w", err)
				}
			}

			if cfg := viper.GetString("config"); cfg != "" {
				viper.SetConfigFile(cfg)
				if err := viper.ReadInConfig(); err != nil {
					return err
				}
			}

			slog.SetDefault(slog.New(
				slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(viper.GetString("log-level"))}),
			))

			var err error
			productStore, err = store.NewStore(
				viper.GetString("store"),
				viper.GetString("store-file"),
			)
			return err
		},
	}

	productStore domain.ProductStore
)

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// resetFlags restores the local flags of cmd and its children to their
// defaults so a reused command tree (shell mode) does not carry values
// between runs. Persistent flags such as --store are left alone.
func resetFlags(cmd *cobra.Command) {
	cmd.LocalNonPersistentFlags().VisitAll(resetFlag)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func resetFlag(f *pflag.Flag) {
	// slice values append on Set once changed, so clear them explicitly
	if sv, ok := f.Value.(pflag.SliceValue); ok {
		_ = sv.Replace(nil)
	} else {
		_ = f.Value.Set(f.DefValue)
	}
	f.Changed = false
}

func init() {
	shellCmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive shell mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()
			for {
				fmt.Fprint(out, "farmstock> ")
				line, err := r.ReadString('\n')
				line = strings.TrimSpace(line)
				if line == "exit" || line == "quit" {
					return nil
				}
				if line != "" {
					resetFlags(rootCmd)
					rootCmd.SetArgs(strings.Fields(line))
					if err := rootCmd.Execute(); err != nil {
						fmt.Fprintln(cmd.ErrOrStderr(), err)
					}
					rootCmd.SetArgs(nil)
				}
				if err != nil {
					return nil
				}
			}
		},
	}
	rootCmd.AddCommand(shellCmd)

	rootCmd.PersistentFlags().String("store", "memory", "store backend: memory|file")
	rootCmd.PersistentFlags().String("store-file", "data/catalog.json", "file store path")
	rootCmd.PersistentFlags().String("config", "", "config file")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before config, ignored if missing")
	rootCmd.PersistentFlags().String("log-level", "info", "log level")

	for _, name := range []string{"store", "store-file", "config", "env-file", "log-level"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
	viper.SetEnvPrefix("FARMSTOCK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func Execute() error {
	return rootCmd.Execute()
}
