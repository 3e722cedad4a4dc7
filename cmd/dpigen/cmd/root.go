package cmd

import (
	"fmt"
	"os"

	"dpigen/cli"
	"dpigen/config"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var configuredHomeDir string

var rootCmd = &cobra.Command{
	Use:   "dpigen",
	Short: "Generates and exercises DPI-validating Wireshark dissectors.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch cmd.CalledAs() {
		// decode takes an explicit schema path and never touches the
		// home directory
		case "init", "version", "decode":
			return nil
		}
		configuredHomeDir = cli.GetHomeDir(cmd)
		if err := config.EnsureHomeDir(configuredHomeDir); err != nil {
			return errors.Wrap(err, "error ensuring home directory")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String(cli.FlagHome, "~/.dpigen", "Home directory for dpigen's config and generated dissectors.")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
