package cmd

import (
	"dpigen/cli"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initializes the home directory with a default config file.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := cli.InitHomeDir(cmd); err != nil {
			return errors.Wrap(err, "error initializing home directory")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
