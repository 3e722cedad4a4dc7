package cmd

import (
	"context"

	"dpigen/cli"
	"dpigen/config"
	"dpigen/log"
	"dpigen/luagen"
	"dpigen/schema"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var genCmd = &cobra.Command{
	Use:   "gen",
	Short: "Generates Wireshark Lua dissectors from the DPI schema.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.ReadConfigFile(configuredHomeDir)
		if err != nil {
			return errors.Wrap(err, "error reading config file")
		}
		logLevel, err := log.NewLevel(cfg.LogLevel)
		if err != nil {
			return errors.Wrap(err, "error parsing log level")
		}
		log.SetLevel(logLevel)
		lgr := log.WithModule("gen")

		schemaPath := cfg.Generator.SchemaPath
		if flagPath, _ := cmd.Flags().GetString(cli.FlagSchema); flagPath != "" {
			schemaPath = flagPath
		}
		outDir := config.ExpandDissectorsPath(configuredHomeDir, cfg.Generator.OutputDir)
		if flagOut, _ := cmd.Flags().GetString(cli.FlagOut); flagOut != "" {
			outDir = flagOut
		}
		udpPort := cfg.Generator.UDPPort
		if cmd.Flags().Changed(cli.FlagUDPPort) {
			udpPort, _ = cmd.Flags().GetInt(cli.FlagUDPPort)
		}
		verbose := cfg.Generator.Verbose
		if cmd.Flags().Changed(cli.FlagVerbose) {
			verbose, _ = cmd.Flags().GetBool(cli.FlagVerbose)
		}

		lgr.Info("loading schema", "path", schemaPath)
		s, err := schema.LoadFile(schemaPath)
		if err != nil {
			return err
		}
		lgr.Info("loaded schema", "protocol", s.Protocol, "endpoints", len(s.Endpoints()))

		gen := luagen.NewGenerator(s, luagen.Options{
			OutputDir: outDir,
			UDPPort:   udpPort,
			Verbose:   verbose,
		})
		if err := gen.Generate(context.Background()); err != nil {
			return errors.Wrap(err, "error generating dissectors")
		}
		return nil
	},
}

func init() {
	genCmd.Flags().String(cli.FlagSchema, "", "Path to the DPI schema file. Overrides the config file.")
	genCmd.Flags().String(cli.FlagOut, "", "Directory to write dissectors to. Overrides the config file.")
	genCmd.Flags().Int(cli.FlagUDPPort, 0, "UDP port to register dissectors against. Overrides the config file.")
	genCmd.Flags().Bool(cli.FlagVerbose, false, "Emit per-field debug printing in generated dissectors.")
	rootCmd.AddCommand(genCmd)
}
