package cmd

import (
	"encoding/hex"
	"fmt"
	"io/ioutil"
	"os"
	"strconv"
	"strings"

	"dpigen/cli"
	"dpigen/dpi"
	"dpigen/schema"

	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <hex-payload>",
	Short: "Decodes a hex payload against an endpoint's field list and prints the summary line.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		schemaPath, _ := cmd.Flags().GetString(cli.FlagSchema)
		endpoint, _ := cmd.Flags().GetString(cli.FlagEndpoint)
		static, _ := cmd.Flags().GetBool(cli.FlagStatic)
		verbose, _ := cmd.Flags().GetBool(cli.FlagVerbose)

		s, err := schema.LoadFile(schemaPath)
		if err != nil {
			return err
		}
		fields, ok := s.Fields(endpoint)
		if !ok {
			return errors.Errorf("schema has no endpoint %s", endpoint)
		}

		payload, err := readPayload(cmd, args)
		if err != nil {
			return err
		}

		opts := dpi.Options{}
		if static {
			opts.Mode = dpi.ModeStatic
		}
		var rows [][]string
		if verbose {
			opts.Trace = func(name string, value dpi.ParsedValue, offset, length int) {
				rows = append(rows, []string{
					name,
					value.String(),
					strconv.Itoa(offset),
					strconv.Itoa(length),
				})
			}
		}

		res := dpi.NewDecoder(fields, opts).Decode(payload)
		fmt.Println(res.Summary())
		if verbose {
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Field", "Value", "Offset", "Length"})
			table.AppendBulk(rows)
			table.Render()
		}
		return nil
	},
}

func readPayload(cmd *cobra.Command, args []string) ([]byte, error) {
	var hexStr string
	if len(args) == 1 {
		hexStr = args[0]
	} else {
		if isatty.IsTerminal(os.Stdin.Fd()) {
			return nil, errors.New("provide a hex payload as an argument or via stdin")
		}
		raw, err := ioutil.ReadAll(os.Stdin)
		if err != nil {
			return nil, errors.Wrap(err, "error reading payload from stdin")
		}
		hexStr = string(raw)
	}
	hexStr = strings.Join(strings.Fields(hexStr), "")
	payload, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil, errors.Wrap(err, "error decoding hex payload")
	}
	return payload, nil
}

func init() {
	decodeCmd.Flags().String(cli.FlagSchema, "", "Path to the DPI schema file.")
	decodeCmd.Flags().String(cli.FlagEndpoint, "", "Endpoint whose field list governs the decode.")
	decodeCmd.Flags().Bool(cli.FlagStatic, false, "Decode structure only, skipping DPI validation.")
	decodeCmd.Flags().Bool(cli.FlagVerbose, false, "Print a per-field diagnostic table after the summary.")
	decodeCmd.MarkFlagRequired(cli.FlagSchema)
	decodeCmd.MarkFlagRequired(cli.FlagEndpoint)
	rootCmd.AddCommand(decodeCmd)
}
