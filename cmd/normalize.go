package cmd

import (
	"github.com/sithukyaw666/balena-compose/operations"
	"github.com/sithukyaw666/balena-compose/operations/controller"
	"github.com/spf13/cobra"
)

var (
	fromDocument string

	normalizeCmd = &cobra.Command{
		Use:   "normalize",
		Short: "Print the normalized composition",
		Long: `Parse the compose files given with -f and print the composition balena
accepts. With --from, an already parsed project document is normalized instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, output, err := run(cmd)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), output, res.Composition)
		},
	}
)

func init() {
	normalizeCmd.Flags().StringVar(&fromDocument, "from", "", "already parsed project document (JSON or YAML)")
}

// run loads and normalizes the project selected by the command line.
func run(cmd *cobra.Command) (*operations.Result, string, error) {
	config, logger, err := setup()
	if err != nil {
		return nil, "", err
	}
	if fromDocument == "" {
		res, err := operations.Process(cmd.Context(), config, composeFiles, logger)
		return res, config.Output, err
	}

	raw, err := controller.ParseComposition(fromDocument)
	if err != nil {
		return nil, "", err
	}
	primary := fromDocument
	if len(composeFiles) > 0 {
		primary = composeFiles[0]
	}
	res, err := operations.Normalize(raw, primary, logger)
	return res, config.Output, err
}
