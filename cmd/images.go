package cmd

import (
	"github.com/spf13/cobra"
)

var (
	imagesCmd = &cobra.Command{
		Use:   "images",
		Short: "Print the image descriptors of every service",
		Long:  `Print, for every service, the image to pull or the build to run, together with the contract derived from its requirement labels`,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, output, err := run(cmd)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), output, res.Images)
		},
	}
)

func init() {
	imagesCmd.Flags().StringVar(&fromDocument, "from", "", "already parsed project document (JSON or YAML)")
}
