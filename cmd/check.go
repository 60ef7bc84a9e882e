package cmd

import (
	"fmt"

	"github.com/kr/pretty"
	"github.com/spf13/cobra"
)

var (
	dump bool

	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Check that the compose files can run on balena",
		Long:  `Check the compose files, without printing the normalized result`,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, _, err := run(cmd)
			if err != nil {
				return err
			}
			if dump {
				fmt.Fprintf(cmd.OutOrStdout(), "%# v\n", pretty.Formatter(res))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d services\n", len(res.Composition.Services))
			return nil
		},
	}
)

func init() {
	checkCmd.Flags().BoolVar(&dump, "dump", false, "print the normalized result")
	checkCmd.Flags().StringVar(&fromDocument, "from", "", "already parsed project document (JSON or YAML)")
}
