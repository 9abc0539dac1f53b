package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/iexgate/internal/common"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			common.LoadVersionFromFile()
			fmt.Fprintf(cmd.OutOrStdout(), "iexgate %s\n", common.GetFullVersion())
		},
	}
}
