package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"autounpack/internal/builtin"
	"autounpack/internal/logging"
)

func newPluginsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List the steps a flow can use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := builtin.NewRegistry(logging.NewNop())
			defs := reg.Definitions()
			rows := make([][]string, 0, len(defs))
			for _, def := range defs {
				rows = append(rows, []string{def.Name, string(def.Shape), def.Description})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Name", "Context", "Description"}, rows, nil))
			return nil
		},
	}
}
