package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newVerbsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verbs",
		Short: "List registered verbs in dispatch order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, cleanup, err := root.engine(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			infos := eng.Registry.List()
			if root.jsonOut {
				return writeJSON(cmd.OutOrStdout(), infos)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "VERB\tKIND\tCATEGORY\tFORMAT\tDESCRIPTION")
			for _, info := range infos {
				name := string(info.Stage) + "." + info.Name
				if info.Fallback {
					name += " (fallback)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					name, info.Kind, dash(string(info.Category)), dash(info.Format), info.Description)
			}
			return tw.Flush()
		},
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
