package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

type filterEntry struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

func newFiltersCommand() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "filters",
		Short: "List the registered filters",
		Long:  "List the filters templates can call, with the kind of each: value, string or variadic.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			infos := engineFromContext(cmd.Context()).Filters().ListFilters()

			entries := make([]filterEntry, len(infos))
			for i, info := range infos {
				entries[i] = filterEntry{Name: info.Name, Kind: info.KindName()}
			}

			if jsonOutput {
				data, err := json.MarshalIndent(entries, "", "  ")
				if err != nil {
					return fmt.Errorf("marshaling filters: %w", err)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}

			for _, e := range entries {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%-24s %s\n", e.Name, e.Kind); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output the filters as JSON")

	return cmd
}
