package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPromptsCmd(e *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "prompts",
		Short: "List the prompt templates in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := e.loadCatalog()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, t := range catalog.Templates() {
				if t.Description == "" {
					fmt.Fprintln(w, t.ID)
					continue
				}
				fmt.Fprintf(w, "%-12s %s\n", t.ID, t.Description)
			}
			return nil
		},
	}
}
