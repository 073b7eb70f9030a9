package main

import (
	"fmt"

	"github.com/hyperengineering/driverlib/internal/types"
	"github.com/spf13/cobra"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Inspect the driver template catalog",
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List driver templates",
	Args:  cobra.NoArgs,
	RunE:  runTemplatesList,
}

func init() {
	templatesCmd.AddCommand(templatesListCmd)
}

func runTemplatesList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openCommandApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	templates, err := a.store.ListTemplates(ctx)
	if err != nil {
		return fmt.Errorf("list templates: %w", err)
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), types.NewListResponse(templates))
	}

	w := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintln(w, "ID\tTYPE\tNAME\tINPUTS")
	for _, t := range templates {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", t.ID, t.Type, t.Name, len(t.InputSchema))
	}
	return w.Flush()
}
