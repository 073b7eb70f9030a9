package main

import (
	"fmt"

	"github.com/hyperengineering/driverlib/internal/types"
	"github.com/spf13/cobra"
)

var linkMappings []string

var linkCmd = &cobra.Command{
	Use:   "link <parent-id> <child-id>",
	Short: "Feed a parent's outputs into a child's inputs",
	Long: "Create a dependency edge. Each --map names a parent output and the " +
		"child input it replaces when the child is generated, e.g. --map customers=starting_customers.",
	Args: cobra.ExactArgs(2),
	RunE: runLink,
}

var unlinkCmd = &cobra.Command{
	Use:   "unlink <dependency-id>",
	Short: "Remove a dependency edge",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnlink,
}

func init() {
	linkCmd.Flags().StringArrayVar(&linkMappings, "map", nil,
		"Mapping as output=input; repeatable")
	linkCmd.MarkFlagRequired("map")
}

func runLink(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	mapping, err := parseMapping(linkMappings)
	if err != nil {
		return err
	}

	a, err := openCommandApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	dep, err := a.graph.Link(ctx, types.NewDriverDependency{
		ParentInstanceID: args[0],
		ChildInstanceID:  args[1],
		Mapping:          mapping,
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), dep)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Linked %s -> %s (dependency %s)\n",
		dep.ParentInstanceID, dep.ChildInstanceID, dep.ID)
	return nil
}

func runUnlink(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openCommandApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.graph.Unlink(ctx, args[0]); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"id":      args[0],
			"deleted": true,
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed dependency %q\n", args[0])
	return nil
}
