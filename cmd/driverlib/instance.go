package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/hyperengineering/driverlib/internal/store"
	"github.com/hyperengineering/driverlib/internal/types"
	"github.com/spf13/cobra"
)

var (
	instTemplate        string
	instName            string
	instInputs          []string
	instStart           string
	instEnd             string
	instPeriod          string
	instForecastVersion string
	instDeleteForce     bool
)

var instanceCmd = &cobra.Command{
	Use:   "instance",
	Short: "Manage driver instances",
	Long:  "Create, list, inspect, and delete driver instances without running the server.",
}

var instanceCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a driver instance",
	Args:  cobra.NoArgs,
	RunE:  runInstanceCreate,
}

var instanceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List driver instances, newest first",
	Args:  cobra.NoArgs,
	RunE:  runInstanceList,
}

var instanceShowCmd = &cobra.Command{
	Use:   "show <instance-id>",
	Short: "Show one driver instance",
	Args:  cobra.ExactArgs(1),
	RunE:  runInstanceShow,
}

var instanceDeleteCmd = &cobra.Command{
	Use:   "delete <instance-id>",
	Short: "Delete an instance with its results and dependencies",
	Long:  "Permanently delete an instance, its results, and every dependency touching it. Requires --force or interactive confirmation.",
	Args:  cobra.ExactArgs(1),
	RunE:  runInstanceDelete,
}

func init() {
	f := instanceCreateCmd.Flags()
	f.StringVar(&instTemplate, "template", "", "Template ID or driver type (required)")
	f.StringVar(&instName, "name", "", "Instance name (required)")
	f.StringArrayVar(&instInputs, "input", nil, "Input as name=value; repeatable")
	f.StringVar(&instStart, "start", "", "Period start, YYYY-MM-DD (required)")
	f.StringVar(&instEnd, "end", "", "Period end, YYYY-MM-DD (required)")
	f.StringVar(&instPeriod, "period", string(types.PeriodMonth), "Period type: month or quarter")
	f.StringVar(&instForecastVersion, "forecast-version", "", "Forecast version to scope the instance to")
	instanceCreateCmd.MarkFlagRequired("template")
	instanceCreateCmd.MarkFlagRequired("name")

	instanceListCmd.Flags().StringVar(&instForecastVersion, "forecast-version", "",
		"Only list instances of this forecast version")

	instanceDeleteCmd.Flags().BoolVar(&instDeleteForce, "force", false,
		"Skip confirmation prompt")

	instanceCmd.AddCommand(instanceCreateCmd)
	instanceCmd.AddCommand(instanceListCmd)
	instanceCmd.AddCommand(instanceShowCmd)
	instanceCmd.AddCommand(instanceDeleteCmd)
}

func runInstanceCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	inputs, err := parseInputs(instInputs)
	if err != nil {
		return err
	}

	a, err := openCommandApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	templateID, err := resolveTemplateID(ctx, a.store, instTemplate)
	if err != nil {
		return err
	}

	req := types.NewDriverInstance{
		TemplateID: templateID,
		Name:       instName,
		Inputs:     inputs,
		Configuration: types.Configuration{
			PeriodStart: instStart,
			PeriodEnd:   instEnd,
			PeriodType:  types.PeriodType(instPeriod),
		},
	}
	if instForecastVersion != "" {
		req.ForecastVersionID = &instForecastVersion
	}

	inst, err := a.instances.Create(ctx, req)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), inst)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created instance %s (%s, %s)\n", inst.ID, inst.Name, inst.Template.Type)
	return nil
}

// resolveTemplateID accepts either a template ID or a driver type name.
func resolveTemplateID(ctx context.Context, s *store.SQLiteStore, ref string) (string, error) {
	tmpl, err := s.GetTemplateByType(ctx, types.DriverType(ref))
	if err == nil {
		return tmpl.ID, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", err
	}
	return ref, nil
}

func runInstanceList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openCommandApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	instances, err := a.instances.List(ctx, instForecastVersion)
	if err != nil {
		return fmt.Errorf("list instances: %w", err)
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), types.NewListResponse(instances))
	}

	if len(instances) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No instances found.")
		return nil
	}

	w := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintln(w, "ID\tTYPE\tNAME\tWINDOW\tUPDATED")
	for _, inst := range instances {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s..%s (%s)\t%s\n",
			inst.ID,
			templateType(inst),
			inst.Name,
			inst.Configuration.PeriodStart,
			inst.Configuration.PeriodEnd,
			inst.Configuration.PeriodType,
			humanize.Time(inst.UpdatedAt),
		)
	}
	return w.Flush()
}

func runInstanceShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openCommandApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	inst, err := a.instances.Get(ctx, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, inst)
	}

	fmt.Fprintf(out, "Instance:  %s\n", inst.ID)
	fmt.Fprintf(out, "Name:      %s\n", inst.Name)
	fmt.Fprintf(out, "Type:      %s\n", templateType(*inst))
	if inst.ForecastVersionID != nil {
		fmt.Fprintf(out, "Forecast:  %s\n", *inst.ForecastVersionID)
	}
	fmt.Fprintf(out, "Window:    %s..%s (%s)\n",
		inst.Configuration.PeriodStart, inst.Configuration.PeriodEnd, inst.Configuration.PeriodType)
	fmt.Fprintf(out, "Created:   %s\n", inst.CreatedAt.Format("2006-01-02 15:04:05 MST"))

	names := make([]string, 0, len(inst.Inputs))
	for k := range inst.Inputs {
		names = append(names, k)
	}
	sort.Strings(names)

	w := newTabWriter(out)
	fmt.Fprintln(w, "\nINPUT\tVALUE")
	for _, k := range names {
		fmt.Fprintf(w, "%s\t%s\n", k, formatInput(inst.Inputs, k))
	}
	return w.Flush()
}

func formatInput(in types.Inputs, name string) string {
	if v, ok := in.Number(name); ok {
		return formatNumber(v)
	}
	if vs, ok := in.Numbers(name); ok {
		parts := make([]string, len(vs))
		for i, v := range vs {
			parts[i] = formatNumber(v)
		}
		return strings.Join(parts, ", ")
	}
	return fmt.Sprint(in[name])
}

func templateType(inst types.DriverInstance) types.DriverType {
	if inst.Template == nil {
		return "-"
	}
	return inst.Template.Type
}

func runInstanceDelete(cmd *cobra.Command, args []string) error {
	id := args[0]
	ctx := cmd.Context()

	a, err := openCommandApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	// Interactive confirmation unless --force
	if !instDeleteForce {
		errOut := cmd.ErrOrStderr()
		fmt.Fprintf(errOut, "WARNING: This will permanently delete instance %q with its results and dependencies.\n", id)
		fmt.Fprint(errOut, "Type the instance ID to confirm: ")

		input, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		if strings.TrimSpace(input) != id {
			fmt.Fprintln(errOut, "Aborted. Instance ID did not match.")
			return nil
		}
	}

	if err := a.instances.Delete(ctx, id); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"id":      id,
			"deleted": true,
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted instance %q\n", id)
	return nil
}
