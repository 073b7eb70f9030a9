package main

import (
	"fmt"
	"sort"

	"github.com/hyperengineering/driverlib/internal/driver"
	"github.com/hyperengineering/driverlib/internal/instance"
	"github.com/hyperengineering/driverlib/internal/types"
	"github.com/hyperengineering/driverlib/internal/validation"
	"github.com/spf13/cobra"
)

var (
	calcInputs []string
	calcMonth  int
)

var calcCmd = &cobra.Command{
	Use:   "calc <driver-type>",
	Short: "Calculate one period for a driver type",
	Long: "Run a single stateless calculation. Inputs not given take the built-in " +
		"template defaults and are validated against its schema. Nothing is stored.",
	Args: cobra.ExactArgs(1),
	RunE: runCalc,
}

func init() {
	calcCmd.Flags().StringArrayVar(&calcInputs, "input", nil,
		"Input as name=value; repeatable. Lists are comma-separated")
	calcCmd.Flags().IntVar(&calcMonth, "month", 0,
		"Month offset from the start of the projection")
}

func runCalc(cmd *cobra.Command, args []string) error {
	dt := types.DriverType(args[0])
	if !driver.Known(dt) {
		return fmt.Errorf("%q: %w", dt, driver.ErrUnknownDriverType)
	}
	if calcMonth < 0 {
		return fmt.Errorf("--month must not be negative")
	}

	inputs, err := parseInputs(calcInputs)
	if err != nil {
		return err
	}
	if tmpl := defaultTemplate(dt); tmpl != nil {
		inputs = instance.WithDefaults(tmpl.InputSchema, inputs)
		var c validation.Collector
		for _, e := range validation.ValidateInputs(tmpl.InputSchema, inputs) {
			c.Add(&e)
		}
		if err := c.Err(); err != nil {
			return err
		}
	}

	result, err := driver.Calculate(dt, inputs, calcMonth)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, result)
	}

	fmt.Fprintf(out, "Driver:    %s (month %d)\n", dt, calcMonth)
	fmt.Fprintf(out, "Revenue:   %s\n", formatNumber(result.Revenue))
	if result.Customers != nil {
		fmt.Fprintf(out, "Customers: %s\n", formatNumber(*result.Customers))
	}
	if result.Units != nil {
		fmt.Fprintf(out, "Units:     %s\n", formatNumber(*result.Units))
	}

	keys := make([]string, 0, len(result.Breakdown))
	for k := range result.Breakdown {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w := newTabWriter(out)
	fmt.Fprintln(w, "\nBREAKDOWN\tVALUE")
	for _, k := range keys {
		fmt.Fprintf(w, "%s\t%s\n", k, formatNumber(result.Breakdown[k]))
	}
	return w.Flush()
}

func defaultTemplate(dt types.DriverType) *types.DriverTemplate {
	for _, t := range driver.DefaultTemplates() {
		if t.Type == dt {
			return &t
		}
	}
	return nil
}
