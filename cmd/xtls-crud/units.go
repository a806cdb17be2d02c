package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/amiwrpremium/xtls-crud/internal/units"
)

func init() {
	unitsCmd := &cobra.Command{
		Use:   "units",
		Short: "Inspect size and time units",
		// 纯计算命令，不读取配置。
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	}

	var parseKind string
	parseCmd := &cobra.Command{
		Use:   "parse <value>...",
		Short: "Parse values like 100GB or 2 weeks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parse, err := parserFor(parseKind)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "Input\tCanonical\tMagnitude\tHuman")
			for _, arg := range args {
				q, err := parse(arg)
				if err != nil {
					w.Flush()
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", arg, q, q.Magnitude(), q.Human())
			}
			return w.Flush()
		},
	}
	parseCmd.Flags().StringVarP(&parseKind, "kind", "k", "size", "size or time")
	unitsCmd.AddCommand(parseCmd)

	unitsCmd.AddCommand(&cobra.Command{
		Use:       "list [size|time]",
		Short:     "Print a unit registry",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"size", "time"},
		RunE: func(cmd *cobra.Command, args []string) error {
			regs := []*units.Registry{units.Sizes, units.Times}
			if len(args) == 1 && args[0] == "time" {
				regs = regs[1:]
			} else if len(args) == 1 {
				regs = regs[:1]
			}
			return printRegistries(cmd.OutOrStdout(), regs...)
		},
	})

	rootCmd.AddCommand(unitsCmd)
}

func parserFor(kind string) (func(string) (units.Quantity, error), error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "size":
		return units.ParseSize, nil
	case "time", "duration":
		return units.ParseDuration, nil
	default:
		return nil, fmt.Errorf("unknown unit kind %q", kind)
	}
}

func printRegistries(out io.Writer, regs ...*units.Registry) error {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "Kind\tName\tSymbol\tMagnitude")
	for _, reg := range regs {
		for _, q := range reg.Units() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", reg.Kind(), q.Name(), q.Symbol(), q.Magnitude())
		}
	}
	return w.Flush()
}
