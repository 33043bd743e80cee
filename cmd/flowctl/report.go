package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"buestanflow/internal/cli"
	"buestanflow/internal/core"
	"buestanflow/internal/services"
)

// reportFlags are the summary options every report command accepts.
type reportFlags struct {
	period string
	order  string
	kind   string
}

func (f *reportFlags) register(cmd *cobra.Command, withOrder, withKind bool) {
	cmd.Flags().StringVarP(&f.period, "period", "p", "", "reporting month as YYYY-MM (default: current month)")
	if withOrder {
		cmd.Flags().StringVar(&f.order, "order", string(services.OrderSource), "alert order: source or severity")
	}
	if withKind {
		cmd.Flags().StringVar(&f.kind, "kind", string(services.SelectAll), "transactions to list: all, income or expense")
	}
}

// build loads the period from the configured backend and derives its
// summary.
func (a *app) build(ctx context.Context, f reportFlags) (core.Summary, error) {
	period, err := a.periodFlag(f.period)
	if err != nil {
		return core.Summary{}, err
	}
	opts := services.SummaryOptions{Selector: services.SelectAll, AlertOrder: services.OrderSource}
	if f.order != "" {
		if opts.AlertOrder, err = services.ParseAlertOrder(f.order); err != nil {
			return core.Summary{}, err
		}
	}
	if f.kind != "" {
		if opts.Selector, err = services.ParseSelector(f.kind); err != nil {
			return core.Summary{}, err
		}
	}

	be, err := cli.OpenBackend(ctx, a.logger, a.cfg)
	if err != nil {
		return core.Summary{}, err
	}
	defer be.Close()

	return services.NewSummaryService(be.Store, a.logger).Build(ctx, period, opts)
}

func newSummaryCmd(a *app) *cobra.Command {
	var f reportFlags
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print every widget of a month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sum, err := a.build(cmd.Context(), f)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Period %s\n\n", sum.Period)
			for _, w := range core.Widgets {
				if err := sum.Err(w); err != nil {
					fmt.Fprintf(out, "[%s] unavailable: %v\n\n", w, err)
					continue
				}
				fmt.Fprintf(out, "[%s]\n", w)
				switch w {
				case core.WidgetMetrics:
					printMetrics(out, sum.Metrics)
				case core.WidgetAlerts:
					printAlerts(out, sum.Alerts)
				case core.WidgetProducts:
					printProducts(out, sum.Products)
				case core.WidgetTransactions:
					printTransactions(out, sum.Transactions)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	f.register(cmd, true, true)
	return cmd
}

func newAlertsCmd(a *app) *cobra.Command {
	var (
		f           reportFlags
		minSeverity string
	)
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List the alerts derived from a month's obligations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var floor core.Severity
			if minSeverity != "" {
				var err error
				if floor, err = core.ParseSeverity(minSeverity); err != nil {
					return err
				}
			}
			sum, err := a.build(cmd.Context(), f)
			if err != nil {
				return err
			}
			if err := sum.Err(core.WidgetAlerts); err != nil {
				return err
			}
			alerts := sum.Alerts
			if floor != "" {
				alerts = services.AlertsAtLeast(alerts, floor)
			}
			printAlerts(cmd.OutOrStdout(), alerts)
			return nil
		},
	}
	f.register(cmd, true, false)
	cmd.Flags().StringVar(&minSeverity, "min-severity", "", "hide alerts below this severity")
	return cmd
}

func newProductsCmd(a *app) *cobra.Command {
	var f reportFlags
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Rank a month's product lines by profit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sum, err := a.build(cmd.Context(), f)
			if err != nil {
				return err
			}
			if err := sum.Err(core.WidgetProducts); err != nil {
				return err
			}
			printProducts(cmd.OutOrStdout(), sum.Products)
			return nil
		},
	}
	f.register(cmd, false, false)
	return cmd
}

func newTransactionsCmd(a *app) *cobra.Command {
	var f reportFlags
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "List a month's transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sum, err := a.build(cmd.Context(), f)
			if err != nil {
				return err
			}
			if err := sum.Err(core.WidgetTransactions); err != nil {
				return err
			}
			printTransactions(cmd.OutOrStdout(), sum.Transactions)
			return nil
		},
	}
	f.register(cmd, false, true)
	return cmd
}

func money(m core.Money) string { return m.Decimal().StringFixed(2) }

func percent(d *decimal.Decimal) string {
	if d == nil {
		return "n/a"
	}
	return d.String() + "%"
}

func printMetrics(out io.Writer, m core.MetricsSnapshot) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "METRIC\tAMOUNT\tCHANGE")
	fmt.Fprintf(tw, "income\t%s\t%s\n", money(m.TotalIncome), percent(m.Deltas.Income))
	fmt.Fprintf(tw, "expenses\t%s\t%s\n", money(m.TotalExpenses), percent(m.Deltas.Expenses))
	fmt.Fprintf(tw, "net profit\t%s\t%s\n", money(m.NetProfit), percent(m.Deltas.NetProfit))
	fmt.Fprintf(tw, "cash flow\t%s\t%s\n", money(m.CashFlow), percent(m.Deltas.CashFlow))
	tw.Flush()
}

func printAlerts(out io.Writer, alerts []core.Alert) {
	if len(alerts) == 0 {
		fmt.Fprintln(out, "no alerts")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEVERITY\tTYPE\tTITLE\tAMOUNT")
	for _, al := range alerts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", al.Severity, al.Type, al.Title, money(al.Amount))
	}
	tw.Flush()
}

func printProducts(out io.Writer, products []core.RankedProduct) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tPRODUCT\tPROFIT\tMARGIN")
	for _, p := range products {
		name := p.Name
		if !p.Profitable {
			name += " (loss)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s%%\n", p.Rank, name, money(p.Profit), p.Margin.String())
	}
	tw.Flush()
}

func printTransactions(out io.Writer, txs []core.Transaction) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tKIND\tDESCRIPTION\tCATEGORY\tAMOUNT")
	for _, t := range txs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.Date, t.Kind, t.Description, t.Category, money(t.Amount))
	}
	tw.Flush()
}
