package main

import (
	"text/tabwriter"

	"github.com/centavo-app/centavo/internal/currency"
	"github.com/centavo-app/centavo/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func listCmd() *cobra.Command {
	var displayCurrency string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the ledger, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			svc, err := initServices(ctx)
			if err != nil {
				return err
			}
			defer svc.close()

			if err := svc.requireSession(ctx); err != nil {
				return err
			}
			if err := svc.ledger.Refresh(ctx); err != nil {
				return svc.describeErr(ctx, err)
			}

			if displayCurrency == "" {
				displayCurrency = viper.GetString("display.currency")
			}

			transactions := svc.ledger.Transactions()
			if len(transactions) == 0 {
				cmd.Println("No transactions yet.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			_, _ = w.Write([]byte("DATE\tKIND\tTITLE\tCLASSIFICATION\tAMOUNT\tID\n"))
			var incomeTotal, expenseTotal float64
			for _, tx := range transactions {
				amount := svc.currency.Convert(ctx, tx.Amount, currency.BaseCurrency, displayCurrency)

				// The formatter renders the absolute value; the sign is
				// composed here.
				sign := ""
				if tx.Kind == model.KindExpense {
					sign = "-"
					expenseTotal += amount
				} else {
					incomeTotal += amount
				}

				_, _ = w.Write([]byte(
					tx.OccurredOn.String() + "\t" +
						string(tx.Kind) + "\t" +
						tx.Title + "\t" +
						tx.Classification + "\t" +
						sign + svc.currency.Format(amount, displayCurrency) + "\t" +
						tx.ID + "\n"))
			}

			balance := incomeTotal - expenseTotal
			sign := ""
			if balance < 0 {
				sign = "-"
			}
			_, _ = w.Write([]byte("\tbalance\t\t\t" + sign + svc.currency.Format(balance, displayCurrency) + "\t\n"))
			return nil
		},
	}

	cmd.Flags().StringVar(&displayCurrency, "currency", "", "currency to display amounts in (default from config)")
	return cmd
}
