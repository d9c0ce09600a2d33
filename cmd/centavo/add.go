package main

import (
	"time"

	"github.com/centavo-app/centavo/internal/common"
	"github.com/centavo-app/centavo/internal/model"
	"github.com/spf13/cobra"
)

func addCmd() *cobra.Command {
	var (
		kind      string
		title     string
		amount    float64
		date      string
		category  string
		source    string
		notes     string
		recurring bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a new income or expense",
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

			occurredOn := model.DateOf(time.Now())
			if date != "" {
				occurredOn, err = model.ParseDate(date)
				if err != nil {
					return common.NewValidationError("date", "must be yyyy-mm-dd")
				}
			}

			tx := model.Transaction{
				Title:       title,
				Amount:      amount,
				Kind:        model.TransactionKind(kind),
				OccurredOn:  occurredOn,
				IsRecurring: recurring,
			}
			switch tx.Kind {
			case model.KindExpense:
				tx.Classification = category
				tx.Notes = notes
			case model.KindIncome:
				tx.Classification = source
			}

			if err := svc.ledger.Create(ctx, tx); err != nil {
				return svc.describeErr(ctx, err)
			}

			cmd.Printf("Recorded %s %q\n", kind, title)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "expense", "income or expense")
	cmd.Flags().StringVar(&title, "title", "", "transaction title")
	cmd.Flags().Float64Var(&amount, "amount", 0, "amount in the storage currency")
	cmd.Flags().StringVar(&date, "date", "", "date as yyyy-mm-dd (default today)")
	cmd.Flags().StringVar(&category, "category", "", "expense category")
	cmd.Flags().StringVar(&source, "source", "", "income source")
	cmd.Flags().StringVar(&notes, "notes", "", "optional notes (expenses only)")
	cmd.Flags().BoolVar(&recurring, "recurring", false, "mark as recurring")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}
