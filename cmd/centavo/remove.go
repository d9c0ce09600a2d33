package main

import (
	"github.com/centavo-app/centavo/internal/model"
	"github.com/spf13/cobra"
)

func removeCmd() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			svc, err := initServices(ctx)
			if err != nil {
				return err
			}
			defer svc.close()

			if err := svc.requireSession(ctx); err != nil {
				return err
			}

			if err := svc.ledger.Delete(ctx, args[0], model.TransactionKind(kind)); err != nil {
				return svc.describeErr(ctx, err)
			}

			cmd.Printf("Deleted %s %s\n", kind, args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "expense", "income or expense")
	return cmd
}
