package main

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/centavo-app/centavo/internal/common"
	"github.com/centavo-app/centavo/internal/currency"
	"github.com/centavo-app/centavo/internal/exchangerate"
	"github.com/centavo-app/centavo/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// initCurrencyOnly builds just the currency engine; conversion has no
// use for a session or the record store.
func initCurrencyOnly(ctx context.Context) (*currency.Engine, *storage.KVStore, error) {
	kv, err := initKV(ctx)
	if err != nil {
		return nil, nil, err
	}
	engine := currency.NewEngine(exchangerate.NewClient(viper.GetString("rates.endpoint")), kv)
	return engine, kv, nil
}

func convertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convert <amount> <from> <to>",
		Short: "Convert an amount between currencies",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			amount, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return common.NewValidationError("amount", "must be a number")
			}
			from := strings.ToUpper(args[1])
			to := strings.ToUpper(args[2])

			engine, kv, err := initCurrencyOnly(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = kv.Close() }()

			converted := engine.Convert(ctx, amount, from, to)
			cmd.Printf("%s = %s\n", engine.Format(amount, from), engine.Format(converted, to))
			if engine.State() != currency.StateFresh {
				cmd.Printf("(rates: %s)\n", engine.State())
			}
			return nil
		},
	}
}

func ratesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rates [base]",
		Short: "Show the exchange-rate table",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			base := currency.BaseCurrency
			if len(args) == 1 {
				base = strings.ToUpper(args[0])
			}

			engine, kv, err := initCurrencyOnly(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = kv.Close() }()

			table := engine.Rates(ctx, base)

			codes := make([]string, 0, len(table.Rates))
			for code := range table.Rates {
				codes = append(codes, code)
			}
			sort.Strings(codes)

			cmd.Printf("Base: %s (state: %s)\n", table.Base, engine.State())
			if !table.FetchedAt.IsZero() {
				cmd.Printf("Fetched: %s\n", table.FetchedAt.Format("2006-01-02 15:04:05"))
			}
			for _, code := range codes {
				cmd.Printf("  %s  %.6f\n", code, table.Rates[code])
			}
			return nil
		},
	}
}
