package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/donaldgifford/auto-marketplace/pkg/loan"
)

func calcCmd(v *viper.Viper) *cobra.Command {
	var (
		req      loan.Request
		offline  bool
		schedule bool
	)

	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Compute a car financing plan",
		Long: "Compute monthly payments for a car loan. The server computes the\n" +
			"plan unless --offline is set.",
		Example: `  amc calc --price 25000 --down 5000
  amc calc --price 25000 --down 5000 --term 48 --rate 6.9 --offline --schedule`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, v, func(ctx context.Context, a *app) error {
				var (
					res *loan.Result
					err error
				)
				if offline {
					res, err = loan.Calculate(req)
				} else {
					res, err = a.client.CalculateLoan(ctx, req)
				}
				if err != nil {
					return err
				}
				if a.json {
					return outputJSON(a.out, res)
				}
				return printLoan(a.out, res, schedule)
			})
		},
	}

	f := cmd.Flags()
	f.Float64Var(&req.Price, "price", 0, "car price (required)")
	f.Float64Var(&req.DownPayment, "down", 0, "down payment")
	f.IntVar(&req.TermMonths, "term", 0, "loan term in months (default 60)")
	f.Float64Var(&req.InterestRate, "rate", 0, "annual interest rate in percent (default 7.5)")
	f.BoolVar(&offline, "offline", false, "compute locally without calling the API")
	f.BoolVar(&schedule, "schedule", false, "print the monthly repayment schedule")
	cobra.CheckErr(cmd.MarkFlagRequired("price"))
	return cmd
}
