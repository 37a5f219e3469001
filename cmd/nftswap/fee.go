package main

import (
	"github.com/urfave/cli/v2"
)

var fee = cli.Command{
	Name:   "fee",
	Usage:  "get or update the swap fee policy",
	Action: getFeeAction,
	Subcommands: []*cli.Command{
		{
			Name:  "rate",
			Usage: "update the flat fee charged on every settled swap",
			Flags: []cli.Flag{
				&cli.Uint64Flag{
					Name:  "rate",
					Usage: "the fee in the smallest unit of the payment token",
				},
				&cli.StringFlag{
					Name:  "amount",
					Usage: "the fee as a decimal amount of the payment token",
				},
			},
			Action: updateFeeRateAction,
		},
		{
			Name:  "collector",
			Usage: "update the account credited with collected fees",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "account",
					Usage:    "the fee collector account",
					Required: true,
				},
			},
			Action: updateFeeCollectorAction,
		},
	},
}

func getFeeAction(ctx *cli.Context) error {
	client, err := getDaemonClient()
	if err != nil {
		return err
	}

	resp, err := client.get("/v1/fee", nil)
	if err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}

func updateFeeRateAction(ctx *cli.Context) error {
	hasRate, hasAmount := ctx.IsSet("rate"), len(ctx.String("amount")) > 0
	if hasRate == hasAmount {
		return &invalidUsageError{ctx, "rate"}
	}

	client, err := getDaemonClient()
	if err != nil {
		return err
	}

	body := map[string]interface{}{}
	if hasRate {
		body["fee_rate"] = ctx.Uint64("rate")
	} else {
		body["fee_amount"] = ctx.String("amount")
	}

	resp, err := client.adminPut("/v1/fee", body)
	if err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}

func updateFeeCollectorAction(ctx *cli.Context) error {
	client, err := getDaemonClient()
	if err != nil {
		return err
	}

	resp, err := client.adminPut("/v1/fee/collector", map[string]string{
		"fee_collector": ctx.String("account"),
	})
	if err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}
