package main

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"
)

var (
	callerCmdFlag = &cli.StringFlag{
		Name:  "caller",
		Usage: "the account performing the operation, defaults to the configured one",
	}
	swapIDFlag = &cli.Uint64Flag{
		Name:     "id",
		Usage:    "the swap id",
		Required: true,
	}
)

var propose = cli.Command{
	Name:  "propose",
	Usage: "propose a swap of an owned asset for another one",
	Flags: []cli.Flag{
		callerCmdFlag,
		&cli.StringFlag{
			Name:     "offered",
			Usage:    "the offered asset as <collection_id>/<token_id>",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "requested",
			Usage:    "the requested asset as <collection_id>/<token_id>",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "counterparty",
			Usage: "the only account allowed to accept, leave empty for an open proposal",
		},
		&cli.Int64Flag{
			Name:  "ttl",
			Usage: "seconds before the proposal expires, 0 for the daemon default",
		},
	},
	Action: proposeAction,
}

var accept = cli.Command{
	Name:   "accept",
	Usage:  "accept a proposed swap and lock the requested asset",
	Flags:  []cli.Flag{swapIDFlag, callerCmdFlag},
	Action: transitionAction("accept"),
}

var settle = cli.Command{
	Name:   "settle",
	Usage:  "pay the fee and exchange the assets of an accepted swap",
	Flags:  []cli.Flag{swapIDFlag, callerCmdFlag},
	Action: transitionAction("settle"),
}

var cancel = cli.Command{
	Name:   "cancel",
	Usage:  "cancel a swap, accepted ones need both parties to cancel",
	Flags:  []cli.Flag{swapIDFlag, callerCmdFlag},
	Action: transitionAction("cancel"),
}

var swap = cli.Command{
	Name:  "swap",
	Usage: "inspect swaps",
	Subcommands: []*cli.Command{
		{
			Name:   "get",
			Usage:  "get a swap by id",
			Flags:  []cli.Flag{swapIDFlag},
			Action: getSwapAction,
		},
		{
			Name:  "list",
			Usage: "list swaps, optionally filtered by party and status",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "party",
					Usage: "only swaps where the account is proposer or counterparty",
				},
				&cli.StringFlag{
					Name:  "status",
					Usage: "one of proposed, accepted, settled, cancelled, expired",
				},
				&cli.IntFlag{
					Name:  "page",
					Usage: "the page number, starting from 1",
				},
				&cli.IntFlag{
					Name:  "page_size",
					Usage: "the number of swaps per page",
				},
			},
			Action: listSwapsAction,
		},
		{
			Name:   "history",
			Usage:  "list the lifecycle events of a swap",
			Flags:  []cli.Flag{swapIDFlag},
			Action: getSwapHistoryAction,
		},
	},
}

var custody = cli.Command{
	Name:   "custody",
	Usage:  "list the assets currently held in escrow",
	Action: listCustodyAction,
}

var sweep = cli.Command{
	Name:   "sweep",
	Usage:  "expire every swap past its deadline and release its assets",
	Action: sweepAction,
}

func proposeAction(ctx *cli.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	offered, err := parseAsset(ctx.String("offered"))
	if err != nil {
		return err
	}
	requested, err := parseAsset(ctx.String("requested"))
	if err != nil {
		return err
	}

	client, err := getDaemonClient()
	if err != nil {
		return err
	}

	resp, err := client.post("/v1/swaps", map[string]interface{}{
		"proposer":        caller,
		"counterparty":    ctx.String("counterparty"),
		"offered_asset":   offered,
		"requested_asset": requested,
		"ttl_seconds":     ctx.Int64("ttl"),
	})
	if err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}

func transitionAction(action string) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		caller, err := getCaller(ctx)
		if err != nil {
			return err
		}

		client, err := getDaemonClient()
		if err != nil {
			return err
		}

		path := fmt.Sprintf("/v1/swaps/%d/%s", ctx.Uint64("id"), action)
		resp, err := client.post(path, map[string]string{"caller": caller})
		if err != nil {
			return err
		}

		printRespJSON(resp)
		return nil
	}
}

func getSwapAction(ctx *cli.Context) error {
	client, err := getDaemonClient()
	if err != nil {
		return err
	}

	resp, err := client.get(fmt.Sprintf("/v1/swaps/%d", ctx.Uint64("id")), nil)
	if err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}

func listSwapsAction(ctx *cli.Context) error {
	client, err := getDaemonClient()
	if err != nil {
		return err
	}

	query := url.Values{}
	if party := ctx.String("party"); len(party) > 0 {
		query.Set("party", party)
	}
	if status := ctx.String("status"); len(status) > 0 {
		query.Set("status", status)
	}
	if ctx.IsSet("page") {
		query.Set("page", strconv.Itoa(ctx.Int("page")))
	}
	if ctx.IsSet("page_size") {
		query.Set("page_size", strconv.Itoa(ctx.Int("page_size")))
	}

	resp, err := client.get("/v1/swaps", query)
	if err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}

func getSwapHistoryAction(ctx *cli.Context) error {
	client, err := getDaemonClient()
	if err != nil {
		return err
	}

	resp, err := client.get(
		fmt.Sprintf("/v1/swaps/%d/history", ctx.Uint64("id")), nil,
	)
	if err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}

func listCustodyAction(ctx *cli.Context) error {
	client, err := getDaemonClient()
	if err != nil {
		return err
	}

	resp, err := client.get("/v1/custody", nil)
	if err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}

func sweepAction(ctx *cli.Context) error {
	client, err := getDaemonClient()
	if err != nil {
		return err
	}

	resp, err := client.adminPost("/v1/swaps/sweep", nil)
	if err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}

type assetArg struct {
	CollectionID string `json:"collection_id"`
	TokenID      string `json:"token_id"`
}

// parseAsset splits <collection_id>/<token_id> on the first slash.
func parseAsset(str string) (assetArg, error) {
	collection, token, ok := strings.Cut(str, "/")
	if !ok || len(collection) <= 0 || len(token) <= 0 {
		return assetArg{}, fmt.Errorf(
			"invalid asset %q, must be <collection_id>/<token_id>", str,
		)
	}
	return assetArg{collection, token}, nil
}
