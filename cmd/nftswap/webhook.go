package main

import (
	"fmt"
	"net/url"

	"github.com/urfave/cli/v2"
)

var webhook = cli.Command{
	Name:  "webhook",
	Usage: "manage the endpoints notified of swap events",
	Subcommands: []*cli.Command{
		{
			Name:  "add",
			Usage: "notify an endpoint of the given swap event",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "event",
					Usage:    "proposed, accepted, settled, cancel_requested, cancelled, expired, settle_started, settle_failed or * for all",
					Required: true,
				},
				&cli.StringFlag{
					Name:     "endpoint",
					Usage:    "the http endpoint to POST events to",
					Required: true,
				},
				&cli.StringFlag{
					Name:  "secret",
					Usage: "optional secret used to sign the requests with a JWT",
				},
			},
			Action: addWebhookAction,
		},
		{
			Name:  "remove",
			Usage: "stop notifying a webhook",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "id",
					Usage:    "the webhook id",
					Required: true,
				},
			},
			Action: removeWebhookAction,
		},
		{
			Name:  "list",
			Usage: "list webhooks, optionally only those for an event",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "event",
					Usage: "the swap event",
				},
			},
			Action: listWebhooksAction,
		},
	},
}

func addWebhookAction(ctx *cli.Context) error {
	client, err := getDaemonClient()
	if err != nil {
		return err
	}

	resp, err := client.adminPost("/v1/webhooks", map[string]string{
		"event":    ctx.String("event"),
		"endpoint": ctx.String("endpoint"),
		"secret":   ctx.String("secret"),
	})
	if err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}

func removeWebhookAction(ctx *cli.Context) error {
	client, err := getDaemonClient()
	if err != nil {
		return err
	}

	path := fmt.Sprintf("/v1/webhooks/%s", url.PathEscape(ctx.String("id")))
	if _, err := client.adminDelete(path); err != nil {
		return err
	}

	fmt.Println("webhook removed")
	return nil
}

func listWebhooksAction(ctx *cli.Context) error {
	client, err := getDaemonClient()
	if err != nil {
		return err
	}

	query := url.Values{}
	if event := ctx.String("event"); len(event) > 0 {
		query.Set("event", event)
	}

	resp, err := client.adminGet("/v1/webhooks", query)
	if err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}
