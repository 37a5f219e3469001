package main

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"
)

const (
	daemonURLKey  = "daemon_url"
	adminTokenKey = "admin_token"
	callerKey     = "caller"
)

var (
	daemonURLFlag = cli.StringFlag{
		Name:  daemonURLKey,
		Usage: "nftswapd REST endpoint",
		Value: "http://localhost:9945",
	}
	adminTokenFlag = cli.StringFlag{
		Name:  adminTokenKey,
		Usage: "admin bearer token, found in the daemon datadir (admin.token)",
	}
	callerFlag = cli.StringFlag{
		Name:  callerKey,
		Usage: "default account to act as",
	}
)

var config = cli.Command{
	Name:   "config",
	Usage:  "Print local configuration of the nftswap CLI",
	Action: configAction,
	Subcommands: []*cli.Command{
		{
			Name:   "init",
			Usage:  "initialize the state with default values",
			Flags:  []cli.Flag{&daemonURLFlag, &adminTokenFlag, &callerFlag},
			Action: configInitAction,
		},
		{
			Name:      "set",
			Usage:     "set individual <key> <value> in the local state",
			ArgsUsage: "<key> <value>",
			Action:    configSetAction,
		},
	},
}

func configAction(ctx *cli.Context) error {
	state, err := getState()
	if err != nil {
		return err
	}

	for key, value := range state {
		if key == adminTokenKey && len(value) > 0 {
			value = "********"
		}
		fmt.Println(key + ": " + value)
	}

	return nil
}

func configInitAction(c *cli.Context) error {
	return setState(map[string]string{
		daemonURLKey:  c.String(daemonURLKey),
		adminTokenKey: c.String(adminTokenKey),
		callerKey:     c.String(callerKey),
	})
}

func configSetAction(c *cli.Context) error {
	if c.NArg() < 2 {
		return &invalidUsageError{c, "set"}
	}

	key := c.Args().Get(0)
	value := c.Args().Get(1)

	switch key {
	case daemonURLKey, adminTokenKey, callerKey:
	default:
		return fmt.Errorf("unknown config key %s", key)
	}

	if err := setState(map[string]string{key: value}); err != nil {
		return err
	}

	fmt.Printf("%s has been set\n", key)

	return nil
}

// getCaller returns the --caller flag or falls back to the configured one.
func getCaller(ctx *cli.Context) (string, error) {
	if caller := ctx.String("caller"); len(caller) > 0 {
		return caller, nil
	}
	state, err := getState()
	if err != nil {
		return "", err
	}
	caller, ok := state[callerKey]
	if !ok || len(caller) <= 0 {
		return "", errors.New("set caller with `config set caller` or --caller")
	}
	return caller, nil
}
