package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCLI().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCLI() *cli.App {
	contract := &cli.StringFlag{Name: "contract", Usage: "card collection contract address", EnvVars: []string{"CARD_CONTRACT"}}
	card := &cli.StringFlag{Name: "card", Usage: "card (prototype) id"}
	orderIDs := &cli.StringSliceFlag{Name: "order-id", Usage: "order id, repeat for bulk operations"}

	return &cli.App{
		Name:  "gumarket",
		Usage: "buy, list and cancel Gods Unchained cards on Immutable zkEVM",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Value: "", Usage: "debug, info, warn or error", EnvVars: []string{"LOG_LEVEL"}},
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "approve every key-mode wallet prompt"},
		},
		Commands: []*cli.Command{
			{
				Name:   "connect",
				Usage:  "connect the wallet and show its network and balances",
				Action: command("connect", connectAction),
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "switch", Usage: "switch the wallet to Immutable zkEVM when it is elsewhere"},
				},
			},
			{
				Name:   "balances",
				Usage:  "show token balances with their USD value",
				Action: command("balances", balancesAction),
			},
			{
				Name:   "listings",
				Usage:  "show the active listings of a card",
				Action: command("listings", listingsAction),
				Flags: []cli.Flag{
					contract, card,
					&cli.StringFlag{Name: "currency", Value: "ALL", Usage: "ALL, IMX, ETH, USDC or GODS"},
				},
			},
			{
				Name:   "buy",
				Usage:  "buy the cheapest listing of a card, or the given orders",
				Action: command("buy", buyAction),
				Flags:  []cli.Flag{contract, card, orderIDs},
			},
			{
				Name:   "cancel",
				Usage:  "cancel your listings",
				Action: command("cancel", cancelAction),
				Flags:  []cli.Flag{orderIDs},
			},
			{
				Name:   "list",
				Usage:  "list owned copies of a card for sale",
				Action: command("list", listAction),
				Flags: []cli.Flag{
					contract, card,
					&cli.StringFlag{Name: "currency", Value: "ETH", Usage: "IMX, ETH, USDC or GODS"},
					&cli.StringFlag{Name: "price", Usage: "price per token, e.g. 0.25"},
					&cli.BoolFlag{Name: "lowest", Usage: "undercut the cheapest listing in any currency by 1%"},
					&cli.IntFlag{Name: "quantity", Value: 1, Usage: "number of tokens to list"},
					&cli.BoolFlag{Name: "max", Usage: "list every unlisted token"},
					&cli.IntFlag{Name: "duration", Value: 30, Usage: "listing duration in days (1-180)"},
				},
			},
			{
				Name:   "order",
				Usage:  "look up orders with their fees and totals",
				Action: command("order", orderAction),
				Flags: []cli.Flag{
					orderIDs,
					&cli.BoolFlag{Name: "details", Usage: "use the details endpoint"},
				},
			},
			{
				Name:   "tx",
				Usage:  "check a transaction on the chain node",
				Action: command("tx", txAction),
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "hash", Required: true, Usage: "transaction hash"},
					&cli.StringFlag{Name: "to", Usage: "expected recipient contract"},
				},
			},
			{
				Name:   "history",
				Usage:  "show recent trade attempts of the connected wallet",
				Action: command("history", historyAction),
			},
			{
				Name:   "watch",
				Usage:  "follow wallet account and network changes",
				Action: command("watch", watchAction),
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "metrics-addr", Usage: "serve Prometheus metrics on this address", EnvVars: []string{"METRICS_ADDR"}},
					&cli.DurationFlag{Name: "poll", Value: 0, Usage: "wallet poll interval for providers without events"},
				},
			},
		},
	}
}
