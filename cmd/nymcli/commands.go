package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli"
)

var createCommand = cli.Command{
	Name:  "create",
	Usage: "Register the wallet's payment code with the directory.",
	Description: `
	Registers the wallet's payment code with the directory without
	claiming it. Registering an already known code simply returns the
	existing account.`,
	Action: runCreate,
}

func runCreate(ctx *cli.Context) error {
	appCtx, cleanUp, err := newAppContext(ctx)
	if err != nil {
		return err
	}
	defer cleanUp()

	res := appCtx.client.Create(
		context.Background(), appCtx.wallet.PaymentCode(),
	)
	if err := res.Err(); err != nil {
		return err
	}

	printRespJSON(res)
	return nil
}

var claimCommand = cli.Command{
	Name:  "claim",
	Usage: "Claim ownership of the wallet's payment code.",
	Description: `
	Runs the full claim sequence: registers the payment code if needed,
	obtains a directory token and proves ownership by signing the token
	with the wallet's notification key.`,
	Action: runClaim,
}

func runClaim(ctx *cli.Context) error {
	appCtx, cleanUp, err := newAppContext(ctx)
	if err != nil {
		return err
	}
	defer cleanUp()

	res, err := appCtx.manager.Claim(context.Background())
	if err != nil {
		return err
	}

	printRespJSON(res)
	return nil
}

var followCommand = cli.Command{
	Name:      "follow",
	Usage:     "Follow a nym.",
	ArgsUsage: "nym",
	Action:    runFollow,
}

func runFollow(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.ShowCommandHelp(ctx, "follow")
	}

	appCtx, cleanUp, err := newAppContext(ctx)
	if err != nil {
		return err
	}
	defer cleanUp()

	res, err := appCtx.manager.Follow(
		context.Background(), ctx.Args().First(),
	)
	if err != nil {
		return err
	}

	printRespJSON(res)
	return nil
}

var unfollowCommand = cli.Command{
	Name:      "unfollow",
	Usage:     "Unfollow a nym.",
	ArgsUsage: "nym",
	Action:    runUnfollow,
}

func runUnfollow(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.ShowCommandHelp(ctx, "unfollow")
	}

	appCtx, cleanUp, err := newAppContext(ctx)
	if err != nil {
		return err
	}
	defer cleanUp()

	res, err := appCtx.manager.Unfollow(
		context.Background(), ctx.Args().First(),
	)
	if err != nil {
		return err
	}

	printRespJSON(res)
	return nil
}

var whoisCommand = cli.Command{
	Name:      "whois",
	Usage:     "Look up a directory account.",
	ArgsUsage: "payment_code_or_nym",
	Flags: []cli.Flag{
		cli.BoolFlag{
			Name:  "refresh",
			Usage: "bypass the nym cache and fetch fresh data",
		},
	},
	Action: runWhois,
}

func runWhois(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.ShowCommandHelp(ctx, "whois")
	}

	appCtx, cleanUp, err := newAppContext(ctx)
	if err != nil {
		return err
	}
	defer cleanUp()

	summary, err := appCtx.client.CachedNym(
		context.Background(), ctx.Args().First(), ctx.Bool("refresh"),
	)
	if err != nil {
		return err
	}

	printRespJSON(summary)
	return nil
}

var contactsCommand = cli.Command{
	Name:  "contacts",
	Usage: "Manage the wallet's payment code contacts.",
	Subcommands: []cli.Command{
		{
			Name:      "add",
			Usage:     "Add a payment code or address contact.",
			ArgsUsage: "payment_code_or_address",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "label",
					Usage: "display label for the contact",
				},
			},
			Action: runContactsAdd,
		},
		{
			Name:   "list",
			Usage:  "List sender and receiver contacts.",
			Action: runContactsList,
		},
		{
			Name: "sync",
			Usage: "Reconcile contacts against the directory's " +
				"follow graph.",
			Action: runContactsSync,
		},
	},
}

func runContactsAdd(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.ShowCommandHelp(ctx, "add")
	}

	appCtx, cleanUp, err := newAppContext(ctx)
	if err != nil {
		return err
	}
	defer cleanUp()

	outcome, err := appCtx.registry.AddContact(
		context.Background(), ctx.Args().First(),
		ctx.String("label"),
	)
	if err != nil {
		return err
	}

	fmt.Println(outcome)
	return nil
}

func runContactsList(ctx *cli.Context) error {
	appCtx, cleanUp, err := newAppContext(ctx)
	if err != nil {
		return err
	}
	defer cleanUp()

	printContacts(appCtx)
	return nil
}

func runContactsSync(ctx *cli.Context) error {
	appCtx, cleanUp, err := newAppContext(ctx)
	if err != nil {
		return err
	}
	defer cleanUp()

	err = appCtx.registry.ReconcileFromDirectory(context.Background())
	if err != nil {
		return err
	}

	printContacts(appCtx)
	return nil
}

func printContacts(appCtx *appContext) {
	printRespJSON(struct {
		Senders   interface{} `json:"senders"`
		Receivers interface{} `json:"receivers"`
	}{
		Senders:   appCtx.registry.SenderList(),
		Receivers: appCtx.registry.ReceiverList(),
	})
}

var cacheCommand = cli.Command{
	Name:  "cache",
	Usage: "Manage the local nym cache.",
	Subcommands: []cli.Command{
		{
			Name:   "clear",
			Usage:  "Drop every cached nym summary.",
			Action: runCacheClear,
		},
	},
}

func runCacheClear(ctx *cli.Context) error {
	appCtx, cleanUp, err := newAppContext(ctx)
	if err != nil {
		return err
	}
	defer cleanUp()

	return appCtx.client.ClearCache()
}

// printRespJSON pretty prints a response as JSON.
func printRespJSON(resp interface{}) {
	out, err := json.MarshalIndent(resp, "", "    ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "[nymcli] unable to encode "+
			"response: %v\n", err)
		return
	}

	fmt.Println(string(out))
}
