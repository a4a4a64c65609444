package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btclog/v2"
	"github.com/nymbook/nymbook/build"
	"github.com/nymbook/nymbook/contacts"
	"github.com/nymbook/nymbook/directory"
	"github.com/nymbook/nymbook/nymdb"
	"github.com/nymbook/nymbook/paymentcode"
	"github.com/nymbook/nymbook/paynym"
	"github.com/urfave/cli"
)

const (
	defaultDirectoryURL = "https://paynym.rs/api/v1"
	defaultDebugLevel   = "info"
)

var defaultDataDir = btcutil.AppDataDir("nymbook", false)

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[nymcli] %v\n", err)
	os.Exit(1)
}

func main() {
	app := cli.NewApp()
	app.Name = "nymcli"
	app.Usage = "manage a wallet's payment code and its directory account"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "directory",
			Value: defaultDirectoryURL,
			Usage: "base URL of the payment code directory",
		},
		cli.StringFlag{
			Name:  "datadir",
			Value: defaultDataDir,
			Usage: "path to the nymbook data directory",
		},
		cli.StringFlag{
			Name:  "network",
			Value: "mainnet",
			Usage: "the bitcoin network to operate on " +
				"(mainnet, testnet, regtest, simnet)",
		},
		cli.StringFlag{
			Name:  "debuglevel",
			Value: defaultDebugLevel,
			Usage: "logging level for all subsystems {trace, " +
				"debug, info, warn, error, critical} -- " +
				"also accepts <subsystem>=<level> pairs",
		},
	}
	app.Commands = []cli.Command{
		createCommand,
		claimCommand,
		followCommand,
		unfollowCommand,
		whoisCommand,
		contactsCommand,
		cacheCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}

// setupLogging wires every subsystem logger through a shared stdout handler
// and applies the requested debug levels.
func setupLogging(ctx *cli.Context) error {
	handler := btclog.NewDefaultHandler(os.Stderr)
	mgr := build.NewManager(handler)

	paymentcode.UseLogger(build.NewSubLogger(
		paymentcode.Subsystem, mgr.GenSubLogger,
	))
	directory.UseLogger(build.NewSubLogger(
		directory.Subsystem, mgr.GenSubLogger,
	))
	contacts.UseLogger(build.NewSubLogger(
		contacts.Subsystem, mgr.GenSubLogger,
	))
	nymdb.UseLogger(build.NewSubLogger(
		nymdb.Subsystem, mgr.GenSubLogger,
	))
	paynym.UseLogger(build.NewSubLogger(
		paynym.Subsystem, mgr.GenSubLogger,
	))

	return build.ParseAndSetDebugLevels(
		ctx.GlobalString("debuglevel"), mgr,
	)
}

// netParams maps the network flag to chain parameters.
func netParams(ctx *cli.Context) (*chaincfg.Params, error) {
	switch network := ctx.GlobalString("network"); network {
	case "mainnet":
		return &chaincfg.MainNetParams, nil
	case "testnet":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "simnet":
		return &chaincfg.SimNetParams, nil
	default:
		return nil, fmt.Errorf("unknown network %q", network)
	}
}

// appContext bundles the collaborators the commands operate on.
type appContext struct {
	wallet   *seedWallet
	db       *nymdb.DB
	client   *directory.Client
	registry *contacts.Registry
	manager  *paynym.Manager
}

// newAppContext assembles the directory client, database, registry and
// manager from the global flags.
func newAppContext(ctx *cli.Context) (*appContext, func(), error) {
	if err := setupLogging(ctx); err != nil {
		return nil, nil, err
	}

	params, err := netParams(ctx)
	if err != nil {
		return nil, nil, err
	}

	dataDir := ctx.GlobalString("datadir")
	wallet, err := newSeedWallet(
		filepath.Join(dataDir, seedFilename), params,
	)
	if err != nil {
		return nil, nil, err
	}

	db, err := nymdb.Open(dataDir)
	if err != nil {
		return nil, nil, err
	}

	client, err := directory.NewClient(&directory.Config{
		BaseURL: ctx.GlobalString("directory"),
		Cache:   db.NymCache(),
	})
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	registry, err := contacts.New(&contacts.Config{
		Wallet:   wallet,
		Resolver: client,
		Store:    db,
		Params:   params,
	})
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	manager := paynym.NewManager(&paynym.Config{
		Wallet:    wallet,
		Directory: client,
	})

	cleanUp := func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "[nymcli] closing db: %v\n",
				err)
		}
	}

	return &appContext{
		wallet:   wallet,
		db:       db,
		client:   client,
		registry: registry,
		manager:  manager,
	}, cleanUp, nil
}
