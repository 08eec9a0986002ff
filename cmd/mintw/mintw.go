package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/fedi-tools/gomint/ecash"
	"github.com/fedi-tools/gomint/wallet"
)

var mintw *wallet.Wallet

func walletConfig(path string) wallet.Config {
	envPath := filepath.Join(path, ".env")
	if _, err := os.Stat(envPath); err != nil {
		wd, err := os.Getwd()
		if err != nil {
			envPath = ""
		} else {
			envPath = filepath.Join(wd, ".env")
		}
	}
	if len(envPath) > 0 {
		godotenv.Load(envPath)
	}

	configPath := os.Getenv("GOMINT_CONFIG")
	if len(configPath) == 0 {
		configPath = filepath.Join(path, "config.json")
	}

	config, err := wallet.LoadConfig(configPath)
	if err != nil {
		printErr(err)
	}

	if mnemonic := os.Getenv("WALLET_MNEMONIC"); len(mnemonic) > 0 {
		config.Mnemonic = mnemonic
	}
	return config
}

func setWalletPath() string {
	homedir, err := os.UserHomeDir()
	if err != nil {
		log.Fatal(err)
	}

	path := filepath.Join(homedir, ".gomint", "wallet")
	err = os.MkdirAll(path, 0700)
	if err != nil {
		log.Fatal(err)
	}
	return path
}

func setupWallet(ctx *cli.Context) error {
	path := setWalletPath()
	config := walletConfig(path)

	var err error
	mintw, err = wallet.LoadWallet(config, path)
	if err != nil {
		printErr(err)
	}
	return nil
}

func main() {
	app := &cli.App{
		Name:  "mintw",
		Usage: "cli wallet for a federated mint",
		Commands: []*cli.Command{
			balanceCmd,
			pegInCmd,
			fetchCmd,
			pendingCmd,
			sendCmd,
			receiveCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

var balanceCmd = &cli.Command{
	Name:   "balance",
	Before: setupWallet,
	Action: getBalance,
}

func getBalance(ctx *cli.Context) error {
	balance, err := mintw.Balance()
	if err != nil {
		printErr(err)
	}
	fmt.Printf("%v\n", balance)
	return nil
}

const witnessFlag = "witness"

var pegInCmd = &cli.Command{
	Name:   "pegin",
	Usage:  "Start an issuance for the given amount in millisats",
	Before: setupWallet,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  witnessFlag,
			Usage: "Specify the proof of deposit backing the issuance",
		},
	},
	Action: pegIn,
}

func pegIn(ctx *cli.Context) error {
	args := ctx.Args()
	if args.Len() < 1 {
		printErr(errors.New("specify an amount to peg in"))
	}
	amount, err := strconv.ParseUint(args.First(), 10, 64)
	if err != nil {
		printErr(errors.New("invalid amount"))
	}

	proof := ecash.PegInProof{Amount: ecash.Amount(amount)}
	if ctx.IsSet(witnessFlag) {
		proof.Witness = []byte(ctx.String(witnessFlag))
	}

	id, err := mintw.PegIn(ctx.Context, proof)
	if err != nil {
		printErr(err)
	}

	fmt.Printf("issuance started: %v\n\n", id)
	fmt.Println("run 'mintw fetch' to redeem the signed coins")
	return nil
}

var fetchCmd = &cli.Command{
	Name:   "fetch",
	Usage:  "Redeem all pending issuances",
	Before: setupWallet,
	Action: fetch,
}

func fetch(ctx *cli.Context) error {
	ids, err := mintw.FetchAll(ctx.Context)
	if err != nil {
		printErr(err)
	}
	if len(ids) == 0 {
		fmt.Println("no pending issuances")
		return nil
	}

	for _, id := range ids {
		fmt.Printf("redeemed %v\n", id)
	}
	return nil
}

var pendingCmd = &cli.Command{
	Name:   "pending",
	Usage:  "List issuances not yet redeemed",
	Before: setupWallet,
	Action: pending,
}

func pending(ctx *cli.Context) error {
	ids, err := mintw.PendingIssuances()
	if err != nil {
		printErr(err)
	}
	for _, id := range ids {
		fmt.Printf("%v\n", id)
	}
	return nil
}

const memoFlag = "memo"

var sendCmd = &cli.Command{
	Name:   "send",
	Before: setupWallet,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  memoFlag,
			Usage: "Attach a memo to the token",
		},
	},
	Action: send,
}

func send(ctx *cli.Context) error {
	args := ctx.Args()
	if args.Len() < 1 {
		printErr(errors.New("specify an amount to send"))
	}
	amount, err := strconv.ParseUint(args.First(), 10, 64)
	if err != nil {
		printErr(err)
	}

	token, err := mintw.Send(ecash.Amount(amount), ctx.String(memoFlag))
	if err != nil {
		printErr(err)
	}

	fmt.Printf("%v\n", token)
	return nil
}

var receiveCmd = &cli.Command{
	Name:   "receive",
	Before: setupWallet,
	Action: receive,
}

func receive(ctx *cli.Context) error {
	args := ctx.Args()
	if args.Len() < 1 {
		printErr(errors.New("token not provided"))
	}

	amount, err := mintw.Receive(args.First())
	if err != nil {
		printErr(err)
	}

	fmt.Printf("%v received\n", amount)
	return nil
}

func printErr(msg error) {
	fmt.Println(msg.Error())
	os.Exit(0)
}
