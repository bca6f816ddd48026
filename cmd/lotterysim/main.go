package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	db "lottery/debug"
)

const usage = `lotterysim runs the currency-capped lottery scheduler on a simulated
   process tree and reports how CPU time splits between users.`

func main() {
	app := cli.NewApp()
	app.Name = "lotterysim"
	app.Usage = usage

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "debug",
			Usage:  "debug labels, e.g. \"LOTTERY;LEDGER\"",
			EnvVar: db.LOTTERYDEBUG,
		},
	}
	app.Commands = []cli.Command{
		runCommand,
		genCommand,
	}
	app.Before = func(ctx *cli.Context) error {
		db.SetLabels(ctx.GlobalString("debug"))
		return nil
	}

	err := app.Run(os.Args)
	db.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "lotterysim: %v\n", err)
		os.Exit(1)
	}
}
