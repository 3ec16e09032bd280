// Command feedctl drives the feed engine against a backend from the terminal.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

const version = "0.1.0"

var cmd = &cli.Command{
	Name:    "feedctl",
	Usage:   "Browse, search and interact with a Tally feed backend",
	Version: version,
	Flags: []cli.Flag{
		apiURLFlag,
		tokenFlag,
		logLevelFlag,
		trendingModeFlag,
	},
	Commands: []*cli.Command{
		feedCmd,
		searchCmd,
		profileCmd,
		likeCmd,
		followCmd,
		deleteCmd,
	},
}

func main() {
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
