package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "board-client: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "board-client",
		Usage: "interactive chessboard client",
		Commands: []*cli.Command{
			runCommand(),
			renderCommand(),
			checkCommand(),
		},
		Flags:  runFlags(),
		Action: runAction,
	}
}
