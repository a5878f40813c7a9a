package main

import (
	"os"

	"github.com/iliyamo/loyalty-rewards/internal/cli"
	"github.com/iliyamo/loyalty-rewards/internal/config"
)

func main() {
	opts := &cli.RootOptions{Config: config.LoadClient(), Dial: cli.DialHTTP}
	os.Exit(cli.Run(os.Args[1:], os.Stdout, opts))
}
