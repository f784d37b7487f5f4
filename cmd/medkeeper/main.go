package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/medkeeper/internal/app"
	"github.com/dmitrijs2005/medkeeper/internal/cli"
	"github.com/dmitrijs2005/medkeeper/internal/config"
)

func main() {

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := app.WithSignals(context.Background())
	defer stop()

	a, err := app.NewApp(ctx, cfg, os.Stderr)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.Logger().Error(context.Background(), "shutdown", "error", err)
		}
	}()

	cli.NewApp(a.System, os.Stdin, os.Stdout).Run(ctx)
}
