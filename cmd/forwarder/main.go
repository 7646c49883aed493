package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tgforward/internal/app"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.json", "path to config json or yaml")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfgPath)
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}

	if err := a.Start(ctx); err != nil {
		fmt.Println("fatal start:", err)
		os.Exit(1)
	}

	// The menu owns the foreground; forwarding jobs keep running in the
	// background until a signal arrives or the operator exits.
	menuErr := a.RunConsole(ctx, os.Stdin, os.Stdout)
	interrupted := ctx.Err() != nil

	cancel()
	if err := a.Stop(context.Background()); err != nil {
		fmt.Println("shutdown:", err)
	}
	if menuErr != nil && !interrupted {
		fmt.Println("console:", menuErr)
		os.Exit(1)
	}
}
