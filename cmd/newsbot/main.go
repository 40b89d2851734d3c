package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spreadinsight/newsbot/internal/app"
	"github.com/spreadinsight/newsbot/internal/config"
	"github.com/spreadinsight/newsbot/internal/logger"
)

func main() {
	now := flag.Bool("now", false, "run once immediately and exit")
	test := flag.Bool("test", false, "run once without sending; print messages to stdout")
	flag.Parse()

	cfg, err := config.Load(func(c *config.Config) {
		if *test {
			c.DryRun = true
		}
	})
	logger.Init()
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := app.Options{Once: *now || *test}
	if err := app.Run(ctx, cfg, opts); err != nil {
		logger.Error("Newsbot stopped with error", "error", err)
		stop()
		os.Exit(1)
	}
}
