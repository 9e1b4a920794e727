package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	gamedatacmd "github.com/moonhollow/moonhollow/internal/cmd/gamedata"
	"github.com/moonhollow/moonhollow/internal/platform/config"
)

func main() {
	cfg, err := gamedatacmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log.SetPrefix("[GAMEDATA] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := gamedatacmd.Run(ctx, cfg); err != nil {
		config.Exitf("failed to prepare gamedata store: %v", err)
	}
}
