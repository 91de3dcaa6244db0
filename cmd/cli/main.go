package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dmitrijs2005/cardkeeper/internal/buildinfo"
	"github.com/dmitrijs2005/cardkeeper/internal/client/cli"
	"github.com/dmitrijs2005/cardkeeper/internal/client/client"
	"github.com/dmitrijs2005/cardkeeper/internal/client/config"
	"github.com/dmitrijs2005/cardkeeper/internal/filex"
	"github.com/dmitrijs2005/cardkeeper/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}

	dir, err := filex.EnsureDir(cfg.DataDir)
	if err != nil {
		log.Fatalf("data dir: %v", err)
	}

	logFile, err := os.OpenFile(filepath.Join(dir, "cardkeeper.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		log.Fatalf("log file: %v", err)
	}
	defer logFile.Close()
	logger := logging.New(cfg.LogLevel, logFile)

	// Interrupts are handled per command by the REPL.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	db, err := client.InitDatabase(ctx, filepath.Join(dir, "cardkeeper.db"))
	if err != nil {
		log.Fatalf("error initializing database: %v", err)
	}
	defer db.Close()

	app := cli.NewApp(cfg, db, logger)
	app.Run(ctx)

}
