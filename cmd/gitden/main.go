package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gitden/gitden/internal/account"
	"github.com/gitden/gitden/internal/api"
	"github.com/gitden/gitden/internal/config"
	"github.com/gitden/gitden/internal/gitsmart"
	"github.com/gitden/gitden/internal/jobs"
	"github.com/gitden/gitden/internal/repository"
	"github.com/gitden/gitden/internal/settings"
	"github.com/gitden/gitden/internal/storage"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: gitden <command>\n\nCommands:\n  serve    Start the server\n  adduser  Create an account\n")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "adduser":
		cmdAddUser(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
}

func cmdServe(args []string) {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.ValidateServe(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	layout := storage.NewLayout(cfg.Storage.Path)
	settingsStore, err := settings.Open(layout)
	if err != nil {
		slog.Error("open settings", "error", err)
		os.Exit(1)
	}

	traceShutdown, err := initTracing(context.Background(), settingsStore.Telemetry())
	if err != nil {
		slog.Error("init tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := traceShutdown(ctx); err != nil {
			slog.Error("shutdown tracing", "error", err)
		}
	}()

	pool := jobs.NewPool(int64(cfg.Jobs.Workers), slog.Default())
	accounts := account.NewStore(layout)
	repos := repository.NewStore(layout, pool)
	bridge := gitsmart.NewBridge(cfg.Git.Binary, slog.Default())
	gitHandler := gitsmart.NewHandler(bridge, accounts, repos, layout, pool, slog.Default())
	server := api.NewServer(accounts, repos, settingsStore, gitHandler, slog.Default())

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt)

	go func() {
		slog.Info("gitden listening", "addr", cfg.Addr())
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("listen", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	httpServer.Shutdown(ctx)
}

func cmdAddUser(args []string) {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	fs := flag.NewFlagSet("adduser", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	name := fs.String("name", "", "username")
	password := fs.String("password", "", "password")
	private := fs.Bool("private", false, "hide the account from listings")
	admin := fs.Bool("admin", false, "grant admin rights")
	fs.Parse(args)

	if *name == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "adduser requires -name and -password")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	accounts := account.NewStore(storage.NewLayout(cfg.Storage.Path))
	created, err := accounts.Create(*name, *password, "", *private, *admin)
	if err != nil {
		slog.Error("create account", "user", *name, "error", err)
		os.Exit(1)
	}
	if !created {
		fmt.Printf("account %q already exists\n", *name)
		os.Exit(1)
	}
	fmt.Printf("created account %q\n", *name)
}
