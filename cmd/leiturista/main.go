package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/zRyyH/leiturista-hidro/internal/app"
	"github.com/zRyyH/leiturista-hidro/internal/config"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// errUsage - неверные аргументы; текст уже выведен.
var errUsage = errors.New("usage")

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, a *app.App, args []string, out io.Writer) error
}

var commands = []command{
	{"login", "login -email E -password P", runLogin},
	{"logout", "logout", runLogout},
	{"whoami", "whoami", runWhoami},
	{"condominios", "condominios", runCondominiums},
	{"leituras", "leituras [-condominio N]", runPending},
	{"leitura", "leitura -id N", runReading},
	{"enviar", "enviar -id N -valor V -foto arquivo", runSubmit},
	{"serve", "serve", runServe},
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	cmd, ok := lookup(flag.Arg(0))
	if !ok {
		fmt.Fprintf(os.Stderr, "comando desconhecido: %s\n", flag.Arg(0))
		usage()
		os.Exit(2)
	}

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env, os.Stderr)
	slog.SetDefault(log)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	a, err := app.New(rootCtx, cfg, log)
	if err != nil {
		log.Error("app_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	err = cmd.run(rootCtx, a, flag.Args()[1:], os.Stdout)

	if cerr := a.Close(); cerr != nil {
		log.Warn("app_close_failed", slog.String("err", cerr.Error()))
	}

	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, "erro:", userMessage(err))
		log.Debug("command_failed", slog.String("cmd", cmd.name), slog.String("err", err.Error()))
		os.Exit(1)
	}
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}

	return command{}, false
}

func usage() {
	fmt.Fprintln(os.Stderr, "uso: leiturista [-config arquivo] <comando> [flags]")
	for _, c := range commands {
		fmt.Fprintln(os.Stderr, "  "+c.usage)
	}
}

func setupLogger(env string, w io.Writer) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
