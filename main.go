package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/op/go-logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/version"

	"alert-webhook-relay/config"
	"alert-webhook-relay/service"
	"alert-webhook-relay/service/render"
)

const programName = "alert-relay"

var log = logging.MustGetLogger(programName)

func main() {
	// Values from .env must be visible to the flag envars below.
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("Error loading .env file: %v", err)
	}

	app := kingpin.New(programName, "Relays Alertmanager webhook notifications to a chat robot webhook.")
	listenAddress := app.Flag("web.listen-address", "Address to listen on for alerts and metrics.").
		Default("0.0.0.0:8080").Envar("LISTEN_ADDRESS").String()
	templateDir := app.Flag("template.dir", "Directory holding the alert.md template.").
		Default("templates").Envar("TEMPLATE_DIR").String()
	watchTemplates := app.Flag("template.watch", "Reload templates when files in the template directory change.").
		Default("true").Envar("TEMPLATE_WATCH").Bool()
	logLevel := app.Flag("log.level", "Only log messages with the given severity or above.").
		Default("info").Envar("LOG_LEVEL").Enum("debug", "info", "warning", "error")
	app.Version(version.Print(programName))
	app.HelpFlag.Short('h')
	kingpin.MustParse(app.Parse(os.Args[1:]))

	if err := setupLogging(*logLevel); err != nil {
		log.Fatalf("Error configuring logging: %v", err)
	}

	log.Infof("Starting %s %s", programName, version.Info())
	log.Infof("Build context %s", version.BuildContext())

	cfg, err := config.Load()
	if err != nil {
		// Missing secrets are fatal: refuse to accept traffic.
		log.Criticalf("Error loading config: %v", err)
		os.Exit(1)
	}

	renderer := render.New(*templateDir)
	server, err := service.InitService(cfg, renderer, prometheus.NewRegistry())
	if err != nil {
		log.Criticalf("Error initialising service: %v", err)
		os.Exit(1)
	}
	log.Infof("Relaying to %s", server.Sender.Name())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *watchTemplates {
		go func() {
			if err := renderer.Watch(ctx); err != nil {
				log.Errorf("Template watcher stopped: %v", err)
			}
		}()
	}

	httpSrv := &http.Server{
		Addr:              *listenAddress,
		Handler:           server.SetUpRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infof("Listening on %s", *listenAddress)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Criticalf("HTTP server stopped: %v", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.SendTimeout+5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Error during shutdown: %v", err)
	}
}

func setupLogging(level string) error {
	lvl, err := logging.LogLevel(level)
	if err != nil {
		return err
	}

	backend := logging.NewLogBackend(os.Stderr, "", 0)
	format := logging.MustStringFormatter(
		`%{time:2006-01-02T15:04:05.000Z07:00} %{level:.4s} %{shortfile} ▶ %{message}`,
	)
	leveled := logging.AddModuleLevel(logging.NewBackendFormatter(backend, format))
	leveled.SetLevel(lvl, "")
	logging.SetBackend(leveled)
	return nil
}
