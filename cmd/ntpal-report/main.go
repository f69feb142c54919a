package main

import (
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/AndrewLester/ntpal-client/pkg/ntpal"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
)

const (
	defaultCacheTTL = 5 * time.Second
	queryTimeout    = 5 * time.Second
)

func main() {
	_ = godotenv.Load()

	logLevel := slog.LevelInfo
	if os.Getenv("DEBUG") == "1" {
		logLevel = slog.LevelDebug
	}
	log := slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: logLevel}))

	daemonCtx := newDaemonContext()
	if len(os.Args) > 1 && os.Args[1] == "stop" {
		if err := stopDaemon(daemonCtx); err != nil {
			log.Error("could not stop ntpal-report", "error", err)
			os.Exit(1)
		}
		return
	}
	if os.Getenv("REPORT_DAEMON") == "1" {
		parent, release, err := daemonize(daemonCtx)
		if err != nil {
			log.Error("could not daemonize", "error", err)
			os.Exit(1)
		}
		if parent {
			return
		}
		defer release()
	}

	port := os.Getenv("REPORT_PORT")
	if port == "" {
		port = "8080"
	}
	host := os.Getenv("REPORT_HOST")

	cacheTTL := defaultCacheTTL
	if value := os.Getenv("REPORT_CACHE_TTL"); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			log.Error("invalid REPORT_CACHE_TTL", "value", value, "error", err)
			os.Exit(1)
		}
		cacheTTL = parsed
	}

	version := ntpal.Version4
	if value := os.Getenv("NTP_VERSION"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 0 || parsed > 255 || !ntpal.Version(parsed).Valid() {
			log.Error("invalid NTP_VERSION", "value", value)
			os.Exit(1)
		}
		version = ntpal.Version(parsed)
	}

	client := ntpal.NewClient(&ntpal.ClientConfig{Logger: log})
	server := newReportServer(log, client, cacheTTL, queryTimeout, version)
	go server.cache.Start()
	defer server.cache.Stop()

	address := net.JoinHostPort(host, port)
	log.Info("listening", "address", address)
	if err := http.ListenAndServe(address, server.router()); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
