package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/cbodonnell/skirmish/pkg/api"
	"github.com/cbodonnell/skirmish/pkg/config"
	"github.com/cbodonnell/skirmish/pkg/game"
	"github.com/cbodonnell/skirmish/pkg/identity"
	"github.com/cbodonnell/skirmish/pkg/log"
	"github.com/cbodonnell/skirmish/pkg/notifications"
	"github.com/cbodonnell/skirmish/pkg/repositories"
	"github.com/joho/godotenv"
)

func main() {
	port := flag.Int("port", 9090, "port to listen on")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	parsedLogLevel, err := log.ParseLogLevel(*logLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse log level: %v", err))
	}

	logger := log.New(os.Stdout, "", log.DefaultLoggerFlag, parsedLogLevel)
	log.SetDefaultLogger(logger)
	log.Info("Log level set to %s", parsedLogLevel)

	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file loaded: %v", err)
	}

	log.Info("Starting skirmish server")
	ctx := context.Background()

	rules, err := config.ParseRules()
	if err != nil {
		panic(fmt.Sprintf("Failed to parse game rules: %v", err))
	}

	var provider identity.Provider
	firebaseProjectID := os.Getenv("SKIRMISH_FIREBASE_PROJECT_ID")
	if firebaseProjectID != "" {
		firebaseAPIKey := os.Getenv("SKIRMISH_FIREBASE_API_KEY")
		provider, err = identity.NewFirebaseProvider(ctx, firebaseProjectID, firebaseAPIKey)
		if err != nil {
			panic(fmt.Sprintf("Failed to create Firebase identity provider: %v", err))
		}
	} else {
		log.Warn("SKIRMISH_FIREBASE_PROJECT_ID not set, accepting any player id")
		provider = identity.NewStaticProvider(true)
	}

	connStr := os.Getenv("SKIRMISH_DATABASE_URL")
	if connStr == "" {
		connStr = "sqlite://skirmish.db"
	}

	u, err := url.Parse(connStr)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse connection string: %v", err))
	}

	var store repositories.SessionStore
	switch u.Scheme {
	case "sqlite":
		store, err = repositories.NewSQLiteSessionStore(ctx, u.Host, "./migrations/sqlite")
		if err != nil {
			panic(fmt.Sprintf("Failed to create SQLite session store: %v", err))
		}
	case "postgresql":
		store, err = repositories.NewPostgresSessionStore(ctx, u.String())
		if err != nil {
			panic(fmt.Sprintf("Failed to create Postgres session store: %v", err))
		}
	default:
		panic(fmt.Sprintf("Unknown database type %s", u.Scheme))
	}
	defer store.Close(ctx)

	retryingStore := repositories.NewRetryingSessionStore(repositories.NewRetryingSessionStoreOptions{
		Inner: store,
	})

	hub := notifications.NewHub()
	manager := game.NewManager(game.NewManagerOptions{
		Store:     retryingStore,
		Identity:  provider,
		Publisher: hub,
		Rules:     rules,
	})

	apiServerOpts := api.NewAPIServerOptions{
		Port:     *port,
		Identity: provider,
		Manager:  manager,
		Hub:      hub,
	}
	tlsCertFile := os.Getenv("SKIRMISH_API_TLS_CERT_FILE")
	tlsKeyFile := os.Getenv("SKIRMISH_API_TLS_KEY_FILE")
	if tlsCertFile != "" && tlsKeyFile != "" {
		apiServerOpts.TLS = &api.TLSConfig{
			CertFile: tlsCertFile,
			KeyFile:  tlsKeyFile,
		}
	}
	server := api.NewAPIServer(apiServerOpts)
	go server.Start()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	<-interrupt
	if err := server.Stop(ctx); err != nil {
		log.Error("Failed to stop server: %v", err)
	}
	manager.Shutdown()
}
