package main

import (
	"database/sql"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/gavel/internal/api"
	"github.com/mcdev12/gavel/internal/auction"
	"github.com/mcdev12/gavel/internal/auction/session"
	"github.com/mcdev12/gavel/internal/blob"
	"github.com/mcdev12/gavel/internal/dbconfig"
	"github.com/mcdev12/gavel/internal/identity"
	"github.com/mcdev12/gavel/internal/outbox"
	"github.com/mcdev12/gavel/internal/outbox/worker"
)

type Services struct {
	API      *api.Handler
	Relay    *outbox.Listener
	Uploads  *blob.DiskStore
	appClose func()
}

func setupServices(database *sql.DB, dbCfg dbconfig.Config, config *Config) (*Services, error) {
	// Wire up dependency injection chain
	// Database layer → Repository layer → App layer → HTTP layer
	clock := clockwork.NewRealClock()

	outboxRepo := outbox.NewRepository(database)
	auctionRepo := auction.NewRepository(database, outboxRepo)
	userRepo := identity.NewRepository(database)

	auctionApp := auction.NewApp(auctionRepo, userRepo, clock)
	sessionController := session.NewController(auctionRepo, clock)

	uploads, err := blob.NewDiskStore(config.Uploads.Dir, config.Uploads.URLPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload store: %w", err)
	}

	// Outbox relay: LISTEN/NOTIFY fast path into JetStream
	publisherCfg := worker.DefaultJetStreamConfig()
	publisherCfg.URL = config.NATS.URL
	publisher, err := worker.NewJetStreamPublisher(publisherCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream publisher: %w", err)
	}

	listenerCfg := outbox.DefaultListenerConfig()
	listenerCfg.DatabaseURL = dbCfg.DSN()
	relay, err := outbox.NewListener(outboxRepo, publisher, listenerCfg)
	if err != nil {
		publisher.Close()
		return nil, fmt.Errorf("failed to create outbox listener: %w", err)
	}

	return &Services{
		API:      api.NewHandler(auctionApp, sessionController, userRepo, uploads),
		Relay:    relay,
		Uploads:  uploads,
		appClose: func() { publisher.Close() },
	}, nil
}

func (s *Services) Close() {
	if s.appClose != nil {
		s.appClose()
	}
}
