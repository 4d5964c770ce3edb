package app

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/predictpool/settlement/internal/relay"
)

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("storage-mode", a.cfg.StorageMode),
		zap.Uint64("fee-basis-points", a.cfg.FeeBasisPoints),
		zap.String("log-level", a.cfg.LogLevel))

	// Start all components
	err := a.startComponents()
	if err != nil {
		return err
	}

	// Mark as ready
	a.healthChecker.SetReady(true)

	a.logger.Info("application-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort),
		zap.String("owner", a.cfg.OwnerID))

	// Wait for shutdown signal
	return a.waitForShutdown()
}

func (a *App) startComponents() error {
	// Start HTTP server
	a.wg.Add(1)
	go a.runHTTPServer()

	// Give HTTP server a moment to start
	time.Sleep(100 * time.Millisecond)

	// Start relay coordinator
	a.wg.Add(1)
	go a.runCoordinator()

	// Start relay feed
	a.wg.Add(1)
	go a.runRelayFeed()

	// Start ready-event pump
	a.wg.Add(1)
	go a.pumpReadyEvents()

	return nil
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

func (a *App) runCoordinator() {
	defer a.wg.Done()
	a.coordinator.Run(a.ctx)
}

func (a *App) runRelayFeed() {
	defer a.wg.Done()
	a.relayFeed.Run(a.ctx)
}

// pumpReadyEvents bridges the coordinator's ready stream to the relay feed
// and the journal: each signed transaction is pushed to connected relay
// workers and its new status persisted.
func (a *App) pumpReadyEvents() {
	defer a.wg.Done()

	for {
		select {
		case <-a.ctx.Done():
			return
		case event := <-a.coordinator.Ready():
			a.onReadyEvent(event)
		}
	}
}

func (a *App) onReadyEvent(event relay.ReadyEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		a.logger.Error("ready-event-marshal-failed",
			zap.Uint64("index", event.Index),
			zap.Error(err))
		return
	}
	a.relayFeed.Broadcast(data)

	tx, err := a.coordinator.Get(event.Index)
	if err != nil {
		a.logger.Error("ready-event-lookup-failed",
			zap.Uint64("index", event.Index),
			zap.Error(err))
		return
	}

	err = a.journal.RelayTransactionChanged(a.ctx, tx)
	if err != nil {
		a.logger.Error("journal-relay-update-failed",
			zap.Uint64("index", event.Index),
			zap.Error(err))
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
