// Package bot wires the leotrack modules together and runs the message loop.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/oryshchuk/leotrack/internal/flow"
	"github.com/oryshchuk/leotrack/internal/messaging"
	"github.com/oryshchuk/leotrack/internal/models"
	"github.com/oryshchuk/leotrack/internal/recorder"
	"github.com/oryshchuk/leotrack/internal/report"
	"github.com/oryshchuk/leotrack/internal/store"
	"github.com/oryshchuk/leotrack/internal/twiliowhatsapp"
	"github.com/oryshchuk/leotrack/internal/whatsapp"
)

// Transport names accepted in Config.Transport.
const (
	TransportWhatsApp = "whatsapp"
	TransportTwilio   = "twilio"
)

// DefaultWebhookAddr is the listen address for the Twilio inbound webhook.
const DefaultWebhookAddr = ":8080"

const webhookShutdownTimeout = 5 * time.Second

// Config holds the runtime configuration assembled by cmd/leotrack.
type Config struct {
	// DBDSN selects the activity store backend. Empty means in-memory.
	DBDSN string
	// Transport selects the messaging backend: "whatsapp" or "twilio".
	Transport string
	// WebhookAddr is the Twilio webhook listen address. Empty uses DefaultWebhookAddr.
	WebhookAddr string

	WhatsAppOpts []whatsapp.Option
	TwilioOpts   []twiliowhatsapp.Option
}

// serviceRenderer adapts a messaging.Service to the flow.Renderer contract.
type serviceRenderer struct {
	svc messaging.Service
}

func (r serviceRenderer) Render(ctx context.Context, callerID, text string, menu *models.Menu) error {
	return r.svc.SendMessage(ctx, callerID, text, menu)
}

// Run builds the store, transport and dispatcher, then consumes incoming
// responses until ctx is cancelled. Responses are dispatched one at a time so
// replies to a caller keep their order.
func Run(ctx context.Context, cfg Config) error {
	st, err := buildStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to build activity store: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			slog.Error("Failed to close activity store", "error", cerr)
		}
	}()

	svc, err := buildMessagingService(cfg)
	if err != nil {
		return fmt.Errorf("failed to build messaging service: %w", err)
	}

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start messaging service: %w", err)
	}
	defer func() {
		if serr := svc.Stop(); serr != nil {
			slog.Error("Failed to stop messaging service", "error", serr)
		}
	}()

	disp := flow.NewDispatcher(
		flow.NewInMemorySessionStore(),
		recorder.New(st),
		report.New(st),
		serviceRenderer{svc: svc},
	)

	var webhookServer *http.Server
	if ts, ok := svc.(*messaging.TwilioService); ok {
		addr := cfg.WebhookAddr
		if addr == "" {
			addr = DefaultWebhookAddr
		}
		mux := http.NewServeMux()
		mux.HandleFunc("/webhook/twilio", ts.TwilioWebhookHandler)
		webhookServer = &http.Server{Addr: addr, Handler: mux}
		go func() {
			slog.Info("Twilio webhook server listening", "addr", addr)
			if err := webhookServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("Twilio webhook server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), webhookShutdownTimeout)
			defer cancel()
			if err := webhookServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("Twilio webhook server shutdown failed", "error", err)
			}
		}()
	}

	// Receipts are not acted upon, but the channel must be drained so the
	// service never blocks on emit.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case receipt, ok := <-svc.Receipts():
				if !ok {
					return
				}
				slog.Debug("Delivery receipt", "to", receipt.To, "status", receipt.Status)
			}
		}
	}()

	slog.Info("leotrack running", "transport", cfg.Transport)
	for {
		select {
		case <-ctx.Done():
			slog.Info("leotrack shutting down", "reason", ctx.Err())
			return nil
		case resp, ok := <-svc.Responses():
			if !ok {
				slog.Info("Response channel closed, stopping")
				return nil
			}
			if err := disp.OnText(ctx, resp.From, resp.Body); err != nil {
				slog.Error("Failed to handle incoming message", "error", err, "from", resp.From)
			}
		}
	}
}

// buildStore selects the activity store backend from the DSN shape.
func buildStore(cfg Config) (store.Store, error) {
	if cfg.DBDSN == "" {
		slog.Warn("No database DSN provided, using in-memory store; records are lost on restart")
		return store.NewInMemoryStore(), nil
	}
	switch store.DetectDSNType(cfg.DBDSN) {
	case "postgres":
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_set", true)
		return store.NewPostgresStore(store.WithDSN(cfg.DBDSN))
	default:
		slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", cfg.DBDSN)
		return store.NewSQLiteStore(store.WithDSN(cfg.DBDSN))
	}
}

// buildMessagingService selects the transport backend.
func buildMessagingService(cfg Config) (messaging.Service, error) {
	switch cfg.Transport {
	case TransportTwilio:
		client, err := twiliowhatsapp.NewClient(cfg.TwilioOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create Twilio client: %w", err)
		}
		return messaging.NewTwilioService(client), nil
	case TransportWhatsApp, "":
		client, err := whatsapp.NewClient(cfg.WhatsAppOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create WhatsApp client: %w", err)
		}
		return messaging.NewWhatsAppService(client), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}
