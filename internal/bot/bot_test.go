package bot

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/oryshchuk/leotrack/internal/messaging"
	"github.com/oryshchuk/leotrack/internal/models"
	"github.com/oryshchuk/leotrack/internal/store"
)

func TestBuildStoreDefaultsToInMemory(t *testing.T) {
	st, err := buildStore(Config{})
	if err != nil {
		t.Fatalf("buildStore failed: %v", err)
	}
	defer st.Close()
	if _, ok := st.(*store.InMemoryStore); !ok {
		t.Errorf("buildStore with empty DSN = %T, want *store.InMemoryStore", st)
	}
}

func TestBuildStoreSelectsSQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "leotrack.db")
	st, err := buildStore(Config{DBDSN: dbPath})
	if err != nil {
		t.Fatalf("buildStore failed: %v", err)
	}
	defer st.Close()
	if _, ok := st.(*store.SQLiteStore); !ok {
		t.Errorf("buildStore with file DSN = %T, want *store.SQLiteStore", st)
	}
}

func TestBuildMessagingServiceRejectsUnknownTransport(t *testing.T) {
	if _, err := buildMessagingService(Config{Transport: "carrier-pigeon"}); err == nil {
		t.Fatal("buildMessagingService with unknown transport should fail")
	}
}

func TestServiceRendererForwardsToTransport(t *testing.T) {
	svc := messaging.NewInMemoryService()
	r := serviceRenderer{svc: svc}

	menu := &models.Menu{Rows: [][]string{{"🔙 Назад"}}}
	if err := r.Render(context.Background(), "380501234567", "Головне меню", menu); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	sent := svc.Sent()
	if len(sent) != 1 {
		t.Fatalf("sent = %d messages, want 1", len(sent))
	}
	if sent[0].To != "380501234567" || sent[0].Body != "Головне меню" || sent[0].Menu != menu {
		t.Errorf("sent message = %+v", sent[0])
	}
}
