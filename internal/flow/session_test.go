package flow

import (
	"fmt"
	"sync"
	"testing"

	"github.com/oryshchuk/leotrack/internal/models"
)

func TestSessionStoreDefaultsToNone(t *testing.T) {
	s := NewInMemorySessionStore()
	got := s.Get("unknown")
	if got.Mode != models.ModeNone {
		t.Errorf("Get for unknown caller = %s, want NONE", got.Mode)
	}
	if got.PendingStart != "" {
		t.Errorf("Get for unknown caller pending = %q, want empty", got.PendingStart)
	}
}

func TestSessionStoreSetGetClear(t *testing.T) {
	s := NewInMemorySessionStore()
	s.Set("caller", models.ConversationState{Mode: models.ModeAwaitingSleepEnd, PendingStart: "13:00"})

	got := s.Get("caller")
	if got.Mode != models.ModeAwaitingSleepEnd || got.PendingStart != "13:00" {
		t.Errorf("Get = %+v, want AWAITING_SLEEP_END with pending 13:00", got)
	}
	if got.UpdatedAt.IsZero() {
		t.Errorf("Set should stamp UpdatedAt")
	}

	s.Clear("caller")
	if got := s.Get("caller"); got.Mode != models.ModeNone {
		t.Errorf("Get after Clear = %s, want NONE", got.Mode)
	}
}

func TestSessionStoreConcurrentCallers(t *testing.T) {
	s := NewInMemorySessionStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			caller := fmt.Sprintf("caller-%d", n)
			s.Set(caller, models.ConversationState{Mode: models.ModeAwaitingVolume})
			if got := s.Get(caller); got.Mode != models.ModeAwaitingVolume {
				t.Errorf("caller %s mode = %s, want AWAITING_VOLUME", caller, got.Mode)
			}
			s.Clear(caller)
		}(i)
	}
	wg.Wait()
}
