package conversation_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/edgard/intakebot/internal/conversation"
	"github.com/edgard/intakebot/internal/langdetect"
	"github.com/edgard/intakebot/internal/ledger"
)

type fakeCategorizer struct {
	calls atomic.Int32
	cat   ledger.Category
}

func (f *fakeCategorizer) Categorize(context.Context, string) (ledger.Category, langdetect.Tag) {
	f.calls.Add(1)
	return f.cat, langdetect.English
}

func TestSubmit_IdleSenderGetsPrompt(t *testing.T) {
	t.Parallel()

	cls := &fakeCategorizer{cat: ledger.CategoryOffers}
	store := ledger.NewFileStore(t.TempDir(), nil)
	c := conversation.NewController(conversation.NewMemoryStore(), cls, store, nil)

	out, err := c.Submit(context.Background(), 1, "job offer")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if out.Kind != conversation.OutcomePrompt {
		t.Errorf("Submit() kind = %v, want OutcomePrompt", out.Kind)
	}
	if cls.calls.Load() != 0 {
		t.Error("classifier invoked for idle sender")
	}
}

func TestSubmit_AcceptsAndReturnsToIdle(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	cls := &fakeCategorizer{cat: ledger.CategoryOffers}
	c := conversation.NewController(conversation.NewMemoryStore(), cls, ledger.NewFileStore(root, nil), nil)
	ctx := context.Background()

	c.Begin(7)
	c.Begin(7)
	if got := c.State(7); got != conversation.StateAwaitingRequest {
		t.Fatalf("State() after Begin = %s", got)
	}

	out, err := c.Submit(ctx, 7, "I have a job offer")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if out.Kind != conversation.OutcomeAccepted {
		t.Fatalf("Submit() kind = %v, want OutcomeAccepted", out.Kind)
	}
	if out.Request.UserID != 7 || out.Request.Category != ledger.CategoryOffers || out.Request.Message != "I have a job offer" {
		t.Errorf("Submit() request = %+v", out.Request)
	}
	if got := c.State(7); got != conversation.StateIdle {
		t.Errorf("State() after Submit = %s, want idle", got)
	}

	again, err := c.Submit(ctx, 7, "second text")
	if err != nil || again.Kind != conversation.OutcomePrompt {
		t.Errorf("second Submit() = %+v, %v; want prompt", again, err)
	}
	if n := cls.calls.Load(); n != 1 {
		t.Errorf("classifier calls = %d, want 1", n)
	}
}

func TestSubmit_PersistenceFaultKeepsAwaiting(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "requests")
	if err := os.WriteFile(root, []byte("blocker"), 0o600); err != nil {
		t.Fatal(err)
	}
	c := conversation.NewController(conversation.NewMemoryStore(),
		&fakeCategorizer{cat: ledger.CategoryPersonal}, ledger.NewFileStore(root, nil), nil)

	c.Begin(3)
	_, err := c.Submit(context.Background(), 3, "hi vlad")
	if !errors.Is(err, ledger.ErrPersistence) {
		t.Fatalf("Submit() error = %v, want ErrPersistence", err)
	}
	if got := c.State(3); got != conversation.StateAwaitingRequest {
		t.Errorf("State() after failed Submit = %s, want awaiting_request", got)
	}
}

func TestSubmit_ConcurrentTextsAcceptOnce(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	c := conversation.NewController(conversation.NewMemoryStore(),
		&fakeCategorizer{cat: ledger.CategoryGibberish}, ledger.NewFileStore(root, nil), nil)
	c.Begin(9)

	var accepted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := c.Submit(context.Background(), 9, "text")
			if err != nil {
				t.Errorf("Submit() error = %v", err)
				return
			}
			if out.Kind == conversation.OutcomeAccepted {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()

	if n := accepted.Load(); n != 1 {
		t.Errorf("accepted %d texts, want 1", n)
	}
	entries, _ := os.ReadDir(filepath.Join(root, "gibberish"))
	if len(entries) != 1 {
		t.Errorf("ledger holds %d records, want 1", len(entries))
	}
}

func TestCancel(t *testing.T) {
	t.Parallel()

	c := conversation.NewController(conversation.NewMemoryStore(),
		&fakeCategorizer{cat: ledger.CategoryOffers}, ledger.NewFileStore(t.TempDir(), nil), nil)

	if c.Cancel(1) {
		t.Error("Cancel() on idle sender reported a pending request")
	}
	c.Begin(1)
	if !c.Cancel(1) {
		t.Error("Cancel() on awaiting sender reported nothing pending")
	}
	if out, _ := c.Submit(context.Background(), 1, "text"); out.Kind != conversation.OutcomePrompt {
		t.Errorf("Submit() after Cancel = %v, want prompt", out.Kind)
	}
}

func TestMemoryStore_EvictIdle(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(d)
	}

	s := conversation.NewMemoryStore(conversation.WithClock(clock))
	s.Set(1, conversation.StateAwaitingRequest)
	advance(10 * time.Minute)
	s.Set(2, conversation.StateAwaitingRequest)
	advance(5 * time.Minute)

	if n := s.EvictIdle(10 * time.Minute); n != 1 {
		t.Errorf("EvictIdle() removed %d, want 1", n)
	}
	if got := s.Get(1); got != conversation.StateIdle {
		t.Errorf("evicted sender state = %s, want idle", got)
	}
	if got := s.Get(2); got != conversation.StateAwaitingRequest {
		t.Errorf("recent sender state = %s, want awaiting_request", got)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestMemoryStore_CompareAndSwap(t *testing.T) {
	t.Parallel()

	s := conversation.NewMemoryStore()
	if s.CompareAndSwap(1, conversation.StateAwaitingRequest, conversation.StateIdle) {
		t.Error("CAS from awaiting succeeded on unknown sender")
	}
	if !s.CompareAndSwap(1, conversation.StateIdle, conversation.StateAwaitingRequest) {
		t.Error("CAS from idle failed on unknown sender")
	}
	if got := s.Get(1); got != conversation.StateAwaitingRequest {
		t.Errorf("Get() = %s", got)
	}
}
