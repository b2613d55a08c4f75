package ledger_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/edgard/intakebot/internal/ledger"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func collect(t *testing.T, s ledger.Scanner, categories ...ledger.Category) []ledger.Request {
	t.Helper()
	var out []ledger.Request
	for req, err := range s.Scan(context.Background(), categories...) {
		if err != nil {
			t.Fatalf("Scan() error = %v", err)
		}
		out = append(out, req)
	}
	return out
}

func TestAppend_WritesRecordLayout(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "requests")
	at := time.Date(2024, 5, 1, 10, 20, 30, 0, time.Local)
	store := ledger.NewFileStore(root, nil, ledger.WithClock(fixedClock(at)))

	req, err := store.Append(context.Background(), 42, "Привет, <b>Vlad</b> & co", ledger.CategoryPersonal)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if req.OrderNumber != "#42_2024-05-01_10-20-30" {
		t.Errorf("OrderNumber = %q", req.OrderNumber)
	}
	if req.Timestamp != "2024-05-01_10-20-30" {
		t.Errorf("Timestamp = %q", req.Timestamp)
	}

	path := filepath.Join(root, "personal", "personal_2024-05-01_10-20-30.json")
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("record file missing: %v", err)
	}

	want := `{
  "order_number": "#42_2024-05-01_10-20-30",
  "user_id": 42,
  "message": "Привет, <b>Vlad</b> & co",
  "category": "personal",
  "timestamp": "2024-05-01_10-20-30"
}`
	if string(got) != want {
		t.Errorf("record body mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}

	entries, err := os.ReadDir(filepath.Join(root, "personal"))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("partition holds %d entries, want 1 (temp file left behind?)", len(entries))
	}
}

func TestAppend_RoundTrip(t *testing.T) {
	t.Parallel()

	store := ledger.NewFileStore(t.TempDir(), nil)
	ctx := context.Background()

	tests := []struct {
		sender   int64
		text     string
		category ledger.Category
	}{
		{1, "hello job offer", ledger.CategoryOffers},
		{2, "asdkjasdkj qweqwe", ledger.CategoryGibberish},
		{3, "  spaced\ttext\n", ledger.CategoryPersonal},
	}

	for _, tt := range tests {
		if _, err := store.Append(ctx, tt.sender, tt.text, tt.category); err != nil {
			t.Fatalf("Append(%d) error = %v", tt.sender, err)
		}
	}

	for _, tt := range tests {
		found := false
		for _, req := range collect(t, store, tt.category) {
			if req.UserID == tt.sender && req.Message == tt.text && req.Category == tt.category {
				found = true
			}
		}
		if !found {
			t.Errorf("Scan(%s) did not return request from sender %d", tt.category, tt.sender)
		}
	}

	if all := collect(t, store); len(all) != len(tests) {
		t.Errorf("Scan() over all partitions returned %d requests, want %d", len(all), len(tests))
	}
}

func TestAppend_SameSecondDoesNotOverwrite(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)
	store := ledger.NewFileStore(root, nil, ledger.WithClock(fixedClock(at)))
	ctx := context.Background()

	for _, sender := range []int64{7, 8, 7} {
		if _, err := store.Append(ctx, sender, "same second", ledger.CategoryGibberish); err != nil {
			t.Fatalf("Append(%d) error = %v", sender, err)
		}
	}

	reqs := collect(t, store, ledger.CategoryGibberish)
	if len(reqs) != 3 {
		t.Fatalf("Scan() returned %d requests, want 3", len(reqs))
	}

	var names []string
	entries, _ := os.ReadDir(filepath.Join(root, "gibberish"))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	want := []string{
		"gibberish_2024-01-02_03-04-05.json",
		"gibberish_2024-01-02_03-04-05_2.json",
		"gibberish_2024-01-02_03-04-05_3.json",
	}
	if len(names) != len(want) {
		t.Fatalf("files = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestAppend_ConcurrentWithScan(t *testing.T) {
	t.Parallel()

	const writers = 60
	root := t.TempDir()
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelWarn}))
	at := time.Date(2024, 6, 7, 8, 9, 10, 0, time.Local)
	store := ledger.NewFileStore(root, logger, ledger.WithClock(fixedClock(at)))
	ctx := context.Background()

	done := make(chan struct{})
	scanErrs := make(chan error, 1)
	go func() {
		defer close(scanErrs)
		for {
			for req, err := range store.Scan(ctx) {
				if err != nil {
					scanErrs <- err
					return
				}
				if req.Message != "concurrent" || !req.Category.Valid() {
					scanErrs <- errors.New("scanned a partial record: " + req.OrderNumber)
					return
				}
			}
			select {
			case <-done:
				return
			default:
			}
		}
	}()

	var wg sync.WaitGroup
	appendErrs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			category := ledger.Categories[i%len(ledger.Categories)]
			if _, err := store.Append(ctx, int64(i), "concurrent", category); err != nil {
				appendErrs <- err
			}
		}(i)
	}
	wg.Wait()
	close(done)
	close(appendErrs)

	for err := range appendErrs {
		t.Errorf("Append() error = %v", err)
	}
	for err := range scanErrs {
		t.Errorf("concurrent Scan() error = %v", err)
	}
	if got := len(collect(t, store)); got != writers {
		t.Errorf("Scan() returned %d requests, want %d", got, writers)
	}
	if strings.Contains(logs.String(), "malformed") {
		t.Errorf("scan skipped malformed records:\n%s", logs.String())
	}

	for _, category := range ledger.Categories {
		entries, err := os.ReadDir(filepath.Join(root, string(category)))
		if err != nil {
			t.Fatalf("ReadDir(%s) error = %v", category, err)
		}
		for _, e := range entries {
			if filepath.Ext(e.Name()) != ".json" || strings.HasPrefix(e.Name(), ".") {
				t.Errorf("partition %s holds %q", category, e.Name())
			}
		}
	}
}

func TestAppend_UnknownCategory(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := ledger.NewFileStore(root, nil)

	_, err := store.Append(context.Background(), 1, "text", ledger.Category("spam"))
	if !errors.Is(err, ledger.ErrUnknownCategory) {
		t.Fatalf("Append() error = %v, want ErrUnknownCategory", err)
	}
	if _, statErr := os.Stat(filepath.Join(root, "spam")); !os.IsNotExist(statErr) {
		t.Errorf("partition for unknown category was created")
	}
}

func TestAppend_PersistenceFault(t *testing.T) {
	t.Parallel()

	// A regular file where the root directory should be makes every write fail.
	root := filepath.Join(t.TempDir(), "requests")
	if err := os.WriteFile(root, []byte("not a directory"), 0o600); err != nil {
		t.Fatal(err)
	}
	store := ledger.NewFileStore(root, nil)

	_, err := store.Append(context.Background(), 1, "text", ledger.CategoryOffers)
	if !errors.Is(err, ledger.ErrPersistence) {
		t.Fatalf("Append() error = %v, want ErrPersistence", err)
	}
}

func TestAppend_CancelledContext(t *testing.T) {
	t.Parallel()

	store := ledger.NewFileStore(t.TempDir(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Append(ctx, 1, "text", ledger.CategoryOffers)
	if !errors.Is(err, ledger.ErrPersistence) || !errors.Is(err, context.Canceled) {
		t.Fatalf("Append() error = %v, want ErrPersistence wrapping context.Canceled", err)
	}
}

func TestScan_SkipsMalformedRecords(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := ledger.NewFileStore(root, nil)
	ctx := context.Background()

	if _, err := store.Append(ctx, 5, "good one", ledger.CategoryOffers); err != nil {
		t.Fatal(err)
	}

	dir := filepath.Join(root, "offers")
	files := map[string]string{
		"offers_broken.json":     `{"order_number": "#1_x", "user_id": `,
		"offers_wrongpart.json":  `{"order_number":"#2_x","user_id":2,"message":"m","category":"personal","timestamp":"x"}`,
		"offers_badcat.json":     `{"order_number":"#3_x","user_id":3,"message":"m","category":"spam","timestamp":"x"}`,
		"offers_notjson.txt":     `ignored entirely`,
		".pending-123.tmp":       `{"order_number":"#4_x","user_id":4,"message":"m","category":"offers","timestamp":"x"}`,
		"offers_wrongtype.json":  `["not", "an", "object"]`,
		"offers_userid_str.json": `{"order_number":"#6_x","user_id":"6","message":"m","category":"offers","timestamp":"x"}`,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.json"), 0o755); err != nil {
		t.Fatal(err)
	}

	reqs := collect(t, store)
	if len(reqs) != 1 {
		t.Fatalf("Scan() returned %d requests, want only the valid one: %+v", len(reqs), reqs)
	}
	if reqs[0].Message != "good one" {
		t.Errorf("Scan() returned %+v", reqs[0])
	}
}

func TestScan_EmptyAndRestartable(t *testing.T) {
	t.Parallel()

	store := ledger.NewFileStore(filepath.Join(t.TempDir(), "missing"), nil)
	if reqs := collect(t, store); len(reqs) != 0 {
		t.Fatalf("Scan() on missing root returned %d requests", len(reqs))
	}

	ctx := context.Background()
	if _, err := store.Append(ctx, 1, "a", ledger.CategoryGibberish); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Append(ctx, 2, "b", ledger.CategoryPersonal); err != nil {
		t.Fatal(err)
	}

	seq := store.Scan(ctx)
	for pass := 0; pass < 2; pass++ {
		n := 0
		for _, err := range seq {
			if err != nil {
				t.Fatal(err)
			}
			n++
		}
		if n != 2 {
			t.Errorf("pass %d: got %d requests, want 2", pass, n)
		}
	}
}

func TestScan_StopsWhenConsumerBreaks(t *testing.T) {
	t.Parallel()

	store := ledger.NewFileStore(t.TempDir(), nil)
	ctx := context.Background()
	for i := int64(1); i <= 3; i++ {
		if _, err := store.Append(ctx, i, "x", ledger.CategoryOffers); err != nil {
			t.Fatal(err)
		}
	}

	n := 0
	for range store.Scan(ctx) {
		n++
		break
	}
	if n != 1 {
		t.Errorf("consumer saw %d requests after break, want 1", n)
	}
}

func TestParseCategory(t *testing.T) {
	t.Parallel()

	for _, c := range ledger.Categories {
		got, err := ledger.ParseCategory(string(c))
		if err != nil || got != c {
			t.Errorf("ParseCategory(%q) = %q, %v", c, got, err)
		}
	}
	if _, err := ledger.ParseCategory("Personal"); !errors.Is(err, ledger.ErrUnknownCategory) {
		t.Errorf("ParseCategory(\"Personal\") error = %v, want ErrUnknownCategory", err)
	}
}
