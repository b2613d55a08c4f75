package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// maxNameCollisions bounds the suffixes tried when a record file name is
// already taken by another request written in the same second.
const maxNameCollisions = 100

// Appender persists new requests.
type Appender interface {
	Append(ctx context.Context, senderID int64, text string, category Category) (Request, error)
}

// Scanner reads persisted requests back.
type Scanner interface {
	Scan(ctx context.Context, categories ...Category) iter.Seq2[Request, error]
}

// Store is the full ledger contract.
type Store interface {
	Appender
	Scanner
}

// Option configures a FileStore.
type Option func(*FileStore)

// WithClock overrides the time source used for new requests.
func WithClock(now func() time.Time) Option {
	return func(s *FileStore) { s.now = now }
}

// FileStore keeps every request as a JSON file under root/<category>/.
// It is safe for concurrent use: appends never overwrite each other and
// readers only ever see fully written files.
type FileStore struct {
	root   string
	logger *slog.Logger
	now    func() time.Time
	link   func(oldname, newname string) error
}

// NewFileStore returns a store rooted at root. The directory is created
// lazily on the first append.
func NewFileStore(root string, logger *slog.Logger, opts ...Option) *FileStore {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &FileStore{
		root:   root,
		logger: logger.With("component", "ledger"),
		now:    time.Now,
		link:   os.Link,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the directory holding the partitions.
func (s *FileStore) Root() string { return s.root }

// Append builds a request stamped with the current time and writes it to
// the partition of category. The record is flushed to disk before Append
// returns; any failure is reported as ErrPersistence.
func (s *FileStore) Append(ctx context.Context, senderID int64, text string, category Category) (Request, error) {
	if !category.Valid() {
		return Request{}, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	if err := ctx.Err(); err != nil {
		return Request{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	req := NewRequest(senderID, text, category, s.now())
	data, err := encodeRequest(req)
	if err != nil {
		return Request{}, fmt.Errorf("%w: encode request: %w", ErrPersistence, err)
	}

	dir := filepath.Join(s.root, string(category))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.logger.ErrorContext(ctx, "Failed to create partition directory", "path", dir, "error", err)
		return Request{}, fmt.Errorf("%w: create partition %s: %w", ErrPersistence, category, err)
	}

	tmpPath, err := writeTemp(dir, data)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to write pending record", "path", dir, "error", err)
		return Request{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	defer func() {
		if rmErr := os.Remove(tmpPath); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			s.logger.WarnContext(ctx, "Failed to remove pending record", "path", tmpPath, "error", rmErr)
		}
	}()

	name, err := s.publish(tmpPath, dir, req)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish record", "order_number", req.OrderNumber, "error", err)
		return Request{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	// The record is complete and visible at this point; failing here would
	// only invite a duplicate resubmission.
	if err := syncDir(dir); err != nil {
		s.logger.WarnContext(ctx, "Failed to sync partition directory", "path", dir, "error", err)
	}

	s.logger.DebugContext(ctx, "Request saved",
		"order_number", req.OrderNumber, "category", category, "file", name)
	return req, nil
}

// writeTemp writes data to a hidden temp file in dir and flushes it.
func writeTemp(dir string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, ".pending-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return path, nil
}

// publish hard-links the flushed temp file under its final name. Linking
// fails instead of replacing an existing file, so a name already taken in
// the same second gets a numeric suffix. On filesystems without hard links
// the name is claimed with an exclusive create and the temp file renamed
// over the empty claim.
func (s *FileStore) publish(tmpPath, dir string, req Request) (string, error) {
	base := strings.TrimSuffix(req.FileName(), ".json")
	useLink := true
	for i := 1; i <= maxNameCollisions; i++ {
		name := base + ".json"
		if i > 1 {
			name = fmt.Sprintf("%s_%d.json", base, i)
		}
		path := filepath.Join(dir, name)

		if useLink {
			err := s.link(tmpPath, path)
			if err == nil {
				return name, nil
			}
			if errors.Is(err, fs.ErrExist) {
				continue
			}
			s.logger.Debug("Hard link failed, publishing by rename", "path", path, "error", err)
			useLink = false
		}

		err := claimAndRename(tmpPath, path)
		if err == nil {
			return name, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("publish %s: %w", name, err)
		}
	}
	return "", fmt.Errorf("no free file name for %s after %d attempts", base, maxNameCollisions)
}

// claimAndRename creates path exclusively and then renames tmpPath over it.
func claimAndRename(tmpPath, path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	syncErr := d.Sync()
	if err := d.Close(); err != nil && syncErr == nil {
		return err
	}
	return syncErr
}

// Scan returns a lazy sequence over the requests in the given partitions,
// or in every partition when none are given. Each iteration re-reads the
// directories. Malformed records are logged and skipped; the sequence only
// yields an error when a partition cannot be listed or ctx is done.
func (s *FileStore) Scan(ctx context.Context, categories ...Category) iter.Seq2[Request, error] {
	if len(categories) == 0 {
		categories = Categories
	}
	return func(yield func(Request, error) bool) {
		for _, category := range categories {
			if !category.Valid() {
				if !yield(Request{}, fmt.Errorf("%w: %q", ErrUnknownCategory, category)) {
					return
				}
				continue
			}
			if !s.scanPartition(ctx, category, yield) {
				return
			}
		}
	}
}

// scanPartition yields the records of one partition and reports whether
// the caller wants more.
func (s *FileStore) scanPartition(ctx context.Context, category Category, yield func(Request, error) bool) bool {
	dir := filepath.Join(s.root, string(category))
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return true
	}
	if err != nil {
		return yield(Request{}, fmt.Errorf("read partition %s: %w", category, err))
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			yield(Request{}, err)
			return false
		}
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".json" {
			continue
		}

		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				s.logger.WarnContext(ctx, "Skipping unreadable record", "path", path, "error", err)
			}
			continue
		}
		if len(data) == 0 {
			// Name claimed by an append that has not renamed its record yet.
			continue
		}

		req, err := decodeRequest(data, category)
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping malformed record", "path", path, "error", err)
			continue
		}
		if !yield(req, nil) {
			return false
		}
	}
	return true
}
