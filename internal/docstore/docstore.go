// Package docstore keeps one JSON document per collection on disk.
//
// Every write replaces the whole file. Before a file is replaced its previous
// contents are copied into the backup directory; a failed backup is logged and
// does not block the write. Reads go through a short-lived in-memory cache that
// every write refreshes. Read-modify-write cycles run inside an exclusive
// section per collection, so updates to one collection are serialized while
// other collections proceed in parallel.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/staysync/staysync/internal/metrics"
	"github.com/staysync/staysync/internal/model"
)

// DefaultCacheTTL is how long a document read from disk is served from memory.
const DefaultCacheTTL = 5 * time.Second

var collectionName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// BackupRecorder is told about every backup copy the store takes.
type BackupRecorder interface {
	RecordBackup(ctx context.Context, collection, path string, size int64, takenAt time.Time) error
}

// Options configures a Store.
type Options struct {
	Dir       string
	BackupDir string
	CacheTTL  time.Duration
	Recorder  BackupRecorder
	Now       func() time.Time
}

// Store reads and writes collection documents under Dir.
type Store struct {
	dir       string
	backupDir string
	ttl       time.Duration
	recorder  BackupRecorder
	now       func() time.Time

	mu    sync.Mutex // guards locks and cache
	locks map[string]*sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	data   []byte
	readAt time.Time
}

// New creates the data and backup directories if needed and returns a Store.
func New(opts Options) (*Store, error) {
	if opts.Dir == "" {
		return nil, errors.New("docstore: data directory required")
	}
	if opts.BackupDir == "" {
		opts.BackupDir = filepath.Join(opts.Dir, "backups")
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	for _, dir := range []string{opts.Dir, opts.BackupDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	return &Store{
		dir:       opts.Dir,
		backupDir: opts.BackupDir,
		ttl:       opts.CacheTTL,
		recorder:  opts.Recorder,
		now:       opts.Now,
		locks:     make(map[string]*sync.Mutex),
		cache:     make(map[string]cacheEntry),
	}, nil
}

// BackupDir returns the directory backup copies are written to.
func (s *Store) BackupDir() string { return s.backupDir }

// Path returns the file backing a collection.
func (s *Store) Path(collection string) string {
	return filepath.Join(s.dir, collection+".json")
}

// Read decodes the collection into v. A missing collection is created as an empty document.
func (s *Store) Read(ctx context.Context, collection string, v any) error {
	unlock, err := s.lock(ctx, collection)
	if err != nil {
		return err
	}
	defer unlock()

	data, err := s.load(collection)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", collection, err)
	}
	return nil
}

// Write replaces the collection with v.
func (s *Store) Write(ctx context.Context, collection string, v any) error {
	unlock, err := s.lock(ctx, collection)
	if err != nil {
		return err
	}
	defer unlock()

	return s.encodeAndStore(ctx, collection, v)
}

// Update decodes the collection into v, calls fn, and writes v back.
// If fn returns an error nothing is written and the error is returned as is.
// v should be a pointer to a zero value; fn must not retain it.
func (s *Store) Update(ctx context.Context, collection string, v any, fn func() error) error {
	unlock, err := s.lock(ctx, collection)
	if err != nil {
		return err
	}
	defer unlock()

	data, err := s.load(collection)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", collection, err)
	}

	if err := fn(); err != nil {
		return err
	}

	return s.encodeAndStore(ctx, collection, v)
}

// Restore replaces the collection with the contents of a backup file.
// The current document is itself backed up first.
func (s *Store) Restore(ctx context.Context, collection, backupPath string) error {
	data, err := os.ReadFile(backupPath)
	if err != nil {
		return fmt.Errorf("reading backup: %w", err)
	}
	if !json.Valid(data) {
		return model.Invalid("backup", backupPath+" is not valid JSON")
	}

	unlock, err := s.lock(ctx, collection)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.store(ctx, collection, data); err != nil {
		return err
	}
	slog.Info("collection restored", "collection", collection, "from", backupPath)
	return nil
}

// Invalidate drops the cached copy of a collection.
func (s *Store) Invalidate(collection string) {
	s.mu.Lock()
	delete(s.cache, collection)
	s.mu.Unlock()
}

// lock enters the exclusive section for a collection.
func (s *Store) lock(ctx context.Context, collection string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !collectionName.MatchString(collection) {
		return nil, model.Invalid("collection", fmt.Sprintf("invalid collection name %q", collection))
	}

	s.mu.Lock()
	l, ok := s.locks[collection]
	if !ok {
		l = &sync.Mutex{}
		s.locks[collection] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock, nil
}

// load returns the raw document, from cache when fresh. Caller holds the collection lock.
func (s *Store) load(collection string) ([]byte, error) {
	now := s.now()

	s.mu.Lock()
	entry, ok := s.cache[collection]
	s.mu.Unlock()
	if ok && now.Sub(entry.readAt) < s.ttl {
		metrics.CacheLookups.WithLabelValues(collection, "hit").Inc()
		return entry.data, nil
	}
	metrics.CacheLookups.WithLabelValues(collection, "miss").Inc()

	data, err := os.ReadFile(s.Path(collection))
	if errors.Is(err, fs.ErrNotExist) {
		data = []byte("{}")
		if err := s.replaceFile(collection, data); err != nil {
			return nil, err
		}
		slog.Info("collection created", "collection", collection)
	} else if err != nil {
		return nil, fmt.Errorf("reading %s: %w", collection, err)
	}

	s.mu.Lock()
	s.cache[collection] = cacheEntry{data: data, readAt: now}
	s.mu.Unlock()
	return data, nil
}

func (s *Store) encodeAndStore(ctx context.Context, collection string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", collection, err)
	}
	return s.store(ctx, collection, data)
}

// store backs up the current file, replaces it and refreshes the cache. Caller holds the collection lock.
func (s *Store) store(ctx context.Context, collection string, data []byte) error {
	s.backup(ctx, collection)

	if err := s.replaceFile(collection, data); err != nil {
		return err
	}
	metrics.DocumentWrites.WithLabelValues(collection).Inc()

	s.mu.Lock()
	s.cache[collection] = cacheEntry{data: data, readAt: s.now()}
	s.mu.Unlock()
	return nil
}

// replaceFile writes data to a temp file and renames it over the collection file.
func (s *Store) replaceFile(collection string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, collection+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", collection, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", collection, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing %s: %w", collection, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing %s: %w", collection, err)
	}
	if err := os.Rename(tmpName, s.Path(collection)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", collection, err)
	}
	return nil
}

// backup copies the current collection file into the backup directory. Failures are logged only.
func (s *Store) backup(ctx context.Context, collection string) {
	current, err := os.ReadFile(s.Path(collection))
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err != nil {
		s.backupFailed(collection, err)
		return
	}

	takenAt := s.now()
	path, err := s.writeBackup(collection, takenAt, current)
	if err != nil {
		s.backupFailed(collection, err)
		return
	}

	if s.recorder != nil {
		if err := s.recorder.RecordBackup(ctx, collection, path, int64(len(current)), takenAt); err != nil {
			slog.Warn("recording backup failed", "collection", collection, "path", path, "error", err)
		}
	}
}

func (s *Store) backupFailed(collection string, err error) {
	metrics.BackupFailures.WithLabelValues(collection).Inc()
	slog.Warn("backup failed", "collection", collection, "error", err)
}

// writeBackup creates a uniquely named backup file, adding a counter suffix on collision.
func (s *Store) writeBackup(collection string, takenAt time.Time, data []byte) (string, error) {
	base := collection + "_" + BackupStamp(takenAt)
	for i := 0; i < 100; i++ {
		name := base
		if i > 0 {
			name = fmt.Sprintf("%s-%d", base, i)
		}
		path := filepath.Join(s.backupDir, name+".json")

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("creating backup: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(path)
			return "", fmt.Errorf("writing backup: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("closing backup: %w", err)
		}
		return path, nil
	}
	return "", fmt.Errorf("no free backup name for %s", base)
}

// BackupStamp formats t as an ISO timestamp with ':' and '.' replaced so it is safe in file names.
func BackupStamp(t time.Time) string {
	iso := t.UTC().Format("2006-01-02T15:04:05.000Z")
	return strings.NewReplacer(":", "-", ".", "-").Replace(iso)
}

// ListBackupFiles returns backup files for a collection found on disk, oldest first.
// Copies sharing a stamp are ordered by their collision counter.
func (s *Store) ListBackupFiles(collection string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.backupDir, collection+"_*.json"))
	if err != nil {
		return nil, fmt.Errorf("listing backups: %w", err)
	}

	type backupFile struct {
		path  string
		stamp string
		n     int
	}
	prefix := collection + "_"
	var files []backupFile
	for _, m := range matches {
		rest := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(m), prefix), ".json")
		// Skip collections sharing the prefix, e.g. "users_archive".
		if rest == "" || rest[0] < '0' || rest[0] > '9' {
			continue
		}
		f := backupFile{path: m, stamp: rest}
		if stamp, counter, ok := strings.Cut(rest, "Z-"); ok {
			n, err := strconv.Atoi(counter)
			if err != nil {
				continue
			}
			f.stamp, f.n = stamp+"Z", n
		}
		files = append(files, f)
	}
	slices.SortFunc(files, func(a, b backupFile) int {
		if c := strings.Compare(a.stamp, b.stamp); c != 0 {
			return c
		}
		return a.n - b.n
	})

	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.path
	}
	return out, nil
}

// LatestBackupFile returns the newest backup of a collection found on disk, or
// "" if there is none.
func (s *Store) LatestBackupFile(collection string) (string, error) {
	files, err := s.ListBackupFiles(collection)
	if err != nil || len(files) == 0 {
		return "", err
	}
	return files[len(files)-1], nil
}
