package service

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"masterfy/internal/database"

	"github.com/sirupsen/logrus"
)

const (
	backupPrefix = "masterfy_backup_"
	backupSuffix = ".json.gz"
)

type Dumper interface {
	Dump(ctx context.Context) (database.Dump, error)
}

// BackupService writes gzipped JSON copies of the database into dir and
// keeps only the newest retain files.
type BackupService struct {
	src    Dumper
	dir    string
	retain int
	log    *logrus.Logger
	now    func() time.Time

	mu sync.Mutex
}

func NewBackupService(src Dumper, dir string, retain int, log *logrus.Logger) *BackupService {
	return &BackupService{src: src, dir: dir, retain: retain, log: log, now: time.Now}
}

func (b *BackupService) Run(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	dump, err := b.src.Dump(ctx)
	if err != nil {
		return "", fmt.Errorf("dump database: %w", err)
	}
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return "", err
	}

	path, err := b.freePath()
	if err != nil {
		return "", err
	}
	if err := writeGzipJSON(path, dump); err != nil {
		return "", err
	}
	b.log.Infof("backup written: %s", path)

	if err := b.prune(); err != nil {
		b.log.Warnf("backup pruning failed: %v", err)
	}
	return path, nil
}

// freePath names the next backup after the current second. Backups taken
// within the same second get a _NN suffix, which still sorts after the
// unsuffixed name.
func (b *BackupService) freePath() (string, error) {
	stamp := backupPrefix + b.now().Format("20060102_150405")
	path := filepath.Join(b.dir, stamp+backupSuffix)
	for i := 1; ; i++ {
		_, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return path, nil
		}
		if err != nil {
			return "", err
		}
		path = filepath.Join(b.dir, fmt.Sprintf("%s_%02d%s", stamp, i, backupSuffix))
	}
}

// writeGzipJSON writes through a temp file so a crash never leaves a
// truncated backup under the final name.
func writeGzipJSON(path string, v any) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	zw := gzip.NewWriter(f)
	enc := json.NewEncoder(zw)
	if err := enc.Encode(v); err != nil {
		zw.Close()
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := zw.Close(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func (b *BackupService) prune() error {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return err
	}
	var names []string
	for _, e := range entries {
		n := e.Name()
		if !e.IsDir() && strings.HasPrefix(n, backupPrefix) && strings.HasSuffix(n, backupSuffix) {
			names = append(names, n)
		}
	}
	if len(names) <= b.retain {
		return nil
	}
	// timestamps in the names sort chronologically
	sort.Strings(names)
	for _, n := range names[:len(names)-b.retain] {
		if err := os.Remove(filepath.Join(b.dir, n)); err != nil {
			return err
		}
		b.log.Infof("old backup removed: %s", n)
	}
	return nil
}

func (b *BackupService) Start(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				b.log.Info("backup scheduler stopping")
				return
			case <-ticker.C:
				if _, err := b.Run(ctx); err != nil {
					b.log.Errorf("backup failed: %v", err)
				}
			}
		}
	}()
}
