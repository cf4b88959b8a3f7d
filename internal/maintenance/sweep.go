// Package maintenance removes Asset Store files that no catalog record
// references, such as leftovers from a crash between writing a file and
// persisting its record.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"movie-meme-api/internal/logging"
	"movie-meme-api/internal/pipeline"
	"movie-meme-api/internal/storage"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

// LockFileName is created in the store root while a sweep runs.
const LockFileName = ".sweep.lock"

// DefaultMinAge keeps files young enough to belong to an upload in progress.
const DefaultMinAge = time.Hour

// ErrLocked is returned when another sweep holds the lock.
var ErrLocked = errors.New("another sweep is running")

// References lists the locators of every stored record.
type References interface {
	ReferencedLocators(ctx context.Context) ([]string, error)
}

// Options controls a sweep.
type Options struct {
	MinAge time.Duration
	DryRun bool
	Now    func() time.Time
}

// Report summarizes a sweep.
type Report struct {
	Scanned    int
	Referenced int
	TooYoung   int
	Removed    []storage.Asset
	Failed     []storage.Asset
	Bytes      int64
	DryRun     bool
}

// Sweeper finds and removes unreferenced assets.
type Sweeper struct {
	assets *storage.Store
	refs   References
	logger *zap.Logger
}

func NewSweeper(assets *storage.Store, refs References, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{assets: assets, refs: refs, logger: logger}
}

// Sweep removes every unreferenced file older than opts.MinAge. With DryRun
// the report lists what would be removed and nothing is deleted.
func (s *Sweeper) Sweep(ctx context.Context, opts Options) (Report, error) {
	if opts.MinAge <= 0 {
		opts.MinAge = DefaultMinAge
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	report := Report{DryRun: opts.DryRun}

	lock := flock.New(filepath.Join(s.assets.Root(), LockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return report, fmt.Errorf("acquire sweep lock: %w", err)
	}
	if !ok {
		return report, ErrLocked
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			s.logger.Warn("failed to release sweep lock", zap.Error(err))
		}
	}()

	locators, err := s.refs.ReferencedLocators(ctx)
	if err != nil {
		return report, fmt.Errorf("load references: %w", err)
	}
	videos := make(map[string]bool)
	thumbs := make(map[string]bool)
	for _, loc := range locators {
		name := pipeline.AssetName(loc)
		if name == "" {
			continue
		}
		if path.Base(path.Dir(loc)) == storage.ThumbnailsDirName {
			thumbs[name] = true
		} else {
			videos[name] = true
		}
	}

	assets, err := s.assets.List()
	if err != nil {
		return report, fmt.Errorf("list assets: %w", err)
	}

	cutoff := opts.Now().Add(-opts.MinAge)
	for _, a := range assets {
		if !a.Thumbnail && a.Name == LockFileName {
			continue
		}
		report.Scanned++

		if (a.Thumbnail && thumbs[a.Name]) || (!a.Thumbnail && videos[a.Name]) {
			report.Referenced++
			continue
		}
		if a.ModTime.After(cutoff) {
			report.TooYoung++
			continue
		}

		if !opts.DryRun {
			if err := os.Remove(a.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
				s.logger.Warn("sweep: remove failed", zap.String(logging.FieldFile, a.Path), zap.Error(err))
				report.Failed = append(report.Failed, a)
				continue
			}
		}
		report.Removed = append(report.Removed, a)
		report.Bytes += a.Size
	}

	s.logger.Info("sweep finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("referenced", report.Referenced),
		zap.Int("too_young", report.TooYoung),
		zap.Int("removed", len(report.Removed)),
		zap.Int("failed", len(report.Failed)),
		zap.Bool("dry_run", opts.DryRun))
	return report, nil
}
