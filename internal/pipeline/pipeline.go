// Package pipeline turns uploaded files and form fields into catalog records
// and removes them again.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"movie-meme-api/internal/logging"
	"movie-meme-api/internal/models"
	"movie-meme-api/internal/storage"
	"movie-meme-api/internal/thumbnail"

	"go.uber.org/zap"
)

// PublicPrefix is the URL path the Asset Store is served under.
const PublicPrefix = "/uploads"

// CatalogStore is the subset of the catalog the pipeline writes to.
type CatalogStore interface {
	Create(ctx context.Context, v *models.Video) error
	Get(ctx context.Context, id string) (*models.Video, error)
	Delete(ctx context.Context, id string) error
}

// ThumbnailGenerator produces a still for a stored video.
type ThumbnailGenerator interface {
	Generate(ctx context.Context, req thumbnail.Request) (string, error)
}

// Status classifies the outcome of a pipeline operation.
type Status int

const (
	// Succeeded means every step, including best-effort ones, worked.
	Succeeded Status = iota
	// Degraded means the operation took effect but a best-effort step failed.
	Degraded
	// Failed means nothing was persisted.
	Failed
)

func (s Status) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case Degraded:
		return "degraded"
	default:
		return "failed"
	}
}

// File is one incoming upload.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// FromFileHeader adapts a parsed multipart file.
func FromFileHeader(fh *multipart.FileHeader) File {
	return File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			f, err := fh.Open()
			if err != nil {
				return nil, err
			}
			return f, nil
		},
	}
}

// Metadata is the normalized form data of an upload.
type Metadata struct {
	Title     string
	MovieName string
	Tags      []string
	UserID    string
}

// Options configures intake limits.
type Options struct {
	MaxBytes      int64
	MaxBatchFiles int
}

// Pipeline coordinates the Asset Store, the thumbnail generator and the catalog.
type Pipeline struct {
	assets   *storage.Store
	thumbs   ThumbnailGenerator
	catalog  CatalogStore
	logger   *zap.Logger
	maxBytes int64
	maxBatch int
}

// New wires a pipeline. A nil thumbnail generator skips thumbnails.
func New(assets *storage.Store, thumbs ThumbnailGenerator, catalog CatalogStore, logger *zap.Logger, opts Options) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxBatchFiles <= 0 {
		opts.MaxBatchFiles = 10
	}
	return &Pipeline{
		assets:   assets,
		thumbs:   thumbs,
		catalog:  catalog,
		logger:   logger,
		maxBytes: opts.MaxBytes,
		maxBatch: opts.MaxBatchFiles,
	}
}

// MaxBatchFiles is the batch size limit.
func (p *Pipeline) MaxBatchFiles() int { return p.maxBatch }

// store runs the per-file steps shared by single and batch uploads: write the
// asset, try a thumbnail, persist the record. On error every file it wrote is
// removed again.
func (p *Pipeline) store(ctx context.Context, f File, meta Metadata, baseURL string) (*models.Video, []string, error) {
	cleanup := storage.NewCleanup(p.assets, p.logger)

	src, err := f.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("open upload %s: %w", f.Name, err)
	}
	name, err := p.assets.Save(src, f.Name)
	src.Close()
	if err != nil {
		return nil, nil, fmt.Errorf("store %s: %w", f.Name, err)
	}
	cleanup.AddVideo(name)

	video := models.NewVideo(meta.Title, meta.MovieName, meta.UserID, meta.Tags)
	video.FilePath = PublicURL(baseURL, name)

	var warnings []string
	if thumb, err := p.thumbnail(ctx, name); err != nil {
		warnings = append(warnings, "thumbnail: "+err.Error())
		p.logger.Warn("thumbnail generation failed, continuing without one",
			zap.String(logging.FieldFile, name), zap.Error(err))
	} else {
		cleanup.AddThumbnail(thumb)
		video.ThumbnailPath = PublicURL(baseURL, thumbnail.DirName, thumb)
	}

	if err := p.catalog.Create(ctx, video); err != nil {
		cleanup.Run()
		return nil, nil, fmt.Errorf("save video metadata: %w", err)
	}
	cleanup.Release()

	p.logger.Info("video stored",
		zap.String(logging.FieldVideoID, video.ID),
		zap.String(logging.FieldFile, name),
		zap.Bool("thumbnail", video.ThumbnailPath != ""))
	return video, warnings, nil
}

func (p *Pipeline) thumbnail(ctx context.Context, name string) (string, error) {
	if p.thumbs == nil {
		return "", fmt.Errorf("thumbnails disabled")
	}
	out, err := p.thumbs.Generate(ctx, thumbnail.Request{
		Source:    p.assets.Path(name),
		OutputDir: p.assets.Root(),
		Stem:      thumbnail.Stem(name),
	})
	if err != nil {
		return "", err
	}
	return filepath.Base(out), nil
}

// PublicURL joins the base URL, the public prefix and the asset path parts.
func PublicURL(baseURL string, parts ...string) string {
	return strings.TrimRight(baseURL, "/") + path.Join(append([]string{PublicPrefix}, parts...)...)
}

// AssetName extracts the file name from a locator produced by PublicURL. It
// returns "" when the locator has no usable name.
func AssetName(locator string) string {
	if locator == "" {
		return ""
	}
	p := locator
	if u, err := url.Parse(locator); err == nil {
		p = u.Path
	}
	name := path.Base(p)
	if name == "." || name == "/" || name == "" {
		return ""
	}
	return name
}
