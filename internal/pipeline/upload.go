package pipeline

import (
	"context"
	"fmt"
	"strings"

	"movie-meme-api/internal/models"

	"go.uber.org/zap"
)

// UploadRequest is a single-file upload.
type UploadRequest struct {
	File     *File
	Metadata Metadata
	// BaseURL is the scheme and host clients use to reach the Asset Store.
	BaseURL string
}

// Result is the outcome of a single upload or delete.
type Result struct {
	Video    *models.Video
	Status   Status
	Warnings []string
}

// Single validates and stores one upload. Input problems come back as
// *InputError before anything is written; any later failure removes the files
// written for the request.
func (p *Pipeline) Single(ctx context.Context, req UploadRequest) (Result, error) {
	// A started upload runs to completion even if the client goes away.
	ctx = context.WithoutCancel(ctx)

	if req.File == nil {
		return Result{Status: Failed}, inputError(ErrMissingFile, "Please upload a video file")
	}
	if err := checkFile(*req.File, p.maxBytes); err != nil {
		return Result{Status: Failed}, err
	}

	meta := req.Metadata
	meta.Title = strings.TrimSpace(meta.Title)
	if meta.Title == "" || len(meta.Tags) == 0 {
		return Result{Status: Failed}, inputError(ErrMissingFields, "Title and tags are required")
	}

	video, warnings, err := p.store(ctx, *req.File, meta, req.BaseURL)
	if err != nil {
		p.logger.Error("upload failed", zap.String("filename", req.File.Name), zap.Error(err))
		return Result{Status: Failed}, err
	}

	status := Succeeded
	if len(warnings) > 0 {
		status = Degraded
	}
	return Result{Video: video, Status: status, Warnings: warnings}, nil
}

// BatchRequest is a multi-file upload sharing one set of metadata.
type BatchRequest struct {
	Files     []File
	MovieName string
	Tags      []string
	UserID    string
	BaseURL   string
}

// FileError reports why one file of a batch was not stored.
type FileError struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// BatchResult is the outcome of a batch upload.
type BatchResult struct {
	Videos []models.Video
	Errors []FileError
	Status Status
}

// Batch stores every acceptable file of the request independently. A failing
// file is reported in Errors and does not stop the others. The whole batch is
// rejected up front when it is empty, too large or has no tags.
func (p *Pipeline) Batch(ctx context.Context, req BatchRequest) (BatchResult, error) {
	ctx = context.WithoutCancel(ctx)

	if len(req.Files) == 0 {
		return BatchResult{Status: Failed}, inputError(ErrMissingFile, "Please upload at least one video file")
	}
	if len(req.Files) > p.maxBatch {
		return BatchResult{Status: Failed}, inputError(ErrTooManyFiles, "At most %d videos can be uploaded at once", p.maxBatch)
	}
	if len(req.Tags) == 0 {
		return BatchResult{Status: Failed}, inputError(ErrMissingFields, "Tags are required")
	}

	movieName := strings.TrimSpace(req.MovieName)
	if movieName == "" {
		movieName = models.DefaultMovieName
	}

	result := BatchResult{Videos: []models.Video{}}
	degraded := false
	for i, f := range req.Files {
		if err := checkFile(f, p.maxBytes); err != nil {
			result.Errors = append(result.Errors, FileError{Filename: f.Name, Error: err.Error()})
			continue
		}
		meta := Metadata{
			Title:     fmt.Sprintf("%s - Clip %d", movieName, i+1),
			MovieName: movieName,
			Tags:      req.Tags,
			UserID:    req.UserID,
		}
		video, warnings, err := p.store(ctx, f, meta, req.BaseURL)
		if err != nil {
			p.logger.Warn("batch file failed", zap.String("filename", f.Name), zap.Error(err))
			result.Errors = append(result.Errors, FileError{Filename: f.Name, Error: err.Error()})
			continue
		}
		if len(warnings) > 0 {
			degraded = true
		}
		result.Videos = append(result.Videos, *video)
	}

	switch {
	case len(result.Videos) == 0:
		result.Status = Failed
	case degraded || len(result.Errors) > 0:
		result.Status = Degraded
	default:
		result.Status = Succeeded
	}
	p.logger.Info("batch processed",
		zap.Int("files", len(req.Files)),
		zap.Int("stored", len(result.Videos)),
		zap.Int("failed", len(result.Errors)),
		zap.Stringer("status", result.Status))
	return result, nil
}
