package pipeline

import (
	"context"

	"movie-meme-api/internal/logging"

	"go.uber.org/zap"
)

// Delete removes a record and makes a best-effort attempt to remove its video
// and thumbnail files. Files that are already gone are not an error; other
// file errors are logged and reported as warnings. Unknown or malformed ids
// return the catalog's not-found error.
func (p *Pipeline) Delete(ctx context.Context, id string) (Result, error) {
	ctx = context.WithoutCancel(ctx)

	video, err := p.catalog.Get(ctx, id)
	if err != nil {
		return Result{Status: Failed}, err
	}

	var warnings []string
	if name := AssetName(video.FilePath); name != "" {
		if _, err := p.assets.Remove(name); err != nil {
			warnings = append(warnings, "video file: "+err.Error())
			p.logger.Warn("file deletion failed", zap.String(logging.FieldFile, name), zap.Error(err))
		}
	}
	if name := AssetName(video.ThumbnailPath); name != "" {
		if _, err := p.assets.RemoveThumbnail(name); err != nil {
			warnings = append(warnings, "thumbnail file: "+err.Error())
			p.logger.Warn("thumbnail deletion failed", zap.String(logging.FieldFile, name), zap.Error(err))
		}
	}

	if err := p.catalog.Delete(ctx, id); err != nil {
		return Result{Status: Failed}, err
	}
	p.logger.Info("video deleted", zap.String(logging.FieldVideoID, id))

	status := Succeeded
	if len(warnings) > 0 {
		status = Degraded
	}
	return Result{Video: video, Status: status, Warnings: warnings}, nil
}
