package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"movie-meme-api/internal/database"
	"movie-meme-api/internal/logging"
	"movie-meme-api/internal/middleware"
	"movie-meme-api/internal/models"
	"movie-meme-api/internal/ownership"
	"movie-meme-api/internal/pipeline"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"
)

// VideoCatalog is the read side of the catalog used by the API.
type VideoCatalog interface {
	List(ctx context.Context) ([]models.Video, error)
	Search(ctx context.Context, q database.Query) ([]models.Video, error)
	Get(ctx context.Context, id string) (*models.Video, error)
}

// VideoHandler serves the /api/videos routes.
type VideoHandler struct {
	catalog  VideoCatalog
	pipeline *pipeline.Pipeline
	owners   *ownership.Issuer
	baseURL  string
	maxBody  int64
	logger   *zap.Logger
}

// VideoOptions configures a VideoHandler.
type VideoOptions struct {
	// PublicBaseURL overrides the scheme and host derived from each request.
	PublicBaseURL string
	// MaxUploadBytes is the per-file limit; the request body limit is derived
	// from it and the batch size.
	MaxUploadBytes int64
}

// NewVideoHandler wires the handler. A nil issuer disables owner tokens.
func NewVideoHandler(catalog VideoCatalog, p *pipeline.Pipeline, owners *ownership.Issuer, logger *zap.Logger, opts VideoOptions) *VideoHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	var maxBody int64
	if opts.MaxUploadBytes > 0 {
		maxBody = opts.MaxUploadBytes*int64(p.MaxBatchFiles()) + 1<<20
	}
	return &VideoHandler{
		catalog:  catalog,
		pipeline: p,
		owners:   owners,
		baseURL:  opts.PublicBaseURL,
		maxBody:  maxBody,
		logger:   logger,
	}
}

// ListVideos returns every record, newest first.
func (h *VideoHandler) ListVideos(c *gin.Context) {
	videos, err := h.catalog.List(c.Request.Context())
	if err != nil {
		h.serverError(c, "Failed to fetch videos", err)
		return
	}
	c.JSON(http.StatusOK, videos)
}

// SearchVideos filters by q (text), tag or movie, in that priority.
func (h *VideoHandler) SearchVideos(c *gin.Context) {
	q := database.Query{
		Text:  c.Query("q"),
		Tag:   c.Query("tag"),
		Movie: c.Query("movie"),
	}
	videos, err := h.catalog.Search(c.Request.Context(), q)
	if err != nil {
		h.serverError(c, "Failed to search videos", err)
		return
	}
	h.logger.Debug("search", zap.String("mode", q.Mode()), zap.Int("results", len(videos)))
	c.JSON(http.StatusOK, videos)
}

// GetVideo returns one record.
func (h *VideoHandler) GetVideo(c *gin.Context) {
	id := c.Param("id")
	video, err := h.catalog.Get(c.Request.Context(), id)
	if err != nil {
		h.lookupError(c, id, err)
		return
	}
	c.JSON(http.StatusOK, video)
}

// UploadVideo stores one file sent in the "video" form field.
func (h *VideoHandler) UploadVideo(c *gin.Context) {
	form, ok := h.parseForm(c)
	if !ok {
		return
	}

	req := pipeline.UploadRequest{
		Metadata: form.metadata(),
		BaseURL:  h.publicBaseURL(c),
	}
	if form.Video != nil {
		f := pipeline.FromFileHeader(form.Video)
		req.File = &f
	}

	res, err := h.pipeline.Single(c.Request.Context(), req)
	if err != nil {
		h.uploadError(c, "Failed to upload video", err)
		return
	}
	for _, w := range res.Warnings {
		h.logger.Warn("upload degraded",
			zap.String(logging.FieldVideoID, res.Video.ID),
			zap.String("warning", w),
			zap.String(logging.FieldRequestID, middleware.GetRequestID(c)))
	}

	if h.owners.Enabled() {
		token, err := h.owners.Issue(res.Video.ID)
		if err != nil {
			h.serverError(c, "Failed to issue owner token", err)
			return
		}
		c.Header(middleware.OwnerTokenHeader, token)
	}
	c.JSON(http.StatusCreated, res.Video)
}

// UploadBatch stores every file sent in the "videos" form field under one
// shared movie name and tag set.
func (h *VideoHandler) UploadBatch(c *gin.Context) {
	form, ok := h.parseForm(c)
	if !ok {
		return
	}

	meta := form.metadata()
	req := pipeline.BatchRequest{
		MovieName: meta.MovieName,
		Tags:      meta.Tags,
		UserID:    meta.UserID,
		BaseURL:   h.publicBaseURL(c),
	}
	for _, fh := range form.Videos {
		req.Files = append(req.Files, pipeline.FromFileHeader(fh))
	}

	res, err := h.pipeline.Batch(c.Request.Context(), req)
	if err != nil {
		h.uploadError(c, "Failed to upload videos", err)
		return
	}
	if res.Status == pipeline.Failed {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "No videos were uploaded",
			"errors": res.Errors,
		})
		return
	}

	body := gin.H{
		"message":        fmt.Sprintf("%d videos uploaded successfully", len(res.Videos)),
		"uploadedVideos": res.Videos,
	}
	if len(res.Errors) > 0 {
		body["errors"] = res.Errors
	}
	if h.owners.Enabled() {
		tokens := make(map[string]string, len(res.Videos))
		for _, v := range res.Videos {
			token, err := h.owners.Issue(v.ID)
			if err != nil {
				h.serverError(c, "Failed to issue owner token", err)
				return
			}
			tokens[v.ID] = token
		}
		body["ownerTokens"] = tokens
	}
	c.JSON(http.StatusCreated, body)
}

// DeleteVideo removes a record and its files. With owner tokens enabled the
// request must carry the token issued for that video.
func (h *VideoHandler) DeleteVideo(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.catalog.Get(c.Request.Context(), id); err != nil {
		h.lookupError(c, id, err)
		return
	}

	if err := h.owners.Verify(c.GetHeader("Authorization"), id); err != nil {
		h.logger.Info("delete refused", zap.String(logging.FieldVideoID, id), zap.Error(err))
		c.JSON(http.StatusForbidden, gin.H{"error": "A valid owner token is required to delete this video"})
		return
	}

	res, err := h.pipeline.Delete(c.Request.Context(), id)
	if err != nil {
		h.lookupError(c, id, err)
		return
	}
	for _, w := range res.Warnings {
		h.logger.Warn("delete degraded", zap.String(logging.FieldVideoID, id), zap.String("warning", w))
	}
	c.JSON(http.StatusOK, gin.H{"message": "Video deleted successfully"})
}

// parseForm applies the body limit and binds the multipart form. A body that
// cannot be bound yields an empty form so the pipeline reports the missing
// fields.
func (h *VideoHandler) parseForm(c *gin.Context) (*uploadForm, bool) {
	if h.maxBody > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody)
	}
	var form uploadForm
	if err := c.ShouldBindWith(&form, binding.FormMultipart); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})
			return nil, false
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			h.logger.Debug("multipart form not bound", zap.Error(err))
		}
		return &uploadForm{}, true
	}
	return &form, true
}

func (h *VideoHandler) publicBaseURL(c *gin.Context) string {
	if h.baseURL != "" {
		return h.baseURL
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

func (h *VideoHandler) lookupError(c *gin.Context, id string, err error) {
	if errors.Is(err, database.ErrNotFound) {
		msg := "Video not found"
		if !database.ValidID(id) {
			msg = "Invalid video ID"
		}
		c.JSON(http.StatusNotFound, gin.H{"error": msg})
		return
	}
	h.serverError(c, "Failed to fetch video", err)
}

func (h *VideoHandler) uploadError(c *gin.Context, msg string, err error) {
	var input *pipeline.InputError
	if errors.As(err, &input) {
		status := http.StatusBadRequest
		if errors.Is(err, pipeline.ErrTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, gin.H{"error": input.Message})
		return
	}
	h.serverError(c, msg, err)
}

// serverError records err for the error middleware and answers 500.
func (h *VideoHandler) serverError(c *gin.Context, msg string, err error) {
	_ = c.Error(err)
	body := gin.H{"error": msg}
	if gin.Mode() == gin.DebugMode {
		body["details"] = err.Error()
	}
	c.JSON(http.StatusInternalServerError, body)
}
