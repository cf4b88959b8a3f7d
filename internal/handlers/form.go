package handlers

import (
	"mime/multipart"
	"strings"

	"movie-meme-api/internal/models"
	"movie-meme-api/internal/pipeline"
)

// uploadForm is the multipart body of both upload routes. Required fields are
// checked by the pipeline so that its error messages reach the client.
type uploadForm struct {
	Title     string                  `form:"title"`
	MovieName string                  `form:"movieName"`
	UserID    string                  `form:"userId"`
	Tags      []string                `form:"tags"`
	TagList   []string                `form:"tags[]"`
	Video     *multipart.FileHeader   `form:"video"`
	Videos    []*multipart.FileHeader `form:"videos"`
}

func (f *uploadForm) metadata() pipeline.Metadata {
	return pipeline.Metadata{
		Title:     strings.TrimSpace(f.Title),
		MovieName: strings.TrimSpace(f.MovieName),
		Tags:      models.TagsFromForm(f.Tags, f.TagList),
		UserID:    strings.TrimSpace(f.UserID),
	}
}
