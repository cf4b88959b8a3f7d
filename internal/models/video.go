package models

import "time"

const (
	DefaultMovieName = "Unknown"
	DefaultUserID    = "anonymous"
)

// Video is one stored meme: its metadata and the public locators of its assets.
type Video struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	FilePath      string    `json:"filePath"`
	ThumbnailPath string    `json:"thumbnailPath"`
	Tags          []string  `json:"tags"`
	MovieName     string    `json:"movieName"`
	UserID        string    `json:"userId"`
	CreatedAt     time.Time `json:"createdAt"`
}

// NewVideo fills in the defaults for the optional fields.
func NewVideo(title, movieName, userID string, tags []string) *Video {
	if movieName == "" {
		movieName = DefaultMovieName
	}
	if userID == "" {
		userID = DefaultUserID
	}
	return &Video{
		Title:     title,
		MovieName: movieName,
		UserID:    userID,
		Tags:      tags,
	}
}
