// Package models defines the entities persisted by the pipeline and the raw
// Helix payloads they are decoded from.
package models

import "time"

// User is a Twitch broadcaster account.
type User struct {
	ID              string    `json:"id"`
	Login           string    `json:"login"`
	DisplayName     string    `json:"display_name"`
	BroadcasterType string    `json:"broadcaster_type"`
	Description     string    `json:"description"`
	ProfileImageURL string    `json:"profile_image_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Game is a Twitch game/category.
type Game struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	BoxArtURL string `json:"box_art_url"`
}

// Stream is a live broadcast. GameID is nil when the category could not be
// resolved against the accepted game set.
type Stream struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	GameID       *string   `json:"game_id"`
	Title        string    `json:"title"`
	ViewerCount  int       `json:"viewer_count"`
	StartedAt    time.Time `json:"started_at"`
	Language     string    `json:"language"`
	ThumbnailURL string    `json:"thumbnail_url"`
}

// Video is a VOD. StreamID is nil for videos with no originating stream,
// which is a legal value, not an integrity violation.
type Video struct {
	ID           string     `json:"id"`
	StreamID     *string    `json:"stream_id"`
	UserID       string     `json:"user_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	CreatedAt    time.Time  `json:"created_at"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	URL          string     `json:"url"`
	ThumbnailURL string     `json:"thumbnail_url"`
	ViewCount    int64      `json:"view_count"`
	Language     string     `json:"language"`
	Duration     string     `json:"duration"`
	Type         string     `json:"type"`
}

// Clip is a short highlight cut from a broadcast.
type Clip struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	VideoID      *string   `json:"video_id"`
	GameID       *string   `json:"game_id"`
	Title        string    `json:"title"`
	ViewCount    int64     `json:"view_count"`
	CreatedAt    time.Time `json:"created_at"`
	ThumbnailURL string    `json:"thumbnail_url"`
	URL          string    `json:"url"`
	EmbedURL     string    `json:"embed_url"`
	Duration     *float64  `json:"duration"`
	Language     string    `json:"language"`
}

// Dataset groups the transformed collections of a single pipeline run.
type Dataset struct {
	Users   []User   `json:"users"`
	Games   []Game   `json:"games"`
	Streams []Stream `json:"streams"`
	Videos  []Video  `json:"videos"`
	Clips   []Clip   `json:"clips"`
}

// Total returns the number of records across all collections.
func (d Dataset) Total() int {
	return len(d.Users) + len(d.Games) + len(d.Streams) + len(d.Videos) + len(d.Clips)
}
