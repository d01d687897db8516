package models

// Raw Helix payloads, decoded once at the API boundary. Date fields stay as
// strings here; the transform stage owns normalization. Helix uses the empty
// string, not null, for absent optional ids.

// HelixUser mirrors one element of GET /users.
type HelixUser struct {
	ID              string `json:"id"`
	Login           string `json:"login"`
	DisplayName     string `json:"display_name"`
	Type            string `json:"type"`
	BroadcasterType string `json:"broadcaster_type"`
	Description     string `json:"description"`
	ProfileImageURL string `json:"profile_image_url"`
	CreatedAt       string `json:"created_at"`
}

// HelixGame mirrors one element of GET /games and GET /games/top.
type HelixGame struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	BoxArtURL string `json:"box_art_url"`
}

// HelixStream mirrors one element of GET /streams.
type HelixStream struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	UserLogin    string `json:"user_login"`
	UserName     string `json:"user_name"`
	GameID       string `json:"game_id"`
	GameName     string `json:"game_name"`
	Type         string `json:"type"`
	Title        string `json:"title"`
	ViewerCount  int    `json:"viewer_count"`
	StartedAt    string `json:"started_at"`
	Language     string `json:"language"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// HelixVideo mirrors one element of GET /videos. StreamID is a pointer
// because the API sends an explicit null for videos without a stream.
type HelixVideo struct {
	ID           string  `json:"id"`
	StreamID     *string `json:"stream_id"`
	UserID       string  `json:"user_id"`
	UserLogin    string  `json:"user_login"`
	UserName     string  `json:"user_name"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	CreatedAt    string  `json:"created_at"`
	PublishedAt  string  `json:"published_at"`
	URL          string  `json:"url"`
	ThumbnailURL string  `json:"thumbnail_url"`
	Viewable     string  `json:"viewable"`
	ViewCount    int64   `json:"view_count"`
	Language     string  `json:"language"`
	Type         string  `json:"type"`
	Duration     string  `json:"duration"`
}

// HelixClip mirrors one element of GET /clips.
type HelixClip struct {
	ID              string  `json:"id"`
	URL             string  `json:"url"`
	EmbedURL        string  `json:"embed_url"`
	BroadcasterID   string  `json:"broadcaster_id"`
	BroadcasterName string  `json:"broadcaster_name"`
	CreatorID       string  `json:"creator_id"`
	CreatorName     string  `json:"creator_name"`
	VideoID         string  `json:"video_id"`
	GameID          string  `json:"game_id"`
	Language        string  `json:"language"`
	Title           string  `json:"title"`
	ViewCount       int64   `json:"view_count"`
	CreatedAt       string  `json:"created_at"`
	ThumbnailURL    string  `json:"thumbnail_url"`
	Duration        float64 `json:"duration"`
}

// RawDataset is the extract stage artifact, written to the working directory
// and consumed by the transform stage.
type RawDataset struct {
	Users   []HelixUser   `json:"users"`
	Games   []HelixGame   `json:"games"`
	Streams []HelixStream `json:"streams"`
	Videos  []HelixVideo  `json:"videos"`
	Clips   []HelixClip   `json:"clips"`
}

// Total returns the number of raw records across all entities.
func (d *RawDataset) Total() int {
	return len(d.Users) + len(d.Games) + len(d.Streams) + len(d.Videos) + len(d.Clips)
}
