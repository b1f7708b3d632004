package domain

const DefaultTrackTitle = "Unknown Title"

// Track is immutable once created; only its position in a queue changes.
type Track struct {
	ID           string `json:"id"`
	MediaRef     string `json:"media_ref"`
	Title        string `json:"title"`
	AddedBy      string `json:"added_by"`
	ThumbnailRef string `json:"thumbnail_ref"`
}
