// Package ytmedia looks up, searches and resolves YouTube media.
package ytmedia

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"
)

var (
	ErrVideoNotFound      = errors.New("video not found")
	ErrVideoNotEmbeddable = errors.New("video is not embeddable")
	ErrResolution         = errors.New("failed to resolve stream")
	ErrSearch             = errors.New("search failed")
	ErrInvalidURL         = errors.New("invalid youtube url")
)

const (
	defaultOEmbedURL = "https://www.youtube.com/oembed"
	defaultPageURL   = "https://youtu.be/"
	defaultYtDlpPath = "yt-dlp"
	defaultTimeout   = 10 * time.Second
)

var (
	urlIDRe  = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/)([^&\n?#]+)`)
	bareIDRe = regexp.MustCompile(`^([a-zA-Z0-9_-]{11})$`)
)

type VideoData struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

type Config struct {
	HTTPClient *http.Client
	Runner     Runner
	YtDlpPath  string
	OEmbedURL  string
	PageURL    string
}

type Client struct {
	httpClient *http.Client
	runner     Runner
	ytDlpPath  string
	oEmbedURL  string
	pageURL    string
}

// NewClient fills zero Config fields with the public YouTube endpoints and
// a yt-dlp binary found on PATH.
func NewClient(cfg *Config) *Client {
	c := &Client{
		httpClient: cfg.HTTPClient,
		runner:     cfg.Runner,
		ytDlpPath:  cfg.YtDlpPath,
		oEmbedURL:  cfg.OEmbedURL,
		pageURL:    cfg.PageURL,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if c.runner == nil {
		c.runner = execRunner{}
	}
	if c.ytDlpPath == "" {
		c.ytDlpPath = defaultYtDlpPath
	}
	if c.oEmbedURL == "" {
		c.oEmbedURL = defaultOEmbedURL
	}
	if c.pageURL == "" {
		c.pageURL = defaultPageURL
	}

	return c
}

// Get returns the title, author and thumbnail of a video. Videos that
// refuse embedding are scraped from their watch page instead.
func (c Client) Get(ctx context.Context, videoID string) (*VideoData, error) {
	videoData, err := c.getWithEmbed(ctx, videoID)
	if err != nil {
		if !errors.Is(err, ErrVideoNotEmbeddable) {
			return nil, fmt.Errorf("failed to get video data with embed: %w", err)
		}

		videoData, err = c.getFromPage(ctx, videoID)
		if err != nil {
			return nil, fmt.Errorf("failed to get video data from page: %w", err)
		}
	}

	return videoData, nil
}

// ExtractID accepts watch, short and embed URLs as well as a bare id.
func ExtractID(s string) (string, error) {
	if m := urlIDRe.FindStringSubmatch(s); m != nil {
		return m[1], nil
	}
	if m := bareIDRe.FindStringSubmatch(s); m != nil {
		return m[1], nil
	}

	return "", ErrInvalidURL
}

func DefaultThumbnail(videoID string) string {
	return fmt.Sprintf("https://i.ytimg.com/vi/%s/mqdefault.jpg", videoID)
}

func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
