package ytmedia

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

const searchResults = 10

// Runner executes an external command and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return out, nil
}

type SearchResult struct {
	MediaRef        string  `json:"media_ref"`
	Title           string  `json:"title"`
	Author          string  `json:"author"`
	DurationSeconds float64 `json:"duration_seconds"`
	ThumbnailRef    string  `json:"thumbnail_ref"`
}

type ytDlpEntry struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Channel   string   `json:"channel"`
	Uploader  string   `json:"uploader"`
	Duration  *float64 `json:"duration"`
	Thumbnail string   `json:"thumbnail"`
}

// Search returns up to ten results for query. Lines yt-dlp prints that are
// not JSON entries are skipped.
func (c Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	out, err := c.runner.Run(ctx, c.ytDlpPath,
		fmt.Sprintf("ytsearch%d:%s", searchResults, query),
		"--dump-json",
		"--flat-playlist",
		"--no-warnings",
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearch, err)
	}

	results := make([]SearchResult, 0, searchResults)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var entry ytDlpEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			slog.DebugContext(ctx, "skipping unparsable search line", "error", err)
			continue
		}
		if entry.ID == "" {
			continue
		}

		results = append(results, entry.toResult())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearch, err)
	}

	return results, nil
}

func (e ytDlpEntry) toResult() SearchResult {
	r := SearchResult{
		MediaRef:     e.ID,
		Title:        e.Title,
		Author:       e.Channel,
		ThumbnailRef: e.Thumbnail,
	}
	if r.Title == "" {
		r.Title = "Unknown Title"
	}
	if r.Author == "" {
		r.Author = e.Uploader
	}
	if r.Author == "" {
		r.Author = "Unknown"
	}
	if e.Duration != nil {
		r.DurationSeconds = *e.Duration
	}
	if r.ThumbnailRef == "" {
		r.ThumbnailRef = DefaultThumbnail(e.ID)
	}

	return r
}

// Stream is a playable audio source.
type Stream struct {
	URL string
	// DurationSeconds is 0 when yt-dlp does not know the length.
	DurationSeconds float64
}

// ResolveStream returns a direct URL for the best audio-only stream of a
// video, with the video's duration.
func (c Client) ResolveStream(ctx context.Context, videoID string) (Stream, error) {
	out, err := c.runner.Run(ctx, c.ytDlpPath,
		"-f", "bestaudio",
		"--print", "duration",
		"--print", "urls",
		"--no-playlist",
		WatchURL(videoID),
	)
	if err != nil {
		return Stream{}, fmt.Errorf("%w: %w", ErrResolution, err)
	}

	var stream Stream
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
		case strings.Contains(line, "://"):
			if stream.URL == "" {
				stream.URL = line
			}
		default:
			// "NA" when unknown.
			if d, err := strconv.ParseFloat(line, 64); err == nil && d > 0 {
				stream.DurationSeconds = d
			}
		}
	}

	if stream.URL == "" {
		return Stream{}, fmt.Errorf("%w: no stream url for %s", ErrResolution, videoID)
	}

	return stream, nil
}
