// Package youtube fetches video, channel, playlist and search metadata. The
// Data API v3 is the primary source; when no API key is configured, or an
// API call fails, the client falls back to scraping public pages.
package youtube

import (
	"strconv"
	"time"
)

// Source values recorded on fetched metadata.
const (
	SourceAPI    = "api"
	SourceScrape = "scrape"
)

// Video is one video's metadata. Fields absent from the source are left at
// their zero value and omitted from JSON.
type Video struct {
	VideoID      string    `json:"video_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	PublishedAt  string    `json:"published_at,omitempty"`
	ChannelID    string    `json:"channel_id,omitempty"`
	ChannelTitle string    `json:"channel_title,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	Duration     string    `json:"duration,omitempty"`
	ViewCount    int64     `json:"view_count,omitempty"`
	LikeCount    int64     `json:"like_count,omitempty"`
	CommentCount int64     `json:"comment_count,omitempty"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	PlaylistID   string    `json:"playlist_id,omitempty"`
	Position     int       `json:"position,omitempty"`
	SearchQuery  string    `json:"search_query,omitempty"`
	ScrapedAt    time.Time `json:"scraped_at"`
	Source       string    `json:"source"`
}

// Comment is one top-level comment on a video.
type Comment struct {
	CommentID       string    `json:"comment_id"`
	VideoID         string    `json:"video_id"`
	Text            string    `json:"text"`
	Author          string    `json:"author,omitempty"`
	AuthorChannelID string    `json:"author_channel_id,omitempty"`
	LikeCount       int64     `json:"like_count,omitempty"`
	PublishedAt     string    `json:"published_at,omitempty"`
	ScrapedAt       time.Time `json:"scraped_at"`
	Source          string    `json:"source"`
}

// VideoCSVHeader is the column layout SaveCSV uses for videos.
func VideoCSVHeader() []string {
	return []string{
		"video_id", "title", "description", "published_at",
		"channel_id", "channel_title", "duration",
		"view_count", "like_count", "comment_count",
		"scraped_at", "source",
	}
}

// CSVRow renders the video as a row matching VideoCSVHeader.
func (v Video) CSVRow() []string {
	return []string{
		v.VideoID, v.Title, v.Description, v.PublishedAt,
		v.ChannelID, v.ChannelTitle, v.Duration,
		strconv.FormatInt(v.ViewCount, 10),
		strconv.FormatInt(v.LikeCount, 10),
		strconv.FormatInt(v.CommentCount, 10),
		v.ScrapedAt.Format(time.RFC3339), v.Source,
	}
}

// CommentCSVHeader is the column layout SaveCSV uses for comments.
func CommentCSVHeader() []string {
	return []string{
		"comment_id", "video_id", "author", "text",
		"like_count", "published_at", "scraped_at", "source",
	}
}

// CSVRow renders the comment as a row matching CommentCSVHeader.
func (c Comment) CSVRow() []string {
	return []string{
		c.CommentID, c.VideoID, c.Author, c.Text,
		strconv.FormatInt(c.LikeCount, 10),
		c.PublishedAt, c.ScrapedAt.Format(time.RFC3339), c.Source,
	}
}
