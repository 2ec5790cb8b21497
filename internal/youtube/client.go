package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/aatumaykin/ytscout/internal/logger"
	"github.com/aatumaykin/ytscout/internal/retry"
)

const (
	defaultBaseURL      = "https://www.googleapis.com/youtube/v3"
	defaultWatchBaseURL = "https://www.youtube.com"
	defaultMaxResults   = 50
	defaultCommentCount = 100
	defaultRatePause    = time.Second
	defaultHTTPTimeout  = 30 * time.Second

	// The API caps a single page at 50 items.
	maxPageSize = 50
)

// ErrAPIKeyRequired is returned by operations that have no scrape fallback.
var ErrAPIKeyRequired = errors.New("youtube: operation requires an API key")

// Config holds client settings. Zero values take the defaults above.
type Config struct {
	APIKey       string
	BaseURL      string
	WatchBaseURL string
	MaxResults   int // cap on videos returned per listing operation
	CommentCount int // cap on comments returned per video
	RatePause    time.Duration
	Timeout      time.Duration
	Retry        retry.Config
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.WatchBaseURL == "" {
		c.WatchBaseURL = defaultWatchBaseURL
	}
	if c.MaxResults <= 0 {
		c.MaxResults = defaultMaxResults
	}
	if c.CommentCount <= 0 {
		c.CommentCount = defaultCommentCount
	}
	if c.RatePause <= 0 {
		c.RatePause = defaultRatePause
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultHTTPTimeout
	}
}

// Client fetches metadata from the Data API with a scrape fallback.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *logger.Logger
}

// New creates a Client. An empty API key puts the client in scrape-only mode.
func New(cfg Config, log *logger.Logger) *Client {
	cfg.applyDefaults()
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: log,
	}
}

func (c *Client) apiEnabled() bool {
	return c.cfg.APIKey != ""
}

// getJSON performs one API GET with retries and decodes the response into out.
func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	params.Set("key", c.cfg.APIKey)
	reqURL := fmt.Sprintf("%s/%s?%s", c.cfg.BaseURL, endpoint, params.Encode())

	return retry.Do(ctx, c.cfg.Retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("youtube api: %s: %w", endpoint, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("youtube api: %s: HTTP %d: %s", endpoint, resp.StatusCode, string(body))
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("youtube api: %s: decode: %w", endpoint, err)
		}
		return nil
	})
}

// pausePage waits the configured rate-limit pause between API pages.
func (c *Client) pausePage(ctx context.Context) error {
	select {
	case <-time.After(c.cfg.RatePause):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type apiSnippet struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	PublishedAt  string   `json:"publishedAt"`
	ChannelID    string   `json:"channelId"`
	ChannelTitle string   `json:"channelTitle"`
	Tags         []string `json:"tags"`
	Position     int      `json:"position"`
	Thumbnails   struct {
		High struct {
			URL string `json:"url"`
		} `json:"high"`
	} `json:"thumbnails"`
	ResourceID struct {
		VideoID string `json:"videoId"`
	} `json:"resourceId"`
}

type videoListResponse struct {
	Items []struct {
		ID             string     `json:"id"`
		Snippet        apiSnippet `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
		Statistics struct {
			ViewCount    string `json:"viewCount"`
			LikeCount    string `json:"likeCount"`
			CommentCount string `json:"commentCount"`
		} `json:"statistics"`
	} `json:"items"`
}

type channelListResponse struct {
	Items []struct {
		ContentDetails struct {
			RelatedPlaylists struct {
				Uploads string `json:"uploads"`
			} `json:"relatedPlaylists"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type playlistItemsResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		Snippet apiSnippet `json:"snippet"`
	} `json:"items"`
}

type searchListResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet apiSnippet `json:"snippet"`
	} `json:"items"`
}

type commentThreadsResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		ID      string `json:"id"`
		Snippet struct {
			TopLevelComment struct {
				ID      string `json:"id"`
				Snippet struct {
					TextDisplay   string `json:"textDisplay"`
					AuthorName    string `json:"authorDisplayName"`
					AuthorChannel struct {
						Value string `json:"value"`
					} `json:"authorChannelId"`
					LikeCount   int64  `json:"likeCount"`
					PublishedAt string `json:"publishedAt"`
				} `json:"snippet"`
			} `json:"topLevelComment"`
		} `json:"snippet"`
	} `json:"items"`
}

func parseCount(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

// VideoInfo returns metadata for a single video.
func (c *Client) VideoInfo(ctx context.Context, videoID string) (Video, error) {
	if !c.apiEnabled() {
		return c.scrapeVideo(ctx, videoID)
	}

	var resp videoListResponse
	err := c.getJSON(ctx, "videos", url.Values{
		"part": {"snippet,contentDetails,statistics"},
		"id":   {videoID},
	}, &resp)
	if err != nil {
		c.logger.Warn("video api fetch failed, falling back to scrape",
			logger.Field{Key: "video_id", Value: videoID},
			logger.Field{Key: "error", Value: err.Error()})
		return c.scrapeVideo(ctx, videoID)
	}
	if len(resp.Items) == 0 {
		return Video{}, fmt.Errorf("youtube: video %s not found", videoID)
	}

	item := resp.Items[0]
	return Video{
		VideoID:      item.ID,
		Title:        item.Snippet.Title,
		Description:  item.Snippet.Description,
		PublishedAt:  item.Snippet.PublishedAt,
		ChannelID:    item.Snippet.ChannelID,
		ChannelTitle: item.Snippet.ChannelTitle,
		Tags:         item.Snippet.Tags,
		Duration:     item.ContentDetails.Duration,
		ViewCount:    parseCount(item.Statistics.ViewCount),
		LikeCount:    parseCount(item.Statistics.LikeCount),
		CommentCount: parseCount(item.Statistics.CommentCount),
		ThumbnailURL: item.Snippet.Thumbnails.High.URL,
		ScrapedAt:    time.Now().UTC(),
		Source:       SourceAPI,
	}, nil
}

// ChannelVideos lists a channel's uploads, newest first, up to MaxResults.
func (c *Client) ChannelVideos(ctx context.Context, channelID string) ([]Video, error) {
	if !c.apiEnabled() {
		return c.scrapeChannelVideos(ctx, channelID)
	}

	var chResp channelListResponse
	err := c.getJSON(ctx, "channels", url.Values{
		"part": {"contentDetails"},
		"id":   {channelID},
	}, &chResp)
	if err != nil {
		c.logger.Warn("channel api fetch failed, falling back to scrape",
			logger.Field{Key: "channel_id", Value: channelID},
			logger.Field{Key: "error", Value: err.Error()})
		return c.scrapeChannelVideos(ctx, channelID)
	}
	if len(chResp.Items) == 0 {
		return nil, fmt.Errorf("youtube: channel %s not found", channelID)
	}
	uploads := chResp.Items[0].ContentDetails.RelatedPlaylists.Uploads
	if uploads == "" {
		return nil, fmt.Errorf("youtube: channel %s has no uploads playlist", channelID)
	}

	videos, err := c.playlistPages(ctx, uploads)
	if err != nil {
		return nil, err
	}
	for i := range videos {
		videos[i].PlaylistID = "" // uploads playlist is an implementation detail
	}
	return videos, nil
}

// PlaylistVideos lists a playlist's entries in playlist order, up to
// MaxResults.
func (c *Client) PlaylistVideos(ctx context.Context, playlistID string) ([]Video, error) {
	if !c.apiEnabled() {
		return c.scrapePlaylistVideos(ctx, playlistID)
	}
	videos, err := c.playlistPages(ctx, playlistID)
	if err != nil {
		c.logger.Warn("playlist api fetch failed, falling back to scrape",
			logger.Field{Key: "playlist_id", Value: playlistID},
			logger.Field{Key: "error", Value: err.Error()})
		return c.scrapePlaylistVideos(ctx, playlistID)
	}
	return videos, nil
}

func (c *Client) playlistPages(ctx context.Context, playlistID string) ([]Video, error) {
	videos := make([]Video, 0, c.cfg.MaxResults)
	pageToken := ""
	for {
		remaining := c.cfg.MaxResults - len(videos)
		if remaining <= 0 {
			break
		}
		pageSize := remaining
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}

		params := url.Values{
			"part":       {"snippet"},
			"playlistId": {playlistID},
			"maxResults": {strconv.Itoa(pageSize)},
		}
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var resp playlistItemsResponse
		if err := c.getJSON(ctx, "playlistItems", params, &resp); err != nil {
			return nil, err
		}

		now := time.Now().UTC()
		for _, item := range resp.Items {
			videos = append(videos, Video{
				VideoID:      item.Snippet.ResourceID.VideoID,
				Title:        item.Snippet.Title,
				Description:  item.Snippet.Description,
				PublishedAt:  item.Snippet.PublishedAt,
				ChannelID:    item.Snippet.ChannelID,
				ChannelTitle: item.Snippet.ChannelTitle,
				ThumbnailURL: item.Snippet.Thumbnails.High.URL,
				PlaylistID:   playlistID,
				Position:     item.Snippet.Position,
				ScrapedAt:    now,
				Source:       SourceAPI,
			})
		}

		if resp.NextPageToken == "" || len(resp.Items) == 0 {
			break
		}
		pageToken = resp.NextPageToken
		if err := c.pausePage(ctx); err != nil {
			return nil, err
		}
	}
	return videos, nil
}

// SearchVideos runs a video search, up to MaxResults. Search has no scrape
// fallback; it requires an API key.
func (c *Client) SearchVideos(ctx context.Context, query string) ([]Video, error) {
	if !c.apiEnabled() {
		return nil, fmt.Errorf("%w: search", ErrAPIKeyRequired)
	}

	videos := make([]Video, 0, c.cfg.MaxResults)
	pageToken := ""
	for {
		remaining := c.cfg.MaxResults - len(videos)
		if remaining <= 0 {
			break
		}
		pageSize := remaining
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}

		params := url.Values{
			"part":       {"snippet"},
			"q":          {query},
			"type":       {"video"},
			"maxResults": {strconv.Itoa(pageSize)},
		}
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var resp searchListResponse
		if err := c.getJSON(ctx, "search", params, &resp); err != nil {
			return nil, err
		}

		now := time.Now().UTC()
		for _, item := range resp.Items {
			if item.ID.VideoID == "" {
				continue
			}
			videos = append(videos, Video{
				VideoID:      item.ID.VideoID,
				Title:        item.Snippet.Title,
				Description:  item.Snippet.Description,
				PublishedAt:  item.Snippet.PublishedAt,
				ChannelID:    item.Snippet.ChannelID,
				ChannelTitle: item.Snippet.ChannelTitle,
				ThumbnailURL: item.Snippet.Thumbnails.High.URL,
				SearchQuery:  query,
				ScrapedAt:    now,
				Source:       SourceAPI,
			})
		}

		if resp.NextPageToken == "" || len(resp.Items) == 0 {
			break
		}
		pageToken = resp.NextPageToken
		if err := c.pausePage(ctx); err != nil {
			return nil, err
		}
	}
	return videos, nil
}

// VideoComments returns top-level comments for a video, up to CommentCount.
func (c *Client) VideoComments(ctx context.Context, videoID string) ([]Comment, error) {
	if !c.apiEnabled() {
		return c.scrapeComments(ctx, videoID)
	}

	comments := make([]Comment, 0, c.cfg.CommentCount)
	pageToken := ""
	for {
		remaining := c.cfg.CommentCount - len(comments)
		if remaining <= 0 {
			break
		}
		pageSize := remaining
		if pageSize > 100 {
			pageSize = 100
		}

		params := url.Values{
			"part":       {"snippet"},
			"videoId":    {videoID},
			"maxResults": {strconv.Itoa(pageSize)},
			"textFormat": {"plainText"},
			"order":      {"relevance"},
		}
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var resp commentThreadsResponse
		if err := c.getJSON(ctx, "commentThreads", params, &resp); err != nil {
			c.logger.Warn("comment api fetch failed, falling back to scrape",
				logger.Field{Key: "video_id", Value: videoID},
				logger.Field{Key: "error", Value: err.Error()})
			return c.scrapeComments(ctx, videoID)
		}

		now := time.Now().UTC()
		for _, item := range resp.Items {
			top := item.Snippet.TopLevelComment
			comments = append(comments, Comment{
				CommentID:       top.ID,
				VideoID:         videoID,
				Text:            top.Snippet.TextDisplay,
				Author:          top.Snippet.AuthorName,
				AuthorChannelID: top.Snippet.AuthorChannel.Value,
				LikeCount:       top.Snippet.LikeCount,
				PublishedAt:     top.Snippet.PublishedAt,
				ScrapedAt:       now,
				Source:          SourceAPI,
			})
		}

		if resp.NextPageToken == "" || len(resp.Items) == 0 {
			break
		}
		pageToken = resp.NextPageToken
		if err := c.pausePage(ctx); err != nil {
			return nil, err
		}
	}
	return comments, nil
}
