// Package scraper turns a scheduled job firing into metadata fetches and
// output files. It sits between the scheduler and the youtube client.
package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aatumaykin/ytscout/internal/logger"
	"github.com/aatumaykin/ytscout/internal/output"
	"github.com/aatumaykin/ytscout/internal/scheduler"
	"github.com/aatumaykin/ytscout/internal/youtube"
)

// metadataClient is what the scraper needs from the youtube client.
type metadataClient interface {
	VideoInfo(ctx context.Context, videoID string) (youtube.Video, error)
	ChannelVideos(ctx context.Context, channelID string) ([]youtube.Video, error)
	PlaylistVideos(ctx context.Context, playlistID string) ([]youtube.Video, error)
	SearchVideos(ctx context.Context, query string) ([]youtube.Video, error)
	VideoComments(ctx context.Context, videoID string) ([]youtube.Comment, error)
}

// Scraper executes scrape operations and persists their results.
type Scraper struct {
	client    metadataClient
	writer    *output.Writer
	ratePause time.Duration
	logger    *logger.Logger
}

var _ scheduler.Fetcher = (*Scraper)(nil)

// New creates a Scraper. ratePause spaces out per-video comment fetches.
func New(client metadataClient, writer *output.Writer, ratePause time.Duration, log *logger.Logger) *Scraper {
	if ratePause <= 0 {
		ratePause = time.Second
	}
	return &Scraper{client: client, writer: writer, ratePause: ratePause, logger: log}
}

// Fetch runs the scrape an operation describes and returns what was written.
func (s *Scraper) Fetch(ctx context.Context, op scheduler.Operation, target string, includeComments bool) (scheduler.Result, error) {
	switch op {
	case scheduler.OpChannel:
		return s.channelScrape(ctx, target, includeComments)
	case scheduler.OpVideo:
		return s.videoScrape(ctx, target, includeComments)
	case scheduler.OpPlaylist:
		return s.playlistScrape(ctx, target, includeComments)
	case scheduler.OpSearch:
		return s.searchScrape(ctx, target, includeComments)
	default:
		return scheduler.Result{}, fmt.Errorf("scraper: unsupported operation %q", op)
	}
}

func (s *Scraper) channelScrape(ctx context.Context, channelID string, includeComments bool) (scheduler.Result, error) {
	res := scheduler.Result{Operation: scheduler.OpChannel, Target: channelID}

	videos, err := s.client.ChannelVideos(ctx, channelID)
	if err != nil {
		return res, fmt.Errorf("scrape channel %s: %w", channelID, err)
	}

	path, err := s.saveVideos("videos", fmt.Sprintf("channel_%s_videos", channelID), videos)
	if err != nil {
		return res, err
	}
	res.Records = len(videos)
	res.Files = append(res.Files, path)

	if includeComments {
		n, files, err := s.commentsForVideos(ctx, videos)
		if err != nil {
			return res, err
		}
		res.Records += n
		res.Files = append(res.Files, files...)
	}

	s.logger.InfoCtx(ctx, "channel scrape finished",
		logger.Field{Key: "channel_id", Value: channelID},
		logger.Field{Key: "videos", Value: len(videos)},
		logger.Field{Key: "files", Value: len(res.Files)})
	return res, nil
}

func (s *Scraper) videoScrape(ctx context.Context, videoID string, includeComments bool) (scheduler.Result, error) {
	res := scheduler.Result{Operation: scheduler.OpVideo, Target: videoID}

	video, err := s.client.VideoInfo(ctx, videoID)
	if err != nil {
		return res, fmt.Errorf("scrape video %s: %w", videoID, err)
	}

	path, err := s.saveVideos("videos", fmt.Sprintf("video_%s_info", videoID), []youtube.Video{video})
	if err != nil {
		return res, err
	}
	res.Records = 1
	res.Files = append(res.Files, path)

	if includeComments {
		n, files, err := s.commentsForVideos(ctx, []youtube.Video{video})
		if err != nil {
			return res, err
		}
		res.Records += n
		res.Files = append(res.Files, files...)
	}

	s.logger.InfoCtx(ctx, "video scrape finished",
		logger.Field{Key: "video_id", Value: videoID},
		logger.Field{Key: "records", Value: res.Records})
	return res, nil
}

func (s *Scraper) playlistScrape(ctx context.Context, playlistID string, includeComments bool) (scheduler.Result, error) {
	res := scheduler.Result{Operation: scheduler.OpPlaylist, Target: playlistID}

	videos, err := s.client.PlaylistVideos(ctx, playlistID)
	if err != nil {
		return res, fmt.Errorf("scrape playlist %s: %w", playlistID, err)
	}

	path, err := s.saveVideos("playlists", fmt.Sprintf("playlist_%s_videos", playlistID), videos)
	if err != nil {
		return res, err
	}
	res.Records = len(videos)
	res.Files = append(res.Files, path)

	if includeComments {
		n, files, err := s.commentsForVideos(ctx, videos)
		if err != nil {
			return res, err
		}
		res.Records += n
		res.Files = append(res.Files, files...)
	}

	s.logger.InfoCtx(ctx, "playlist scrape finished",
		logger.Field{Key: "playlist_id", Value: playlistID},
		logger.Field{Key: "videos", Value: len(videos)})
	return res, nil
}

func (s *Scraper) searchScrape(ctx context.Context, query string, includeComments bool) (scheduler.Result, error) {
	res := scheduler.Result{Operation: scheduler.OpSearch, Target: query}

	videos, err := s.client.SearchVideos(ctx, query)
	if err != nil {
		return res, fmt.Errorf("scrape search %q: %w", query, err)
	}

	slug := strings.ReplaceAll(strings.TrimSpace(query), " ", "_")
	path, err := s.saveVideos("search", fmt.Sprintf("search_%s_videos", slug), videos)
	if err != nil {
		return res, err
	}
	res.Records = len(videos)
	res.Files = append(res.Files, path)

	if includeComments {
		n, files, err := s.commentsForVideos(ctx, videos)
		if err != nil {
			return res, err
		}
		res.Records += n
		res.Files = append(res.Files, files...)
	}

	s.logger.InfoCtx(ctx, "search scrape finished",
		logger.Field{Key: "query", Value: query},
		logger.Field{Key: "videos", Value: len(videos)})
	return res, nil
}

// commentsForVideos fetches and saves comments per video, pausing between
// videos. A video whose comments cannot be fetched is skipped, not fatal.
func (s *Scraper) commentsForVideos(ctx context.Context, videos []youtube.Video) (int, []string, error) {
	total := 0
	var files []string
	for i, video := range videos {
		if i > 0 {
			select {
			case <-time.After(s.ratePause):
			case <-ctx.Done():
				return total, files, ctx.Err()
			}
		}

		comments, err := s.client.VideoComments(ctx, video.VideoID)
		if err != nil {
			s.logger.WarnCtx(ctx, "comment fetch failed, skipping video",
				logger.Field{Key: "video_id", Value: video.VideoID},
				logger.Field{Key: "error", Value: err.Error()})
			continue
		}
		if len(comments) == 0 {
			continue
		}

		path, err := s.saveComments(fmt.Sprintf("video_%s_comments", video.VideoID), comments)
		if err != nil {
			return total, files, err
		}
		total += len(comments)
		files = append(files, path)
	}
	return total, files, nil
}

func (s *Scraper) saveVideos(dataType, name string, videos []youtube.Video) (string, error) {
	if s.writer.Format() == output.FormatCSV {
		rows := make([][]string, 0, len(videos))
		for _, v := range videos {
			rows = append(rows, v.CSVRow())
		}
		return s.writer.SaveCSV(dataType, name, youtube.VideoCSVHeader(), rows)
	}
	return s.writer.SaveJSON(dataType, name, videos)
}

func (s *Scraper) saveComments(name string, comments []youtube.Comment) (string, error) {
	if s.writer.Format() == output.FormatCSV {
		rows := make([][]string, 0, len(comments))
		for _, c := range comments {
			rows = append(rows, c.CSVRow())
		}
		return s.writer.SaveCSV("comments", name, youtube.CommentCSVHeader(), rows)
	}
	return s.writer.SaveJSON("comments", name, comments)
}
