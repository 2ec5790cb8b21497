package youtube

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/aatumaykin/ytscout/internal/logger"
)

// A desktop user agent keeps YouTube from serving the stripped-down consent
// or mobile variants.
const scrapeUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

var watchLinkRe = regexp.MustCompile(`watch\?v=([A-Za-z0-9_-]{11})`)

// fetchDocument GETs a public page and parses it.
func (c *Client) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", scrapeUserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("youtube scrape: %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("youtube scrape: %s: HTTP %d", pageURL, resp.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("youtube scrape: %s: parse: %w", pageURL, err)
	}
	return doc, nil
}

func metaContent(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if v, ok := doc.Find(sel).First().Attr("content"); ok && v != "" {
			return v
		}
	}
	return ""
}

// scrapeVideo extracts what the watch page exposes in meta tags. Counts and
// duration are not reliably present without executing scripts, so they stay
// zero.
func (c *Client) scrapeVideo(ctx context.Context, videoID string) (Video, error) {
	pageURL := fmt.Sprintf("%s/watch?v=%s", c.cfg.WatchBaseURL, videoID)
	doc, err := c.fetchDocument(ctx, pageURL)
	if err != nil {
		return Video{}, err
	}

	video := Video{
		VideoID:      videoID,
		Title:        metaContent(doc, `meta[property="og:title"]`, `meta[name="title"]`),
		Description:  metaContent(doc, `meta[property="og:description"]`, `meta[name="description"]`),
		ChannelID:    metaContent(doc, `meta[itemprop="channelId"]`),
		ThumbnailURL: metaContent(doc, `meta[property="og:image"]`),
		ScrapedAt:    time.Now().UTC(),
		Source:       SourceScrape,
	}
	if keywords := metaContent(doc, `meta[name="keywords"]`); keywords != "" {
		for _, kw := range strings.Split(keywords, ",") {
			if kw = strings.TrimSpace(kw); kw != "" {
				video.Tags = append(video.Tags, kw)
			}
		}
	}
	if video.Title == "" {
		return Video{}, fmt.Errorf("youtube scrape: video %s: no metadata on watch page", videoID)
	}
	return video, nil
}

// scrapeVideoIDs pulls distinct video IDs out of a listing page in document
// order.
func (c *Client) scrapeVideoIDs(ctx context.Context, pageURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", scrapeUserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("youtube scrape: %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("youtube scrape: %s: HTTP %d", pageURL, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("youtube scrape: %s: read: %w", pageURL, err)
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, m := range watchLinkRe.FindAllStringSubmatch(string(body), -1) {
		id := m[1]
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
		if len(ids) >= c.cfg.MaxResults {
			break
		}
	}
	return ids, nil
}

// scrapeListing resolves a listing page into per-video metadata by scraping
// each watch page, pausing between requests.
func (c *Client) scrapeListing(ctx context.Context, pageURL string) ([]Video, error) {
	ids, err := c.scrapeVideoIDs(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	videos := make([]Video, 0, len(ids))
	for i, id := range ids {
		if i > 0 {
			if err := c.pausePage(ctx); err != nil {
				return videos, err
			}
		}
		video, err := c.scrapeVideo(ctx, id)
		if err != nil {
			c.logger.Warn("skipping unscrapable video",
				logger.Field{Key: "video_id", Value: id},
				logger.Field{Key: "error", Value: err.Error()})
			continue
		}
		videos = append(videos, video)
	}
	return videos, nil
}

func (c *Client) scrapeChannelVideos(ctx context.Context, channelID string) ([]Video, error) {
	pageURL := fmt.Sprintf("%s/channel/%s/videos", c.cfg.WatchBaseURL, channelID)
	videos, err := c.scrapeListing(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	for i := range videos {
		if videos[i].ChannelID == "" {
			videos[i].ChannelID = channelID
		}
	}
	return videos, nil
}

func (c *Client) scrapePlaylistVideos(ctx context.Context, playlistID string) ([]Video, error) {
	pageURL := fmt.Sprintf("%s/playlist?list=%s", c.cfg.WatchBaseURL, playlistID)
	videos, err := c.scrapeListing(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	for i := range videos {
		videos[i].PlaylistID = playlistID
		videos[i].Position = i
	}
	return videos, nil
}

// scrapeComments parses whatever comment markup is present in the static
// watch page. Comments are rendered client-side, so this usually yields
// little or nothing; it exists so comment requests without an API key
// degrade instead of erroring.
func (c *Client) scrapeComments(ctx context.Context, videoID string) ([]Comment, error) {
	pageURL := fmt.Sprintf("%s/watch?v=%s", c.cfg.WatchBaseURL, videoID)
	doc, err := c.fetchDocument(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var comments []Comment
	doc.Find("ytd-comment-thread-renderer").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Find("#content-text").Text())
		if text == "" {
			return true
		}
		comments = append(comments, Comment{
			CommentID: fmt.Sprintf("%s_scrape_%d", videoID, i),
			VideoID:   videoID,
			Text:      text,
			Author:    strings.TrimSpace(sel.Find("#author-text").Text()),
			ScrapedAt: now,
			Source:    SourceScrape,
		})
		return len(comments) < c.cfg.CommentCount
	})

	if len(comments) == 0 {
		c.logger.Warn("no comments found in static page",
			logger.Field{Key: "video_id", Value: videoID})
	}
	return comments, nil
}
