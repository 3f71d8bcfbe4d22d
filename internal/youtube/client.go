// Package youtube is a thin Data API v3 client covering the handful of
// listing calls the viewer needs. It runs in two modes: bearer-token calls
// for anything scoped to the signed-in account, api-key calls for public
// listings.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/tubeview/internal/platform/ratelimit"
)

const defaultBaseURL = "https://www.googleapis.com/youtube/v3"

const (
	feedChannelLimit = 10
	feedUploadsPerCh = 5
)

// TokenProvider supplies a bearer token for account-scoped calls.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

type Client struct {
	baseURL  string
	apiKey   string
	region   string
	tokens   TokenProvider
	http     *http.Client
	limiter  *ratelimit.Limiter
	cache    Cache
	cacheTTL time.Duration
	log      *zap.Logger
}

type Options struct {
	APIKey   string
	Region   string
	Tokens   TokenProvider
	Limiter  *ratelimit.Limiter
	Cache    Cache
	CacheTTL time.Duration
	BaseURL  string
	Logger   *zap.Logger
}

func New(opts Options) *Client {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	region := opts.Region
	if region == "" {
		region = "US"
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   opts.APIKey,
		region:   region,
		tokens:   opts.Tokens,
		http:     &http.Client{Timeout: 10 * time.Second},
		limiter:  opts.Limiter,
		cache:    opts.Cache,
		cacheTTL: ttl,
		log:      log.Named("youtube"),
	}
}

// Subscriptions lists the signed-in account's subscribed channels.
func (c *Client) Subscriptions(ctx context.Context) ([]Subscription, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("mine", "true")
	params.Set("maxResults", "50")

	var body subscriptionsResponse
	if err := c.get(ctx, "/subscriptions", params, true, &body); err != nil {
		return nil, err
	}

	out := make([]Subscription, 0, len(body.Items))
	for _, it := range body.Items {
		out = append(out, Subscription{
			ChannelID:    it.Snippet.ResourceID.ChannelID,
			ChannelTitle: it.Snippet.Title,
			Thumbnail:    pickThumbnail(it.Snippet.Thumbnails),
		})
	}
	return out, nil
}

// ChannelVideos lists a channel's most recent uploads, newest first, with
// durations resolved.
func (c *Client) ChannelVideos(ctx context.Context, channelID string, n int) ([]Video, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("channelId", channelID)
	params.Set("order", "date")
	params.Set("type", "video")
	params.Set("maxResults", strconv.Itoa(clampResults(n)))

	return c.searchAndResolve(ctx, params, c.tokens != nil)
}

// SubscriptionFeed merges recent uploads from the first channels of the
// subscription list. A channel whose fetch fails is skipped, not fatal.
func (c *Client) SubscriptionFeed(ctx context.Context) ([]Video, error) {
	if cached, ok := c.cached(ctx, c.cacheKey("feed")); ok {
		return cached, nil
	}

	subs, err := c.Subscriptions(ctx)
	if err != nil {
		return nil, err
	}
	if len(subs) > feedChannelLimit {
		subs = subs[:feedChannelLimit]
	}

	var feed []Video
	for _, sub := range subs {
		videos, err := c.ChannelVideos(ctx, sub.ChannelID, feedUploadsPerCh)
		if err != nil {
			c.log.Warn("skipping channel",
				zap.String("channel_id", sub.ChannelID), zap.Error(err))
			continue
		}
		feed = append(feed, videos...)
	}
	sort.Slice(feed, func(i, j int) bool {
		return feed[i].PublishedAt.After(feed[j].PublishedAt)
	})

	c.store(ctx, c.cacheKey("feed"), feed)
	return feed, nil
}

// Search runs a public relevance-ordered video search.
func (c *Client) Search(ctx context.Context, query string, n int) ([]Video, error) {
	key := c.cacheKey("search", query, strconv.Itoa(n))
	if cached, ok := c.cached(ctx, key); ok {
		return cached, nil
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", query)
	params.Set("order", "relevance")
	params.Set("type", "video")
	params.Set("maxResults", strconv.Itoa(clampResults(n)))

	videos, err := c.searchAndResolve(ctx, params, false)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, videos)
	return videos, nil
}

// Trending lists the region's most popular videos.
func (c *Client) Trending(ctx context.Context, n int) ([]Video, error) {
	key := c.cacheKey("trending", strconv.Itoa(n))
	if cached, ok := c.cached(ctx, key); ok {
		return cached, nil
	}

	params := url.Values{}
	params.Set("part", "snippet,contentDetails")
	params.Set("chart", "mostPopular")
	params.Set("regionCode", c.region)
	params.Set("maxResults", strconv.Itoa(clampResults(n)))

	var body videosResponse
	if err := c.get(ctx, "/videos", params, false, &body); err != nil {
		return nil, err
	}
	videos := body.videos()
	c.store(ctx, key, videos)
	return videos, nil
}

// searchAndResolve runs a search.list call and follows up with videos.list
// to attach durations, which search results do not carry.
func (c *Client) searchAndResolve(ctx context.Context, params url.Values, bearer bool) ([]Video, error) {
	var body searchResponse
	if err := c.get(ctx, "/search", params, bearer, &body); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(body.Items))
	for _, it := range body.Items {
		if it.ID.VideoID != "" {
			ids = append(ids, it.ID.VideoID)
		}
	}
	if len(ids) == 0 {
		return []Video{}, nil
	}

	detailParams := url.Values{}
	detailParams.Set("part", "snippet,contentDetails")
	detailParams.Set("id", strings.Join(ids, ","))

	var details videosResponse
	if err := c.get(ctx, "/videos", detailParams, bearer, &details); err != nil {
		return nil, err
	}
	byID := make(map[string]Video, len(details.Items))
	for _, v := range details.videos() {
		byID[v.ID] = v
	}

	// Preserve the search ordering.
	out := make([]Video, 0, len(ids))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, bearer bool, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	q := url.Values{}
	for k, vs := range params {
		q[k] = vs
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	if bearer {
		if c.tokens == nil {
			return fmt.Errorf("youtube: %s requires a signed-in account", path)
		}
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("youtube: obtain token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	} else {
		q.Set("key", c.apiKey)
	}
	req.URL.RawQuery = q.Encode()

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("youtube: %s: %w", path, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("youtube: %s returned %d", path, resp.StatusCode)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("youtube: decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) cacheKey(parts ...string) string {
	return "tubeview:yt:" + strings.Join(parts, ":")
}

func (c *Client) cached(ctx context.Context, key string) ([]Video, bool) {
	if c.cache == nil {
		return nil, false
	}
	data, ok := c.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}
	var videos []Video
	if err := json.Unmarshal(data, &videos); err != nil {
		return nil, false
	}
	return videos, true
}

func (c *Client) store(ctx context.Context, key string, videos []Video) {
	if c.cache == nil {
		return
	}
	data, err := json.Marshal(videos)
	if err != nil {
		return
	}
	c.cache.Set(ctx, key, data, c.cacheTTL)
}

func clampResults(n int) int {
	if n <= 0 {
		return 10
	}
	if n > 50 {
		return 50
	}
	return n
}
