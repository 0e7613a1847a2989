package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/teragrab/teragrab/utils"
)

// maxPageBytes caps how much of the share page is read for parsing.
const maxPageBytes = 4 << 20

const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36"

// Client resolves share URLs into direct download links. It performs up
// to two upstream calls per resolution: the share page, then the internal
// download API when the page only exposes share identifiers.
type Client struct {
	httpc   *http.Client
	baseURL string
	cookie  string
	parsers []PageParser
	cache   *Cache
}

// NewClient builds a resolver client. cache may be nil to disable caching;
// parsers defaults to DefaultParsers when empty.
func NewClient(baseURL, cookie string, timeout time.Duration, cache *Cache, parsers ...PageParser) *Client {
	if len(parsers) == 0 {
		parsers = DefaultParsers()
	}
	return &Client{
		httpc:   &http.Client{Timeout: timeout},
		baseURL: baseURL,
		cookie:  cookie,
		parsers: parsers,
		cache:   cache,
	}
}

// Resolve turns a supported share URL into a ResolvedLink or one of the
// typed failures. No retries are attempted; the caller re-triggers by
// resending the link.
func (c *Client) Resolve(ctx context.Context, rawURL string) (*ResolvedLink, error) {
	key, err := ShareKey(rawURL)
	if err != nil {
		return nil, err
	}

	if link, ok := c.cache.Get(ctx, key); ok {
		utils.Sugar.Debugf("resolution cache hit for share %s", key)
		return link, nil
	}

	page, err := c.fetchSharePage(ctx, key)
	if err != nil {
		return nil, err
	}

	var result *pageResult
	for _, p := range c.parsers {
		if r, ok := p.Parse(page); ok {
			utils.Sugar.Debugf("share %s parsed by strategy %s", key, p.Name())
			result = r
			break
		}
	}
	if result == nil {
		return nil, fmt.Errorf("no parser strategy matched share page for %s: %w", key, ErrUpstreamFormat)
	}

	link := result.Link
	if link == nil {
		link, err = c.fetchDirectLink(ctx, result)
		if err != nil {
			return nil, err
		}
	}

	c.cache.Set(ctx, key, link)
	return link, nil
}

func (c *Client) fetchSharePage(ctx context.Context, key string) (string, error) {
	pageURL := fmt.Sprintf("%s/s/%s", c.baseURL, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	c.setHeaders(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("share page request failed: %w", ErrUpstreamUnreachable)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		utils.Sugar.Errorf("share page returned %d, the session cookie may be invalid or expired", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("share page returned status %d: %w", resp.StatusCode, ErrUpstreamUnreachable)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("reading share page: %w", ErrUpstreamUnreachable)
	}
	return string(body), nil
}

// fetchDirectLink asks the internal download API for the signed direct
// URL using the identifiers scraped from the share page.
func (c *Client) fetchDirectLink(ctx context.Context, r *pageResult) (*ResolvedLink, error) {
	apiURL := fmt.Sprintf("%s/api/download?shareid=%s&uk=%s&fidlist=%s",
		c.baseURL, url.QueryEscape(r.ShareID), url.QueryEscape(r.UK),
		url.QueryEscape(fmt.Sprintf("[%s]", r.FSID)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download api request failed: %w", ErrUpstreamUnreachable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download api returned status %d: %w", resp.StatusCode, ErrUpstreamUnreachable)
	}

	var payload struct {
		Errno int `json:"errno"`
		List  []struct {
			DLink          string     `json:"dlink"`
			ServerFilename string     `json:"server_filename"`
			Size           looseInt64 `json:"size"`
		} `json:"list"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxPageBytes)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("download api payload is not valid JSON: %w", ErrUpstreamFormat)
	}
	if payload.Errno != 0 || len(payload.List) == 0 || payload.List[0].DLink == "" {
		return nil, fmt.Errorf("download api answered errno=%d with no usable dlink: %w", payload.Errno, ErrUpstreamFormat)
	}

	item := payload.List[0]
	filename := item.ServerFilename
	if filename == "" {
		filename = r.Filename
	}
	if filename == "" {
		filename = "terabox_video.mp4"
	}
	size := item.Size.Int64()
	if size == 0 {
		size = r.SizeBytes
	}

	return &ResolvedLink{
		DirectURL: unescapeSlashes(item.DLink),
		Filename:  filename,
		SizeBytes: size,
	}, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", browserUA)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", c.baseURL+"/")
	req.Header.Set("Cookie", c.cookie)
}
