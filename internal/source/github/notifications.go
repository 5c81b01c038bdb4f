package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	gosync "sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nhle/notification-triage/internal/source"
)

// ListNotifications fetches every page of the notification feed. When since
// is set, only threads updated after it are returned, read ones included.
// Pages after the first are fetched concurrently, so the order of the
// result across pages is unspecified.
func (c *Client) ListNotifications(
	ctx context.Context,
	since *time.Time,
) ([]Notification, error) {
	path := "/notifications"
	if since != nil {
		q := url.Values{}
		q.Set("all", "true")
		q.Set("since", since.UTC().Format(time.RFC3339))
		path += "?" + q.Encode()
	}

	var first []Notification
	header, err := c.getJSON(ctx, path, &first)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}

	link := header.Get("Link")
	if link == "" {
		return first, nil
	}

	pages, err := pageURLs(link)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}

	var (
		mu  gosync.Mutex
		all []Notification
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)
	for _, page := range pages {
		g.Go(func() error {
			var batch []Notification
			if _, err := c.getJSON(gctx, page, &batch); err != nil {
				return err
			}
			mu.Lock()
			all = append(all, batch...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("listing notification pages: %w", err)
	}

	c.logger.Debug("notifications listed", "pages", len(pages)+1, "count", len(all)+len(first))
	return append(all, first...), nil
}

// CheckUpdateAndLimit asks the server whether the feed changed since
// lastUpdate without downloading it. With no lastUpdate an update is always
// needed, but the probe is still sent to read the pacing headers.
func (c *Client) CheckUpdateAndLimit(
	ctx context.Context,
	lastUpdate *time.Time,
) (source.UpdateStatus, error) {
	header := http.Header{}
	if lastUpdate != nil {
		header.Set("If-Modified-Since", lastUpdate.UTC().Format(http.TimeFormat))
	}

	resp, err := c.send(ctx, http.MethodHead, "/notifications", header)
	if err != nil {
		return source.UpdateStatus{}, fmt.Errorf("probing notifications: %w", err)
	}

	status := source.UpdateStatus{
		NeedUpdate:    lastUpdate == nil || resp.status != http.StatusNotModified,
		PollInterval:  time.Duration(headerInt(resp.header, "X-Poll-Interval")) * time.Second,
		RateRemaining: headerInt(resp.header, "X-RateLimit-Remaining"),
		RateUsed:      headerInt(resp.header, "X-RateLimit-Used"),
	}
	return status, nil
}

// FetchDetails fetches the pull request, issue or release behind every
// notification whose subject links to one.
func (c *Client) FetchDetails(
	ctx context.Context,
	notifications []Notification,
) (*Details, error) {
	var pulls, issues, releases []string
	for _, n := range notifications {
		if n.Subject.URL == "" {
			continue
		}
		u := c.rewriteURL(n.Subject.URL)
		switch n.Subject.Type {
		case "PullRequest":
			pulls = append(pulls, u)
		case "Issue":
			issues = append(issues, u)
		case "Release":
			releases = append(releases, u)
		}
	}

	var (
		details Details
		err     error
	)
	details.PullRequests, err = fetchAll(ctx, c, pulls, func(p PullRequest) string { return p.URL })
	if err != nil {
		return nil, fmt.Errorf("fetching pull requests: %w", err)
	}
	details.Issues, err = fetchAll(ctx, c, issues, func(i Issue) string { return i.URL })
	if err != nil {
		return nil, fmt.Errorf("fetching issues: %w", err)
	}
	details.Releases, err = fetchAll(ctx, c, releases, func(r Release) string { return r.URL })
	if err != nil {
		return nil, fmt.Errorf("fetching releases: %w", err)
	}

	return &details, nil
}

// DetailKey returns the key under which Details stores the detail object
// of n.
func (c *Client) DetailKey(n Notification) string {
	return c.rewriteURL(n.Subject.URL)
}

// fetchAll GETs every URL with bounded concurrency and indexes the decoded
// objects by the API URL they report about themselves.
func fetchAll[T any](
	ctx context.Context,
	c *Client,
	urls []string,
	keyOf func(T) string,
) (map[string]T, error) {
	var mu gosync.Mutex
	out := make(map[string]T, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)
	for _, u := range urls {
		g.Go(func() error {
			var obj T
			if _, err := c.getJSON(gctx, u, &obj); err != nil {
				return err
			}
			mu.Lock()
			out[c.rewriteURL(keyOf(obj))] = obj
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkDone marks a thread as done, removing it from the inbox.
func (c *Client) MarkDone(ctx context.Context, id string) error {
	if _, err := c.send(ctx, http.MethodDelete, threadPath(id), nil); err != nil {
		return fmt.Errorf("marking thread %s done: %w", id, err)
	}
	return nil
}

// MarkDoneBulk marks every thread in ids as done, a bounded number at a
// time. It stops at the first failure.
func (c *Client) MarkDoneBulk(ctx context.Context, ids []string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			return c.MarkDone(gctx, id)
		})
	}
	return g.Wait()
}

// MarkRead marks a thread as read.
func (c *Client) MarkRead(ctx context.Context, id string) error {
	if _, err := c.send(ctx, http.MethodPatch, threadPath(id), nil); err != nil {
		return fmt.Errorf("marking thread %s read: %w", id, err)
	}
	return nil
}

func threadPath(id string) string {
	return "/notifications/threads/" + url.PathEscape(id)
}

// headerInt reads an integer header, returning 0 when absent or invalid.
func headerInt(h http.Header, key string) int {
	v, err := strconv.Atoi(h.Get(key))
	if err != nil {
		return 0
	}
	return v
}
