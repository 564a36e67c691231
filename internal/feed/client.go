package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/blogwatch/backend/internal/posts"
	"github.com/blogwatch/backend/pkg/config"
	pkgerrors "github.com/blogwatch/backend/pkg/errors"
	"github.com/blogwatch/backend/pkg/logger"
)

const userAgent = "blogwatch/1.0 (feed poller)"

// Client fetches the configured feed URL and parses it. It retries transport
// failures and retryable status codes (429, 5xx) with exponential backoff;
// any other 4xx fails immediately.
type Client struct {
	httpClient *http.Client
	url        string
	maxRetries uint64
	backoff    time.Duration
	parser     Parser
	logger     *logger.Logger
}

// ClientParams collects the dependencies for NewClient.
type ClientParams struct {
	Config config.FeedConfig
	Parser Parser
	Logger *logger.Logger
}

// NewClient validates the params and returns a feed client.
func NewClient(params ClientParams) (*Client, error) {
	if params.Parser == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "feed parser required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "feed logger required")
	}
	if params.Config.URL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "feed url required")
	}

	maxRetries := params.Config.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoff := params.Config.RetryBackoff
	if backoff <= 0 {
		backoff = time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: params.Config.Timeout},
		url:        params.Config.URL,
		maxRetries: uint64(maxRetries),
		backoff:    backoff,
		parser:     params.Parser,
		logger:     params.Logger,
	}, nil
}

// FetchPosts downloads the feed and parses it into candidates.
func (c *Client) FetchPosts(ctx context.Context) ([]posts.Candidate, error) {
	raw, err := c.fetch(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeIngestion, err, "fetching feed")
	}

	candidates, err := c.parser.Parse(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeIngestion, err, "parsing feed")
	}
	return candidates, nil
}

func (c *Client) fetch(ctx context.Context) ([]byte, error) {
	var body []byte
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.backoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/json, text/html;q=0.9, */*;q=0.8")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			c.logger.Warn(c.logger.WithField(ctx, "status", resp.StatusCode), "feed fetch will retry")
			return retry.RetryableError(fmt.Errorf("feed returned status %d", resp.StatusCode))
		default:
			return fmt.Errorf("feed returned status %d", resp.StatusCode)
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}
