package feed

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/leagueroom/fantasy-blocks/internal/platform/logging"
	"github.com/leagueroom/fantasy-blocks/internal/platform/resilience"
	"github.com/leagueroom/fantasy-blocks/internal/usecase"
)

const (
	defaultTimeout         = 15 * time.Second
	maxResponseBodySize    = 6 << 20
	fixturesDocumentPath   = "/fixtures"
	rosterDocumentPath     = "/roster"
	teamsDocumentPath      = "/teams"
	pointsDocumentPathTmpl = "/blocks/%d/points"
)

var errFeedTransient = crerr.New("feed transient failure")

type ClientConfig struct {
	BaseURL        string
	Token          string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client pulls the published league documents over HTTP. Requests are
// retried with linear backoff, deduplicated in-flight, and guarded by a
// circuit breaker that only counts transport-level failures.
type Client struct {
	httpClient     *fasthttp.Client
	baseURL        string
	token          string
	timeout        time.Duration
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient: &fasthttp.Client{
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxResponseBodySize: maxResponseBodySize,
		},
		baseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		token:          strings.TrimSpace(cfg.Token),
		timeout:        timeout,
		maxRetries:     maxInt(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

func (c *Client) FetchFixtures(ctx context.Context) ([]usecase.FeedFixture, error) {
	var doc fixturesDocument
	if err := c.doJSON(ctx, fixturesDocumentPath, &doc); err != nil {
		return nil, fmt.Errorf("fetch fixtures document: %w", err)
	}

	out := make([]usecase.FeedFixture, 0, len(doc.Fixtures))
	for _, item := range doc.Fixtures {
		id := strings.TrimSpace(item.ID)
		startAt := parseFeedTime(item.StartAt)
		if id == "" || startAt == nil {
			c.logger.WarnContext(ctx, "skip malformed fixture row", "fixture_id", item.ID, "start_at", item.StartAt)
			continue
		}
		out = append(out, usecase.FeedFixture{
			ID:       id,
			HomeTeam: strings.TrimSpace(item.HomeTeam),
			AwayTeam: strings.TrimSpace(item.AwayTeam),
			StartAt:  *startAt,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartAt.Equal(out[j].StartAt) {
			return out[i].StartAt.Before(out[j].StartAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (c *Client) FetchRoster(ctx context.Context) ([]usecase.FeedPlayer, error) {
	var doc rosterDocument
	if err := c.doJSON(ctx, rosterDocumentPath, &doc); err != nil {
		return nil, fmt.Errorf("fetch roster document: %w", err)
	}

	out := make([]usecase.FeedPlayer, 0, len(doc.Players))
	for _, item := range doc.Players {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			c.logger.WarnContext(ctx, "skip malformed roster row", "player_name", item.Name)
			continue
		}
		active := true
		if item.Active != nil {
			active = *item.Active
		}
		out = append(out, usecase.FeedPlayer{
			ID:     id,
			Name:   strings.TrimSpace(item.Name),
			TeamID: strings.TrimSpace(item.TeamID),
			Active: active,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (c *Client) FetchTeams(ctx context.Context) ([]usecase.FeedTeam, error) {
	var doc teamsDocument
	if err := c.doJSON(ctx, teamsDocumentPath, &doc); err != nil {
		return nil, fmt.Errorf("fetch teams document: %w", err)
	}

	out := make([]usecase.FeedTeam, 0, len(doc.Teams))
	for _, item := range doc.Teams {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			c.logger.WarnContext(ctx, "skip malformed team row", "team_name", item.Name)
			continue
		}
		out = append(out, usecase.FeedTeam{
			ID:    id,
			Name:  strings.TrimSpace(item.Name),
			Short: strings.TrimSpace(item.Short),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (c *Client) FetchBlockPoints(ctx context.Context, blockNumber int) ([]usecase.FeedPointsRow, error) {
	if blockNumber <= 0 {
		return nil, fmt.Errorf("block number must be greater than zero")
	}

	path := fmt.Sprintf(pointsDocumentPathTmpl, blockNumber)
	var doc pointsDocument
	if err := c.doJSON(ctx, path, &doc); err != nil {
		return nil, fmt.Errorf("fetch points document block=%d: %w", blockNumber, err)
	}
	if doc.BlockNumber > 0 && doc.BlockNumber != blockNumber {
		return nil, fmt.Errorf("points document is for block %d, requested %d", doc.BlockNumber, blockNumber)
	}

	out := make([]usecase.FeedPointsRow, 0, len(doc.Points))
	for _, item := range doc.Points {
		id := strings.TrimSpace(item.PlayerID)
		if id == "" {
			c.logger.WarnContext(ctx, "skip malformed points row", "block_number", blockNumber)
			continue
		}
		out = append(out, usecase.FeedPointsRow{PlayerID: id, Points: item.Points})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PlayerID < out[j].PlayerID
	})
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, path string, target any) error {
	if c.baseURL == "" {
		return fmt.Errorf("%w: feed base url is not configured", usecase.ErrDependencyUnavailable)
	}
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "feed circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: league feed is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	fullURL := c.baseURL + path

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(
			attribute.String("feed.url", fullURL),
			attribute.String("feed.request_curl_preview", buildFeedCurlPreview(fullURL, c.token != "")),
		)
	}

	out, err, _ := c.flight.Do(path, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && stderrors.Is(reqErr, errFeedTransient) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return err
	}

	raw, ok := out.([]byte)
	if !ok {
		return fmt.Errorf("unexpected response payload type %T", out)
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode feed document: %w", err)
	}
	return nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, status, err := c.doAttempt(ctx, fullURL)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %v", errFeedTransient, err)
		} else if status >= 200 && status < 300 {
			return raw, nil
		} else if isRetryableStatus(status) {
			lastErr = fmt.Errorf("%w: feed status=%d body=%s", errFeedTransient, status, abbreviateBody(raw))
		} else {
			lastErr = fmt.Errorf("feed status=%d body=%s", status, abbreviateBody(raw))
			break
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("feed request failed")
	}
	c.logger.WarnContext(ctx, "feed request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

func (c *Client) doAttempt(ctx context.Context, fullURL string) ([]byte, int, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fullURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	if c.token != "" {
		req.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+c.token)
	}

	deadline := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	if err := c.httpClient.DoDeadline(req, resp, deadline); err != nil {
		return nil, 0, err
	}

	// The response buffer is recycled on release, so hand back a copy.
	raw := append([]byte(nil), resp.Body()...)
	return raw, resp.StatusCode(), nil
}

func buildFeedCurlPreview(fullURL string, withToken bool) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	appendPart := func(part string) {
		if buf.Len() > 0 {
			_ = buf.WriteByte(' ')
		}
		_, _ = buf.WriteString(part)
	}

	appendPart("curl")
	appendPart(shellQuote(fullURL))
	appendPart("-H")
	appendPart(shellQuote("Accept: application/json"))
	if withToken {
		appendPart("-H")
		appendPart(shellQuote("Authorization: Bearer ***"))
	}

	return buf.String()
}

func shellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "'\"'\"'") + "'"
}

func abbreviateBody(raw []byte) string {
	text := strings.TrimSpace(string(raw))
	if len(text) > 512 {
		return text[:512] + "...(truncated)"
	}
	return text
}

func isRetryableStatus(statusCode int) bool {
	return statusCode == fasthttp.StatusRequestTimeout ||
		statusCode == fasthttp.StatusTooManyRequests ||
		statusCode >= fasthttp.StatusInternalServerError
}

func maxInt(left, right int) int {
	if left > right {
		return left
	}
	return right
}
