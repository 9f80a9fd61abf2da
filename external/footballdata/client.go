package footballdata

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/sourcegraph/conc/pool"

	"github.com/riskibarqy/prediction-pool/internal/domain/feed"
	"github.com/riskibarqy/prediction-pool/internal/domain/settings"
	"github.com/riskibarqy/prediction-pool/internal/platform/logging"
	"github.com/riskibarqy/prediction-pool/internal/platform/metrics"
	"github.com/riskibarqy/prediction-pool/internal/platform/resilience"
	"github.com/riskibarqy/prediction-pool/internal/usecase"
)

const (
	defaultBaseURL     = "https://api.football-data.org/v4"
	defaultConcurrency = 4
	tokenHeader        = "X-Auth-Token"
	dateLayout         = "2006-01-02"
)

var errFootballDataTransient = crerr.New("football-data transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Token          string
	Timeout        time.Duration
	MaxRetries     int
	Concurrency    int
	RetryBackoff   time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

type Client struct {
	httpClient     *http.Client
	baseURL        string
	token          string
	maxRetries     int
	concurrency    int
	retryBackoff   time.Duration
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	flight         resilience.Flight[[]byte]
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 15 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = time.Second
	}
	logger = logger.Named("footballdata")

	return &Client{
		httpClient:   httpClient,
		baseURL:      baseURL,
		token:        strings.TrimSpace(cfg.Token),
		maxRetries:   max(cfg.MaxRetries, 0),
		concurrency:  concurrency,
		retryBackoff: backoff,
		logger:       logger,
		breaker: resilience.NewCircuitBreaker("football_data", cfg.CircuitBreaker,
			resilience.WithTransitionHook(logCircuitTransition(logger)),
		),
	}
}

func logCircuitTransition(logger *logging.Logger) func(string, resilience.CircuitState, resilience.CircuitState) {
	return func(dependency string, from, to resilience.CircuitState) {
		logger.Warn("circuit breaker state changed", "dependency", dependency, "from", from, "to", to)
	}
}

// FetchMatches returns the feed matches for the filter. An empty code list is a
// single global query. Codes are queried concurrently and a failing code only
// drops its own matches.
func (c *Client) FetchMatches(ctx context.Context, filter feed.Filter) ([]feed.Match, error) {
	codes := normalizeCodes(filter.CompetitionCodes)
	query := buildQuery(filter)

	if len(codes) == 0 {
		items, err := c.fetchPath(ctx, "", "/matches", query, filter.ScorePriority)
		if err != nil {
			return nil, fmt.Errorf("fetch global matches: %w", err)
		}
		return items, nil
	}

	p := pool.NewWithResults[[]feed.Match]().WithMaxGoroutines(c.concurrency)
	for _, code := range codes {
		p.Go(func() []feed.Match {
			path := "/competitions/" + url.PathEscape(code) + "/matches"
			items, err := c.fetchPath(ctx, code, path, query, filter.ScorePriority)
			if err != nil {
				c.logger.WarnContext(ctx, "competition fetch failed, treating as empty", "code", code, "error", err)
				return nil
			}
			return items
		})
	}

	out := make([]feed.Match, 0, 64)
	for _, items := range p.Wait() {
		out = append(out, items...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].KickoffAt.Equal(out[j].KickoffAt) {
			return out[i].KickoffAt.Before(out[j].KickoffAt)
		}
		return out[i].ExternalID < out[j].ExternalID
	})
	return out, nil
}

// FetchMatch loads one match by provider id.
func (c *Client) FetchMatch(ctx context.Context, externalID string, priority settings.ScorePriority) (feed.Match, bool, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return feed.Match{}, false, fmt.Errorf("%w: external id is required", usecase.ErrInvalidInput)
	}

	var item matchItem
	if _, err := c.doJSON(ctx, "/matches/"+url.PathEscape(externalID), nil, &item); err != nil {
		return feed.Match{}, false, fmt.Errorf("fetch match external_id=%s: %w", externalID, err)
	}
	out, ok := toFeedMatch(item, priority)
	return out, ok, nil
}

func (c *Client) fetchPath(ctx context.Context, code, path string, query url.Values, priority settings.ScorePriority) ([]feed.Match, error) {
	startedAt := time.Now()
	var envelope matchesEnvelope
	if _, err := c.doJSON(ctx, path, query, &envelope); err != nil {
		metrics.RecordFeedRequest(code, "error", time.Since(startedAt))
		return nil, err
	}
	metrics.RecordFeedRequest(code, "ok", time.Since(startedAt))

	out := make([]feed.Match, 0, len(envelope.Matches))
	for _, item := range envelope.Matches {
		mapped, ok := toFeedMatch(item, priority)
		if !ok {
			c.logger.DebugContext(ctx, "skip unparseable feed match", "code", code, "external_id", item.ID)
			continue
		}
		out = append(out, mapped)
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, path string, query url.Values, target any) ([]byte, error) {
	if err := c.breaker.Allow(); err != nil {
		c.logger.WarnContext(ctx, "football-data circuit breaker rejected request", "state", c.breaker.State())
		return nil, fmt.Errorf("%w: match feed is temporarily unavailable", usecase.ErrDependencyUnavailable)
	}

	fullURL := c.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	raw, err, _ := c.flight.Do(fullURL, func() ([]byte, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		c.breaker.Record(isCircuitFailure(reqErr))
		return raw, reqErr
	})
	if err != nil {
		return nil, err
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return nil, fmt.Errorf("decode provider payload: %w", err)
	}

	return raw, nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")
		if c.token != "" {
			req.Header.Set(tokenHeader, c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = crerr.Wrapf(errFootballDataTransient, "send request: %s", sanitizeSensitiveText(err.Error(), c.token))
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 6<<20))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = crerr.Wrapf(errFootballDataTransient, "read response body: %v", readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case isRetryableStatus(resp.StatusCode):
				lastErr = crerr.Wrapf(errFootballDataTransient, "provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			default:
				return nil, crerr.Newf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		timer := time.NewTimer(time.Duration(attempt+1) * c.retryBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = crerr.New("provider request failed")
	}
	c.logger.WarnContext(ctx, "football-data request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

func buildQuery(filter feed.Filter) url.Values {
	values := url.Values{}
	if !filter.DateFrom.IsZero() {
		values.Set("dateFrom", filter.DateFrom.Format(dateLayout))
	}
	if !filter.DateTo.IsZero() {
		values.Set("dateTo", filter.DateTo.Format(dateLayout))
	}
	if len(filter.Statuses) > 0 {
		values.Set("status", strings.Join(filter.Statuses, ","))
	}
	return values
}

func normalizeCodes(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}

func isCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, errFootballDataTransient)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func sanitizeSensitiveText(value, token string) string {
	value = strings.TrimSpace(value)
	if token != "" {
		value = strings.ReplaceAll(value, token, "REDACTED")
	}
	return value
}

const maxLoggedBody = 240

// abbreviateBody cuts the body to at most maxLoggedBody bytes without
// splitting a UTF-8 sequence.
func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= maxLoggedBody {
		return text
	}
	cut := maxLoggedBody
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
