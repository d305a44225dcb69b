package similarity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/okian/wordgraph/internal/domain/model"
	"github.com/okian/wordgraph/pkg/logger"
	"github.com/okian/wordgraph/pkg/metrics"
)

const (
	defaultTimeout          = 10 * time.Second
	defaultFailureThreshold = 5
	defaultBreakerTimeout   = 30 * time.Second
	maxResponseBytes        = 4 << 20
)

// HTTPOption applies a configuration option to the HTTPClient.
type HTTPOption func(*HTTPClient)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithBreaker sets how many consecutive failures open the breaker and how
// long it stays open.
func WithBreaker(failures uint32, openFor time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		if failures > 0 {
			c.failureThreshold = failures
		}
		if openFor > 0 {
			c.breakerTimeout = openFor
		}
	}
}

// WithHTTPLogger sets a custom logger.
func WithHTTPLogger(l logger.Logger) HTTPOption {
	return func(c *HTTPClient) {
		if l != nil {
			c.log = l
		}
	}
}

// WithHTTPClient replaces the underlying *http.Client. Its Jar is kept if
// set, otherwise a fresh cookie jar is installed.
func WithHTTPClient(h *http.Client) HTTPOption {
	return func(c *HTTPClient) {
		if h != nil {
			c.http = h
		}
	}
}

// HTTPClient speaks the word-game server's JSON API. The server keeps the
// round in a session cookie, so every HTTPClient owns a cookie jar and
// represents exactly one player.
type HTTPClient struct {
	base string
	http *http.Client
	cb   *gobreaker.CircuitBreaker
	log  logger.Logger

	mu    sync.Mutex
	model string

	timeout          time.Duration
	failureThreshold uint32
	breakerTimeout   time.Duration
}

// NewHTTPClient creates a client for the server at baseURL.
func NewHTTPClient(baseURL string, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		base:             strings.TrimRight(baseURL, "/"),
		log:              logger.GetOrNop().Named("similarity"),
		timeout:          defaultTimeout,
		failureThreshold: defaultFailureThreshold,
		breakerTimeout:   defaultBreakerTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.http.Jar == nil {
		jar, _ := cookiejar.New(nil) // only fails on a non-nil PublicSuffixList
		c.http.Jar = jar
	}

	threshold := c.failureThreshold
	c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "similarity",
		Timeout: c.breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.UpdateBreakerState(int(to))
			c.log.Warn(context.Background(), "circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		},
		// Rejections from the game itself say nothing about service health.
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, ErrUnavailable)
		},
	})
	metrics.UpdateBreakerState(int(gobreaker.StateClosed))
	return c
}

type setWordRequest struct {
	Word  string `json:"word"`
	Model string `json:"model,omitempty"`
}

type guessRequest struct {
	Word  string `json:"word"`
	Guess string `json:"guess"`
	Model string `json:"model,omitempty"`
}

type rescoreRequest struct {
	Model string `json:"model"`
}

type scoreEntry struct {
	Word  string  `json:"word"`
	Score float64 `json:"score"`
}

type graphLink struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Value  float64 `json:"value"`
}

type graphNode struct {
	ID       string  `json:"id"`
	Score    float64 `json:"score"`
	IsTarget bool    `json:"isTarget"`
}

type graphData struct {
	Nodes []graphNode `json:"nodes"`
	Links []graphLink `json:"links"`
}

type roundResponse struct {
	Guess      string             `json:"guess"`
	Word       string             `json:"word"`
	Score      float64            `json:"score"`
	Feedback   string             `json:"feedback"`
	GuessCount int                `json:"guess_count"`
	Found      bool               `json:"found"`
	Correct    bool               `json:"correct"`
	Secret     string             `json:"secret_word"`
	Model      string             `json:"model"`
	AllScores  []scoreEntry       `json:"all_scores"`
	Rescored   []scoreEntry       `json:"guess_scores"`
	Pairwise   map[string]float64 `json:"pairwise_similarities"`
	Graph      *graphData         `json:"graph_data"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// SetWord starts a new round on the server.
func (c *HTTPClient) SetWord(ctx context.Context, word string) error {
	w := model.NormalizeWord(word)
	if w == "" {
		return ErrInvalidWord
	}
	return c.call(ctx, "set_word", http.MethodPost, "/set_word", setWordRequest{Word: w, Model: c.currentModel()}, nil)
}

// Guess submits word.
func (c *HTTPClient) Guess(ctx context.Context, word string) (Result, error) {
	w := model.NormalizeWord(word)
	if w == "" {
		return Result{}, ErrInvalidWord
	}
	var resp roundResponse
	if err := c.call(ctx, "guess", http.MethodPost, "/guess", guessRequest{Word: w, Guess: w, Model: c.currentModel()}, &resp); err != nil {
		return Result{}, err
	}
	return c.decode(ctx, &resp), nil
}

// Hint asks the server for a hint.
func (c *HTTPClient) Hint(ctx context.Context) (Hint, error) {
	var h Hint
	err := c.call(ctx, "hint", http.MethodGet, "/hint", nil, &h)
	return h, err
}

// Rescore switches the server's model and fetches fresh scores.
func (c *HTTPClient) Rescore(ctx context.Context, modelName string) (Result, error) {
	var resp roundResponse
	if err := c.call(ctx, "rescore", http.MethodPost, "/calculate_similarities", rescoreRequest{Model: modelName}, &resp); err != nil {
		return Result{}, err
	}
	if modelName != "" {
		c.mu.Lock()
		c.model = modelName
		c.mu.Unlock()
	}
	r := c.decode(ctx, &resp)
	if r.Model == "" {
		r.Model = modelName
	}
	return r, nil
}

// decode accepts both response shapes the server family uses: flat
// all_scores plus "a-b" keyed pairwise similarities, or graph_data with
// nodes and best-match links.
func (c *HTTPClient) decode(ctx context.Context, resp *roundResponse) Result {
	r := Result{
		Word:       firstNonEmpty(resp.Guess, resp.Word),
		Score:      resp.Score,
		Found:      resp.Found || resp.Correct,
		Feedback:   resp.Feedback,
		GuessCount: resp.GuessCount,
		Secret:     resp.Secret,
		Model:      resp.Model,
	}
	if r.Feedback == "" && r.Word != "" {
		r.Feedback = Feedback(r.Score)
	}

	scores := resp.AllScores
	if len(scores) == 0 {
		scores = resp.Rescored
	}
	for _, s := range scores {
		r.Scores = append(r.Scores, model.Guess{Word: s.Word, Score: s.Score})
	}

	var target string
	if resp.Graph != nil {
		for _, n := range resp.Graph.Nodes {
			if n.IsTarget {
				target = n.ID
				continue
			}
			if len(scores) == 0 {
				r.Scores = append(r.Scores, model.Guess{Word: n.ID, Score: n.Score})
			}
		}
	}
	if r.Found && r.Secret == "" {
		r.Secret = firstNonEmpty(target, r.Word)
	}

	known := make([]string, 0, len(r.Scores))
	for _, g := range r.Scores {
		known = append(known, g.Word)
	}
	if len(resp.Pairwise) > 0 {
		pairs, unresolved := ParsePairKeys(resp.Pairwise, known)
		r.Pairs = pairs
		if len(unresolved) > 0 {
			c.log.Warn(ctx, "unresolved pairwise keys", logger.Int("count", len(unresolved)))
		}
	} else if resp.Graph != nil {
		for _, l := range resp.Graph.Links {
			if l.Source == target || l.Target == target {
				continue
			}
			r.Pairs = append(r.Pairs, model.Pair{A: l.Source, B: l.Target, Similarity: l.Value})
		}
	}
	return r
}

// call runs one request through the breaker and maps failures onto the
// package sentinels.
func (c *HTTPClient) call(ctx context.Context, op, method, path string, body, out any) error {
	start := time.Now()
	_, err := c.cb.Execute(func() (any, error) {
		return nil, c.do(ctx, method, path, body, out)
	})
	metrics.RecordCollaboratorLatency(op, float64(time.Since(start).Milliseconds()))

	switch {
	case err == nil:
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordCollaboratorError(op)
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	case errors.Is(err, ErrUnavailable):
		metrics.RecordCollaboratorError(op)
		c.log.Warn(ctx, "similarity request failed", logger.String("op", op), logger.Error(err))
		return err
	default:
		return err
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: read body: %w", ErrUnavailable, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var e errorResponse
		_ = json.Unmarshal(data, &e)
		return classify(resp.StatusCode, e.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode response: %w", ErrUnavailable, err)
	}
	return nil
}

// classify maps the server's 4xx error strings onto sentinels.
func classify(status int, msg string) error {
	m := strings.ToLower(msg)
	switch {
	case strings.Contains(m, "already guessed"):
		return ErrAlreadyGuessed
	case strings.Contains(m, "no target word"), strings.Contains(m, "no word set"), strings.Contains(m, "no game in progress"):
		return ErrNoRound
	case strings.Contains(m, "invalid"), strings.Contains(m, "please provide"):
		return fmt.Errorf("%w: %s", ErrInvalidWord, msg)
	default:
		return fmt.Errorf("similarity: status %d: %s", status, msg)
	}
}

func (c *HTTPClient) currentModel() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
