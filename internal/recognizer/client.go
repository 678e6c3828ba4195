package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/gammon-vision/internal/board"
)

// APIError is a non-2xx answer from the recognizer service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("recognizer api error: status=%d message=%s", e.Status, e.Message)
}

// Hint is one suggested move as ranked by the hint engine.
type Hint struct {
	MoveNumber int     `json:"move_number"`
	Moves      string  `json:"moves"`
	Equity     float64 `json:"equity"`
}

// wireGame is the snake_case shape the recognizer speaks.
type wireGame struct {
	CheckerPositions board.CheckerPositions `json:"checker_positions"`
	Dices            []board.Die            `json:"dices"`
	CurrentPlayer    string                 `json:"current_player,omitempty"`
}

type Client struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.defaultTimeout = d
		}
	}
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

// NewClient targets the service root; endpoints live under /api/backgammon.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/api/backgammon",
		http:           &fasthttp.Client{ReadTimeout: 30 * time.Second, WriteTimeout: 30 * time.Second, MaxConnsPerHost: 16},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Detect uploads a capture and returns the annotated JPEG the service draws its detections on.
func (c *Client) Detect(ctx context.Context, image []byte, filename string) ([]byte, error) {
	body, contentType, err := imageForm(image, filename)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, "/detect", contentType, body)
}

// Parse uploads a capture and returns the recognised board.
func (c *Client) Parse(ctx context.Context, image []byte, filename string) (board.GameData, error) {
	body, contentType, err := imageForm(image, filename)
	if err != nil {
		return board.GameData{}, err
	}
	raw, err := c.do(ctx, "/parse", contentType, body)
	if err != nil {
		return board.GameData{}, err
	}
	var wg wireGame
	if err := json.Unmarshal(raw, &wg); err != nil {
		return board.GameData{}, fmt.Errorf("decode parse response: %w", err)
	}
	gd := board.GameData{CheckerPositions: wg.CheckerPositions, Dice: wg.Dices, CurrentPlayer: wg.CurrentPlayer}
	if gd.CurrentPlayer == "" {
		gd.CurrentPlayer = string(board.PlayerOne)
	}
	if err := gd.Validate(); err != nil {
		return board.GameData{}, fmt.Errorf("parse response: %w", err)
	}
	return gd, nil
}

// Hints asks the hint engine for ranked moves for gd.
func (c *Client) Hints(ctx context.Context, gd board.GameData) ([]Hint, error) {
	payload, err := json.Marshal(wireGame{
		CheckerPositions: gd.CheckerPositions,
		Dices:            gd.Dice,
		CurrentPlayer:    gd.CurrentPlayer,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	raw, err := c.do(ctx, "/hint", "application/json", payload)
	if err != nil {
		return nil, err
	}
	var hints []Hint
	if err := json.Unmarshal(raw, &hints); err != nil {
		return nil, fmt.Errorf("decode hints: %w", err)
	}
	return hints, nil
}

func imageForm(image []byte, filename string) ([]byte, string, error) {
	if len(image) == 0 {
		return nil, "", errors.New("empty image")
	}
	if strings.TrimSpace(filename) == "" {
		filename = "board.jpg"
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
	hdr.Set("Content-Type", "image/jpeg")
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return nil, "", fmt.Errorf("build form: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", fmt.Errorf("build form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("build form: %w", err)
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}

// do POSTs body and returns the response body. Transport errors and 5xx gateway errors are
// retried with backoff. A cancelled ctx wins over any late response.
func (c *Client) do(ctx context.Context, path, contentType string, body []byte) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()
	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType(contentType)
	req.SetBody(body)

	attempts := c.retryMax
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
		} else {
			status := resp.StatusCode()
			if status >= 200 && status < 300 {
				return append([]byte(nil), resp.Body()...), nil
			}
			apiErr := &APIError{Status: status, Message: errorMessage(resp.Body())}
			if !shouldRetryStatus(status) {
				return nil, apiErr
			}
			lastErr = apiErr
		}
		if attempt == attempts {
			break
		}
		if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
			return nil, sleepErr
		}
	}
	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return nil, lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 502, 503, 504:
		return true
	default:
		return false
	}
}

// errorMessage pulls {"error": "..."} out of a failure body, falling back to the raw text.
func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return truncate(string(body), 512)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
