// Package transport is the HTTP client every server call goes through.
//
// It speaks the diary server's JSON envelope ({"data": ..., "error": ...}),
// attaches the in-memory bearer token and heals exactly one failure class:
// an authenticated request answered with 401 triggers one refresh through
// the cookie-held refresh credential and one retry. Concurrent refreshes
// are coalesced into a single call.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophdiary/internal/common"
	"github.com/dmitrijs2005/gophdiary/internal/logging"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/singleflight"
)

const (
	// RefreshPath mints a new access token from the refresh cookie.
	RefreshPath = "/auth/token/access"

	defaultRefreshTimeout = 10 * time.Second
	maxResponseSize       = 8 << 20
)

type anonymousKey struct{}

// Anonymous marks ctx so that requests made with it carry no bearer token.
// Such requests are never healed on 401: login, sign-up and verification
// answer 401 for bad credentials, not for an expired token.
func Anonymous(ctx context.Context) context.Context {
	return context.WithValue(ctx, anonymousKey{}, true)
}

func isAnonymous(ctx context.Context) bool {
	v, _ := ctx.Value(anonymousKey{}).(bool)
	return v
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *string         `json:"error"`
}

type Transport struct {
	baseURL        *url.URL
	client         *http.Client
	log            logging.Logger
	userAgent      string
	refreshTimeout time.Duration
	now            func() time.Time

	mu    sync.RWMutex
	token string

	refreshGroup singleflight.Group
}

type Option func(*Transport)

// WithHTTPClient replaces the underlying client. A client without a cookie
// jar gets one, because the refresh credential is a cookie.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Transport) { t.client = c }
}

func WithLogger(l logging.Logger) Option {
	return func(t *Transport) { t.log = l }
}

func WithUserAgent(ua string) Option {
	return func(t *Transport) { t.userAgent = ua }
}

// WithRefreshTimeout bounds a refresh call. The refresh outlives the
// cancellation of the request that started it, since other callers may be
// waiting on it.
func WithRefreshTimeout(d time.Duration) Option {
	return func(t *Transport) {
		if d > 0 {
			t.refreshTimeout = d
		}
	}
}

func New(baseURL string, opts ...Option) (*Transport, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}

	t := &Transport{
		baseURL:        u,
		client:         &http.Client{Timeout: 30 * time.Second},
		log:            logging.NewNop(),
		refreshTimeout: defaultRefreshTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.client.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("cookie jar: %w", err)
		}
		c := *t.client
		c.Jar = jar
		t.client = &c
	}

	return t, nil
}

func (t *Transport) AccessToken() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.token
}

func (t *Transport) SetAccessToken(token string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.token = token
}

func (t *Transport) ClearAccessToken() {
	t.SetAccessToken("")
}

// Do sends one logical request and decodes the envelope data into out
// (which may be nil). At most one refresh is performed per call, either
// pre-emptively for a token whose exp has passed or after a 401.
func (t *Transport) Do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		payload = b
	}

	token := ""
	if !isAnonymous(ctx) {
		token = t.AccessToken()
	}
	refreshed := false

	if token != "" && expired(token, t.now()) {
		t.log.Debug(ctx, "access token expired before send", "path", path)
		fresh, err := t.refresh(ctx, token)
		if err != nil {
			return err
		}
		token, refreshed = fresh, true
	}

	for {
		data, err := t.send(ctx, method, path, payload, token)
		if err == nil {
			return decodeData(data, out)
		}

		if token == "" || refreshed || !isUnauthorized(err) {
			return err
		}

		t.log.Debug(ctx, "access token rejected, refreshing", "method", method, "path", path)
		fresh, rerr := t.refresh(ctx, token)
		if rerr != nil {
			return rerr
		}
		token, refreshed = fresh, true
	}
}

// Refresh asks the server for a new access token using the refresh cookie
// and stores it. It is not coalesced; Do uses the coalesced variant.
func (t *Transport) Refresh(ctx context.Context) (string, error) {
	data, err := t.send(ctx, http.MethodPost, RefreshPath, nil, "")
	if err != nil {
		return "", fmt.Errorf("refresh access token: %w", err)
	}

	var token string
	if err := decodeData(data, &token); err != nil {
		return "", fmt.Errorf("refresh access token: %w", err)
	}
	if token == "" {
		return "", fmt.Errorf("refresh access token: %w", &HTTPError{Status: http.StatusUnauthorized, Message: "empty token"})
	}

	t.SetAccessToken(token)
	return token, nil
}

// refresh replaces stale with a new token. Callers whose stale token has
// already been replaced get the current one without another server call,
// and callers racing each other share one in-flight refresh.
func (t *Transport) refresh(ctx context.Context, stale string) (string, error) {
	if cur := t.AccessToken(); cur != "" && cur != stale {
		return cur, nil
	}

	ch := t.refreshGroup.DoChan("refresh", func() (any, error) {
		if cur := t.AccessToken(); cur != "" && cur != stale {
			return cur, nil
		}
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.refreshTimeout)
		defer cancel()

		token, err := t.Refresh(rctx)
		if err != nil {
			t.log.Warn(rctx, "access token refresh failed", "error", err)
			return "", err
		}
		t.log.Debug(rctx, "access token refreshed")
		return token, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (t *Transport) send(ctx context.Context, method, path string, payload []byte, token string) (json.RawMessage, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.resolve(path), reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s %s: %w", common.ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", common.ErrNetwork, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &HTTPError{Status: resp.StatusCode}
		}
		return nil, &HTTPError{Status: resp.StatusCode, Message: "malformed response"}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 || !hasData(env.Data) {
		he := &HTTPError{Status: resp.StatusCode}
		if env.Error != nil {
			he.Message = *env.Error
		}
		if he.Message == "" && resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			he.Message = "empty response"
		}
		return nil, he
	}

	return env.Data, nil
}

func (t *Transport) resolve(path string) string {
	return t.baseURL.String() + "/" + strings.TrimLeft(path, "/")
}

func hasData(d json.RawMessage) bool {
	s := bytes.TrimSpace(d)
	return len(s) > 0 && !bytes.Equal(s, []byte("null"))
}

func decodeData(data json.RawMessage, out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// Get and friends are typed wrappers over Do.

func Get[T any](ctx context.Context, t *Transport, path string) (T, error) {
	var out T
	err := t.Do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func Post[B, T any](ctx context.Context, t *Transport, path string, body B) (T, error) {
	var out T
	err := t.Do(ctx, http.MethodPost, path, body, &out)
	return out, err
}

func PostWithoutBody[T any](ctx context.Context, t *Transport, path string) (T, error) {
	var out T
	err := t.Do(ctx, http.MethodPost, path, nil, &out)
	return out, err
}

func Patch[B, T any](ctx context.Context, t *Transport, path string, body B) (T, error) {
	var out T
	err := t.Do(ctx, http.MethodPatch, path, body, &out)
	return out, err
}

func Delete[T any](ctx context.Context, t *Transport, path string) (T, error) {
	var out T
	err := t.Do(ctx, http.MethodDelete, path, nil, &out)
	return out, err
}
