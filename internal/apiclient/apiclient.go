// Package apiclient implements the API Client (C3): a generic REST
// invoker with auth, retry, cache, and response transform. Its retry/
// backoff loop is grounded on the teacher's
// internal/notifications/webhook.go sendWithRetry, generalized from a
// single webhook POST to any method/auth/cache combination; its default
// header injection follows the same defeat-WAF rationale as
// nevindra-oasis/tools/http/http.go's User-Agent default.
package apiclient

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/relaykit/orchestrate/internal/formatter"
	"github.com/relaykit/orchestrate/internal/model"
)

// AuthKind is the closed set of authentication strategies (spec.md §4.3).
type AuthKind string

const (
	AuthNone   AuthKind = "none"
	AuthAPIKey AuthKind = "api_key"
	AuthOAuth  AuthKind = "oauth"
	AuthJWT    AuthKind = "jwt"
	AuthBasic  AuthKind = "basic"
	AuthCustom AuthKind = "custom"
)

// Auth carries the parameters for one AuthKind.
type Auth struct {
	Kind     AuthKind          `json:"type"`
	Key      string            `json:"key,omitempty"`
	In       string            `json:"in,omitempty"` // "query" | "header", api_key only
	Name     string            `json:"name,omitempty"`
	Username string            `json:"username,omitempty"`
	Password string            `json:"password,omitempty"`
	Token    string            `json:"token,omitempty"`
	Headers  map[string]string `json:"headers,omitempty"`
}

// RetryPolicy controls the attempt loop (spec.md §4.3).
type RetryPolicy struct {
	MaxRetries     int   `json:"max_retries"`
	DelaySeconds   float64 `json:"delay_seconds"`
	BackoffFactor  float64 `json:"backoff_factor"`
	RetryOnStatus  []int `json:"retry_on_status"`
}

func (r RetryPolicy) retryable(status int) bool {
	codes := r.RetryOnStatus
	if len(codes) == 0 {
		codes = []int{429, 500, 502, 503, 504}
	}
	for _, c := range codes {
		if c == status {
			return true
		}
	}
	return false
}

// CachePolicy controls the process-wide response cache (spec.md §4.3, §9).
type CachePolicy struct {
	Enabled    bool `json:"enabled"`
	TTLSeconds int  `json:"ttl_seconds"`
}

// ResponseTransform extracts/maps fields out of the decoded body
// (spec.md §4.3 "Response transform").
type ResponseTransform struct {
	Extract string            `json:"extract,omitempty"`
	Map     map[string]string `json:"map,omitempty"`
}

// Request is one REST call description (spec.md §6 api_call config).
type Request struct {
	Method         string             `json:"method"`
	URL            string             `json:"url"`
	QueryParams    map[string]any     `json:"query_params,omitempty"`
	Headers        map[string]string  `json:"headers,omitempty"`
	Body           any                `json:"body,omitempty"`
	Auth           Auth               `json:"auth"`
	Retry          RetryPolicy        `json:"retry"`
	Cache          CachePolicy        `json:"cache"`
	Response       *ResponseTransform `json:"response,omitempty"`
	TimeoutSeconds int                `json:"timeout_seconds"`
}

// defaultHeaders are always injected unless the caller overrides them
// (spec.md §4.3). They exist to defeat trivial WAF rules that block
// requests lacking a browser-shaped header set.
func defaultHeaders(u *url.URL) map[string]string {
	return map[string]string{
		"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Accept":          "application/json, text/plain, */*",
		"Accept-Language": "en-US,en;q=0.9",
		"Cache-Control":   "no-cache",
		"Referer":         u.Scheme + "://" + u.Host + "/",
	}
}

// Client executes REST calls with a process-wide response cache.
type Client struct {
	httpClient *http.Client
	cache      *responseCache
}

// New builds a Client with its own cache. One Client should be
// constructed at start-up and shared; its cache is explicitly owned and
// must be flushed/closed at shutdown per spec.md §9's "documented
// lifecycle" design note.
func New() *Client {
	return &Client{
		httpClient: &http.Client{},
		cache:      newResponseCache(),
	}
}

// Close flushes the response cache. Part of the documented cache
// lifecycle (spec.md §9).
func (c *Client) Close() {
	c.cache.clear()
}

// Invoke performs one REST call and returns the uniform StepResult shape
// required by spec.md §4.3's "Return shape (invariant)". Whenever an HTTP
// response was received, its output map is returned, including after
// retries are exhausted. Failures with no response (invalid URL, body
// encoding, cancellation, a network error on the last attempt) carry a
// nil output.
func (c *Client) Invoke(ctx context.Context, req Request, vars map[string]any) model.StepResult {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	formattedQuery := formatQueryParams(req.QueryParams, vars)
	formattedBody := formatter.FormatValue(req.Body, vars)

	base, err := url.Parse(req.URL)
	if err != nil {
		return model.Fail(fmt.Sprintf("invalid url: %v", err), nil)
	}

	q := url.Values{}
	for k, v := range formattedQuery {
		q.Set(k, fmt.Sprintf("%v", v))
	}
	base.RawQuery = q.Encode()

	principal := authPrincipalHash(req.Auth)
	cacheKey := cacheKeyFor(method, base.String(), formattedBody, principal)

	if req.Cache.Enabled && method == http.MethodGet {
		if hit, ok := c.cache.get(cacheKey, time.Duration(req.Cache.TTLSeconds)*time.Second); ok {
			return model.Ok(hit)
		}
	}

	bodyBytes, err := encodeBody(formattedBody)
	if err != nil {
		return model.Fail(fmt.Sprintf("failed to encode body: %v", err), nil)
	}

	timeout := 30 * time.Second
	if req.TimeoutSeconds > 0 {
		timeout = time.Duration(req.TimeoutSeconds) * time.Second
	}

	headers := mergeHeaders(defaultHeaders(base), req.Headers)
	applyAuth(req.Auth, base, q, headers)
	base.RawQuery = q.Encode()

	retry := req.Retry
	maxAttempts := retry.MaxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	backoffFactor := retry.BackoffFactor
	if backoffFactor <= 0 {
		backoffFactor = 1
	}

	var lastErr error
	var lastOutput map[string]any
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := retry.DelaySeconds
			for i := 1; i < attempt; i++ {
				delay *= backoffFactor
			}
			if delay > 0 {
				select {
				case <-ctx.Done():
					return model.Fail("request cancelled", nil)
				case <-time.After(time.Duration(delay * float64(time.Second))):
				}
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		output, status, retryable, err := c.do(attemptCtx, method, base.String(), headers, bodyBytes, req.Response)
		cancel()

		if err == nil {
			if req.Cache.Enabled && method == http.MethodGet && status >= 200 && status < 300 {
				c.cache.set(cacheKey, output)
			}
			return model.Ok(output)
		}

		lastErr = err
		lastOutput = output
		if retryable || retry.retryable(status) {
			continue
		}
		if status > 0 {
			return model.Fail(err.Error(), output)
		}
		break
	}

	return model.Fail(fmt.Sprintf("request failed after %d attempt(s): %v", maxAttempts, lastErr), lastOutput)
}

func (c *Client) do(ctx context.Context, method, rawURL string, headers map[string]string, body []byte, transform *ResponseTransform) (map[string]any, int, bool, error) {
	var bodyReader io.Reader
	if len(body) > 0 {
		bodyReader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, rawURL, bodyReader)
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to build request: %w", err)
	}
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}
	if len(body) > 0 && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// network errors (including timeouts) are always retryable.
		return nil, 0, true, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	respHeaders := make(map[string]any, len(resp.Header))
	for k, v := range resp.Header {
		if len(v) == 1 {
			respHeaders[k] = v[0]
		} else {
			respHeaders[k] = v
		}
	}

	data := decodeBody(raw, resp.Header.Get("Content-Type"))
	if transform != nil {
		data = applyTransform(data, transform)
	}

	status := "success"
	var errStr string
	if resp.StatusCode >= 400 {
		status = "error"
		errStr = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}

	output := map[string]any{
		"data":        data,
		"status_code": resp.StatusCode,
		"headers":     respHeaders,
		"status":      status,
	}
	if errStr != "" {
		output["error"] = errStr
		return output, resp.StatusCode, false, fmt.Errorf("%s", errStr)
	}
	output["error"] = nil
	return output, resp.StatusCode, false, nil
}

func decodeBody(raw []byte, contentType string) any {
	if strings.Contains(contentType, "json") || contentType == "" {
		var v any
		if err := json.Unmarshal(raw, &v); err == nil {
			return v
		}
	}
	return string(raw)
}

func applyTransform(data any, t *ResponseTransform) any {
	raw, err := json.Marshal(data)
	if err != nil {
		return data
	}
	doc := string(raw)

	if t.Extract != "" {
		result := gjson.Get(doc, t.Extract)
		if !result.Exists() {
			return data
		}
		var extracted any
		if err := json.Unmarshal([]byte(result.Raw), &extracted); err != nil {
			extracted = result.Value()
		}
		if t.Map == nil {
			return extracted
		}
		extractedRaw, _ := json.Marshal(extracted)
		doc = string(extractedRaw)
	}

	if t.Map != nil {
		out := make(map[string]any, len(t.Map))
		for dst, src := range t.Map {
			r := gjson.Get(doc, src)
			if !r.Exists() {
				continue
			}
			var v any
			if err := json.Unmarshal([]byte(r.Raw), &v); err != nil {
				v = r.Value()
			}
			out[dst] = v
		}
		return out
	}

	var extracted any
	if err := json.Unmarshal([]byte(doc), &extracted); err == nil {
		return extracted
	}
	return data
}

func formatQueryParams(params map[string]any, vars map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = formatter.FormatValue(v, vars)
	}
	return out
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	return json.Marshal(body)
}

func mergeHeaders(defaults, caller map[string]string) map[string]string {
	out := make(map[string]string, len(defaults)+len(caller))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range caller {
		out[k] = v
	}
	return out
}

func applyAuth(auth Auth, u *url.URL, q url.Values, headers map[string]string) {
	switch auth.Kind {
	case AuthAPIKey:
		name := auth.Name
		if name == "" {
			name = "api_key"
		}
		if auth.In == "query" {
			q.Set(name, auth.Key)
		} else {
			headers[name] = auth.Key
		}
	case AuthBasic:
		encoded := base64.StdEncoding.EncodeToString([]byte(auth.Username + ":" + auth.Password))
		headers["Authorization"] = "Basic " + encoded
	case AuthOAuth, AuthJWT:
		headers["Authorization"] = "Bearer " + auth.Token
	case AuthCustom:
		for k, v := range auth.Headers {
			headers[k] = v
		}
	case AuthNone, "":
		// no mutation
	}
}

// authPrincipalHash identifies the caller for cache-key isolation so the
// process-wide cache never leaks a response across distinct credentials
// (spec.md §5 "cache key includes auth principal hash").
func authPrincipalHash(auth Auth) string {
	principal := string(auth.Kind) + "|" + auth.Key + "|" + auth.Username + "|" + auth.Token
	sum := sha256.Sum256([]byte(principal))
	return hex.EncodeToString(sum[:])
}

func cacheKeyFor(method, url string, body any, principalHash string) string {
	bodyBytes, _ := json.Marshal(body)
	bodySum := sha256.Sum256(bodyBytes)
	return strings.Join([]string{method, url, hex.EncodeToString(bodySum[:]), principalHash}, "|")
}
