// Package dispatch executes Descriptors: one HTTP call per descriptor and
// exactly one terminal continuation.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"academydesk/internal/store"
)

const (
	defaultTimeout   = 15 * time.Second
	maxResponseBytes = 8 << 20
	RequestIDHeader  = "X-Request-Id"
)

// ErrNoCredential is what a Credentials returns when nobody is signed in.
var ErrNoCredential = errors.New("no credential stored")

// Credentials yields the bearer token for protected calls. ErrNoCredential
// (or an empty token) means the caller is not signed in; any other error is a
// storage fault and does not sign the console out.
type Credentials interface {
	Token(ctx context.Context) (string, error)
}

var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// Record summarizes one terminal outcome for observers.
type Record struct {
	RequestID string
	Method    string
	Path      string
	Status    int
	Outcome   string
	Message   string
	Duration  time.Duration
	At        time.Time
}

type Config struct {
	BaseURL     string
	Timeout     time.Duration
	HTTPClient  *http.Client
	Credentials Credentials
	Dispatcher  store.Dispatcher
	Logger      *zap.Logger
	Metrics     *Metrics
	Observer    func(Record)
	Now         func() time.Time
}

type Interpreter struct {
	baseURL    string
	timeout    time.Duration
	client     *http.Client
	creds      Credentials
	dispatcher store.Dispatcher
	log        *zap.Logger
	metrics    *Metrics
	observer   func(Record)
	now        func() time.Time
}

// New builds an interpreter with sane defaults.
func New(cfg Config) *Interpreter {
	in := &Interpreter{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		timeout:    cfg.Timeout,
		client:     cfg.HTTPClient,
		creds:      cfg.Credentials,
		dispatcher: cfg.Dispatcher,
		log:        cfg.Logger,
		metrics:    cfg.Metrics,
		observer:   cfg.Observer,
		now:        cfg.Now,
	}
	if in.timeout <= 0 {
		in.timeout = defaultTimeout
	}
	if in.client == nil {
		in.client = &http.Client{}
	}
	if in.dispatcher == nil {
		in.dispatcher = store.DispatchFunc(func(store.Action) {})
	}
	if in.log == nil {
		in.log = zap.NewNop()
	}
	if in.now == nil {
		in.now = time.Now
	}
	return in
}

// Dispatch runs d to completion. It fires OnStart, then exactly one of
// OnSuccess or OnFailure, and returns the failure (nil on success). Nothing
// is retried and nothing is remembered between calls.
func (in *Interpreter) Dispatch(ctx context.Context, d Descriptor) error {
	reqID := uuid.NewString()
	start := in.now()
	in.fire(d.OnStart, Result{})

	token, err := in.credential(ctx, d)
	if err != nil {
		return in.fail(d, reqID, start, err)
	}

	data, status, err := in.do(ctx, d, reqID, token)
	if err != nil {
		return in.fail(d, reqID, start, err)
	}
	in.settle(d, reqID, start, status, "success", "")
	in.fire(d.OnSuccess, Result{Data: data})
	return nil
}

func (in *Interpreter) credential(ctx context.Context, d Descriptor) (string, *Error) {
	if in.creds == nil {
		if d.RequiresAuth {
			return "", &Error{Kind: KindUnauthenticated, Status: http.StatusUnauthorized, Message: "not signed in"}
		}
		return "", nil
	}
	token, err := in.creds.Token(ctx)
	token = strings.TrimSpace(token)
	switch {
	case err != nil && !errors.Is(err, ErrNoCredential):
		if !d.RequiresAuth {
			in.log.Warn("credential unreadable, calling without it", zap.Error(err))
			return "", nil
		}
		return "", &Error{Kind: KindCredentials, Message: "could not read the stored credential", Err: err}
	case d.RequiresAuth && (err != nil || token == ""):
		return "", &Error{Kind: KindUnauthenticated, Status: http.StatusUnauthorized, Message: "not signed in", Err: err}
	}
	return token, nil
}

func (in *Interpreter) do(ctx context.Context, d Descriptor, reqID, token string) (json.RawMessage, int, *Error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = in.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := in.newRequest(ctx, d, reqID, token)
	if err != nil {
		return nil, 0, &Error{Kind: KindTransport, Message: fmt.Sprintf("build request: %v", err), Err: err}
	}
	in.log.Debug("dispatch", zap.String("request_id", reqID), zap.String("method", req.Method), zap.String("url", req.URL.Redacted()))

	resp, err := in.client.Do(req)
	if err != nil {
		msg := "network error"
		if errors.Is(err, context.DeadlineExceeded) {
			msg = fmt.Sprintf("request timed out after %s", timeout)
		}
		return nil, 0, &Error{Kind: KindTransport, Message: msg, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, 0, &Error{Kind: KindTransport, Message: "read response body", Err: err}
	}
	if len(body) > maxResponseBytes {
		return nil, resp.StatusCode, &Error{Kind: KindTransport, Message: fmt.Sprintf("response too large (over %d bytes)", maxResponseBytes)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, &Error{Kind: KindServer, Status: resp.StatusCode, Message: messageFromBody(body)}
	}
	return parseBody(body), resp.StatusCode, nil
}

func (in *Interpreter) newRequest(ctx context.Context, d Descriptor, reqID, token string) (*http.Request, error) {
	method := strings.ToUpper(strings.TrimSpace(d.Method))
	if method == "" {
		method = http.MethodGet
	}
	if !allowedMethods[method] {
		return nil, fmt.Errorf("unsupported method %q", d.Method)
	}
	target := in.baseURL + "/" + strings.TrimLeft(d.Path, "/")
	if len(d.Query) > 0 {
		target += "?" + encodeQuery(d.Query)
	}
	reader, contentType, err := encodeBody(d.Body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, reqID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (in *Interpreter) fail(d Descriptor, reqID string, start time.Time, e *Error) error {
	in.settle(d, reqID, start, e.Status, e.Kind.String(), e.Message)
	in.log.Warn("dispatch failed",
		zap.String("request_id", reqID),
		zap.String("path", d.Path),
		zap.Stringer("kind", e.Kind),
		zap.Int("status", e.Status),
		zap.String("message", e.Message))
	in.fire(d.OnFailure, Result{Err: e})
	if e.IsAuth() {
		in.dispatcher.Dispatch(store.Action{Type: store.ActionAuthError, Payload: e.Message, Err: e})
	}
	return e
}

func (in *Interpreter) settle(d Descriptor, reqID string, start time.Time, status int, outcome, msg string) {
	elapsed := in.now().Sub(start)
	in.metrics.observe(d.Method, outcome, elapsed)
	if in.observer == nil {
		return
	}
	in.observer(Record{
		RequestID: reqID,
		Method:    strings.ToUpper(d.Method),
		Path:      d.Path,
		Status:    status,
		Outcome:   outcome,
		Message:   msg,
		Duration:  elapsed,
		At:        start,
	})
}

func (in *Interpreter) fire(o Outcome, r Result) {
	switch v := o.(type) {
	case nil:
	case Marker:
		a := store.Action{Type: v.Type}
		if r.Err != nil {
			a.Payload = r.Err.Message
			a.Err = r.Err
		} else if r.Data != nil {
			a.Payload = r.Data
		}
		in.dispatcher.Dispatch(a)
	case Callback:
		if v != nil {
			v(r, in.dispatcher)
		}
	}
}

// parseBody keeps JSON as is and wraps anything else as a JSON string.
func parseBody(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}
	if json.Valid(trimmed) {
		return json.RawMessage(trimmed)
	}
	quoted, _ := json.Marshal(string(body))
	return quoted
}

// encodeQuery sorts by key, so the same filters always build the same URL.
func encodeQuery(q map[string]string) string {
	vals := url.Values{}
	for k, v := range q {
		vals.Set(k, v)
	}
	return vals.Encode()
}

func encodeBody(b Body) (io.Reader, string, error) {
	switch v := b.(type) {
	case nil:
		return nil, "", nil
	case JSONBody:
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(v.Value); err != nil {
			return nil, "", err
		}
		return &buf, "application/json", nil
	case MultipartBody:
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		keys := make([]string, 0, len(v.Fields))
		for k := range v.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := w.WriteField(k, v.Fields[k]); err != nil {
				return nil, "", err
			}
		}
		for _, f := range v.Files {
			part, err := w.CreateFormFile(f.Field, f.Filename)
			if err != nil {
				return nil, "", err
			}
			if f.Content != nil {
				if _, err := io.Copy(part, f.Content); err != nil {
					return nil, "", fmt.Errorf("copy %s: %w", f.Filename, err)
				}
			}
		}
		if err := w.Close(); err != nil {
			return nil, "", err
		}
		return &buf, w.FormDataContentType(), nil
	default:
		return nil, "", fmt.Errorf("unsupported body %T", b)
	}
}
