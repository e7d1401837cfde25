// Package server exposes projections over HTTP: GET /{key} projects an
// entity loaded from a source, POST / projects an entity sent inline.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/hanpama/restql/internal/eventbus"
	"github.com/hanpama/restql/internal/events"
	"github.com/hanpama/restql/internal/language"
	"github.com/hanpama/restql/internal/reqid"
	"github.com/hanpama/restql/internal/selector"
	"github.com/hanpama/restql/internal/source"
)

// FieldsParam is the query parameter carrying comma separated field paths.
// It may be repeated.
const FieldsParam = "fields"

// SelectionParam is the query parameter carrying a selection set such as
// {id author{id}}.
const SelectionParam = "selection"

// Handler is an http.Handler serving projections.
type Handler struct {
	src source.Source
	opt Options
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses (useful for dev).
	Pretty bool

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64

	// CORS configuration. If AllowedOrigins is empty, CORS is disabled.
	CORS CORSOptions

	// MetadataHeaders lists HTTP headers to forward into gRPC metadata
	// for sources backed by gRPC. Header names are case-insensitive.
	MetadataHeaders []string

	// Selector projects entities. Defaults to selector.New().
	Selector *selector.Selector

	// SourceName labels selection events for GET requests.
	SourceName string
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}
func WithMetadataHeaders(headers ...string) Option {
	return func(o *Options) { o.MetadataHeaders = headers }
}
func WithSelector(s *selector.Selector) Option { return func(o *Options) { o.Selector = s } }
func WithSourceName(name string) Option        { return func(o *Options) { o.SourceName = name } }

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

// New creates a handler. src serves GET requests; with a nil src only
// inline POST requests are served.
func New(src source.Source, opts ...Option) *Handler {
	op := Options{Timeout: 10 * time.Second, SourceName: "source"}
	for _, f := range opts {
		f(&op)
	}
	if op.Selector == nil {
		op.Selector = selector.New()
	}
	return &Handler{src: src, opt: op}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, rid := reqid.FromRequest(r)
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}
	w.Header().Set(reqid.Header, reqid.Format(rid))

	var (
		status = http.StatusOK
		result map[string]any
		err    error
	)
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	defer func() {
		eventbus.Publish(ctx, events.HTTPFinish{Request: r, Status: status, Err: err, Duration: time.Since(start)})
	}()

	if len(h.opt.CORS.AllowedOrigins) > 0 {
		setCORSHeaders(w, r, h.opt.CORS)
	}
	if r.Method == http.MethodOptions {
		status = http.StatusNoContent
		w.WriteHeader(status)
		return
	}

	if md := h.forwardedMetadata(r); len(md) > 0 {
		ctx = metadata.NewOutgoingContext(ctx, md)
	}

	switch r.Method {
	case http.MethodGet:
		result, err = h.serveGet(ctx, r)
	case http.MethodPost:
		result, err = h.servePost(ctx, r)
	default:
		err = errMethodNotAllowed
	}
	if err != nil {
		status = statusOf(err)
		writeJSON(w, status, errorResponse{Error: err.Error()}, h.opt.Pretty)
		return
	}
	writeJSON(w, status, jsonValue(result), h.opt.Pretty)
}

func (h *Handler) serveGet(ctx context.Context, r *http.Request) (map[string]any, error) {
	if h.src == nil {
		return nil, errNoSource
	}
	key := strings.TrimPrefix(r.URL.Path, "/")
	if key == "" {
		return nil, selector.ErrEntityNotInformed
	}
	q := r.URL.Query()
	paths, err := language.Paths(q[FieldsParam], q.Get(SelectionParam))
	if err != nil {
		return nil, err
	}
	entity, err := h.src.Fetch(ctx, key)
	if err != nil {
		return nil, err
	}
	return h.project(ctx, h.opt.SourceName, key, entity, paths)
}

// SelectRequest is the body of POST /. Fields is either an array of paths
// or one comma separated string.
type SelectRequest struct {
	Entity    any             `json:"entity"`
	Fields    json.RawMessage `json:"fields,omitempty"`
	Selection string          `json:"selection,omitempty"`
}

func (h *Handler) servePost(ctx context.Context, r *http.Request) (map[string]any, error) {
	req, err := parseRequest(r, h.opt.MaxBodyBytes)
	if err != nil {
		return nil, err
	}
	fields, err := decodeFields(req.Fields)
	if err != nil {
		return nil, err
	}
	if req.Entity == nil {
		return nil, selector.ErrEntityNotInformed
	}
	paths, err := language.Paths(fields, req.Selection)
	if err != nil {
		return nil, err
	}
	return h.project(ctx, "inline", "", req.Entity, paths)
}

func (h *Handler) project(ctx context.Context, src, key string, entity any, paths []selector.Path) (map[string]any, error) {
	fields := make([]string, len(paths))
	for i, p := range paths {
		fields[i] = p.String()
	}
	start := time.Now()
	eventbus.Publish(ctx, events.SelectionStart{Source: src, Key: key, Fields: fields})
	result, err := h.opt.Selector.SelectPaths(entity, paths)
	eventbus.Publish(ctx, events.SelectionFinish{Source: src, Key: key, Fields: fields, Err: err, Duration: time.Since(start)})
	return result, err
}

func (h *Handler) forwardedMetadata(r *http.Request) metadata.MD {
	if len(h.opt.MetadataHeaders) == 0 {
		return nil
	}
	md := metadata.MD{}
	for _, hdr := range h.opt.MetadataHeaders {
		if v := r.Header.Values(hdr); len(v) > 0 {
			md[strings.ToLower(hdr)] = v
		}
	}
	return md
}

// ------------------ Request parsing ------------------

func decodeFields(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return []string{one}, nil
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, &requestError{msg: "'fields' must be a string or an array of strings"}
	}
	return many, nil
}

func parseRequest(r *http.Request, maxBody int64) (SelectRequest, error) {
	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" && !strings.HasPrefix(ct, "application/json;") {
		return SelectRequest{}, &requestError{msg: "unsupported Content-Type", status: http.StatusUnsupportedMediaType}
	}
	reader := io.Reader(r.Body)
	if maxBody > 0 {
		reader = io.LimitReader(r.Body, maxBody+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return SelectRequest{}, &requestError{msg: "failed to read body"}
	}
	defer r.Body.Close()
	if maxBody > 0 && int64(len(body)) > maxBody {
		return SelectRequest{}, &requestError{msg: "body too large", status: http.StatusRequestEntityTooLarge}
	}

	var req SelectRequest
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		return SelectRequest{}, &requestError{msg: "invalid JSON"}
	}
	return req, nil
}

// ------------------ Errors ------------------

type requestError struct {
	msg    string
	status int
}

func (e *requestError) Error() string { return e.msg }

var (
	errMethodNotAllowed = &requestError{msg: "method not allowed", status: http.StatusMethodNotAllowed}
	errNoSource         = &requestError{msg: "no entity source configured", status: http.StatusNotFound}
)

// statusOf maps projection and source errors to HTTP statuses.
func statusOf(err error) int {
	var re *requestError
	var se *language.SyntaxError
	var ipe *selector.InvalidPathError
	switch {
	case errors.As(err, &re):
		if re.status != 0 {
			return re.status
		}
		return http.StatusBadRequest
	case errors.Is(err, source.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, selector.ErrFieldNotFound),
		errors.Is(err, selector.ErrNoFieldsInformed),
		errors.Is(err, selector.ErrEntityNotInformed),
		errors.Is(err, selector.ErrEntityNotObject),
		errors.As(err, &ipe),
		errors.As(err, &se):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// ------------------ Response formatting ------------------

type errorResponse struct {
	Error string `json:"error"`
}

// jsonValue prepares a projection for encoding/json: protobuf messages
// are rendered with protojson, maps and lists are walked.
func jsonValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = jsonValue(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = jsonValue(e)
		}
		return out
	case proto.Message:
		if !x.ProtoReflect().IsValid() {
			return nil
		}
		b, err := protojson.Marshal(x)
		if err != nil {
			return fmt.Sprintf("<%s: %v>", x.ProtoReflect().Descriptor().FullName(), err)
		}
		return json.RawMessage(b)
	default:
		return v
	}
}

// JSONValue exposes the HTTP encoding of projections to other front ends.
func JSONValue(v any) any { return jsonValue(v) }

func writeJSON(w http.ResponseWriter, status int, v any, pretty bool) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}

func setCORSHeaders(w http.ResponseWriter, r *http.Request, opts CORSOptions) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	allowed := false
	for _, o := range opts.AllowedOrigins {
		if o == "*" || o == origin {
			allowed = true
			break
		}
	}
	if !allowed {
		return
	}
	if contains(opts.AllowedOrigins, "*") {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	w.Header().Set("Access-Control-Expose-Headers", reqid.Header)
	if r.Method == http.MethodOptions {
		if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
			w.Header().Set("Access-Control-Allow-Headers", hdr)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
