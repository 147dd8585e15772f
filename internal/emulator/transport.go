// Package emulator fakes the hosted backend's auth and REST surface on top of
// the local record store. It is an http.RoundTripper installed explicitly on
// the clients that should be served offline.
package emulator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"peritagem/internal/localstore"
)

const (
	MockUserID    = "mock-user-id"
	MockUserEmail = "simulacao@trust.com"
	MockToken     = "mock-token"
)

var interceptedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "emulator_intercepted_requests_total",
		Help: "Requests answered by the offline backend emulator",
	},
	[]string{"route", "method", "status"},
)

var (
	sessionBody = mustJSON(map[string]any{
		"access_token":  MockToken,
		"token_type":    "bearer",
		"expires_in":    3600,
		"refresh_token": "mock-refresh",
		"user":          map[string]any{"id": MockUserID, "email": MockUserEmail, "role": "authenticated"},
		"session":       map[string]any{"user": map[string]any{"id": MockUserID}},
	})
	profilesBody = mustJSON([]map[string]any{
		{"id": MockUserID, "full_name": "Simulador Offline", "role": "Gestor"},
	})
)

// Transport answers requests to Host from Store and forwards everything else to Base
type Transport struct {
	// Host is matched as a suffix of the request host, e.g. "supabase.co"
	Host   string
	Store  *localstore.RecordStore
	Base   http.RoundTripper
	Logger *zap.Logger
}

// New returns a Transport for host backed by store
func New(host string, store *localstore.RecordStore, log *zap.Logger) *Transport {
	if log == nil {
		log = zap.NewNop()
	}
	return &Transport{Host: host, Store: store, Logger: log}
}

// Install wraps client with t. A client that already carries an emulator
// transport is left unchanged and false is returned.
func Install(client *http.Client, t *Transport) bool {
	if _, ok := client.Transport.(*Transport); ok {
		return false
	}
	if t.Base == nil {
		t.Base = client.Transport
	}
	client.Transport = t
	return true
}

// Installed reports whether client is served by an emulator transport
func Installed(client *http.Client) bool {
	_, ok := client.Transport.(*Transport)
	return ok
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) log() *zap.Logger {
	if t.Logger == nil {
		return zap.NewNop()
	}
	return t.Logger
}

func (t *Transport) matchHost(host string) bool {
	return t.Host != "" && strings.HasSuffix(host, t.Host)
}

// RoundTrip implements http.RoundTripper
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.matchHost(req.URL.Hostname()) {
		return t.base().RoundTrip(req)
	}

	path := req.URL.Path
	var (
		resp  *http.Response
		route string
	)
	switch {
	case strings.Contains(path, "/auth/v1/session"), strings.Contains(path, "/auth/v1/token"):
		route = "auth"
		closeBody(req)
		resp = jsonResponse(req, http.StatusOK, sessionBody)
	case strings.Contains(path, "/rest/v1/profiles"):
		route = "profiles"
		closeBody(req)
		resp = jsonResponse(req, http.StatusOK, profilesBody)
	case strings.Contains(path, "/rest/v1/peritagens"):
		route = "peritagens"
		resp = t.peritagens(req)
	}

	if resp == nil {
		return t.base().RoundTrip(req)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	interceptedTotal.WithLabelValues(route, method, strconv.Itoa(resp.StatusCode)).Inc()
	t.log().Debug("emulator intercepted request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)
	return resp, nil
}

// peritagens serves the table routes. A nil response means the request is
// not handled here and must be forwarded.
func (t *Transport) peritagens(req *http.Request) *http.Response {
	ctx := req.Context()

	switch req.Method {
	case "", http.MethodGet:
		closeBody(req)
		return t.query(ctx, req)

	case http.MethodPost:
		records, err := readRecords(req)
		if err != nil {
			return errorResponse(req, http.StatusBadRequest, err.Error())
		}
		added, err := t.Store.Insert(ctx, records)
		if err != nil {
			t.log().Error("emulator insert failed", zap.Error(err))
			return errorResponse(req, http.StatusInternalServerError, err.Error())
		}
		return jsonResponse(req, http.StatusCreated, mustJSON(added))

	case http.MethodPatch:
		id, ok := idEq(req.URL.Query())
		if !ok {
			return nil
		}
		updates, err := readRecord(req)
		if err != nil {
			return errorResponse(req, http.StatusBadRequest, err.Error())
		}
		rec, found, err := t.Store.Patch(ctx, id, updates)
		if err != nil {
			t.log().Error("emulator patch failed", zap.String("id", id), zap.Error(err))
			return errorResponse(req, http.StatusInternalServerError, err.Error())
		}
		out := []localstore.Record{}
		if found {
			out = append(out, rec)
		}
		return jsonResponse(req, http.StatusOK, mustJSON(out))

	case http.MethodDelete:
		id, ok := idEq(req.URL.Query())
		if !ok {
			return nil
		}
		closeBody(req)
		if _, err := t.Store.Delete(ctx, id); err != nil {
			t.log().Error("emulator delete failed", zap.String("id", id), zap.Error(err))
			return errorResponse(req, http.StatusInternalServerError, err.Error())
		}
		return emptyResponse(req, http.StatusNoContent)
	}
	return nil
}

func (t *Transport) query(ctx context.Context, req *http.Request) *http.Response {
	q, err := parseQuery(req.URL.RawQuery)
	switch {
	case errors.Is(err, errUnsupportedFilter):
		t.log().Warn("emulator dropped a filter it does not support",
			zap.String("query", req.URL.RawQuery), zap.Error(err))
	case err != nil:
		t.log().Warn("emulator could not parse query, returning unfiltered rows",
			zap.String("query", req.URL.RawQuery), zap.Error(err))
		q = localstore.Query{}
	}
	rows := t.Store.Query(ctx, q)

	resp := jsonResponse(req, http.StatusOK, mustJSON(rows))
	resp.Header.Set("Content-Range", contentRange(len(rows)))
	return resp
}

// contentRange follows PostgREST: first-last/total, or */0 for no rows
func contentRange(n int) string {
	if n == 0 {
		return "*/0"
	}
	return fmt.Sprintf("0-%d/%d", n-1, n)
}

func readBody(req *http.Request) ([]byte, error) {
	if req.Body == nil {
		return nil, fmt.Errorf("request body is required")
	}
	defer req.Body.Close()
	return io.ReadAll(req.Body)
}

// readRecords accepts a single object or an array of objects
func readRecords(req *http.Request) ([]localstore.Record, error) {
	body, err := readBody(req)
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		var records []localstore.Record
		if err := decode(body, &records); err != nil {
			return nil, err
		}
		return records, nil
	}
	var rec localstore.Record
	if err := decode(body, &rec); err != nil {
		return nil, err
	}
	return []localstore.Record{rec}, nil
}

func readRecord(req *http.Request) (localstore.Record, error) {
	body, err := readBody(req)
	if err != nil {
		return nil, err
	}
	var rec localstore.Record
	if err := decode(body, &rec); err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("request body must be a JSON object")
	}
	return rec, nil
}

func decode(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func closeBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}

func jsonResponse(req *http.Request, status int, body []byte) *http.Response {
	resp := emptyResponse(req, status)
	resp.Header.Set("Content-Type", "application/json")
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	return resp
}

func errorResponse(req *http.Request, status int, msg string) *http.Response {
	return jsonResponse(req, status, mustJSON(map[string]string{"message": msg}))
}

func emptyResponse(req *http.Request, status int) *http.Response {
	return &http.Response{
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode: status,
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     make(http.Header),
		Body:       http.NoBody,
		Request:    req,
	}
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
