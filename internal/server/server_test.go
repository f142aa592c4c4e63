package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/pagestrip/pkg/controller"
	"github.com/matzehuels/pagestrip/pkg/errors"
	"github.com/matzehuels/pagestrip/pkg/observability"
	"github.com/matzehuels/pagestrip/pkg/session"
	"github.com/matzehuels/pagestrip/pkg/sink"
	"github.com/matzehuels/pagestrip/pkg/strip"
)

func newTestServer(t *testing.T) (*Server, *session.MemoryStore) {
	t.Helper()
	store := session.NewMemoryStore()
	return New(WithStore(store)), store
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, r)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return v
}

func itemXs(out sink.Output) []float64 {
	xs := make([]float64, len(out.Items))
	for i, it := range out.Items {
		xs[i] = it.X
	}
	return xs
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	w := do(t, s, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	got := decodeBody[healthResponse](t, w)
	if got.Status != "ok" {
		t.Errorf("status field = %q, want ok", got.Status)
	}
	if got.Build.Version == "" {
		t.Error("health response lacks a build version")
	}
}

func TestLayout(t *testing.T) {
	s, _ := newTestServer(t)
	w := do(t, s, http.MethodPost, "/v1/layout", `{
		"item_count": 5,
		"style": {"kind": "expanded", "focus": 2},
		"viewport": {"width": 390, "height": 30},
		"aspect_ratios": [0, 0, 2]
	}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	out := decodeBody[sink.Output](t, w)

	want := []float64{0, 22, 55, 127, 149}
	got := itemXs(out)
	if len(got) != len(want) {
		t.Fatalf("items = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("item %d x = %v, want %v", i, got[i], want[i])
		}
	}
	if out.ContentWidth != 170 {
		t.Errorf("content_width = %v, want 170", out.ContentWidth)
	}
	if out.ExpandedWidth == nil || *out.ExpandedWidth != 60 {
		t.Errorf("expanded_width = %v, want 60", out.ExpandedWidth)
	}
	if !out.Items[2].Focus {
		t.Error("item 2 should be flagged as focus")
	}
}

func TestLayoutErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode errors.Code
	}{
		{
			"focus out of range",
			`{"item_count": 2, "style": {"kind": "expanded", "focus": 2}, "viewport": {"width": 100, "height": 30}}`,
			errors.ErrCodeInvalidFocusIndex,
		},
		{
			"unknown style kind",
			`{"item_count": 2, "style": {"kind": "sideways"}, "viewport": {"width": 100, "height": 30}}`,
			errors.ErrCodeInvalidStyle,
		},
		{
			"negative viewport",
			`{"item_count": 2, "viewport": {"width": -1, "height": 30}}`,
			errors.ErrCodeInvalidViewport,
		},
		{
			"negative count",
			`{"item_count": -1, "viewport": {"width": 100, "height": 30}}`,
			errors.ErrCodeInvalidInput,
		},
		{
			"negative cached width",
			`{"item_count": 4, "style": {"kind": "expanded", "focus": 1}, "viewport": {"width": 200, "height": 30}, "cached_expanded_width": -100}`,
			errors.ErrCodeInvalidInput,
		},
		{
			"cached width above max",
			`{"item_count": 4, "style": {"kind": "expanded", "focus": 1}, "viewport": {"width": 200, "height": 30}, "cached_expanded_width": 500}`,
			errors.ErrCodeInvalidInput,
		},
		{
			"unknown field",
			`{"item_count": 2, "colour": "red"}`,
			errors.ErrCodeInvalidInput,
		},
		{
			"malformed json",
			`{"item_count": `,
			errors.ErrCodeInvalidInput,
		},
	}

	s, _ := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, "/v1/layout", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body %s)", w.Code, w.Body)
			}
			if got := decodeBody[errorResponse](t, w).Code; got != tt.wantCode {
				t.Errorf("code = %v, want %v", got, tt.wantCode)
			}
		})
	}
}

func TestCenter(t *testing.T) {
	s, _ := newTestServer(t)
	w := do(t, s, http.MethodPost, "/v1/center", `{
		"item_count": 5,
		"viewport": {"width": 100, "height": 30},
		"proposed_offset": {"x": 40, "y": 3}
	}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	if got, want := decodeBody[strip.Point](t, w), (strip.Point{X: 48.5, Y: 3}); got != want {
		t.Errorf("offset = %v, want %v", got, want)
	}
}

func createSession(t *testing.T, s *Server) sessionResponse {
	t.Helper()
	w := do(t, s, http.MethodPost, "/v1/sessions", `{
		"item_count": 5,
		"viewport": {"width": 100, "height": 30},
		"aspect_ratios": [0, 0, 2]
	}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body)
	}
	return decodeBody[sessionResponse](t, w)
}

func TestSessionLifecycle(t *testing.T) {
	s, store := newTestServer(t)
	created := createSession(t, s)
	if created.ID == "" {
		t.Fatal("created session has no id")
	}
	if created.Layout.ContentWidth != 109 {
		t.Errorf("collapsed content_width = %v, want 109", created.Layout.ContentWidth)
	}
	base := "/v1/sessions/" + created.ID

	w := do(t, s, http.MethodPut, base+"/style", `{"kind": "expanded", "focus": 2}`)
	if w.Code != http.StatusOK {
		t.Fatalf("style status = %d, body %s", w.Code, w.Body)
	}
	got := decodeBody[sessionResponse](t, w)
	if got.Layout.ContentWidth != 170 {
		t.Errorf("expanded content_width = %v, want 170", got.Layout.ContentWidth)
	}
	if cw := got.State.CachedExpandedWidth; cw == nil || *cw != 60 {
		t.Errorf("cached_expanded_width = %v, want 60", cw)
	}

	// A new ratio for the focus item discards the cache.
	w = do(t, s, http.MethodPut, base+"/ratios/2", `{"ratio": 1}`)
	if w.Code != http.StatusOK {
		t.Fatalf("ratio status = %d, body %s", w.Code, w.Body)
	}
	got = decodeBody[sessionResponse](t, w)
	if got.Layout.ContentWidth != 140 {
		t.Errorf("content_width after ratio change = %v, want 140", got.Layout.ContentWidth)
	}

	// Settling centers the focus item, which spans [55, 85].
	w = do(t, s, http.MethodPost, base+"/settle", `{"proposed_offset": {"x": 0, "y": 0}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("settle status = %d, body %s", w.Code, w.Body)
	}
	if p := decodeBody[strip.Point](t, w); p != (strip.Point{X: 20, Y: 0}) {
		t.Errorf("settle = %v, want {20 0}", p)
	}

	w = do(t, s, http.MethodGet, base, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	if st := decodeBody[sessionResponse](t, w).State.Style; st != strip.Expanded(2) {
		t.Errorf("stored style = %v, want %v", st, strip.Expanded(2))
	}

	w = do(t, s, http.MethodDelete, base, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	if store.Len() != 0 {
		t.Errorf("store.Len() = %d after delete, want 0", store.Len())
	}
	w = do(t, s, http.MethodGet, base, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", w.Code)
	}
	if code := decodeBody[errorResponse](t, w).Code; code != errors.ErrCodeSessionNotFound {
		t.Errorf("code = %v, want %v", code, errors.ErrCodeSessionNotFound)
	}
}

func TestSessionItemsAndViewport(t *testing.T) {
	s, _ := newTestServer(t)
	created := createSession(t, s)
	base := "/v1/sessions/" + created.ID

	w := do(t, s, http.MethodPut, base+"/items", `{"item_count": 2}`)
	if w.Code != http.StatusOK {
		t.Fatalf("items status = %d, body %s", w.Code, w.Body)
	}
	got := decodeBody[sessionResponse](t, w)
	if len(got.Layout.Items) != 2 {
		t.Errorf("items = %d, want 2", len(got.Layout.Items))
	}
	if len(got.AspectRatios) != 2 {
		t.Errorf("aspect_ratios = %v, want truncated to 2", got.AspectRatios)
	}

	w = do(t, s, http.MethodPut, base+"/viewport", `{"width": 200, "height": 40}`)
	if w.Code != http.StatusOK {
		t.Fatalf("viewport status = %d, body %s", w.Code, w.Body)
	}
	if h := decodeBody[sessionResponse](t, w).Layout.ContentHeight; h != 40 {
		t.Errorf("content_height = %v, want 40", h)
	}

	// Focus 1 is in range; shrinking below it is rejected.
	do(t, s, http.MethodPut, base+"/style", `{"kind": "expanded", "focus": 1}`)
	w = do(t, s, http.MethodPut, base+"/items", `{"item_count": 1}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("shrink below focus status = %d, want 400", w.Code)
	}
}

func TestSessionErrors(t *testing.T) {
	s, _ := newTestServer(t)
	created := createSession(t, s)
	base := "/v1/sessions/" + created.ID

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"malformed id", http.MethodGet, "/v1/sessions/not-a-uuid", "", http.StatusBadRequest},
		{"unknown id", http.MethodGet, "/v1/sessions/9b2f6c1e-3a4d-4e5f-8a9b-0c1d2e3f4a5b", "", http.StatusNotFound},
		{"focus out of range", http.MethodPut, base + "/style", `{"kind": "expanded", "focus": 9}`, http.StatusBadRequest},
		{"ratio index not a number", http.MethodPut, base + "/ratios/x", `{"ratio": 1}`, http.StatusBadRequest},
		{"ratio index out of range", http.MethodPut, base + "/ratios/7", `{"ratio": 1}`, http.StatusBadRequest},
		{"negative ratio", http.MethodPut, base + "/ratios/1", `{"ratio": -1}`, http.StatusBadRequest},
		{"bad render offset", http.MethodGet, base + "/render.svg?offset=left", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, tt.method, tt.path, tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body)
			}
		})
	}
}

func TestRenderSVG(t *testing.T) {
	s, _ := newTestServer(t)
	created := createSession(t, s)

	w := do(t, s, http.MethodGet, "/v1/sessions/"+created.ID+"/render.svg?offset=10", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Content-Type = %q, want image/svg+xml", ct)
	}
	body := w.Body.String()
	if !strings.HasPrefix(body, "<svg") && !strings.HasPrefix(body, "<?xml") {
		t.Errorf("body does not look like SVG: %.40q", body)
	}
	if !strings.Contains(body, `id="item-4"`) {
		t.Error("SVG is missing the last item")
	}
}

func TestExpiredSessionIsNotFound(t *testing.T) {
	store := session.NewMemoryStore()
	s := New(WithStore(store))
	state := controller.State{ItemCount: 3, Viewport: strip.Size{Width: 100, Height: 30}}
	sess := session.New(state, nil, -time.Second)
	if err := store.Set(context.Background(), sess); err != nil {
		t.Fatalf("Set: %v", err)
	}
	w := do(t, s, http.MethodGet, "/v1/sessions/"+sess.ID, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

type recordingHTTPHooks struct {
	observability.NoopHTTPHooks
	mu    sync.Mutex
	paths []string
	codes []int
}

func (h *recordingHTTPHooks) OnResponse(_ context.Context, _, path string, status int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paths = append(h.paths, path)
	h.codes = append(h.codes, status)
}

func TestRequestHooksUseRoutePattern(t *testing.T) {
	hooks := &recordingHTTPHooks{}
	observability.SetHTTPHooks(hooks)
	t.Cleanup(observability.Reset)

	s, _ := newTestServer(t)
	created := createSession(t, s)
	do(t, s, http.MethodGet, "/v1/sessions/"+created.ID+"/render.svg", "")

	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	if len(hooks.paths) != 2 {
		t.Fatalf("OnResponse calls = %d, want 2", len(hooks.paths))
	}
	if got := hooks.paths[1]; got != "/v1/sessions/{id}/render.svg" {
		t.Errorf("path = %q, want route pattern", got)
	}
	if hooks.codes[0] != http.StatusCreated {
		t.Errorf("status = %d, want 201", hooks.codes[0])
	}
}

func TestRequestBodyLimit(t *testing.T) {
	s, _ := newTestServer(t)
	big := `{"item_count": 1, "aspect_ratios": [` + strings.Repeat("1,", maxBodyBytes/2) + `1]}`
	r := httptest.NewRequest(http.MethodPost, "/v1/layout", bytes.NewBufferString(big))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestConcurrentSessionUpdates(t *testing.T) {
	s, _ := newTestServer(t)
	created := createSession(t, s)
	base := "/v1/sessions/" + created.ID

	var wg sync.WaitGroup
	for i := range created.State.ItemCount {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body := `{"ratio": ` + strconv.Itoa(i+1) + `}`
			if w := do(t, s, http.MethodPut, base+"/ratios/"+strconv.Itoa(i), body); w.Code != http.StatusOK {
				t.Errorf("PUT ratio %d status = %d: %s", i, w.Code, w.Body)
			}
		}()
	}
	wg.Wait()

	got := decodeBody[sessionResponse](t, do(t, s, http.MethodGet, base, ""))
	want := []float64{1, 2, 3, 4, 5}
	if len(got.AspectRatios) != len(want) {
		t.Fatalf("aspect_ratios = %v, want %v", got.AspectRatios, want)
	}
	for i, r := range want {
		if got.AspectRatios[i] != r {
			t.Errorf("aspect_ratios[%d] = %v, want %v (lost update)", i, got.AspectRatios[i], r)
		}
	}
	if n := s.sessionLocks.len(); n != 0 {
		t.Errorf("session locks left behind = %d, want 0", n)
	}
}
