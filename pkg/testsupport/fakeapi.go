package testsupport

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Response is what a FakeAPI route answers with.
type Response struct {
	Status int
	Body   []byte
	// Wait blocks the handler until it is closed.
	Wait <-chan struct{}
}

// JSON answers 200 with body.
func JSON(body []byte) Response {
	return Response{Status: http.StatusOK, Body: body}
}

// Recorded is a request the FakeAPI received.
type Recorded struct {
	Method string
	Path   string
	Query  map[string][]string
	Header http.Header
	Body   []byte
}

type route struct {
	fn func(r *http.Request) Response
}

// FakeAPI is an httptest server with per-route canned responses and hit counts.
// Unknown routes answer 404 with the backend's error shape.
type FakeAPI struct {
	*httptest.Server

	mu       sync.Mutex
	routes   map[string]route
	hits     map[string]int
	requests []Recorded
}

// NewFakeAPI starts a FakeAPI that is closed when the test ends.
func NewFakeAPI(t testing.TB) *FakeAPI {
	t.Helper()

	f := &FakeAPI{
		routes: make(map[string]route),
		hits:   make(map[string]int),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

// Handle installs a fixed response for method and path.
func (f *FakeAPI) Handle(method, path string, resp Response) {
	f.HandleFunc(method, path, func(*http.Request) Response { return resp })
}

// HandleFunc installs a dynamic response for method and path.
func (f *FakeAPI) HandleFunc(method, path string, fn func(r *http.Request) Response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[method+" "+path] = route{fn: fn}
}

// Hits returns how many requests method and path received.
func (f *FakeAPI) Hits(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[method+" "+path]
}

// Requests returns every request received so far, oldest first.
func (f *FakeAPI) Requests() []Recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Recorded(nil), f.requests...)
}

// Last returns the most recent request, or the zero Recorded.
func (f *FakeAPI) Last() Recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return Recorded{}
	}
	return f.requests[len(f.requests)-1]
}

// ResetHits clears hit counts and recorded requests, keeping routes.
func (f *FakeAPI) ResetHits() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits = make(map[string]int)
	f.requests = nil
}

func (f *FakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	key := r.Method + " " + r.URL.Path

	f.mu.Lock()
	f.hits[key]++
	f.requests = append(f.requests, Recorded{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   body,
	})
	rt, ok := f.routes[key]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"success":false,"message":"route not found"}`)
		return
	}

	resp := rt.fn(r)
	if resp.Wait != nil {
		select {
		case <-resp.Wait:
		case <-r.Context().Done():
			return
		}
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write(resp.Body)
}

// WrappedPage builds a {success, data: {data, pagination}} list body.
func WrappedPage(t testing.TB, items any, page, perPage, total int) []byte {
	t.Helper()
	return mustJSON(t, map[string]any{
		"success": true,
		"data": map[string]any{
			"data":       items,
			"pagination": pagination(page, perPage, total),
		},
	})
}

// RecordsPage builds a {records, pagination, summary} list body.
func RecordsPage(t testing.TB, items any, page, perPage, total int, summary map[string]int64) []byte {
	t.Helper()
	body := map[string]any{
		"records":    items,
		"pagination": pagination(page, perPage, total),
	}
	if summary != nil {
		body["summary"] = summary
	}
	return mustJSON(t, body)
}

// Item builds a {success, data} detail body.
func Item(t testing.TB, entity any) []byte {
	t.Helper()
	return mustJSON(t, map[string]any{"success": true, "data": entity})
}

// ErrorBody builds the backend error shape. fields alternates field names and messages.
func ErrorBody(t testing.TB, message string, fields ...string) []byte {
	t.Helper()
	body := map[string]any{"success": false, "message": message}
	if len(fields) > 0 {
		errs := make([]map[string]string, 0, len(fields)/2)
		for i := 0; i+1 < len(fields); i += 2 {
			errs = append(errs, map[string]string{"field": fields[i], "message": fields[i+1]})
		}
		body["errors"] = errs
	}
	return mustJSON(t, body)
}

// RenameField moves the value at path from to path to, for spelling variants
// such as hasPrevPage and hasPreviousPage.
func RenameField(t testing.TB, body []byte, from, to string) []byte {
	t.Helper()

	v := gjson.GetBytes(body, from)
	if !v.Exists() {
		t.Fatalf("field %s not found", from)
	}
	out, err := sjson.SetRawBytes(body, to, []byte(v.Raw))
	if err != nil {
		t.Fatalf("set %s: %v", to, err)
	}
	out, err = sjson.DeleteBytes(out, from)
	if err != nil {
		t.Fatalf("delete %s: %v", from, err)
	}
	return out
}

// SetField overwrites the value at path.
func SetField(t testing.TB, body []byte, path string, value any) []byte {
	t.Helper()

	out, err := sjson.SetBytes(body, path, value)
	if err != nil {
		t.Fatalf("set %s: %v", path, err)
	}
	return out
}

func pagination(page, perPage, total int) map[string]any {
	pages := 0
	if perPage > 0 {
		pages = (total + perPage - 1) / perPage
	}
	return map[string]any{
		"currentPage":  page,
		"totalPages":   pages,
		"totalItems":   total,
		"itemsPerPage": perPage,
		"hasNextPage":  page < pages,
		"hasPrevPage":  page > 1,
	}
}

func mustJSON(t testing.TB, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}
