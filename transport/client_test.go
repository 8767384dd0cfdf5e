package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-resource-query/apierr"
)

type seen struct {
	method string
	path   string
	query  url.Values
	header http.Header
	body   []byte
}

func newServer(t *testing.T, status int, response string) (*httptest.Server, *[]seen) {
	t.Helper()
	var requests []seen
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests = append(requests, seen{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.Query(),
			header: r.Header.Clone(),
			body:   body,
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func TestNew_RejectsRelativeBaseURL(t *testing.T) {
	_, err := New("api/v1")
	assert.Error(t, err)

	c, err := New("https://inspect.example.com/api/v1/")
	require.NoError(t, err)
	assert.Equal(t, "https://inspect.example.com/api/v1", c.BaseURL())
}

func TestGet_SendsHeadersAndQuery(t *testing.T) {
	srv, requests := newServer(t, http.StatusOK, `{"success":true,"data":{}}`)
	c, err := New(srv.URL+"/api", WithTokenSource(StaticToken("secret")), WithUserAgent("inspect-admin/1"))
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "/drivers", url.Values{"page": {"2"}, "search": {"ana"}})
	require.NoError(t, err)

	require.Len(t, *requests, 1)
	r := (*requests)[0]
	assert.Equal(t, http.MethodGet, r.method)
	assert.Equal(t, "/api/drivers", r.path)
	assert.Equal(t, "2", r.query.Get("page"))
	assert.Equal(t, "ana", r.query.Get("search"))
	assert.Equal(t, "Bearer secret", r.header.Get("Authorization"))
	assert.Equal(t, "inspect-admin/1", r.header.Get("User-Agent"))
	_, err = uuid.Parse(r.header.Get(HeaderRequestID))
	assert.NoError(t, err)
}

func TestDo_EmptyTokenOmitsAuthorization(t *testing.T) {
	srv, requests := newServer(t, http.StatusOK, `{}`)
	c, err := New(srv.URL, WithTokenSource(StaticToken("")))
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "owners", nil)
	require.NoError(t, err)
	assert.Empty(t, (*requests)[0].header.Get("Authorization"))
}

func TestPost_SendsJSON(t *testing.T) {
	srv, requests := newServer(t, http.StatusCreated, `{"success":true,"data":{"id":"1"}}`)
	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.Post(context.Background(), "vehicles", map[string]string{"plate": "KDA 123A"})
	require.NoError(t, err)

	r := (*requests)[0]
	assert.Equal(t, http.MethodPost, r.method)
	assert.Equal(t, "application/json", r.header.Get("Content-Type"))
	var got map[string]string
	require.NoError(t, json.Unmarshal(r.body, &got))
	assert.Equal(t, "KDA 123A", got["plate"])
}

func TestDo_ValidationErrorBody(t *testing.T) {
	srv, _ := newServer(t, http.StatusBadRequest, `{
		"success": false,
		"message": "Validation failed",
		"errors": [
			{"field": "email", "message": "Email is invalid", "value": "nope"},
			{"path": "phone", "message": "Phone is required"}
		]
	}`)
	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.Put(context.Background(), "users/4", map[string]string{"email": "nope"})

	require.Error(t, err)
	assert.Equal(t, apierr.KindValidation, apierr.KindOf(err))
	assert.Equal(t, http.StatusBadRequest, apierr.Status(err))
	assert.Equal(t, "Validation failed", apierr.Message(err))
	assert.Equal(t, map[string]string{
		"email": "Email is invalid",
		"phone": "Phone is required",
	}, apierr.FieldMessages(err))
}

func TestDo_GeneralErrorBody(t *testing.T) {
	srv, _ := newServer(t, http.StatusNotFound, `{"success":false,"message":"Driver not found"}`)
	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "drivers/99", nil)

	require.Error(t, err)
	assert.Equal(t, apierr.KindGeneral, apierr.KindOf(err))
	assert.Equal(t, "Driver not found", apierr.Message(err))
	assert.Equal(t, http.StatusNotFound, apierr.Status(err))
}

func TestDo_UnparseableErrorBody(t *testing.T) {
	srv, _ := newServer(t, http.StatusBadGateway, `<html>bad gateway</html>`)
	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.Delete(context.Background(), "inspectors/3")

	require.Error(t, err)
	assert.Equal(t, apierr.KindGeneral, apierr.KindOf(err))
	assert.Equal(t, http.StatusText(http.StatusBadGateway), apierr.Message(err))
}

func TestDo_SuccessFalseIsAnError(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, `{"success":false,"message":"Inspection is locked"}`)
	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.Post(context.Background(), "inspection-records", map[string]string{})
	require.Error(t, err)
	assert.Equal(t, "Inspection is locked", apierr.Message(err))
}

func TestDo_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(base, WithTimeout(time.Second))
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "drivers", nil)
	require.Error(t, err)
	assert.True(t, apierr.IsNetwork(err))
}

func TestDo_TokenSourceError(t *testing.T) {
	srv, requests := newServer(t, http.StatusOK, `{}`)
	c, err := New(srv.URL, WithTokenSource(TokenFunc(func(ctx context.Context) (string, error) {
		return "", apierr.General(http.StatusUnauthorized, "session expired")
	})))
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "drivers", nil)
	require.Error(t, err)
	assert.Equal(t, "session expired", apierr.Message(err))
	assert.Empty(t, *requests)
}

func TestFileToken(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token")

	tok, err := FileToken{Path: path}.Token(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, os.WriteFile(path, []byte("abc.def\n"), 0o600))
	tok, err = FileToken{Path: path}.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc.def", tok)

	tok, err = FileToken{}.Token(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tok)
}
