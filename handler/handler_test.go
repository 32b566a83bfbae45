package handler_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevemurr/sneakers-server/collection"
	"github.com/stevemurr/sneakers-server/handler"
	"github.com/stevemurr/sneakers-server/store"
)

const seed = `{"items":[{"id":1,"title":"Nike Blazer"},{"id":2,"title":"Puma X"}],` +
	`"favorites":[{"id":2,"title":"Puma X"}],"orders":[],"cart":[{"id":1,"name":"A"}]}`

func quietLogger() *log.Entry {
	l := log.New()
	l.SetOutput(io.Discard)
	return log.NewEntry(l)
}

func setupWith(t *testing.T, st store.Store, opts ...handler.Option) *httptest.Server {
	t.Helper()
	svc := collection.NewService(st, collection.WithLogger(quietLogger()))
	opts = append([]handler.Option{handler.WithLogger(quietLogger())}, opts...)
	ts := httptest.NewServer(handler.New(svc, opts...))
	t.Cleanup(ts.Close)
	return ts
}

func setup(t *testing.T, raw string) (*httptest.Server, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStoreFromJSON(raw)
	return setupWith(t, st), st
}

func do(t *testing.T, method, url, body string) (*http.Response, string) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

func assertCORS(t *testing.T, resp *http.Response) {
	t.Helper()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, DELETE, OPTIONS", resp.Header.Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", resp.Header.Get("Access-Control-Allow-Headers"))
}

func TestGetWithoutPostsIsIdempotent(t *testing.T) {
	ts, st := setup(t, seed)

	want := map[string]string{
		"favorites": `[{"id":2,"title":"Puma X"}]`,
		"orders":    `[]`,
		"cart":      `[{"id":1,"name":"A"}]`,
	}
	for name, expected := range want {
		for i := 0; i < 2; i++ {
			resp, body := do(t, http.MethodGet, ts.URL+"/sneakers/"+name, "")
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.JSONEq(t, expected, body, name)
		}
	}
	assert.Equal(t, seed, string(st.Raw()))
}

func TestCatalog(t *testing.T) {
	ts, _ := setup(t, seed)

	for _, path := range []string{"/sneakers", "/sneakers/items"} {
		resp, body := do(t, http.MethodGet, ts.URL+path, "")
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		assertCORS(t, resp)
		assert.JSONEq(t, seed, body, path)
	}
}

func TestEmptyStore(t *testing.T) {
	ts, _ := setup(t, "")

	resp, body := do(t, http.MethodGet, ts.URL+"/sneakers", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "[]", body)

	resp, body = do(t, http.MethodGet, ts.URL+"/sneakers/cart", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "null", body)

	resp, body = do(t, http.MethodPost, ts.URL+"/sneakers/cart", `{"id":1}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"message":"Server Error"}`, body)
}

func TestPostThenGet(t *testing.T) {
	ts, _ := setup(t, seed)

	_, before := do(t, http.MethodGet, ts.URL+"/sneakers/favorites", "")

	resp, body := do(t, http.MethodPost, ts.URL+"/sneakers/favorites", `{"id":7,"title":"New"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assertCORS(t, resp)
	assert.JSONEq(t, `[{"id":2,"title":"Puma X"},{"id":7,"title":"New"}]`, body)

	_, after := do(t, http.MethodGet, ts.URL+"/sneakers/favorites", "")
	assert.JSONEq(t, body, after)
	assert.NotEqual(t, before, after)
}

func TestPostWithIDSegmentAppends(t *testing.T) {
	ts, _ := setup(t, seed)

	resp, body := do(t, http.MethodPost, ts.URL+"/sneakers/orders/99", `{"id":3}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"id":3}]`, body)
}

func TestGetWithIDSegmentListsCollection(t *testing.T) {
	ts, _ := setup(t, seed)

	resp, body := do(t, http.MethodGet, ts.URL+"/sneakers/cart/1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"id":1,"name":"A"}]`, body)
}

func TestTrailingSlashIsEmptyID(t *testing.T) {
	ts, st := setup(t, `{"cart":[{"id":3},{"id":0,"name":"zero"}]}`)

	resp, body := do(t, http.MethodGet, ts.URL+"/sneakers/cart/", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"id":3},{"id":0,"name":"zero"}]`, body)

	resp, body = do(t, http.MethodPost, ts.URL+"/sneakers/cart/", `{"id":4}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"id":3},{"id":0,"name":"zero"},{"id":4}]`, body)

	resp, body = do(t, http.MethodDelete, ts.URL+"/sneakers/cart/", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assertCORS(t, resp)
	assert.JSONEq(t, `[{"id":3},{"id":4}]`, body)
	assert.Equal(t, `{"cart":[{"id":3},{"id":4}]}`, string(st.Raw()))

	resp, body = do(t, http.MethodDelete, ts.URL+"/sneakers/cart/", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"message":"Items Not Found"}`, body)
}

func TestDeleteRemovesExactlyOne(t *testing.T) {
	ts, _ := setup(t, `{"orders":[{"id":1},{"id":2},{"id":3}]}`)

	resp, body := do(t, http.MethodDelete, ts.URL+"/sneakers/orders/2", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"id":1},{"id":3}]`, body)

	_, after := do(t, http.MethodGet, ts.URL+"/sneakers/orders", "")
	assert.JSONEq(t, `[{"id":1},{"id":3}]`, after)
}

func TestDeleteUnknownID(t *testing.T) {
	ts, st := setup(t, seed)

	for _, path := range []string{"/sneakers/cart/42", "/sneakers/cart/abc", "/sneakers/cart"} {
		resp, body := do(t, http.MethodDelete, ts.URL+path, "")
		require.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		assertCORS(t, resp)
		assert.JSONEq(t, `{"message":"Items Not Found"}`, body, path)
	}
	assert.Equal(t, seed, string(st.Raw()))
}

func TestOutsidePrefixIsNotFound(t *testing.T) {
	ts, _ := setup(t, seed)

	methods := []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodPut}
	paths := []string{"/", "/items", "/cart", "/api/sneakers", "/sneaker"}
	for _, method := range methods {
		for _, path := range paths {
			resp, body := do(t, method, ts.URL+path, "")
			require.Equal(t, http.StatusNotFound, resp.StatusCode, method+" "+path)
			assertCORS(t, resp)
			assert.JSONEq(t, `{"message":"Not Found"}`, body)
		}
	}
}

func TestOptionsPreflight(t *testing.T) {
	ts, st := setup(t, seed)

	for _, path := range []string{"/sneakers/cart", "/sneakers/cart/1", "/elsewhere"} {
		resp, body := do(t, http.MethodOptions, ts.URL+path, "")
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		assertCORS(t, resp)
		assert.Empty(t, body)
	}
	assert.Equal(t, seed, string(st.Raw()))
}

func TestUnhandledRoutesReturnNull(t *testing.T) {
	ts, st := setup(t, seed)

	cases := []struct{ method, path string }{
		{http.MethodPut, "/sneakers/cart"},
		{http.MethodPatch, "/sneakers/cart/1"},
		{http.MethodGet, "/sneakers/wishlist"},
		{http.MethodPost, "/sneakers/items"},
		{http.MethodDelete, "/sneakers/items/1"},
		{http.MethodPost, "/sneakers"},
		{http.MethodGet, "/sneakers/cart/1/extra"},
		{http.MethodGet, "/sneakers/"},
		{http.MethodGet, "/sneakersx"},
		{http.MethodPost, "/sneakerscart/1"},
	}
	for _, tc := range cases {
		resp, body := do(t, tc.method, ts.URL+tc.path, "")
		require.Equal(t, http.StatusOK, resp.StatusCode, tc.method+" "+tc.path)
		assertCORS(t, resp)
		assert.Equal(t, "null", body, tc.method+" "+tc.path)
	}
	assert.Equal(t, seed, string(st.Raw()))
}

func TestPostMalformedJSON(t *testing.T) {
	ts, st := setup(t, seed)

	for _, payload := range []string{`{"id":`, `not json`, ""} {
		resp, body := do(t, http.MethodPost, ts.URL+"/sneakers/cart", payload)
		require.Equal(t, http.StatusInternalServerError, resp.StatusCode, payload)
		assertCORS(t, resp)
		assert.JSONEq(t, `{"message":"Server Error"}`, body)
	}
	assert.Equal(t, seed, string(st.Raw()))
}

func TestMaxBodyBytes(t *testing.T) {
	st := store.NewMemoryStoreFromJSON(seed)
	ts := setupWith(t, st, handler.WithMaxBodyBytes(16))

	resp, _ := do(t, http.MethodPost, ts.URL+"/sneakers/cart", `{"id":2}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := do(t, http.MethodPost, ts.URL+"/sneakers/cart", `{"id":3,"name":"too long for the cap"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"message":"Server Error"}`, body)
}

func TestStoreFailureIsServerError(t *testing.T) {
	ts, _ := setup(t, `{"cart": [`)

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		resp, body := do(t, method, ts.URL+"/sneakers/cart/1", "")
		require.Equal(t, http.StatusInternalServerError, resp.StatusCode, method)
		assertCORS(t, resp)
		assert.JSONEq(t, `{"message":"Server Error"}`, body)
	}
}

func TestCartScenario(t *testing.T) {
	ts, _ := setup(t, `{"cart":[{"id":1,"name":"A"}]}`)

	resp, body := do(t, http.MethodPost, ts.URL+"/sneakers/cart", `{"id":2,"name":"B"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `[{"id":1,"name":"A"},{"id":2,"name":"B"}]`, body)

	resp, body = do(t, http.MethodDelete, ts.URL+"/sneakers/cart/1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `[{"id":2,"name":"B"}]`, body)

	resp, body = do(t, http.MethodDelete, ts.URL+"/sneakers/cart/1", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, `{"message":"Items Not Found"}`, body)
}

func TestRequestID(t *testing.T) {
	ts, _ := setup(t, seed)

	resp, _ := do(t, http.MethodGet, ts.URL+"/sneakers/cart", "")
	assert.NotEmpty(t, resp.Header.Get(handler.HeaderRequestID))

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/sneakers/cart", nil)
	require.NoError(t, err)
	req.Header.Set(handler.HeaderRequestID, "abc-123")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get(handler.HeaderRequestID))
}

func TestAllowedOrigins(t *testing.T) {
	st := store.NewMemoryStoreFromJSON(seed)
	ts := setupWith(t, st, handler.WithAllowedOrigins([]string{"https://shop.example"}))

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/sneakers/cart", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://shop.example")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "https://shop.example", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", resp.Header.Get("Vary"))

	req.Header.Set("Origin", "https://evil.example")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}
