package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// webClient drives the fiber app and carries the session cookie between requests.
type webClient struct {
	t      *testing.T
	app    *fiber.App
	store  *LocalStore
	cookie *http.Cookie
}

func newWebClient(t *testing.T) *webClient {
	t.Helper()
	core := newTestApp(t)
	ws, err := NewWebServer(core, NewSessionStore(time.Minute), nil)
	require.NoError(t, err)
	return &webClient{t: t, app: ws.App(), store: core.resolver.local}
}

func (c *webClient) do(method, path string, form url.Values) (*http.Response, string) {
	c.t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}

	resp, err := c.app.Test(req, -1)
	require.NoError(c.t, err)
	for _, ck := range resp.Cookies() {
		if ck.Name == SessionCookieName {
			c.cookie = &http.Cookie{Name: ck.Name, Value: ck.Value}
		}
	}
	data, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp, string(data)
}

func (c *webClient) page() string {
	c.t.Helper()
	resp, body := c.do(http.MethodGet, "/", nil)
	require.Equal(c.t, http.StatusOK, resp.StatusCode)
	return body
}

func (c *webClient) post(path string, form url.Values) {
	c.t.Helper()
	resp, _ := c.do(http.MethodPost, path, form)
	require.Equal(c.t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(c.t, "/", resp.Header.Get("Location"))
}

func TestWebHealthz(t *testing.T) {
	c := newWebClient(t)
	resp, body := c.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body)
}

func TestWebSessionCookie(t *testing.T) {
	c := newWebClient(t)
	resp, body := c.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	require.NotNil(t, c.cookie)
	assert.NotEmpty(t, c.cookie.Value)

	var sessionCookie *http.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == SessionCookieName {
			sessionCookie = ck
		}
	}
	require.NotNil(t, sessionCookie)
	assert.True(t, sessionCookie.HttpOnly)

	assert.Contains(t, body, NoCollectionsMsg)
	assert.NotContains(t, body, "Delete Collection")
	assert.NotContains(t, body, "/export")
}

func TestWebAdminScenario(t *testing.T) {
	c := newWebClient(t)
	assert.Contains(t, c.page(), NoCollectionsMsg)

	c.post("/collections", url.Values{"name": {"notes"}})
	body := c.page()
	assert.Contains(t, body, CollectionCreatedMsg)
	assert.Contains(t, body, `<option value="notes" selected>notes</option>`)
	assert.Contains(t, body, NoDocumentsMsg)

	// notices show once
	assert.NotContains(t, c.page(), CollectionCreatedMsg)

	resp, body := c.do(http.MethodGet, "/?tab=add", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Document Content")

	c.post("/documents", url.Values{"content": {"hello <world>"}, "metadata_key": {"source"}, "metadata_value": {"web"}})
	body = c.page()
	assert.Contains(t, body, DocumentAddedMsg)
	assert.Contains(t, body, "hello &lt;world&gt;")
	assert.Contains(t, body, "Document ID: ")
	assert.Contains(t, body, "&#34;source&#34;: &#34;web&#34;")
}

func TestWebAddEmptyDocument(t *testing.T) {
	c := newWebClient(t)
	c.post("/collections", url.Values{"name": {"notes"}})
	c.page()

	c.post("/documents", url.Values{"content": {"   "}})
	body := c.page()
	assert.Contains(t, body, EmptyContentMsg)
	assert.Contains(t, body, NoDocumentsMsg)
}

func TestWebDeleteNeedsDangerMode(t *testing.T) {
	c := newWebClient(t)
	c.post("/collections", url.Values{"name": {"notes"}})
	c.page()

	c.post("/collections/delete", url.Values{"name": {"notes"}})
	body := c.page()
	assert.Contains(t, body, ErrDangerModeDisabled.Error())
	assert.Contains(t, body, `<option value="notes" selected>notes</option>`)

	c.post("/danger", url.Values{"enabled": {"on"}})
	body = c.page()
	assert.Contains(t, body, DangerEnabledMsg)
	assert.Contains(t, body, "Delete Collection")

	c.post("/collections/delete", url.Values{"name": {"notes"}})
	body = c.page()
	assert.Contains(t, body, CollectionDeletedMsg)
	assert.Contains(t, body, NoCollectionsMsg)
}

// Form values must not change after the request that submitted them has
// finished, so every name and document is read back from the store after a
// run of same-length submissions.
func TestWebSubmittedValuesSurviveLaterRequests(t *testing.T) {
	ctx := context.Background()
	c := newWebClient(t)
	c.post("/collections", url.Values{"name": {"notes"}})
	c.post("/collections", url.Values{"name": {"zebra"}})
	c.post("/select", url.Values{"collection": {"notes"}})
	c.post("/documents", url.Values{"content": {"hello world"}, "metadata_key": {"source"}, "metadata_value": {"web"}})
	for range 3 {
		c.post("/documents", url.Values{"content": {"           "}, "metadata_key": {"XXXXXX"}, "metadata_value": {"YYY"}})
	}
	c.post("/collections", url.Values{"name": {"notes"}})

	body := c.page()
	assert.Contains(t, body, `<option value="notes" selected>notes</option>`)
	assert.Contains(t, body, `<option value="zebra" >zebra</option>`)

	names, err := c.store.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"notes", "zebra"}, names)

	col, err := c.store.GetCollection(ctx, "notes")
	require.NoError(t, err)
	res, err := col.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello world"}, res.Documents)
	assert.Equal(t, []Metadata{{"source": "web"}}, res.Metadatas)

	col, err = c.store.GetCollection(ctx, "zebra")
	require.NoError(t, err)
	res, err = col.Get(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Len())
}

func TestWebSessionsAreIsolated(t *testing.T) {
	first := newWebClient(t)
	first.page()
	first.post("/danger", url.Values{"enabled": {"on"}})
	first.post("/collections", url.Values{"name": {"notes"}})
	assert.Contains(t, first.page(), "Delete Collection")

	second := &webClient{t: t, app: first.app}
	body := second.page()
	assert.NotContains(t, body, "Delete Collection")
	assert.NotEqual(t, first.cookie.Value, second.cookie.Value)
}

func TestWebSelectCollection(t *testing.T) {
	c := newWebClient(t)
	c.post("/collections", url.Values{"name": {"alpha"}})
	c.post("/collections", url.Values{"name": {"beta"}})
	assert.Contains(t, c.page(), `<option value="alpha" selected>alpha</option>`)

	c.post("/select", url.Values{"collection": {"beta"}})
	assert.Contains(t, c.page(), `<option value="beta" selected>beta</option>`)
}

func TestWebSelectConnection(t *testing.T) {
	c := newWebClient(t)
	_, conn := newFakeChroma(t)

	c.post("/connection", url.Values{"host_type": {"Remote"}, "host": {conn.Host}, "port": {"not-a-port"}})
	assert.Contains(t, c.page(), "out of range")

	c.post("/connection", url.Values{"host_type": {"Remote"}, "host": {conn.Host}, "port": {strconv.Itoa(conn.Port)}})
	body := c.page()
	assert.Contains(t, body, ConnectionUpdatedMsg)
	assert.Contains(t, body, NoCollectionsMsg)

	c.post("/collections", url.Values{"name": {"remote-notes"}})
	assert.Contains(t, c.page(), "remote-notes")

	c.post("/connection", url.Values{"host_type": {"Local"}})
	assert.NotContains(t, c.page(), "remote-notes")
}

func TestWebExport(t *testing.T) {
	c := newWebClient(t)
	c.post("/collections", url.Values{"name": {"notes"}})
	c.page()
	c.post("/documents", url.Values{"content": {"exported"}})

	// the export control heads the document view, above the tabs
	page := c.page()
	mainAt := strings.Index(page, "<main>")
	exportAt := strings.Index(page, `<a class="export" href="/export" download>Export Collection</a>`)
	tabsAt := strings.Index(page, `<div class="tabs">`)
	require.True(t, mainAt >= 0 && exportAt >= 0 && tabsAt >= 0)
	assert.Less(t, mainAt, exportAt)
	assert.Less(t, exportAt, tabsAt)

	resp, body := c.do(http.MethodGet, "/export", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "notes.export.json")

	var data ExportData
	require.NoError(t, json.Unmarshal([]byte(body), &data))
	assert.Equal(t, "notes", data.Collection)
	assert.Equal(t, 1, data.Count)
	require.Len(t, data.Documents, 1)
	assert.Equal(t, "exported", data.Documents[0].Content)
}

func TestWebExportWithoutCollection(t *testing.T) {
	c := newWebClient(t)
	c.page()

	resp, _ := c.do(http.MethodGet, "/export", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Contains(t, c.page(), NoCollectionSelected)
}
