package server

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mlcruz9/miguel-dev/internal/config"
	"github.com/Mlcruz9/miguel-dev/internal/content"
	"github.com/Mlcruz9/miguel-dev/internal/heatmap"
	"github.com/Mlcruz9/miguel-dev/internal/scroll"
	"github.com/Mlcruz9/miguel-dev/internal/store"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []ContactMessage
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg ContactMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type stubRenderer struct {
	out template.HTML
	err error
}

func (r stubRenderer) RenderHeatmap(context.Context, string, heatmap.Palette) (template.HTML, error) {
	return r.out, r.err
}

const testContent = `
profile: {name: Ada Lovelace, handle: ada.dev, email: ada@example.com}
links: {github: "https://github.com/ada", linkedin: "https://linkedin.example/ada", cv: "cv/ada.pdf"}
projects:
  - title: Analytical Engine
    highlights: [notes]
    stack: [Go]
    image: img/engine.png
    preview_gif: img/engine.gif
  - title: Bare
    highlights: [x]
    stack: [y]
    image: img/bare.png
experience:
  - role: Analyst
    bullets: [numbers]
heatmap:
  username: ada
`

func newTestServer(t *testing.T, tweak func(*Options)) *Server {
	t.Helper()
	p, err := content.Parse([]byte(testContent))
	require.NoError(t, err)

	opts := Options{
		Settings: config.Settings{
			AdminUsername: "owner",
			AdminPassword: "s3cret",
			PublicDir:     t.TempDir(),
		},
		Content: p,
		Mailer:  &fakeMailer{},
		Now:     func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) },
	}
	if tweak != nil {
		tweak(&opts)
	}
	srv, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func get(t *testing.T, srv *Server, target string) *httptest.ResponseRecorder {
	return do(t, srv, httptest.NewRequest(http.MethodGet, target, nil))
}

func postForm(t *testing.T, srv *Server, target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return do(t, srv, req)
}

func TestIndex(t *testing.T) {
	srv := newTestServer(t, nil)
	w := get(t, srv, "/")
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "Ada Lovelace")
	assert.Contains(t, body, "rgba(241,246,252,0.940)")
	assert.Contains(t, body, `id="scroll-keyframes"`)
	assert.Contains(t, body, `"positionOffset":30`)
	assert.Contains(t, body, "/projects/analytical-engine/preview?hover=true")
	assert.Contains(t, body, `src="/img/engine.png"`)
	assert.NotContains(t, body, `src="/img/engine.gif"`)
	assert.Contains(t, body, "Hover: GIF")
	assert.Contains(t, body, "Hover: zoom")
	assert.Contains(t, body, "© 2025 Ada Lovelace")
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestVisual(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		query string
		want  scroll.Params
	}{
		{"offset=0&max=100", scroll.Params{PositionOffset: 30, TintIntensity: 0.94}},
		{"offset=100&max=100", scroll.Derive(scroll.Sample{Offset: 100, Max: 100})},
		{"offset=abc&max=100", scroll.Params{PositionOffset: 30, TintIntensity: 0.94}},
		{"offset=80&max=abc", scroll.Params{PositionOffset: 30, TintIntensity: 0.94}},
		{"", scroll.Params{PositionOffset: 30, TintIntensity: 0.94}},
		{"offset=NaN&max=100", scroll.Params{PositionOffset: 30, TintIntensity: 0.94}},
		{"offset=5&max=-10", scroll.Derive(scroll.Sample{Offset: 5, Max: -10})},
	}
	for _, tt := range tests {
		w := get(t, srv, "/api/visual?"+tt.query)
		require.Equal(t, http.StatusOK, w.Code, tt.query)

		var got scroll.Params
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, tt.want, got, tt.query)
	}
}

func TestPreviewSwapsOnHover(t *testing.T) {
	srv := newTestServer(t, nil)

	w := get(t, srv, "/projects/analytical-engine/preview?hover=true")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `src="/img/engine.gif"`)
	assert.Contains(t, body, `hx-trigger="mouseleave"`)
	assert.Contains(t, body, "preview?hover=false")
	assert.Contains(t, body, "scale(1.03)")

	w = get(t, srv, "/projects/analytical-engine/preview?hover=false")
	assert.Contains(t, w.Body.String(), `src="/img/engine.png"`)
	assert.Contains(t, w.Body.String(), `hx-trigger="mouseenter"`)

	w = get(t, srv, "/projects/bare/preview?hover=true")
	assert.Contains(t, w.Body.String(), `src="/img/bare.png"`)

	w = get(t, srv, "/projects/nope/preview")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestActivity(t *testing.T) {
	t.Run("no renderer falls back", func(t *testing.T) {
		srv := newTestServer(t, nil)
		w := get(t, srv, "/activity")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Could not load the GitHub heatmap automatically.")
		assert.Contains(t, w.Body.String(), `href="https://github.com/ada"`)
	})

	t.Run("failing renderer falls back", func(t *testing.T) {
		srv := newTestServer(t, func(o *Options) {
			o.Heatmap = heatmap.NewResolver(func() heatmap.Renderer {
				return stubRenderer{err: errors.New("boom")}
			})
		})
		w := get(t, srv, "/activity")
		assert.Contains(t, w.Body.String(), "Could not load the GitHub heatmap automatically.")
	})

	t.Run("renders heatmap", func(t *testing.T) {
		srv := newTestServer(t, func(o *Options) {
			o.Heatmap = heatmap.NewResolver(func() heatmap.Renderer {
				return stubRenderer{out: `<svg class="heatmap"></svg>`}
			})
		})
		w := get(t, srv, "/activity")
		assert.Contains(t, w.Body.String(), `<svg class="heatmap"></svg>`)
	})
}

func TestContact(t *testing.T) {
	mailer := &fakeMailer{}
	srv := newTestServer(t, func(o *Options) { o.Mailer = mailer })

	w := get(t, srv, "/contact-form")
	assert.Contains(t, w.Body.String(), `name="fullName"`)

	w = postForm(t, srv, "/contact", url.Values{
		"fullName": {"Grace"},
		"email":    {"grace@example.com"},
		"message":  {"Hello!"},
	})
	assert.Contains(t, w.Body.String(), "Thank you for your message!")
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, ContactMessage{Name: "Grace", Email: "grace@example.com", Message: "Hello!"}, mailer.sent[0])

	w = postForm(t, srv, "/contact", url.Values{
		"fullName": {"Grace"},
		"email":    {"not-an-email"},
		"message":  {"Hello!"},
	})
	assert.Contains(t, w.Body.String(), "please enter a valid email address")
	assert.Len(t, mailer.sent, 1)

	for _, tc := range []struct {
		form url.Values
		want string
	}{
		{url.Values{"fullName": {"Grace\nBcc: x@example.com"}, "email": {"grace@example.com"}, "message": {"Hi"}}, "name must be a single line"},
		{url.Values{"fullName": {"Grace"}, "email": {"grace@example.com"}, "message": {strings.Repeat("x", 4001)}}, "message is too long"},
		{url.Values{"fullName": {"   "}, "email": {"grace@example.com"}, "message": {"Hi"}}, "please fill in every field"},
		{url.Values{"email": {"grace@example.com"}}, "please fill in every field"},
	} {
		w = postForm(t, srv, "/contact", tc.form)
		assert.Contains(t, w.Body.String(), tc.want, "%v", tc.form)
	}
	assert.Len(t, mailer.sent, 1)

	mailer.err = errors.New("smtp down")
	w = postForm(t, srv, "/contact", url.Values{
		"fullName": {"Grace"},
		"email":    {"grace@example.com"},
		"message":  {"Hello again"},
	})
	assert.Contains(t, w.Body.String(), "Sorry, there was an error sending your message.")
}

func TestContactMessageValidate(t *testing.T) {
	m := ContactMessage{Name: " Grace ", Email: " grace@example.com ", Message: " hi "}
	require.NoError(t, m.Validate())
	assert.Equal(t, "Grace", m.Name)

	bad := []ContactMessage{
		{Name: "", Email: "a@b.c", Message: "x"},
		{Name: "  ", Email: "a@b.c", Message: "x"},
		{Name: "x\ny", Email: "a@b.c", Message: "x"},
		{Name: "x", Email: "X <a@b.c>", Message: "x"},
		{Name: "x", Email: "a@b.c", Message: strings.Repeat("x", 4001)},
	}
	for _, m := range bad {
		assert.Error(t, m.Validate(), "%+v", m)
	}
}

func TestSMTPMailerNotConfigured(t *testing.T) {
	m := NewSMTPMailer(config.SMTP{}, nil)
	assert.ErrorIs(t, m.Send(context.Background(), ContactMessage{}), ErrMailNotConfigured)
}

func TestContactQR(t *testing.T) {
	srv := newTestServer(t, nil)
	w := get(t, srv, "/contact/qr.png")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "\x89PNG"))
}

func TestPrivacyAndHealth(t *testing.T) {
	srv := newTestServer(t, nil)
	assert.Contains(t, get(t, srv, "/privacy").Body.String(), "Privacy Policy")
	assert.Equal(t, http.StatusOK, get(t, srv, "/healthz").Code)
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "site.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestAdminFlow(t *testing.T) {
	st := openStore(t)
	srv := newTestServer(t, func(o *Options) { o.Store = st })

	w := get(t, srv, "/admin/dashboard")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/login", w.Header().Get("Location"))

	w = postForm(t, srv, "/admin/login", url.Values{"username": {"owner"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid credentials")

	w = postForm(t, srv, "/admin/login", url.Values{"username": {"owner"}, "password": {"s3cret"}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/dashboard", w.Header().Get("Location"))
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	withCookie := func(method, target string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, nil)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		return do(t, srv, req)
	}

	w = withCookie(http.MethodGet, "/admin/dashboard")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Dashboard")

	w = withCookie(http.MethodGet, "/admin/api/stats")
	require.Equal(t, http.StatusOK, w.Code)
	var stats store.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))

	w = withCookie(http.MethodGet, "/admin/export/stats")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "admin-stats.json")

	w = withCookie(http.MethodPost, "/admin/heatmap/refresh")
	assert.Equal(t, http.StatusOK, w.Code)

	w = withCookie(http.MethodPost, "/admin/privacy/cleanup")
	assert.Equal(t, http.StatusOK, w.Code)

	w = withCookie(http.MethodGet, "/admin/visitors")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminWithoutStore(t *testing.T) {
	srv := newTestServer(t, nil)
	w := postForm(t, srv, "/admin/login", url.Values{"username": {"owner"}, "password": {"s3cret"}})
	require.Equal(t, http.StatusFound, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}
	w = do(t, srv, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestVisitorTracking(t *testing.T) {
	st := openStore(t)
	srv := newTestServer(t, func(o *Options) { o.Store = st })

	get(t, srv, "/")
	get(t, srv, "/static/style.css")
	get(t, srv, "/api/visual?offset=1&max=2")

	dnt := httptest.NewRequest(http.MethodGet, "/", nil)
	dnt.Header.Set("DNT", "1")
	do(t, srv, dnt)

	srv.Close()

	visits, err := st.RecentVisits(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, visits, 1)
	assert.Equal(t, "/", visits[0].Path)
	assert.Len(t, visits[0].HashedIP, 16)
	assert.Equal(t, srv.hashIP("192.0.2.1"), visits[0].HashedIP)
}

func TestClientIPIgnoresForwardedHeaders(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.engine.GET("/_ip", func(c *gin.Context) { c.String(http.StatusOK, c.ClientIP()) })

	req := httptest.NewRequest(http.MethodGet, "/_ip", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	assert.Equal(t, "192.0.2.1", do(t, srv, req).Body.String())

	proxied := newTestServer(t, func(o *Options) { o.Settings.TrustedProxies = []string{"192.0.2.1"} })
	proxied.engine.GET("/_ip", func(c *gin.Context) { c.String(http.StatusOK, c.ClientIP()) })
	req = httptest.NewRequest(http.MethodGet, "/_ip", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	assert.Equal(t, "203.0.113.7", do(t, proxied, req).Body.String())
}

func TestInvalidTrustedProxy(t *testing.T) {
	p, err := content.Parse([]byte(testContent))
	require.NoError(t, err)
	_, err = New(Options{Content: p, Settings: config.Settings{TrustedProxies: []string{"not-an-ip"}}})
	assert.Error(t, err)
}
