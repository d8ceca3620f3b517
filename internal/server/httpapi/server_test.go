package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/portfolio/internal/common"
	"github.com/dmitrijs2005/portfolio/internal/logging"
	"github.com/dmitrijs2005/portfolio/internal/server/models"
	"github.com/dmitrijs2005/portfolio/internal/server/render"
	"github.com/dmitrijs2005/portfolio/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublic_HomeUsesFallbackProfile(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := serve(srv.Router(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), render.FallbackName)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
}

func TestPublic_Notice(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Router()

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/?notice=not-authorized", nil))
	assert.Contains(t, rec.Body.String(), "You are not authorized to access the admin panel.")

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/?notice=anything", nil))
	assert.NotContains(t, rec.Body.String(), "You are not authorized")
}

func TestPublic_AllPages(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Router()
	for _, p := range []string{"/", "/about", "/projects", "/skills", "/contact", "/healthz"} {
		rec := serve(h, httptest.NewRequest(http.MethodGet, p, nil))
		assert.Equal(t, http.StatusOK, rec.Code, p)
	}
}

type profileReader struct {
	emptyReader
	profile models.Profile
}

func (p profileReader) Get(_ context.Context, collection, id string) (*models.Document, error) {
	b, err := json.Marshal(p.profile)
	if err != nil {
		return nil, err
	}
	return &models.Document{Collection: collection, ID: id, Data: b}, nil
}

func TestPublic_ContactMessageOpensMailClient(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Router()

	// no contact address saved yet
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/contact/message?name=Ann&message=hi", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/contact", rec.Header().Get("Location"))

	pages, err := render.New(profileReader{profile: models.Profile{Name: "Sam", Email: "sam@example.com"}}, nil, ownerID, logging.NewNop())
	require.NoError(t, err)
	srv.pages = pages

	q := url.Values{"name": {"Ann Lee"}, "message": {"Hello & welcome"}}
	rec = serve(h, httptest.NewRequest(http.MethodGet, "/contact/message?"+q.Encode(), nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t,
		"mailto:sam@example.com?subject=Contact%20from%20Portfolio%3A%20Ann%20Lee&body=Hello%20%26%20welcome",
		rec.Header().Get("Location"))
}

func TestAdmin_UnauthenticatedRedirectsToLogin(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := serve(srv.Router(), httptest.NewRequest(http.MethodGet, "/admin/projects", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/login", rec.Header().Get("Location"))
}

func TestAdmin_NonOwnerRedirectedToRootWithNotice(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Router()

	for _, path := range []string{"/admin", "/admin/about", "/admin/projects", "/admin/cv"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.AddCookie(&http.Cookie{Name: common.AccessTokenCookieName, Value: token(t, "someone-else", time.Minute)})
		rec := serve(h, req)

		assert.Equal(t, http.StatusSeeOther, rec.Code, path)
		assert.Equal(t, "/?notice=not-authorized", rec.Header().Get("Location"), path)
		assert.NotContains(t, rec.Body.String(), "Sign out", path)
	}
}

func TestAdmin_NonOwnerCannotSubmitForms(t *testing.T) {
	srv, d := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/admin/projects/p1/delete", nil)
	req.AddCookie(&http.Cookie{Name: common.AccessTokenCookieName, Value: token(t, "someone-else", time.Minute)})
	rec := serve(srv.Router(), req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Empty(t, d.projects.deleted)
}

func TestAdmin_OwnerSeesDashboard(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := serve(srv.Router(), asOwner(t, httptest.NewRequest(http.MethodGet, "/admin", nil)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sign out")
	assert.Contains(t, rec.Body.String(), "Dashboard")
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestAdmin_ExpiredAccessTokenIsRefreshed(t *testing.T) {
	srv, d := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: common.AccessTokenCookieName, Value: token(t, ownerID, -time.Minute)})
	req.AddCookie(&http.Cookie{Name: common.RefreshTokenCookieName, Value: "old-refresh"})
	rec := serve(srv.Router(), req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"old-refresh"}, d.sessions.refreshed)
	v, ok := cookieValue(rec, common.RefreshTokenCookieName)
	require.True(t, ok)
	assert.Equal(t, "refresh-rotated", v)
}

func TestAdmin_FailedRefreshClearsSession(t *testing.T) {
	srv, d := newTestServer(t)
	d.sessions.refreshErr = common.ErrRefreshTokenExpired

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: common.RefreshTokenCookieName, Value: "stale"})
	rec := serve(srv.Router(), req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/login", rec.Header().Get("Location"))
	v, ok := cookieValue(rec, common.RefreshTokenCookieName)
	require.True(t, ok)
	assert.Empty(t, v)
}

func TestAdmin_RefreshLostToConcurrentRotationKeepsCookies(t *testing.T) {
	srv, d := newTestServer(t)
	d.sessions.refreshErr = fmt.Errorf("error deleting refresh token: %w", common.ErrorNotFound)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: common.AccessTokenCookieName, Value: token(t, ownerID, -time.Minute)})
	req.AddCookie(&http.Cookie{Name: common.RefreshTokenCookieName, Value: "just-rotated"})
	rec := serve(srv.Router(), req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, []string{"just-rotated"}, d.sessions.refreshed)
	assert.Empty(t, rec.Result().Cookies(), "the sibling request's fresh cookies must survive")
}

func TestLogin_ThrottleKeyIgnoresForwardedHeadersUnlessTrusted(t *testing.T) {
	tests := []struct {
		name       string
		trustProxy bool
		want       []string
	}{
		{name: "direct", want: []string{"192.0.2.1", "192.0.2.1", "192.0.2.1"}},
		{name: "behind trusted proxy", trustProxy: true, want: []string{"203.0.113.1", "203.0.113.2", "203.0.113.3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, d := newTestServer(t)
			srv.trustProxy = tt.trustProxy
			h := srv.Router()

			for i := 1; i <= 3; i++ {
				req := postForm("/admin/login", url.Values{"email": {"owner@example.com"}, "password": {"nope"}})
				req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
				serve(h, req)
			}
			assert.Equal(t, tt.want, d.sessions.clients)
		})
	}
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestLogin(t *testing.T) {
	srv, d := newTestServer(t)
	h := srv.Router()

	rec := serve(h, postForm("/admin/login", url.Values{"email": {"owner@example.com"}, "password": {"pw"}}))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get("Location"))
	_, ok := cookieValue(rec, common.AccessTokenCookieName)
	assert.True(t, ok)

	rec = serve(h, postForm("/admin/login", url.Values{"email": {"owner@example.com"}, "password": {"nope"}}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid email or password.")

	d.sessions.loginErr = common.ErrTooManyAttempts
	rec = serve(h, postForm("/admin/login", url.Values{"email": {"owner@example.com"}, "password": {"pw"}}))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestLoginPage_OwnerIsSentToDashboard(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := serve(srv.Router(), asOwner(t, httptest.NewRequest(http.MethodGet, "/admin/login", nil)))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get("Location"))

	rec = serve(srv.Router(), httptest.NewRequest(http.MethodGet, "/admin/login", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/admin/login"`)
}

func TestLogout(t *testing.T) {
	srv, d := newTestServer(t)

	req := asOwner(t, httptest.NewRequest(http.MethodPost, "/admin/logout", nil))
	req.AddCookie(&http.Cookie{Name: common.RefreshTokenCookieName, Value: "r1"})
	rec := serve(srv.Router(), req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, []string{"r1"}, d.sessions.signedOut)
	v, ok := cookieValue(rec, common.AccessTokenCookieName)
	require.True(t, ok)
	assert.Empty(t, v)
}

func multipartRequest(t *testing.T, path string, fields map[string][]string, file []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, vs := range fields {
		for _, v := range vs {
			require.NoError(t, mw.WriteField(k, v))
		}
	}
	if file != nil {
		fw, err := mw.CreateFormFile("imageFile", "shot.png")
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestProjectCreate_FormRedirectsWithFlash(t *testing.T) {
	srv, d := newTestServer(t)

	req := asOwner(t, multipartRequest(t, "/admin/projects", map[string][]string{
		"title":       {"Site"},
		"description": {"A site"},
		"techStack":   {"Go, SQL"},
		"imageUrl":    {"https://img.example/x.png"},
	}, nil))
	rec := serve(srv.Router(), req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/projects", rec.Header().Get("Location"))
	require.Len(t, d.projects.created, 1)
	in := d.projects.created[0]
	assert.Equal(t, "Site", in.Title)
	assert.Equal(t, "Go, SQL", in.TechStack)
	assert.True(t, in.Image.IsURL())

	flash, ok := cookieValue(rec, flashCookieName)
	require.True(t, ok)
	msg, err := url.QueryUnescape(flash)
	require.NoError(t, err)
	assert.Equal(t, "Project added successfully!", msg)
}

func TestProjectCreate_UploadedFileWins(t *testing.T) {
	srv, d := newTestServer(t)
	file := []byte("\x89PNG fake bytes")

	req := asOwner(t, multipartRequest(t, "/admin/projects", map[string][]string{
		"title":    {"Site"},
		"imageUrl": {"https://img.example/x.png"},
	}, file))
	serve(srv.Router(), req)

	require.Len(t, d.projects.created, 1)
	img := d.projects.created[0].Image
	assert.True(t, img.IsUpload())
	assert.Equal(t, file, img.Data)
	assert.Equal(t, "shot.png", img.Filename)
}

func TestProjectCreate_ValidationFailureRerendersForm(t *testing.T) {
	srv, d := newTestServer(t)
	d.projects.result = &services.Result{
		Message: "Please check your input.",
		Errors:  map[string][]string{"description": {"Description is required"}},
		Kind:    services.ValidationFailure,
	}

	req := asOwner(t, multipartRequest(t, "/admin/projects", map[string][]string{
		"title":     {"Kept title"},
		"techStack": {"Go"},
	}, nil))
	rec := serve(srv.Router(), req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Please check your input.")
	assert.Contains(t, body, "Description is required")
	assert.Contains(t, body, `value="Kept title"`)
}

func TestProjectPage_NotFoundRedirects(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := serve(srv.Router(), asOwner(t, httptest.NewRequest(http.MethodGet, "/admin/projects/missing", nil)))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/projects", rec.Header().Get("Location"))
}

func TestProjectPage_EditForm(t *testing.T) {
	srv, d := newTestServer(t)
	d.projects.items["p1"] = models.Project{ID: "p1", Title: "Site", TechStack: []string{"Go"}, ImageURL: "https://img.example/x.png"}

	rec := serve(srv.Router(), asOwner(t, httptest.NewRequest(http.MethodGet, "/admin/projects/p1", nil)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/admin/projects/p1"`)
}

func TestSkillUpdate_Form(t *testing.T) {
	srv, d := newTestServer(t)

	rec := serve(srv.Router(), asOwner(t, postForm("/admin/skills/s1", url.Values{
		"name": {"Go"}, "svg": {"<svg></svg>"}, "type": {"tech"},
	})))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/skills/s1", rec.Header().Get("Location"))
	assert.Equal(t, services.SkillInput{Name: "Go", SVG: "<svg></svg>", Type: "tech"}, d.skills.updated["s1"])
}

func TestProfileSave_Form(t *testing.T) {
	srv, d := newTestServer(t)

	req := asOwner(t, multipartRequest(t, "/admin/about", map[string][]string{
		"name":                 {"Ada"},
		"role":                 {"Engineer"},
		"introduction":         {"Hello"},
		"educationId":          {"e1", ""},
		"educationDegree":      {"BSc", "MSc"},
		"educationInstitution": {"Uni", "Tech"},
		"educationDates":       {"2010-2014"},
		"removePicture":        {"1"},
	}, nil))
	rec := serve(srv.Router(), req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	require.Len(t, d.profile.saved, 1)
	in := d.profile.saved[0]
	assert.Equal(t, "Ada", in.Name)
	assert.True(t, in.RemovePicture)
	assert.True(t, in.Picture.IsUnspecified())
	assert.Equal(t, []models.EducationEntry{
		{ID: "e1", Degree: "BSc", Institution: "Uni", Dates: "2010-2014"},
		{ID: "", Degree: "MSc", Institution: "Tech", Dates: ""},
	}, in.Education)
}

func TestCVPage(t *testing.T) {
	srv, d := newTestServer(t)
	h := srv.Router()

	rec := serve(h, asOwner(t, postForm("/admin/cv", url.Values{"cvText": {"my cv"}})))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "refined: my cv")

	d.cv.available = false
	rec = serve(h, asOwner(t, httptest.NewRequest(http.MethodGet, "/admin/cv", nil)))
	assert.Contains(t, rec.Body.String(), "not configured")
}

func bearer(req *http.Request, tok string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+tok)
	return req
}

func TestAPI_Guard(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Router()

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/admin/api/profile", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(h, bearer(httptest.NewRequest(http.MethodGet, "/admin/api/profile", nil), token(t, "someone-else", time.Minute)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	body := decodeJSON[map[string]string](t, rec)
	assert.Equal(t, common.NoticeNotAuthorized, body["notice"])

	rec = serve(h, bearer(httptest.NewRequest(http.MethodGet, "/admin/api/profile", nil), token(t, ownerID, time.Minute)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_ProjectCreateJSON(t *testing.T) {
	srv, d := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/admin/api/projects",
		strings.NewReader(`{"title":"Site","description":"d","techStack":["Go","SQL"],"imageUrl":"https://img.example/x.png"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(srv.Router(), bearer(req, token(t, ownerID, time.Minute)))

	assert.Equal(t, http.StatusCreated, rec.Code)
	res := decodeJSON[services.Result](t, rec)
	assert.True(t, res.Success)
	assert.Equal(t, "new-id", res.ID)
	require.Len(t, d.projects.created, 1)
	assert.Equal(t, "Go,SQL", d.projects.created[0].TechStack)
}

func TestAPI_ResultStatuses(t *testing.T) {
	srv, d := newTestServer(t)
	d.skills.result = &services.Result{Message: "Skill not found.", Kind: services.NotFoundFailure}

	req := httptest.NewRequest(http.MethodDelete, "/admin/api/skills/x", nil)
	rec := serve(srv.Router(), bearer(req, token(t, ownerID, time.Minute)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Skill not found.", decodeJSON[services.Result](t, rec).Message)
}

func TestAPI_CVRefine(t *testing.T) {
	srv, d := newTestServer(t)
	h := srv.Router()
	call := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/admin/api/cv/refine", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return serve(h, bearer(req, token(t, ownerID, time.Minute)))
	}

	rec := call(`{"cvText":"my cv"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, services.CVResult{Success: true, Data: "refined: my cv"}, decodeJSON[services.CVResult](t, rec))

	rec = call(`{"cvText":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "CV text cannot be empty.", decodeJSON[services.CVResult](t, rec).Error)

	d.cv.fail = true
	rec = call(`{"cvText":"my cv"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	d.cv.available = false
	rec = call(`{"cvText":"my cv"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAPI_Session(t *testing.T) {
	srv, d := newTestServer(t)
	h := srv.Router()

	req := httptest.NewRequest(http.MethodPost, "/admin/api/session", strings.NewReader(`{"email":"owner@example.com","password":"pw"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(h, req)
	require.Equal(t, http.StatusOK, rec.Code)
	tokens := decodeJSON[tokenResponse](t, rec)
	assert.Equal(t, "refresh-login", tokens.RefreshToken)

	body, _ := json.Marshal(map[string]string{"refreshToken": tokens.RefreshToken})
	rec = serve(h, httptest.NewRequest(http.MethodPost, "/admin/api/session/refresh", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"refresh-login"}, d.sessions.refreshed)

	d.sessions.refreshErr = common.ErrRefreshTokenExpired
	rec = serve(h, httptest.NewRequest(http.MethodPost, "/admin/api/session/refresh", bytes.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	_, cleared := cookieValue(rec, common.RefreshTokenCookieName)
	assert.True(t, cleared)

	d.sessions.refreshErr = fmt.Errorf("error deleting refresh token: %w", common.ErrorNotFound)
	rec = serve(h, httptest.NewRequest(http.MethodPost, "/admin/api/session/refresh", bytes.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())

	rec = serve(h, bearer(httptest.NewRequest(http.MethodDelete, "/admin/api/sessions", nil), tokens.AccessToken))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{ownerID}, d.sessions.everywhere)
}

func TestResultStatus(t *testing.T) {
	tests := []struct {
		res     services.Result
		created bool
		want    int
	}{
		{services.Result{Success: true}, true, http.StatusCreated},
		{services.Result{Success: true}, false, http.StatusOK},
		{services.Result{Kind: services.ValidationFailure}, false, http.StatusUnprocessableEntity},
		{services.Result{Kind: services.UploadFailure}, false, http.StatusBadGateway},
		{services.Result{Kind: services.NotFoundFailure}, false, http.StatusNotFound},
		{services.Result{Kind: services.PersistenceFailure}, true, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, resultStatus(tt.res, tt.created))
	}
}

func TestCheckOrigin(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "http://site.example/admin/api/projects/stream", nil)
	assert.True(t, srv.checkOrigin(req))

	req.Header.Set("Origin", "http://site.example")
	assert.True(t, srv.checkOrigin(req))

	req.Header.Set("Origin", "http://localhost:3000")
	assert.True(t, srv.checkOrigin(req))

	req.Header.Set("Origin", "http://evil.example")
	assert.False(t, srv.checkOrigin(req))
}
