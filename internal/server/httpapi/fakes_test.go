package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/portfolio/internal/common"
	"github.com/dmitrijs2005/portfolio/internal/logging"
	"github.com/dmitrijs2005/portfolio/internal/server/auth"
	"github.com/dmitrijs2005/portfolio/internal/server/gateway"
	"github.com/dmitrijs2005/portfolio/internal/server/models"
	"github.com/dmitrijs2005/portfolio/internal/server/render"
	"github.com/dmitrijs2005/portfolio/internal/server/services"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "test-secret"
	ownerID    = "owner-1"
)

var errNotFound = &gateway.Error{Kind: gateway.KindNotFound, Op: "get", Err: common.ErrorNotFound}

type emptyReader struct{}

func (emptyReader) Get(context.Context, string, string) (*models.Document, error) {
	return nil, errNotFound
}

func (emptyReader) List(context.Context, string, gateway.Order) ([]*models.Document, error) {
	return nil, nil
}

type fakeSessions struct {
	mu         sync.Mutex
	loginErr   error
	refreshErr error
	clients    []string
	refreshed  []string
	signedOut  []string
	everywhere []string
}

func (f *fakeSessions) pair(t string) (*services.TokenPair, error) {
	access, err := auth.GenerateToken(ownerID, []byte(testSecret), time.Minute)
	if err != nil {
		return nil, err
	}
	return &services.TokenPair{AccessToken: access, RefreshToken: "refresh-" + t}, nil
}

func (f *fakeSessions) Login(_ context.Context, clientKey, email, password string) (*services.TokenPair, error) {
	f.mu.Lock()
	f.clients = append(f.clients, clientKey)
	f.mu.Unlock()
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	if email != "owner@example.com" || password != "pw" {
		return nil, common.ErrorUnauthorized
	}
	return f.pair("login")
}

func (f *fakeSessions) RefreshToken(_ context.Context, token string) (*services.TokenPair, error) {
	f.mu.Lock()
	f.refreshed = append(f.refreshed, token)
	f.mu.Unlock()
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.pair("rotated")
}

func (f *fakeSessions) SignOut(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signedOut = append(f.signedOut, token)
	return nil
}

func (f *fakeSessions) SignOutEverywhere(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.everywhere = append(f.everywhere, userID)
	return 2, nil
}

type fakeProjects struct {
	created []services.ProjectInput
	updated map[string]services.ProjectInput
	deleted []string
	result  *services.Result
	items   map[string]models.Project
}

func (f *fakeProjects) res(msg, id string) services.Result {
	if f.result != nil {
		return *f.result
	}
	return services.Result{Success: true, Message: msg, ID: id}
}

func (f *fakeProjects) Create(_ context.Context, in services.ProjectInput) services.Result {
	f.created = append(f.created, in)
	return f.res("Project added successfully!", "new-id")
}

func (f *fakeProjects) Update(_ context.Context, id string, in services.ProjectInput) services.Result {
	if f.updated == nil {
		f.updated = map[string]services.ProjectInput{}
	}
	f.updated[id] = in
	return f.res("Project updated successfully!", id)
}

func (f *fakeProjects) Delete(_ context.Context, id string) services.Result {
	f.deleted = append(f.deleted, id)
	return f.res("Project deleted successfully!", id)
}

func (f *fakeProjects) Get(_ context.Context, id string) (models.Project, error) {
	p, ok := f.items[id]
	if !ok {
		return models.Project{}, errNotFound
	}
	return p, nil
}

type fakeSkills struct {
	created []services.SkillInput
	updated map[string]services.SkillInput
	result  *services.Result
	items   map[string]models.Skill
}

func (f *fakeSkills) res(msg, id string) services.Result {
	if f.result != nil {
		return *f.result
	}
	return services.Result{Success: true, Message: msg, ID: id}
}

func (f *fakeSkills) Create(_ context.Context, in services.SkillInput) services.Result {
	f.created = append(f.created, in)
	return f.res("Skill added successfully!", "skill-id")
}

func (f *fakeSkills) Update(_ context.Context, id string, in services.SkillInput) services.Result {
	if f.updated == nil {
		f.updated = map[string]services.SkillInput{}
	}
	f.updated[id] = in
	return f.res("Skill updated successfully!", id)
}

func (f *fakeSkills) Delete(_ context.Context, id string) services.Result {
	return f.res("Skill deleted successfully!", id)
}

func (f *fakeSkills) Get(_ context.Context, id string) (models.Skill, error) {
	s, ok := f.items[id]
	if !ok {
		return models.Skill{}, errNotFound
	}
	return s, nil
}

type fakeProfiles struct {
	profile *models.Profile
	saved   []services.ProfileInput
	result  *services.Result
}

func (f *fakeProfiles) Get(context.Context) (models.Profile, bool, error) {
	if f.profile == nil {
		return models.Profile{}, false, nil
	}
	return *f.profile, true, nil
}

func (f *fakeProfiles) Save(_ context.Context, in services.ProfileInput) services.Result {
	f.saved = append(f.saved, in)
	if f.result != nil {
		return *f.result
	}
	return services.Result{Success: true, Message: "Profile updated successfully!", ID: ownerID}
}

type fakeCV struct {
	available bool
	fail      bool
	prompts   []string
}

func (f *fakeCV) Available() bool { return f.available }

func (f *fakeCV) Refine(_ context.Context, text string) services.CVResult {
	switch {
	case text == "":
		return services.CVResult{Error: "CV text cannot be empty."}
	case !f.available:
		return services.CVResult{Error: "CV refinement is not available."}
	case f.fail:
		return services.CVResult{Error: "Failed to refine CV due to a server error."}
	}
	f.prompts = append(f.prompts, text)
	return services.CVResult{Success: true, Data: "refined: " + text}
}

// fakeLists pushes the stored documents once on subscribe and tracks how
// many subscriptions are open.
type fakeLists struct {
	mu     sync.Mutex
	docs   map[string][]*models.Document
	active int
}

func (f *fakeLists) Subscribe(_ context.Context, collection string, _ gateway.Order,
	onData func([]*models.Document), _ func(error)) (func(), error) {
	f.mu.Lock()
	f.active++
	docs := f.docs[collection]
	f.mu.Unlock()

	onData(docs)

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			f.active--
			f.mu.Unlock()
		})
	}, nil
}

func (f *fakeLists) Active() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

type testDeps struct {
	sessions *fakeSessions
	projects *fakeProjects
	skills   *fakeSkills
	profile  *fakeProfiles
	cv       *fakeCV
	lists    *fakeLists
}

func newTestServer(t *testing.T) (*Server, *testDeps) {
	t.Helper()
	log := logging.NewNop()
	pages, err := render.New(emptyReader{}, nil, ownerID, log)
	require.NoError(t, err)

	d := &testDeps{
		sessions: &fakeSessions{},
		projects: &fakeProjects{items: map[string]models.Project{}},
		skills:   &fakeSkills{items: map[string]models.Skill{}},
		profile:  &fakeProfiles{},
		cv:       &fakeCV{available: true},
		lists:    &fakeLists{docs: map[string][]*models.Document{}},
	}
	srv := NewServer(Options{
		Address:        "127.0.0.1:0",
		Pages:          pages,
		Resolver:       auth.NewResolver([]byte(testSecret), ownerID),
		Sessions:       d.sessions,
		Projects:       d.projects,
		Skills:         d.skills,
		Profile:        d.profile,
		CV:             d.cv,
		Lists:          d.lists,
		AllowedOrigins: []string{"http://localhost:3000"},
		AccessTTL:      time.Minute,
		RefreshTTL:     time.Hour,
		Logger:         log,
	})
	return srv, d
}

func token(t *testing.T, userID string, ttl time.Duration) string {
	t.Helper()
	tok, err := auth.GenerateToken(userID, []byte(testSecret), ttl)
	require.NoError(t, err)
	return tok
}

// asOwner adds a valid owner session cookie to req.
func asOwner(t *testing.T, req *http.Request) *http.Request {
	req.AddCookie(&http.Cookie{Name: common.AccessTokenCookieName, Value: token(t, ownerID, time.Minute)})
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func cookieValue(rec *httptest.ResponseRecorder, name string) (string, bool) {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}
