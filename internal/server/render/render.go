// Package render builds the public HTML pages from the current profile,
// projects and skills, and the admin panel pages.
package render

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/dmitrijs2005/portfolio/internal/logging"
	"github.com/dmitrijs2005/portfolio/internal/server/gateway"
	"github.com/dmitrijs2005/portfolio/internal/server/models"
	"github.com/dmitrijs2005/portfolio/internal/server/revalidate"
)

//go:embed templates
var templatesFS embed.FS

// Fallbacks shown while no profile has been saved.
const (
	FallbackName         = "Abdus Samad"
	FallbackRole         = "Software Engineer"
	FallbackIntroduction = "Welcome to my portfolio. A proper introduction is on its way."
)

// Public page names, each served at "/<name>" except home at "/".
const (
	PageHome     = "home"
	PageAbout    = "about"
	PageProjects = "projects"
	PageSkills   = "skills"
	PageContact  = "contact"
)

var pagePaths = map[string]string{
	PageHome:     "/",
	PageAbout:    "/about",
	PageProjects: "/projects",
	PageSkills:   "/skills",
	PageContact:  "/contact",
}

// Reader is the read half of the data gateway.
type Reader interface {
	Get(ctx context.Context, collection, id string) (*models.Document, error)
	List(ctx context.Context, collection string, order gateway.Order) ([]*models.Document, error)
}

type Renderer struct {
	store   Reader
	cache   *revalidate.PageCache
	ownerID string
	log     logging.Logger
	public  map[string]*template.Template
	admin   map[string]*template.Template
	now     func() time.Time
}

// New parses the embedded templates. cache may be nil.
func New(store Reader, cache *revalidate.PageCache, ownerID string, log logging.Logger) (*Renderer, error) {
	r := &Renderer{
		store:   store,
		cache:   cache,
		ownerID: ownerID,
		log:     log.With("module", "render"),
		public:  map[string]*template.Template{},
		admin:   map[string]*template.Template{},
		now:     time.Now,
	}

	for page := range pagePaths {
		t, err := template.New("").Funcs(funcs).ParseFS(templatesFS,
			"templates/layout.html", "templates/partials.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", page, err)
		}
		r.public[page] = t
	}

	for _, page := range adminPages {
		t, err := template.New("").Funcs(funcs).ParseFS(templatesFS,
			"templates/admin/layout.html", "templates/admin/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("parse admin %s: %w", page, err)
		}
		r.admin[page] = t
	}
	return r, nil
}

// Link is an optional outbound link. Empty URLs render as an inert label.
type Link struct {
	Label string
	URL   string
}

var funcs = template.FuncMap{
	"link":    func(label, url string) Link { return Link{Label: label, URL: url} },
	"safeSVG": safeSVG,
	"join":    strings.Join,
	"mailto":  func(email string) string { return MailtoHref(email, "", "") },
}

// MailtoHref builds a mailto link to address prefilled with a subject naming
// the sender and the message as body. An empty address yields "".
func MailtoHref(address, name, message string) string {
	if address == "" {
		return ""
	}
	q := []string{}
	if name = strings.TrimSpace(name); name != "" {
		q = append(q, "subject="+mailtoEscape("Contact from Portfolio: "+name))
	}
	if message = strings.TrimSpace(message); message != "" {
		q = append(q, "body="+mailtoEscape(message))
	}
	href := "mailto:" + address
	if len(q) > 0 {
		href += "?" + strings.Join(q, "&")
	}
	return href
}

// mailtoEscape is query escaping with spaces as %20, which mail clients expect.
func mailtoEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// safeSVG marks owner-entered icon markup as trusted HTML. Markup that could
// run script is dropped.
func safeSVG(s string) template.HTML {
	l := strings.ToLower(s)
	if !strings.Contains(l, "<svg") || strings.Contains(l, "<script") ||
		strings.Contains(l, "javascript:") || strings.Contains(l, "<foreignobject") || onAttr.MatchString(l) {
		return ""
	}
	return template.HTML(s)
}

var onAttr = regexp.MustCompile(`\son[a-z]+\s*=`)

// ProfileView is the profile as the pages show it.
type ProfileView struct {
	models.Profile
	Paragraphs []string
	Fallback   bool
}

// PageData feeds every public template.
type PageData struct {
	Page        string
	Profile     ProfileView
	Projects    []models.Project
	ProjectsErr bool
	TechSkills  []models.Skill
	OtherSkills []models.Skill
	SkillsErr   bool
	Notice      string
	Year        int
}

// Paragraphs splits text on line breaks and drops blank lines.
func Paragraphs(text string) []string {
	var out []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if l := strings.TrimSpace(line); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// LoadProfile reads the owner's profile. A missing profile, or one that
// cannot be read, yields the fallback profile.
func (r *Renderer) LoadProfile(ctx context.Context) ProfileView {
	fallback := ProfileView{
		Profile:  models.Profile{ID: r.ownerID, Name: FallbackName, Role: FallbackRole, Introduction: FallbackIntroduction},
		Fallback: true,
	}
	fallback.Paragraphs = Paragraphs(fallback.Introduction)

	d, err := r.store.Get(ctx, models.CollectionProfiles, r.ownerID)
	if err != nil {
		if !gateway.IsNotFound(err) {
			r.log.Warn(ctx, "profile read failed, using fallback", "error", err)
		}
		return fallback
	}
	p, err := models.Decode[models.Profile](d)
	if err != nil {
		r.log.Warn(ctx, "profile decode failed, using fallback", "error", err)
		return fallback
	}
	if p.Name == "" {
		p.Name = FallbackName
	}
	if p.Role == "" {
		p.Role = FallbackRole
	}
	if p.Introduction == "" {
		p.Introduction = FallbackIntroduction
	}
	return ProfileView{Profile: p, Paragraphs: Paragraphs(p.Introduction)}
}

func (r *Renderer) loadProjects(ctx context.Context) ([]models.Project, bool) {
	docs, err := r.store.List(ctx, models.CollectionProjects, gateway.NewestFirst)
	if err != nil {
		r.log.Warn(ctx, "projects read failed", "error", err)
		return nil, false
	}
	items, err := models.DecodeAll[models.Project](docs)
	if err != nil {
		r.log.Warn(ctx, "projects decode failed", "error", err)
		return nil, false
	}
	return items, true
}

// loadSkills returns technical and other skills.
func (r *Renderer) loadSkills(ctx context.Context) ([]models.Skill, []models.Skill, bool) {
	docs, err := r.store.List(ctx, models.CollectionSkills, gateway.NewestFirst)
	if err != nil {
		r.log.Warn(ctx, "skills read failed", "error", err)
		return nil, nil, false
	}
	items, err := models.DecodeAll[models.Skill](docs)
	if err != nil {
		r.log.Warn(ctx, "skills decode failed", "error", err)
		return nil, nil, false
	}
	var tech, other []models.Skill
	for _, s := range items {
		if s.Type == models.SkillTech {
			tech = append(tech, s)
		} else {
			other = append(other, s)
		}
	}
	return tech, other, true
}

// Data gathers what page needs. Only the collections the page shows are read.
func (r *Renderer) Data(ctx context.Context, page string) PageData {
	d := PageData{Page: page, Year: r.now().Year()}
	d.Profile = r.LoadProfile(ctx)

	if page == PageHome || page == PageProjects {
		var ok bool
		d.Projects, ok = r.loadProjects(ctx)
		d.ProjectsErr = !ok
	}
	if page == PageHome || page == PageSkills {
		var ok bool
		d.TechSkills, d.OtherSkills, ok = r.loadSkills(ctx)
		d.SkillsErr = !ok
	}
	return d
}

// Page renders a public page. Pages without a notice are served from and
// stored in the page cache; pages with read errors are not cached.
func (r *Renderer) Page(ctx context.Context, page, notice string) ([]byte, error) {
	t, ok := r.public[page]
	if !ok {
		return nil, fmt.Errorf("unknown page %q", page)
	}
	path := pagePaths[page]

	var gen uint64
	if notice == "" && r.cache != nil {
		if b, ok := r.cache.Get(path); ok {
			return b, nil
		}
		gen = r.cache.Generation(path)
	}

	data := r.Data(ctx, page)
	data.Notice = notice

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return nil, fmt.Errorf("render %s: %w", page, err)
	}

	if notice == "" && r.cache != nil && !data.ProjectsErr && !data.SkillsErr {
		r.cache.Set(path, gen, buf.Bytes())
	}
	return buf.Bytes(), nil
}

// Admin pages.
const (
	AdminLogin     = "login"
	AdminDashboard = "dashboard"
	AdminProjects  = "projects"
	AdminProject   = "project"
	AdminSkills    = "skills"
	AdminSkill     = "skill"
	AdminAbout     = "about"
	AdminCV        = "cv"
)

var adminPages = []string{AdminLogin, AdminDashboard, AdminProjects, AdminProject, AdminSkills, AdminSkill, AdminAbout, AdminCV}

// AdminData feeds the admin templates. Form carries the entity being edited
// and Result the outcome of the last submission.
type AdminData struct {
	Title   string
	Flash   string
	Error   string
	Errors  map[string][]string
	Form    any
	Profile ProfileView
	Extra   map[string]any
}

// Admin writes an admin page to w.
func (r *Renderer) Admin(w io.Writer, page string, data AdminData) error {
	t, ok := r.admin[page]
	if !ok {
		return fmt.Errorf("unknown admin page %q", page)
	}
	return t.ExecuteTemplate(w, "layout", data)
}
