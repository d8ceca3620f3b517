package httpapi

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/portfolio/internal/common"
	"github.com/dmitrijs2005/portfolio/internal/server/auth"
	"github.com/dmitrijs2005/portfolio/internal/server/gateway"
	"github.com/dmitrijs2005/portfolio/internal/server/models"
	"github.com/dmitrijs2005/portfolio/internal/server/render"
	"github.com/dmitrijs2005/portfolio/internal/server/services"
	"github.com/go-chi/chi/v5"
)

const flashCookieName = "portfolio_flash"

func (s *Server) setFlash(w http.ResponseWriter, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    url.QueryEscape(msg),
		Path:     "/admin",
		MaxAge:   60,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// takeFlash returns and clears the pending flash message.
func (s *Server) takeFlash(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(flashCookieName)
	if err != nil {
		return ""
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookieName, Path: "/admin", MaxAge: -1})
	msg, err := url.QueryUnescape(c.Value)
	if err != nil {
		return ""
	}
	return msg
}

func (s *Server) renderAdmin(w http.ResponseWriter, r *http.Request, status int, page string, data render.AdminData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := s.pages.Admin(w, page, data); err != nil {
		s.logger.Error(r.Context(), "admin render failed", "page", page, "error", err)
	}
}

// done finishes a successful form submission with a redirect to target.
func (s *Server) done(w http.ResponseWriter, r *http.Request, res services.Result, target string) {
	s.setFlash(w, res.Message)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	if auth.IdentityFrom(r.Context()).State == auth.AuthenticatedOwner {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	s.renderAdmin(w, r, http.StatusOK, render.AdminLogin, render.AdminData{Title: "Sign in", Flash: s.takeFlash(w, r)})
}

func (s *Server) loginSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := parseForm(w, r); err != nil {
		s.renderAdmin(w, r, http.StatusBadRequest, render.AdminLogin, render.AdminData{Title: "Sign in", Error: "Invalid request."})
		return
	}

	pair, err := s.sessions.Login(ctx, clientKey(r), r.FormValue("email"), r.FormValue("password"))
	if err != nil {
		status, msg := loginFailure(err)
		if status == http.StatusInternalServerError {
			s.logger.Error(ctx, "login failed", "error", err)
		}
		s.renderAdmin(w, r, status, render.AdminLogin, render.AdminData{Title: "Sign in", Error: msg})
		return
	}

	s.setSessionCookies(w, pair)
	s.logger.Info(ctx, "signed in")
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func loginFailure(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrTooManyAttempts):
		return http.StatusTooManyRequests, "Too many sign-in attempts. Please wait a minute and try again."
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, "Invalid email or password."
	default:
		return http.StatusInternalServerError, "Sign-in is unavailable right now. Please try again later."
	}
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.SignOut(r.Context(), refreshToken(r)); err != nil {
		s.logger.Warn(r.Context(), "sign-out failed", "error", err)
	}
	s.clearSessionCookies(w)
	http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	s.renderAdmin(w, r, http.StatusOK, render.AdminDashboard, render.AdminData{
		Title:   "Dashboard",
		Flash:   s.takeFlash(w, r),
		Profile: s.pages.LoadProfile(r.Context()),
	})
}

// --- projects ---

func (s *Server) projectsPage(w http.ResponseWriter, r *http.Request) {
	s.renderAdmin(w, r, http.StatusOK, render.AdminProjects, render.AdminData{Title: "Projects", Flash: s.takeFlash(w, r)})
}

func (s *Server) projectCreate(w http.ResponseWriter, r *http.Request) {
	in, err := readProjectInput(w, r)
	if err != nil {
		s.projectFormFailed(w, r, render.AdminProjects, "", in, formError(err, "imageFile"))
		return
	}
	res := s.projects.Create(r.Context(), in)
	if !res.Success {
		s.projectFormFailed(w, r, render.AdminProjects, "", in, res)
		return
	}
	s.done(w, r, res, "/admin/projects")
}

func (s *Server) projectPage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := s.projects.Get(r.Context(), id)
	if err != nil {
		s.entityLoadFailed(w, r, err, "Project", "/admin/projects")
		return
	}
	s.renderAdmin(w, r, http.StatusOK, render.AdminProject, render.AdminData{Title: "Edit project", Flash: s.takeFlash(w, r), Form: p})
}

func (s *Server) projectUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	in, err := readProjectInput(w, r)
	if err != nil {
		s.projectFormFailed(w, r, render.AdminProject, id, in, formError(err, "imageFile"))
		return
	}
	res := s.projects.Update(r.Context(), id, in)
	if !res.Success {
		if res.Kind == services.NotFoundFailure {
			s.setFlash(w, res.Message)
			http.Redirect(w, r, "/admin/projects", http.StatusSeeOther)
			return
		}
		s.projectFormFailed(w, r, render.AdminProject, id, in, res)
		return
	}
	s.done(w, r, res, "/admin/projects/"+url.PathEscape(id))
}

func (s *Server) projectDelete(w http.ResponseWriter, r *http.Request) {
	res := s.projects.Delete(r.Context(), chi.URLParam(r, "id"))
	s.done(w, r, res, "/admin/projects")
}

func (s *Server) projectFormFailed(w http.ResponseWriter, r *http.Request, page, id string, in services.ProjectInput, res services.Result) {
	form := projectFromInput(id, in)
	if id != "" {
		if current, err := s.projects.Get(r.Context(), id); err == nil && form.ImageURL == "" {
			form.ImageURL = current.ImageURL
		}
	}
	title := "Projects"
	if page == render.AdminProject {
		title = "Edit project"
	}
	s.renderAdmin(w, r, resultStatus(res, false), page, render.AdminData{
		Title:  title,
		Error:  res.Message,
		Errors: res.Errors,
		Form:   form,
	})
}

// --- skills ---

func (s *Server) skillsPage(w http.ResponseWriter, r *http.Request) {
	s.renderAdmin(w, r, http.StatusOK, render.AdminSkills, render.AdminData{Title: "Skills", Flash: s.takeFlash(w, r)})
}

func (s *Server) skillCreate(w http.ResponseWriter, r *http.Request) {
	in, err := readSkillInput(w, r)
	res := formError(err, "svg")
	if err == nil {
		res = s.skills.Create(r.Context(), in)
	}
	if !res.Success {
		s.renderAdmin(w, r, resultStatus(res, false), render.AdminSkills, render.AdminData{
			Title: "Skills", Error: res.Message, Errors: res.Errors,
		})
		return
	}
	s.done(w, r, res, "/admin/skills")
}

func (s *Server) skillPage(w http.ResponseWriter, r *http.Request) {
	sk, err := s.skills.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.entityLoadFailed(w, r, err, "Skill", "/admin/skills")
		return
	}
	s.renderAdmin(w, r, http.StatusOK, render.AdminSkill, render.AdminData{Title: "Edit skill", Flash: s.takeFlash(w, r), Form: sk})
}

func (s *Server) skillUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	in, err := readSkillInput(w, r)
	res := formError(err, "svg")
	if err == nil {
		res = s.skills.Update(r.Context(), id, in)
	}
	switch {
	case res.Success:
		s.done(w, r, res, "/admin/skills/"+url.PathEscape(id))
	case res.Kind == services.NotFoundFailure:
		s.done(w, r, res, "/admin/skills")
	default:
		form := models.Skill{ID: id, Name: in.Name, SVG: in.SVG, Type: models.SkillType(in.Type)}
		s.renderAdmin(w, r, resultStatus(res, false), render.AdminSkill, render.AdminData{
			Title: "Edit skill", Error: res.Message, Errors: res.Errors, Form: form,
		})
	}
}

func (s *Server) skillDelete(w http.ResponseWriter, r *http.Request) {
	res := s.skills.Delete(r.Context(), chi.URLParam(r, "id"))
	s.done(w, r, res, "/admin/skills")
}

// --- profile ---

func (s *Server) aboutPage(w http.ResponseWriter, r *http.Request) {
	p, _, err := s.profile.Get(r.Context())
	data := render.AdminData{Title: "Profile", Flash: s.takeFlash(w, r), Profile: render.ProfileView{Profile: p}}
	if err != nil {
		s.logger.Error(r.Context(), "profile load failed", "error", err)
		data.Error = "Failed to load profile. Please try again later."
	}
	s.renderAdmin(w, r, http.StatusOK, render.AdminAbout, data)
}

func (s *Server) aboutSave(w http.ResponseWriter, r *http.Request) {
	in, err := readProfileInput(w, r)
	res := formError(err, "imageFile")
	if err == nil {
		res = s.profile.Save(r.Context(), in)
	}
	if !res.Success {
		current, _, _ := s.profile.Get(r.Context())
		s.renderAdmin(w, r, resultStatus(res, false), render.AdminAbout, render.AdminData{
			Title:   "Profile",
			Error:   res.Message,
			Errors:  res.Errors,
			Profile: render.ProfileView{Profile: profileFromInput(in, current.ProfilePicture)},
		})
		return
	}
	s.done(w, r, res, "/admin/about")
}

// --- cv ---

func (s *Server) cvPage(w http.ResponseWriter, r *http.Request) {
	s.renderAdmin(w, r, http.StatusOK, render.AdminCV, render.AdminData{
		Title: "CV enhancer",
		Extra: map[string]any{"Available": s.cv.Available()},
	})
}

func (s *Server) cvSubmit(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	text := r.FormValue("cvText")
	res := s.cv.Refine(r.Context(), text)

	data := render.AdminData{
		Title: "CV enhancer",
		Extra: map[string]any{"Available": s.cv.Available(), "Input": text},
	}
	status := http.StatusOK
	if res.Success {
		data.Extra["Refined"] = res.Data
	} else {
		data.Error = res.Error
		status = http.StatusUnprocessableEntity
	}
	s.renderAdmin(w, r, status, render.AdminCV, data)
}

// --- helpers ---

func (s *Server) entityLoadFailed(w http.ResponseWriter, r *http.Request, err error, entity, back string) {
	msg := entity + " not found."
	if !gateway.IsNotFound(err) {
		s.logger.Error(r.Context(), "load failed", "entity", entity, "error", err)
		msg = "Failed to load " + entity + ". Please try again later."
	}
	s.setFlash(w, msg)
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// formError turns a body that could not be read into a failed Result.
func formError(err error, imageField string) services.Result {
	if err == nil {
		return services.Result{}
	}
	if errors.Is(err, errFormTooLarge) {
		return tooLargeResult(imageField)
	}
	return services.Result{Message: "Please check your input.", Kind: services.ValidationFailure}
}
