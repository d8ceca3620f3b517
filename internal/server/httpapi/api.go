package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/portfolio/internal/common"
	"github.com/dmitrijs2005/portfolio/internal/server/auth"
	"github.com/dmitrijs2005/portfolio/internal/server/gateway"
	"github.com/dmitrijs2005/portfolio/internal/server/services"
	"github.com/go-chi/chi/v5"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) apiLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pair, err := s.sessions.Login(r.Context(), clientKey(r), req.Email, req.Password)
	if err != nil {
		status, msg := loginFailure(err)
		if status == http.StatusInternalServerError {
			s.logger.Error(r.Context(), "login failed", "error", err)
		}
		writeError(w, status, msg)
		return
	}
	s.setSessionCookies(w, pair)
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

// apiRefresh rotates the refresh token from the body or the session cookie.
func (s *Server) apiRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if r.ContentLength != 0 {
		_ = json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req)
	}
	token := req.RefreshToken
	if token == "" {
		token = refreshToken(r)
	}
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing refresh token")
		return
	}

	pair, err := s.sessions.RefreshToken(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrRefreshTokenExpired):
			s.clearSessionCookies(w)
			writeError(w, http.StatusUnauthorized, "session expired")
			return
		case errors.Is(err, common.ErrorNotFound):
			writeError(w, http.StatusUnauthorized, "session expired")
			return
		}
		s.logger.Error(r.Context(), "refresh failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.setSessionCookies(w, pair)
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (s *Server) apiLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.SignOut(r.Context(), refreshToken(r)); err != nil {
		s.logger.Warn(r.Context(), "sign-out failed", "error", err)
	}
	s.clearSessionCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) apiLogoutEverywhere(w http.ResponseWriter, r *http.Request) {
	n, err := s.sessions.SignOutEverywhere(r.Context(), auth.IdentityFrom(r.Context()).UserID)
	if err != nil {
		s.logger.Error(r.Context(), "sign-out everywhere failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.clearSessionCookies(w)
	writeJSON(w, http.StatusOK, map[string]int64{"revoked": n})
}

func (s *Server) writeResult(w http.ResponseWriter, res services.Result, created bool) {
	writeJSON(w, resultStatus(res, created), res)
}

func (s *Server) writeLoadError(w http.ResponseWriter, r *http.Request, err error, entity string) {
	if gateway.IsNotFound(err) {
		writeError(w, http.StatusNotFound, entity+" not found.")
		return
	}
	s.logger.Error(r.Context(), "load failed", "entity", entity, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

// --- projects ---

func (s *Server) apiProjectCreate(w http.ResponseWriter, r *http.Request) {
	in, err := readProjectInput(w, r)
	if err != nil {
		s.writeResult(w, formError(err, "imageFile"), false)
		return
	}
	s.writeResult(w, s.projects.Create(r.Context(), in), true)
}

func (s *Server) apiProjectGet(w http.ResponseWriter, r *http.Request) {
	p, err := s.projects.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeLoadError(w, r, err, "Project")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) apiProjectUpdate(w http.ResponseWriter, r *http.Request) {
	in, err := readProjectInput(w, r)
	if err != nil {
		s.writeResult(w, formError(err, "imageFile"), false)
		return
	}
	s.writeResult(w, s.projects.Update(r.Context(), chi.URLParam(r, "id"), in), false)
}

func (s *Server) apiProjectDelete(w http.ResponseWriter, r *http.Request) {
	s.writeResult(w, s.projects.Delete(r.Context(), chi.URLParam(r, "id")), false)
}

// --- skills ---

func (s *Server) apiSkillCreate(w http.ResponseWriter, r *http.Request) {
	in, err := readSkillInput(w, r)
	if err != nil {
		s.writeResult(w, formError(err, "svg"), false)
		return
	}
	s.writeResult(w, s.skills.Create(r.Context(), in), true)
}

func (s *Server) apiSkillGet(w http.ResponseWriter, r *http.Request) {
	sk, err := s.skills.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeLoadError(w, r, err, "Skill")
		return
	}
	writeJSON(w, http.StatusOK, sk)
}

func (s *Server) apiSkillUpdate(w http.ResponseWriter, r *http.Request) {
	in, err := readSkillInput(w, r)
	if err != nil {
		s.writeResult(w, formError(err, "svg"), false)
		return
	}
	s.writeResult(w, s.skills.Update(r.Context(), chi.URLParam(r, "id"), in), false)
}

func (s *Server) apiSkillDelete(w http.ResponseWriter, r *http.Request) {
	s.writeResult(w, s.skills.Delete(r.Context(), chi.URLParam(r, "id")), false)
}

// --- profile ---

func (s *Server) apiProfileGet(w http.ResponseWriter, r *http.Request) {
	p, found, err := s.profile.Get(r.Context())
	if err != nil {
		s.logger.Error(r.Context(), "profile load failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "Profile not found.")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) apiProfileSave(w http.ResponseWriter, r *http.Request) {
	in, err := readProfileInput(w, r)
	if err != nil {
		s.writeResult(w, formError(err, "imageFile"), false)
		return
	}
	s.writeResult(w, s.profile.Save(r.Context(), in), false)
}

// --- cv ---

func (s *Server) apiCVRefine(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CVText string `json:"cvText"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, services.CVResult{Error: "Invalid request body."})
		return
	}
	res := s.cv.Refine(r.Context(), req.CVText)
	status := http.StatusOK
	switch {
	case res.Success:
	case strings.TrimSpace(req.CVText) == "":
		status = http.StatusBadRequest
	case !s.cv.Available():
		status = http.StatusServiceUnavailable
	default:
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, res)
}
