package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/portfolio/internal/common"
	"github.com/dmitrijs2005/portfolio/internal/server/render"
)

// knownNotices are the notice keys a public page will display. Anything else
// in the query is ignored so arbitrary values cannot bypass the page cache.
var knownNotices = map[string]bool{common.NoticeNotAuthorized: true}

// contactMessage turns the contact form into a mailto link for the visitor's
// mail client. Without a contact address it goes back to the contact page.
func (s *Server) contactMessage(w http.ResponseWriter, r *http.Request) {
	profile := s.pages.LoadProfile(r.Context())
	href := render.MailtoHref(profile.Email, r.URL.Query().Get("name"), r.URL.Query().Get("message"))
	if href == "" {
		http.Redirect(w, r, "/contact", http.StatusSeeOther)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, href, http.StatusSeeOther)
}

func (s *Server) publicPage(page string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		notice := r.URL.Query().Get("notice")
		if !knownNotices[notice] {
			notice = ""
		}

		body, err := s.pages.Page(r.Context(), page, notice)
		if err != nil {
			s.logger.Error(r.Context(), "page render failed", "page", page, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(body)
	}
}
