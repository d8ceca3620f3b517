package services

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/portfolio/internal/logging"
	"github.com/dmitrijs2005/portfolio/internal/server/gateway"
	"github.com/dmitrijs2005/portfolio/internal/server/models"
	"github.com/google/uuid"
)

// ProfileInput is a submitted profile form. Picture follows the usual image
// precedence; RemovePicture clears the stored picture when no new one is given.
type ProfileInput struct {
	Name          string
	Role          string
	Introduction  string
	Passions      string
	GithubLink    string
	LinkedinLink  string
	TwitterLink   string
	InstagramLink string
	CVLink        string
	Email         string
	Education     []models.EducationEntry
	Picture       ImageSource
	RemovePicture bool
}

// ProfileService saves the owner's profile singleton.
type ProfileService struct {
	store   Store
	reval   Revalidator
	log     logging.Logger
	ownerID string
}

func NewProfileService(store Store, reval Revalidator, log logging.Logger, ownerID string) *ProfileService {
	return &ProfileService{store: store, reval: reval, log: log.With("module", "profile"), ownerID: ownerID}
}

// NormalizeEducation drops entries with a blank field, trims the rest and
// makes ids unique, assigning fresh ones where missing or repeated.
func NormalizeEducation(in []models.EducationEntry) []models.EducationEntry {
	out := make([]models.EducationEntry, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, e := range in {
		e.Degree = strings.TrimSpace(e.Degree)
		e.Institution = strings.TrimSpace(e.Institution)
		e.Dates = strings.TrimSpace(e.Dates)
		if !e.Complete() {
			continue
		}
		e.ID = strings.TrimSpace(e.ID)
		if e.ID == "" || seen[e.ID] {
			e.ID = uuid.NewString()
		}
		seen[e.ID] = true
		out = append(out, e)
	}
	return out
}

func (s *ProfileService) links(in ProfileInput) map[string]string {
	return map[string]string{
		"githubLink":    strings.TrimSpace(in.GithubLink),
		"linkedinLink":  strings.TrimSpace(in.LinkedinLink),
		"twitterLink":   strings.TrimSpace(in.TwitterLink),
		"instagramLink": strings.TrimSpace(in.InstagramLink),
		"cvLink":        strings.TrimSpace(in.CVLink),
	}
}

// Get returns the stored profile. found is false when none was saved yet.
func (s *ProfileService) Get(ctx context.Context) (p models.Profile, found bool, err error) {
	d, err := s.store.Get(ctx, models.CollectionProfiles, s.ownerID)
	if err != nil {
		if gateway.IsNotFound(err) {
			return models.Profile{}, false, nil
		}
		return models.Profile{}, false, err
	}
	p, err = models.Decode[models.Profile](d)
	return p, err == nil, err
}

// Save creates or merges the profile. Empty optional fields are cleared.
func (s *ProfileService) Save(ctx context.Context, in ProfileInput) Result {
	errs := fieldErrors{}
	errs.required("name", in.Name, "Name is required")
	errs.required("role", in.Role, "Role is required")
	errs.required("introduction", in.Introduction, "Introduction is required")
	if len(errs) > 0 {
		return invalid("Name, Role, and Introduction are required.", errs)
	}

	links := s.links(in)
	for field, v := range links {
		errs.optionalURL(field, v)
	}
	email := strings.TrimSpace(in.Email)
	errs.optionalEmail("email", email)
	contentType := errs.checkImage(in.Picture, "profilePicture", "imageFile")
	if len(errs) > 0 {
		return invalid(msgCheckInput, errs)
	}

	// A missing profile reads as empty; other read failures abort before any write.
	current, _, err := s.Get(ctx)
	if err != nil {
		s.log.Error(ctx, "reading current profile failed", "error", err)
		return persistenceFailed("update", "profile")
	}

	picture := current.ProfilePicture
	uploaded := false
	switch {
	case in.Picture.IsUpload():
		picture, err = s.store.UploadBlob(ctx, "profile", in.Picture.Data, contentType, in.Picture.Filename)
		if err != nil {
			s.log.Error(ctx, "profile picture upload failed", "error", err)
			return uploadFailed()
		}
		uploaded = true
	case in.Picture.IsURL():
		picture = in.Picture.URL
	case in.RemovePicture:
		picture = ""
	}

	fields := gateway.Fields{
		"name":         strings.TrimSpace(in.Name),
		"role":         strings.TrimSpace(in.Role),
		"introduction": strings.TrimSpace(in.Introduction),
		"education":    NormalizeEducation(in.Education),
	}
	optional := map[string]string{"passions": strings.TrimSpace(in.Passions), "profilePicture": picture, "email": email}
	for k, v := range links {
		optional[k] = v
	}
	for k, v := range optional {
		if v == "" {
			fields[k] = gateway.DeleteField
		} else {
			fields[k] = v
		}
	}

	if err := s.store.UpsertMerge(ctx, models.CollectionProfiles, s.ownerID, fields); err != nil {
		s.log.Error(ctx, "profile save failed", "error", err)
		if uploaded {
			cleanupBlob(ctx, s.store, s.log, picture)
		}
		return persistenceFailed("update", "profile")
	}

	if current.ProfilePicture != "" && current.ProfilePicture != picture {
		cleanupBlob(ctx, s.store, s.log, current.ProfilePicture)
	}

	s.reval.Revalidate(ctx, ProfilePaths...)
	s.log.Info(ctx, "profile saved", "upload", uploaded)
	return succeeded("Profile updated successfully!", s.ownerID)
}
