package services

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/portfolio/internal/logging"
	"github.com/dmitrijs2005/portfolio/internal/server/gateway"
	"github.com/dmitrijs2005/portfolio/internal/server/models"
)

// ProjectInput is a submitted project form. TechStack is the raw
// comma-separated text.
type ProjectInput struct {
	Title       string
	Description string
	TechStack   string
	LiveLink    string
	GithubLink  string
	Image       ImageSource
}

type ProjectService struct {
	store Store
	reval Revalidator
	log   logging.Logger
}

func NewProjectService(store Store, reval Revalidator, log logging.Logger) *ProjectService {
	return &ProjectService{store: store, reval: reval, log: log.With("module", "projects")}
}

// validate checks in. previousImage is the stored image URL on updates.
func (s *ProjectService) validate(in ProjectInput, previousImage string) (fieldErrors, string) {
	errs := fieldErrors{}
	errs.required("title", in.Title, "Title is required")
	errs.required("description", in.Description, "Description is required")
	if len(SplitTechStack(in.TechStack)) == 0 {
		errs.add("techStack", "Tech stack is required")
	}
	errs.optionalURL("liveLink", strings.TrimSpace(in.LiveLink))
	errs.optionalURL("githubLink", strings.TrimSpace(in.GithubLink))

	contentType := errs.checkImage(in.Image, "imageUrl", "imageFile")
	if in.Image.IsUnspecified() && previousImage == "" {
		errs.add("imageUrl", "Either an image URL or an image file must be provided.")
	}
	return errs, contentType
}

// resolveImage uploads the file when there is one and returns the image URL
// to store: uploaded, else supplied, else previous.
func (s *ProjectService) resolveImage(ctx context.Context, in ProjectInput, contentType, previous string) (url string, uploaded bool, err error) {
	switch {
	case in.Image.IsUpload():
		url, err = s.store.UploadBlob(ctx, "projects", in.Image.Data, contentType, in.Image.Filename)
		return url, err == nil, err
	case in.Image.IsURL():
		return in.Image.URL, false, nil
	default:
		return previous, false, nil
	}
}

func (s *ProjectService) fields(in ProjectInput, imageURL string) gateway.Fields {
	f := gateway.Fields{
		"title":       strings.TrimSpace(in.Title),
		"description": strings.TrimSpace(in.Description),
		"techStack":   SplitTechStack(in.TechStack),
		"imageUrl":    imageURL,
	}
	for k, v := range map[string]string{"liveLink": in.LiveLink, "githubLink": in.GithubLink} {
		if v = strings.TrimSpace(v); v != "" {
			f[k] = v
		} else {
			f[k] = gateway.DeleteField
		}
	}
	return f
}

func (s *ProjectService) Create(ctx context.Context, in ProjectInput) Result {
	errs, contentType := s.validate(in, "")
	if len(errs) > 0 {
		return invalid(msgCheckInput, errs)
	}

	imageURL, uploaded, err := s.resolveImage(ctx, in, contentType, "")
	if err != nil {
		s.log.Error(ctx, "project image upload failed", "error", err)
		return uploadFailed()
	}

	id, err := s.store.Create(ctx, models.CollectionProjects, s.fields(in, imageURL))
	if err != nil {
		s.log.Error(ctx, "project create failed", "error", err)
		if uploaded {
			cleanupBlob(ctx, s.store, s.log, imageURL)
		}
		return persistenceFailed("add", "project")
	}

	s.reval.Revalidate(ctx, ProjectPaths...)
	s.log.Info(ctx, "project created", "id", id, "upload", uploaded)
	return succeeded("Project added successfully!", id)
}

func (s *ProjectService) Update(ctx context.Context, id string, in ProjectInput) Result {
	current, res, ok := s.load(ctx, id, "update")
	if !ok {
		return res
	}

	errs, contentType := s.validate(in, current.ImageURL)
	if len(errs) > 0 {
		return invalid(msgCheckInput, errs)
	}

	imageURL, uploaded, err := s.resolveImage(ctx, in, contentType, current.ImageURL)
	if err != nil {
		s.log.Error(ctx, "project image upload failed", "id", id, "error", err)
		return uploadFailed()
	}

	if err := s.store.Update(ctx, models.CollectionProjects, id, s.fields(in, imageURL)); err != nil {
		if uploaded {
			cleanupBlob(ctx, s.store, s.log, imageURL)
		}
		if gateway.IsNotFound(err) {
			return notFound("Project")
		}
		s.log.Error(ctx, "project update failed", "id", id, "error", err)
		return persistenceFailed("update", "project")
	}

	if current.ImageURL != "" && current.ImageURL != imageURL {
		cleanupBlob(ctx, s.store, s.log, current.ImageURL)
	}

	s.reval.Revalidate(ctx, ProjectPaths...)
	s.log.Info(ctx, "project updated", "id", id, "upload", uploaded)
	return succeeded("Project updated successfully!", id)
}

// Delete removes the project record, then its image if the blob store
// manages it. Image cleanup failures do not change the result.
func (s *ProjectService) Delete(ctx context.Context, id string) Result {
	current, res, ok := s.load(ctx, id, "delete")
	if !ok {
		return res
	}

	if err := s.store.Delete(ctx, models.CollectionProjects, id); err != nil {
		if gateway.IsNotFound(err) {
			return notFound("Project")
		}
		s.log.Error(ctx, "project delete failed", "id", id, "error", err)
		return persistenceFailed("delete", "project")
	}

	cleanupBlob(ctx, s.store, s.log, current.ImageURL)

	s.reval.Revalidate(ctx, ProjectPaths...)
	s.log.Info(ctx, "project deleted", "id", id)
	return succeeded("Project deleted successfully!", id)
}

// Get returns the project for the edit form.
func (s *ProjectService) Get(ctx context.Context, id string) (models.Project, error) {
	d, err := s.store.Get(ctx, models.CollectionProjects, id)
	if err != nil {
		return models.Project{}, err
	}
	return models.Decode[models.Project](d)
}

func (s *ProjectService) load(ctx context.Context, id, op string) (models.Project, Result, bool) {
	p, err := s.Get(ctx, id)
	if err != nil {
		if gateway.IsNotFound(err) {
			return p, notFound("Project"), false
		}
		s.log.Error(ctx, "project lookup failed", "id", id, "error", err)
		return p, persistenceFailed(op, "project"), false
	}
	return p, Result{}, true
}
