package services

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/portfolio/internal/logging"
	"github.com/dmitrijs2005/portfolio/internal/server/gateway"
	"github.com/dmitrijs2005/portfolio/internal/server/models"
)

type SkillInput struct {
	Name string
	SVG  string
	Type string
}

type SkillService struct {
	store Store
	reval Revalidator
	log   logging.Logger
}

func NewSkillService(store Store, reval Revalidator, log logging.Logger) *SkillService {
	return &SkillService{store: store, reval: reval, log: log.With("module", "skills")}
}

const msgSkillRequired = "Name, SVG Icon, and Type are required."

// looksLikeSVG reports whether s holds an inline <svg> element.
func looksLikeSVG(s string) bool {
	l := strings.ToLower(strings.TrimSpace(s))
	open := strings.Index(l, "<svg")
	return open >= 0 && strings.LastIndex(l, "</svg>") > open
}

func (s *SkillService) validate(in SkillInput) (fieldErrors, string) {
	errs := fieldErrors{}
	errs.required("name", in.Name, "Name is required")
	errs.required("svg", in.SVG, "SVG Icon is required")
	errs.required("type", in.Type, "Type is required")
	if len(errs) > 0 {
		return errs, msgSkillRequired
	}

	if !looksLikeSVG(in.SVG) {
		errs.add("svg", "SVG Icon must be inline <svg> markup")
	}
	if !models.SkillType(in.Type).Valid() {
		errs.add("type", "Type must be tech or non-tech")
	}
	return errs, msgCheckInput
}

func (s *SkillService) fields(in SkillInput) gateway.Fields {
	return gateway.Fields{
		"name": strings.TrimSpace(in.Name),
		"svg":  strings.TrimSpace(in.SVG),
		"type": in.Type,
	}
}

func (s *SkillService) Create(ctx context.Context, in SkillInput) Result {
	if errs, msg := s.validate(in); len(errs) > 0 {
		return invalid(msg, errs)
	}

	id, err := s.store.Create(ctx, models.CollectionSkills, s.fields(in))
	if err != nil {
		s.log.Error(ctx, "skill create failed", "error", err)
		return persistenceFailed("add", "skill")
	}

	s.reval.Revalidate(ctx, SkillPaths...)
	s.log.Info(ctx, "skill created", "id", id)
	return succeeded("Skill added successfully!", id)
}

func (s *SkillService) Update(ctx context.Context, id string, in SkillInput) Result {
	if strings.TrimSpace(id) == "" {
		return invalid("Skill ID, Name, SVG Icon, and Type are required.", fieldErrors{"skillId": {"Skill ID is required"}})
	}
	if errs, msg := s.validate(in); len(errs) > 0 {
		return invalid(msg, errs)
	}

	if err := s.store.Update(ctx, models.CollectionSkills, id, s.fields(in)); err != nil {
		if gateway.IsNotFound(err) {
			return notFound("Skill")
		}
		s.log.Error(ctx, "skill update failed", "id", id, "error", err)
		return persistenceFailed("update", "skill")
	}

	s.reval.Revalidate(ctx, SkillPaths...)
	return succeeded("Skill updated successfully!", id)
}

func (s *SkillService) Delete(ctx context.Context, id string) Result {
	if err := s.store.Delete(ctx, models.CollectionSkills, id); err != nil {
		if gateway.IsNotFound(err) {
			return notFound("Skill")
		}
		s.log.Error(ctx, "skill delete failed", "id", id, "error", err)
		return persistenceFailed("delete", "skill")
	}

	s.reval.Revalidate(ctx, SkillPaths...)
	return succeeded("Skill deleted successfully!", id)
}

func (s *SkillService) Get(ctx context.Context, id string) (models.Skill, error) {
	d, err := s.store.Get(ctx, models.CollectionSkills, id)
	if err != nil {
		return models.Skill{}, err
	}
	return models.Decode[models.Skill](d)
}
