package models

import "time"

// SkillType is the category a skill is listed under.
type SkillType string

const (
	SkillTech    SkillType = "tech"
	SkillNonTech SkillType = "non-tech"
)

// Valid reports whether t is one of the two categories.
func (t SkillType) Valid() bool {
	return t == SkillTech || t == SkillNonTech
}

// Skill is one listed competency. SVG holds inline vector markup rendered as
// the skill's icon.
type Skill struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SVG       string    `json:"svg"`
	Type      SkillType `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
}
