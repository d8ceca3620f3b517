package models

import "time"

// EducationEntry is one line of the owner's education history. The slice
// order on Profile is the display order.
type EducationEntry struct {
	ID          string `json:"id"`
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	Dates       string `json:"dates"`
}

// Complete reports whether every text field is filled in.
func (e EducationEntry) Complete() bool {
	return e.Degree != "" && e.Institution != "" && e.Dates != ""
}

// Profile is the singleton record describing the site owner, keyed by the
// owner id in the user_profiles collection.
type Profile struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Role           string           `json:"role"`
	Introduction   string           `json:"introduction"`
	ProfilePicture string           `json:"profilePicture,omitempty"`
	Education      []EducationEntry `json:"education,omitempty"`
	Passions       string           `json:"passions,omitempty"`
	GithubLink     string           `json:"githubLink,omitempty"`
	LinkedinLink   string           `json:"linkedinLink,omitempty"`
	TwitterLink    string           `json:"twitterLink,omitempty"`
	InstagramLink  string           `json:"instagramLink,omitempty"`
	CVLink         string           `json:"cvLink,omitempty"`
	Email          string           `json:"email,omitempty"`
	CreatedAt      time.Time        `json:"createdAt,omitzero"`
	UpdatedAt      time.Time        `json:"updatedAt,omitzero"`
}
