package models

import "time"

// Project is one public portfolio item.
type Project struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	TechStack   []string  `json:"techStack"`
	LiveLink    string    `json:"liveLink,omitempty"`
	GithubLink  string    `json:"githubLink,omitempty"`
	ImageURL    string    `json:"imageUrl"`
	CreatedAt   time.Time `json:"createdAt"`
}
