// Package models defines the records persisted by the portfolio server.
package models

import (
	"encoding/json"
	"time"
)

// Collection names. Each is an independent set of documents.
const (
	CollectionProfiles = "user_profiles"
	CollectionProjects = "projects"
	CollectionSkills   = "skills"
)

// Document is one schemaless record of a collection. Data holds the JSON
// object of the record's fields; identity and creation time live beside it.
type Document struct {
	Collection string
	ID         string
	Data       json.RawMessage
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Decode unmarshals d into a T, exposing the document's id and timestamps
// under the "id", "createdAt" and "updatedAt" keys so entity structs can tag
// them normally.
func Decode[T any](d *Document) (T, error) {
	var out T

	fields := map[string]any{}
	if len(d.Data) > 0 {
		if err := json.Unmarshal(d.Data, &fields); err != nil {
			return out, err
		}
	}
	fields["id"] = d.ID
	if !d.CreatedAt.IsZero() {
		fields["createdAt"] = d.CreatedAt
	}
	if !d.UpdatedAt.IsZero() {
		fields["updatedAt"] = d.UpdatedAt
	}

	b, err := json.Marshal(fields)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(b, &out)
	return out, err
}

// DecodeAll decodes every document in docs, keeping their order.
func DecodeAll[T any](docs []*Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		v, err := Decode[T](d)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
