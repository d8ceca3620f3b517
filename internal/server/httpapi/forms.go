package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/portfolio/internal/server/images"
	"github.com/dmitrijs2005/portfolio/internal/server/models"
	"github.com/dmitrijs2005/portfolio/internal/server/services"
)

// maxFormSize bounds a whole form submission: one image plus the text fields.
const maxFormSize = images.MaxUploadSize + 1<<20

var errFormTooLarge = errors.New("form too large")

func isJSON(r *http.Request) bool {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return ct == "application/json"
}

// parseForm reads a urlencoded or multipart body.
func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var err error
	if ct == "multipart/form-data" {
		err = r.ParseMultipartForm(maxFormSize)
	} else {
		err = r.ParseForm()
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return errFormTooLarge
	}
	return err
}

// formFile returns the uploaded file in field, or nil data when none was
// sent. At most one byte past MaxUploadSize is read so oversize files are
// still reported as such.
func formFile(r *http.Request, field string) (data []byte, contentType, filename string, err error) {
	if r.MultipartForm == nil {
		return nil, "", "", nil
	}
	f, hdr, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, "", "", nil
	}
	if err != nil {
		return nil, "", "", fmt.Errorf("read %s: %w", field, err)
	}
	defer f.Close()

	data, err = io.ReadAll(io.LimitReader(f, images.MaxUploadSize+1))
	if err != nil {
		return nil, "", "", fmt.Errorf("read %s: %w", field, err)
	}
	return data, hdr.Header.Get("Content-Type"), hdr.Filename, nil
}

func projectInputFromForm(r *http.Request, imageURLField string) (services.ProjectInput, error) {
	data, ct, name, err := formFile(r, "imageFile")
	if err != nil {
		return services.ProjectInput{}, err
	}
	return services.ProjectInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		TechStack:   r.FormValue("techStack"),
		LiveLink:    r.FormValue("liveLink"),
		GithubLink:  r.FormValue("githubLink"),
		Image:       services.ResolveImageSource(r.FormValue(imageURLField), data, ct, name),
	}, nil
}

type projectJSON struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	TechStack   []string `json:"techStack"`
	LiveLink    string   `json:"liveLink"`
	GithubLink  string   `json:"githubLink"`
	ImageURL    string   `json:"imageUrl"`
}

// readProjectInput accepts a JSON body (image by URL only) or a form.
func readProjectInput(w http.ResponseWriter, r *http.Request) (services.ProjectInput, error) {
	if isJSON(r) {
		var p projectJSON
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&p); err != nil {
			return services.ProjectInput{}, err
		}
		return services.ProjectInput{
			Title:       p.Title,
			Description: p.Description,
			TechStack:   strings.Join(p.TechStack, ","),
			LiveLink:    p.LiveLink,
			GithubLink:  p.GithubLink,
			Image:       services.ResolveImageSource(p.ImageURL, nil, "", ""),
		}, nil
	}
	if err := parseForm(w, r); err != nil {
		return services.ProjectInput{}, err
	}
	return projectInputFromForm(r, "imageUrl")
}

// projectFromInput echoes a rejected submission back into the form.
func projectFromInput(id string, in services.ProjectInput) models.Project {
	p := models.Project{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		TechStack:   services.SplitTechStack(in.TechStack),
		LiveLink:    in.LiveLink,
		GithubLink:  in.GithubLink,
	}
	if in.Image.IsURL() {
		p.ImageURL = in.Image.URL
	}
	return p
}

func readSkillInput(w http.ResponseWriter, r *http.Request) (services.SkillInput, error) {
	if isJSON(r) {
		var in struct {
			Name string `json:"name"`
			SVG  string `json:"svg"`
			Type string `json:"type"`
		}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&in); err != nil {
			return services.SkillInput{}, err
		}
		return services.SkillInput{Name: in.Name, SVG: in.SVG, Type: in.Type}, nil
	}
	if err := parseForm(w, r); err != nil {
		return services.SkillInput{}, err
	}
	return services.SkillInput{Name: r.FormValue("name"), SVG: r.FormValue("svg"), Type: r.FormValue("type")}, nil
}

// educationFromForm zips the parallel education fields. Rows may be ragged;
// missing cells are blank.
func educationFromForm(r *http.Request) []models.EducationEntry {
	ids := r.Form["educationId"]
	degrees := r.Form["educationDegree"]
	institutions := r.Form["educationInstitution"]
	dates := r.Form["educationDates"]

	n := max(len(ids), len(degrees), len(institutions), len(dates))
	at := func(s []string, i int) string {
		if i < len(s) {
			return s[i]
		}
		return ""
	}
	out := make([]models.EducationEntry, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.EducationEntry{
			ID:          at(ids, i),
			Degree:      at(degrees, i),
			Institution: at(institutions, i),
			Dates:       at(dates, i),
		})
	}
	return out
}

type profileJSON struct {
	Name           string                  `json:"name"`
	Role           string                  `json:"role"`
	Introduction   string                  `json:"introduction"`
	Passions       string                  `json:"passions"`
	GithubLink     string                  `json:"githubLink"`
	LinkedinLink   string                  `json:"linkedinLink"`
	TwitterLink    string                  `json:"twitterLink"`
	InstagramLink  string                  `json:"instagramLink"`
	CVLink         string                  `json:"cvLink"`
	Email          string                  `json:"email"`
	ProfilePicture string                  `json:"profilePicture"`
	RemovePicture  bool                    `json:"removePicture"`
	Education      []models.EducationEntry `json:"education"`
}

func readProfileInput(w http.ResponseWriter, r *http.Request) (services.ProfileInput, error) {
	if isJSON(r) {
		var p profileJSON
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&p); err != nil {
			return services.ProfileInput{}, err
		}
		return services.ProfileInput{
			Name:          p.Name,
			Role:          p.Role,
			Introduction:  p.Introduction,
			Passions:      p.Passions,
			GithubLink:    p.GithubLink,
			LinkedinLink:  p.LinkedinLink,
			TwitterLink:   p.TwitterLink,
			InstagramLink: p.InstagramLink,
			CVLink:        p.CVLink,
			Email:         p.Email,
			Education:     p.Education,
			Picture:       services.ResolveImageSource(p.ProfilePicture, nil, "", ""),
			RemovePicture: p.RemovePicture,
		}, nil
	}

	if err := parseForm(w, r); err != nil {
		return services.ProfileInput{}, err
	}
	data, ct, name, err := formFile(r, "imageFile")
	if err != nil {
		return services.ProfileInput{}, err
	}
	return services.ProfileInput{
		Name:          r.FormValue("name"),
		Role:          r.FormValue("role"),
		Introduction:  r.FormValue("introduction"),
		Passions:      r.FormValue("passions"),
		GithubLink:    r.FormValue("githubLink"),
		LinkedinLink:  r.FormValue("linkedinLink"),
		TwitterLink:   r.FormValue("twitterLink"),
		InstagramLink: r.FormValue("instagramLink"),
		CVLink:        r.FormValue("cvLink"),
		Email:         r.FormValue("email"),
		Education:     educationFromForm(r),
		Picture:       services.ResolveImageSource(r.FormValue("profilePicture"), data, ct, name),
		RemovePicture: r.FormValue("removePicture") != "",
	}, nil
}

// profileFromInput echoes a rejected profile submission back into the form.
func profileFromInput(in services.ProfileInput, current string) models.Profile {
	p := models.Profile{
		Name:           in.Name,
		Role:           in.Role,
		Introduction:   in.Introduction,
		Passions:       in.Passions,
		GithubLink:     in.GithubLink,
		LinkedinLink:   in.LinkedinLink,
		TwitterLink:    in.TwitterLink,
		InstagramLink:  in.InstagramLink,
		CVLink:         in.CVLink,
		Email:          in.Email,
		Education:      in.Education,
		ProfilePicture: current,
	}
	return p
}

// tooLargeResult reports an oversize form the way an oversize image is.
func tooLargeResult(field string) services.Result {
	return services.Result{
		Message: "Please check your input.",
		Errors:  map[string][]string{field: {images.Message(images.ErrTooLarge)}},
		Kind:    services.ValidationFailure,
	}
}
