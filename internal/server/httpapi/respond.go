package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/dmitrijs2005/portfolio/internal/server/services"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// resultStatus maps a form Result to an HTTP status.
func resultStatus(res services.Result, created bool) int {
	switch res.Kind {
	case services.ValidationFailure:
		return http.StatusUnprocessableEntity
	case services.UploadFailure:
		return http.StatusBadGateway
	case services.NotFoundFailure:
		return http.StatusNotFound
	case services.PersistenceFailure:
		return http.StatusInternalServerError
	}
	if created {
		return http.StatusCreated
	}
	return http.StatusOK
}
