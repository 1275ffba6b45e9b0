package http

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/devlens/devlens/pkg/apperror"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	appErr := apperror.MapError(err)
	writeJSON(w, appErr.Status, errorBody{Code: appErr.Code, Message: appErr.Message})
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusUnauthorized, errorBody{Code: "UNAUTHORIZED", Message: message})
}
