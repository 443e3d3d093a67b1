package httpapi

import (
	"encoding/json"
	"net/http"
)

// openaiErrorBody is the OpenAI-compatible error envelope:
//
//	{"error": {"message": "...", "type": "...", "code": null}}
type openaiErrorBody struct {
	Error openaiErrorDetail `json:"error"`
}

type openaiErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

func writeOpenAIError(w http.ResponseWriter, msg, errType string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(openaiErrorBody{
		Error: openaiErrorDetail{
			Message: msg,
			Type:    errType,
			Code:    nil,
		},
	})
}

// NotFoundHandler serves the JSON 404 for unknown route/method combinations.
func NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(openaiErrorBody{
			Error: openaiErrorDetail{
				Message: "unknown route: " + r.Method + " " + r.URL.Path,
				Type:    "not_found",
				Code:    http.StatusNotFound,
			},
		})
	}
}
