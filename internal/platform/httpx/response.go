package httpx

import (
	"net/http"
)

// Envelope is the success body shared by every JSON endpoint.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// WriteSuccess renders data inside the success envelope. Extra fields are merged next to data.
func WriteSuccess(w http.ResponseWriter, status int, data any, message string, extra ...map[string]any) {
	if status == 0 {
		status = http.StatusOK
	}
	if len(extra) == 0 {
		writeJSON(w, status, Envelope{StatusCode: status, Data: data, Message: message, Success: true})
		return
	}
	payload := map[string]any{}
	for _, fields := range extra {
		for k, v := range fields {
			payload[k] = v
		}
	}
	payload["statusCode"] = status
	payload["data"] = data
	payload["message"] = message
	payload["success"] = true
	writeJSON(w, status, payload)
}

// WriteText writes a raw body with the given content type, e.g. sitemap XML or robots.txt.
func WriteText(w http.ResponseWriter, status int, contentType string, body []byte) {
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
