// Package json centralizes request decoding and response encoding for the
// REST surface. Error responses use the {"Error": "..."} envelope the
// browser client expects.
package json

import (
	"encoding/json"
	"net/http"
)

const maxBodyBytes = 1 << 20 // 1MB

type errorResponse struct {
	Error string `json:"Error"`
}

func Read(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)

	decoder := json.NewDecoder(r.Body)
	return decoder.Decode(dst)
}

func Write(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes the user-facing message; err stays server-side for the
// caller to log.
func WriteError(w http.ResponseWriter, status int, err error, message string) {
	_ = err
	_ = Write(w, status, errorResponse{Error: message})
}

func WriteBadRequestError(w http.ResponseWriter, message string) {
	_ = Write(w, http.StatusBadRequest, errorResponse{Error: message})
}

func WriteValidationError(w http.ResponseWriter, err error) {
	_ = Write(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func WriteInternalError(w http.ResponseWriter, err error) {
	WriteError(w, http.StatusInternalServerError, err, "Database internal error.")
}
