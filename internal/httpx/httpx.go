package httpx

import (
	"encoding/json"
	"net/http"
)

// APIError is the body of handler errors.
type APIError struct {
	Error string `json:"error"`
}

// APIMessage is the body of authentication failures.
type APIMessage struct {
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, code int, msg string) {
	WriteJSON(w, code, APIError{Error: msg})
}

func WriteMessage(w http.ResponseWriter, code int, msg string) {
	WriteJSON(w, code, APIMessage{Message: msg})
}
