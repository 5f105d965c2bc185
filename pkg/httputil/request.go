package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// MaxBodySize bounds request bodies parsed by ParseJSON.
const MaxBodySize = 1 << 20 // 1MB

// ParseJSON decodes JSON from the request body into the destination
func ParseJSON(r *http.Request, dest interface{}) error {
	body := http.MaxBytesReader(nil, r.Body, MaxBodySize)
	if err := json.NewDecoder(body).Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// ParseJSONOrError decodes JSON and writes error response on failure
func ParseJSONOrError(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := ParseJSON(r, dest); err != nil {
		WriteBadRequest(w, err.Error())
		return false
	}
	return true
}
