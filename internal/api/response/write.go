package response

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/mcoot/gamehub/internal/framing"
)

// Frame writes a response as one framed JSON message
func Frame(w io.Writer, data any) error {
	return framing.SendJSON(w, data)
}

// JSON writes a JSON response
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}
