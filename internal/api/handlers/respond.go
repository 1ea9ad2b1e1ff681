package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/wonny/acr/internal/contracts"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// queryDate parses a required YYYY-MM-DD query parameter
func queryDate(r *http.Request, name string) (time.Time, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return time.Time{}, false
	}
	d, err := contracts.ParseDate(v)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// queryIDs splits ?ids=a,b,c
func queryIDs(r *http.Request) []string {
	var ids []string
	for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
