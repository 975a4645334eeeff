package httputil

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
)

// PathParam returns the route variable key. It writes a 400 and returns
// false when the variable is empty.
func PathParam(w http.ResponseWriter, r *http.Request, key string) (string, bool) {
	val := mux.Vars(r)[key]
	if val == "" {
		WriteBadRequest(w, r, "missing path parameter %q", key)
		return "", false
	}
	return val, true
}

// QueryParam returns the query parameter key, or def when it is absent
func QueryParam(r *http.Request, key, def string) string {
	if val := r.URL.Query().Get(key); val != "" {
		return val
	}
	return def
}

// RequiredQueryParam is QueryParam for mandatory parameters; it writes a 400
// when key is absent
func RequiredQueryParam(w http.ResponseWriter, r *http.Request, key string) (string, bool) {
	val := r.URL.Query().Get(key)
	if val == "" {
		WriteBadRequest(w, r, "missing query parameter %q", key)
		return "", false
	}
	return val, true
}

// QueryFlag parses a boolean query parameter, writing a 400 for values
// strconv.ParseBool rejects
func QueryFlag(w http.ResponseWriter, r *http.Request, key string, def bool) (bool, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		WriteBadRequest(w, r, "query parameter %q: %q is not a boolean", key, raw)
		return false, false
	}
	return val, true
}

// QueryChoice returns the query parameter key when it is one of allowed, or
// def when it is absent. Any other value gets a 400.
func QueryChoice(w http.ResponseWriter, r *http.Request, key, def string, allowed ...string) (string, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	for _, a := range allowed {
		if raw == a {
			return raw, true
		}
	}
	WriteBadRequest(w, r, "query parameter %q must be one of %s", key, strings.Join(allowed, ", "))
	return "", false
}
