package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"spacetraveling/app/models"
	"spacetraveling/app/services"
)

// Helper methods for consistent response handling

func sendJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func sendError(w http.ResponseWriter, r *http.Request, message string, status int) {
	if isAPIRequest(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]string{"error": message})
		return
	}
	http.Error(w, message, status)
}

func isAPIRequest(r *http.Request) bool {
	return r.Header.Get("Accept") == "application/json" || strings.HasPrefix(r.URL.Path, "/api")
}

// sendPage writes a stored page, answering 304 when the client already has it.
func sendPage(w http.ResponseWriter, r *http.Request, page *models.Page) {
	w.Header().Set("ETag", page.ETag)
	w.Header().Set("Cache-Control", "public, max-age=0, must-revalidate")
	if match := r.Header.Get("If-None-Match"); match != "" && etagMatches(match, page.ETag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	sendHTML(w, page.Body, http.StatusOK)
}

// sendLive writes a page rendered for this request only.
func sendLive(w http.ResponseWriter, body []byte) {
	w.Header().Set("Cache-Control", "private, no-store")
	w.Header().Set("ETag", services.ETag(body))
	sendHTML(w, body, http.StatusOK)
}

func sendHTML(w http.ResponseWriter, body []byte, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(body)
}

func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
