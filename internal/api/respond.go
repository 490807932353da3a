// TaskFlow Realtime - Notification & Support Chat Messaging Server
// Copyright 2026 GraduationThesisproject
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/GraduationThesisproject/taskflow-realtime

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/GraduationThesisproject/taskflow-realtime/internal/logging"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/models"
)

func respond(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	writeJSON(w, r, status, &models.APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	})
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]interface{}) {
	writeJSON(w, r, status, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error: &models.APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}

// decodeBody unmarshals a request body, answering a VALIDATION_ERROR on
// failure. Returns false when the caller should stop.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body", nil)
		return false
	}
	return true
}
