package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"EstateDesk/api/constants"
)

// RespondWithError writes the {"success":false,"error":...} envelope.
func RespondWithError(w http.ResponseWriter, status int, errMsg string) {
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "status", status, "error", errMsg)
	} else {
		slog.Debug("request rejected", "status", status, "error", errMsg)
	}
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   errMsg,
	})
}

// RespondWithResult sends {"success":true} or the error envelope.
func RespondWithResult(w http.ResponseWriter, success bool, errMsg string) {
	if !success {
		RespondWithError(w, http.StatusBadRequest, errMsg)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// RespondWithPayload wraps payload as {"success":true,"data":...}.
func RespondWithPayload(w http.ResponseWriter, payload interface{}) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    payload,
	})
}

// RespondWithJSON writes v as the whole body.
func RespondWithJSON(w http.ResponseWriter, status int, v interface{}) {
	writeJSON(w, status, v)
}

// RespondWithRaw passes an upstream JSON body through unchanged.
func RespondWithRaw(w http.ResponseWriter, status int, body json.RawMessage) {
	w.Header().Set(constants.ContentTypeText, constants.ContentTypeJSON)
	w.WriteHeader(status)
	if len(body) == 0 {
		body = json.RawMessage("null")
	}
	_, _ = w.Write(body)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set(constants.ContentTypeText, constants.ContentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response encode failed", "err", err)
	}
}
