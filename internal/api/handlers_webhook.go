// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package api

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/nexroll/nexroll/internal/logging"
	"github.com/nexroll/nexroll/internal/metrics"
	"github.com/nexroll/nexroll/internal/models"
)

// maxWebhookBody caps webhook reads. Plex payloads are small JSON; the
// multipart form can also carry a thumbnail part we ignore.
const maxWebhookBody = 10 << 20

var (
	errMissingBoundary    = errors.New("multipart body without boundary")
	errMissingPayloadPart = errors.New("multipart body without payload field")
)

// PlexWebhook handles POST /webhooks/plex. Plex posts either a bare JSON
// body or a multipart form whose "payload" field holds the JSON. Playback
// start events feed the genre intercept; everything else is counted and
// acknowledged. The response is 200 for every well formed delivery so Plex
// does not disable the hook.
func (h *Handler) PlexWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, "could not read body", nil)
		return
	}

	if h.webhookSecret != "" && !h.verifyWebhookSignature(r, body) {
		logging.Warn().Str("remote", clientAddr(r)).Msg("Rejected webhook with bad signature")
		respondError(w, http.StatusForbidden, codeAuthentication, "invalid webhook signature", nil)
		return
	}

	payload, err := extractWebhookPayload(r.Header.Get("Content-Type"), body)
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}

	var hook models.PlexWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, "malformed webhook payload", nil)
		return
	}
	if hook.Event == "" {
		respondError(w, http.StatusBadRequest, codeValidation, "webhook payload has no event", nil)
		return
	}
	metrics.WebhookEvents.WithLabelValues(hook.Event).Inc()

	receipt := h.routeWebhook(r, &hook)
	respondSuccess(w, http.StatusOK, receipt)
}

// routeWebhook decides what a delivery triggers.
func (h *Handler) routeWebhook(r *http.Request, hook *models.PlexWebhook) *models.WebhookReceipt {
	receipt := &models.WebhookReceipt{Received: true, Event: hook.Event}

	if !hook.IsMediaEvent() || !hook.IsPlaybackStart() {
		receipt.Action = "ignored"
		receipt.Reason = "not a playback start event"
		return receipt
	}
	if h.genres == nil {
		receipt.Action = "skipped"
		receipt.Reason = "genre mapping requires a configured Plex server"
		return receipt
	}

	logging.Info().
		Str("event", hook.Event).
		Str("title", hook.GetContentTitle()).
		Str("user", hook.GetUsername()).
		Msg("Plex playback start webhook")

	// Prefer the rating key: the metadata fetch sees the full genre list
	// even when the payload carries none. The apply runs asynchronously;
	// the receipt acknowledges the trigger.
	if key := hook.RatingKey(); key != "" {
		h.genres.ApplyByRatingKey(r.Context(), key)
		receipt.Action = "applied"
		receipt.Reason = "genre lookup scheduled for rating key " + key
		return receipt
	}

	tags := hook.GenreTags()
	if len(tags) == 0 {
		receipt.Action = "skipped"
		receipt.Reason = "payload has no rating key and no genre tags"
		return receipt
	}
	for _, tag := range tags {
		mapping, err := h.genres.ApplyDirect(r.Context(), tag)
		if err != nil {
			continue
		}
		receipt.Action = "applied"
		receipt.Reason = "matched genre " + mapping.Genre
		return receipt
	}
	receipt.Action = "skipped"
	receipt.Reason = "no genre tag matched a mapping"
	return receipt
}

// verifyWebhookSignature checks the X-Plex-Signature header, an HMAC-SHA1
// of the raw body in base64.
func (h *Handler) verifyWebhookSignature(r *http.Request, body []byte) bool {
	signature := strings.TrimSpace(r.Header.Get("X-Plex-Signature"))
	if signature == "" {
		return false
	}
	mac := hmac.New(sha1.New, []byte(h.webhookSecret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}

// extractWebhookPayload returns the JSON document from a delivery body:
// either the body itself or the "payload" field of a multipart form.
func extractWebhookPayload(contentType string, body []byte) ([]byte, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return body, nil
	}
	boundary := params["boundary"]
	if boundary == "" {
		return nil, errMissingBoundary
	}

	reader := multipart.NewReader(bytes.NewReader(body), boundary)
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return nil, errMissingPayloadPart
		}
		if err != nil {
			return nil, err
		}
		if part.FormName() != "payload" {
			continue
		}
		return io.ReadAll(io.LimitReader(part, maxWebhookBody))
	}
}
