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
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nexroll/nexroll/internal/models"
)

func postWebhook(t *testing.T, server http.Handler, contentType string, body []byte, sign string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/webhooks/plex", bytes.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	if sign != "" {
		req.Header.Set("X-Plex-Signature", sign)
	}
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	return w
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestWebhook_PlaybackStartUsesRatingKey(t *testing.T) {
	a := newTestAPI(t)

	body := []byte(`{"event":"media.play","Metadata":{"ratingKey":"1234","type":"movie","title":"Alien"}}`)
	w := postWebhook(t, a.server, "application/json", body, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", w.Code, w.Body.String())
	}
	data := dataMap(t, decodeEnvelope(t, w))
	if data["received"] != true || data["action"] != "applied" {
		t.Errorf("receipt = %v", data)
	}
	if len(a.genres.ratingKeys) != 1 || a.genres.ratingKeys[0] != "1234" {
		t.Errorf("ratingKeys = %v", a.genres.ratingKeys)
	}
}

func TestWebhook_GenreTagFallback(t *testing.T) {
	a := newTestAPI(t)
	a.genres.mapping = &models.GenreMap{ID: 1, Genre: "Horror", CategoryID: 2}

	// No rating key; the payload genres drive the apply directly.
	body := []byte(`{"event":"media.play","Metadata":{"title":"Alien","Genre":[{"tag":"Horror"}]}}`)
	w := postWebhook(t, a.server, "application/json", body, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if len(a.genres.labels) != 1 || a.genres.labels[0] != "Horror" {
		t.Errorf("labels = %v", a.genres.labels)
	}
}

func TestWebhook_IgnoresNonPlaybackEvents(t *testing.T) {
	a := newTestAPI(t)

	body := []byte(`{"event":"library.new"}`)
	w := postWebhook(t, a.server, "application/json", body, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	data := dataMap(t, decodeEnvelope(t, w))
	if data["action"] != "ignored" {
		t.Errorf("action = %v", data["action"])
	}
	if len(a.genres.ratingKeys) != 0 || len(a.genres.labels) != 0 {
		t.Error("non-playback event reached the genre service")
	}
}

func TestWebhook_MultipartPayloadField(t *testing.T) {
	a := newTestAPI(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	// Plex also attaches a thumbnail part; a payload-free field first makes
	// sure the reader skips to the right one.
	_ = mw.WriteField("thumb", "binarystuff")
	_ = mw.WriteField("payload", `{"event":"media.play","Metadata":{"ratingKey":"77"}}`)
	_ = mw.Close()

	w := postWebhook(t, a.server, mw.FormDataContentType(), buf.Bytes(), "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", w.Code, w.Body.String())
	}
	if len(a.genres.ratingKeys) != 1 || a.genres.ratingKeys[0] != "77" {
		t.Errorf("ratingKeys = %v", a.genres.ratingKeys)
	}
}

func TestWebhook_MultipartWithoutPayload(t *testing.T) {
	a := newTestAPI(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("thumb", "binarystuff")
	_ = mw.Close()

	w := postWebhook(t, a.server, mw.FormDataContentType(), buf.Bytes(), "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestWebhook_SignatureVerification(t *testing.T) {
	a := newTestAPI(t)
	a.handler.webhookSecret = "hook-secret"

	body := []byte(`{"event":"media.play","Metadata":{"ratingKey":"55"}}`)

	w := postWebhook(t, a.server, "application/json", body, "")
	if w.Code != http.StatusForbidden {
		t.Errorf("unsigned: status %d, want 403", w.Code)
	}

	w = postWebhook(t, a.server, "application/json", body, signBody("wrong-secret", body))
	if w.Code != http.StatusForbidden {
		t.Errorf("wrong secret: status %d, want 403", w.Code)
	}

	w = postWebhook(t, a.server, "application/json", body, signBody("hook-secret", body))
	if w.Code != http.StatusOK {
		t.Errorf("valid signature: status %d body %s", w.Code, w.Body.String())
	}
	if len(a.genres.ratingKeys) != 1 {
		t.Errorf("ratingKeys = %v", a.genres.ratingKeys)
	}
}

func TestWebhook_MalformedBody(t *testing.T) {
	a := newTestAPI(t)
	w := postWebhook(t, a.server, "application/json", []byte(`{"event":`), "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	w = postWebhook(t, a.server, "application/json", []byte(`{}`), "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty event: status %d, want 400", w.Code)
	}
}
