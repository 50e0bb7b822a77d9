// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package models

import "strings"

// PlexWebhook represents a Plex webhook HTTP POST payload.
// Documentation: https://support.plex.tv/articles/115002267687-webhooks/
//
// Plex posts either bare JSON or multipart/form-data with the JSON in a
// "payload" field (the multipart form adds a thumbnail part for some events).
// The receiver normalizes both to this struct.
type PlexWebhook struct {
	Event    string               `json:"event"`              // e.g. "media.play", "media.resume"
	User     bool                 `json:"user"`               // true if user-initiated
	Owner    bool                 `json:"owner"`              // true if server owner triggered event
	Account  PlexWebhookAccount   `json:"Account"`            // user account information
	Server   PlexWebhookServer    `json:"Server"`             // Plex server information
	Player   PlexWebhookPlayer    `json:"Player"`             // client/device information
	Metadata *PlexWebhookMetadata `json:"Metadata,omitempty"` // content metadata (media events)
}

// PlexWebhookAccount represents the user account in a webhook payload.
type PlexWebhookAccount struct {
	ID    int    `json:"id"`
	Thumb string `json:"thumb"`
	Title string `json:"title"` // username/display name
}

// PlexWebhookServer represents the Plex server in a webhook payload.
type PlexWebhookServer struct {
	Title string `json:"title"`
	UUID  string `json:"uuid"`
}

// PlexWebhookPlayer represents the client/device in a webhook payload.
type PlexWebhookPlayer struct {
	Local         bool   `json:"local"`
	PublicAddress string `json:"publicAddress"`
	Title         string `json:"title"`
	UUID          string `json:"uuid"`
}

// PlexWebhookMetadata represents content metadata in a webhook payload.
// Genre tags, when present, let the receiver skip the metadata fetch.
type PlexWebhookMetadata struct {
	LibrarySectionType   string    `json:"librarySectionType"`
	RatingKey            string    `json:"ratingKey"`
	Key                  string    `json:"key"`
	ParentRatingKey      string    `json:"parentRatingKey"`
	GrandparentRatingKey string    `json:"grandparentRatingKey"`
	GUID                 string    `json:"guid"`
	Type                 string    `json:"type"` // "movie", "episode", "track"
	Title                string    `json:"title"`
	GrandparentTitle     string    `json:"grandparentTitle"`
	ParentTitle          string    `json:"parentTitle"`
	Year                 int       `json:"year"`
	Genre                []PlexTag `json:"Genre,omitempty"`
}

// IsMediaEvent returns true for media playback events.
func (w *PlexWebhook) IsMediaEvent() bool {
	return strings.HasPrefix(w.Event, "media.")
}

// IsPlaybackStart returns true for the events that trigger a genre apply:
// play, resume, and the legacy media.start.
func (w *PlexWebhook) IsPlaybackStart() bool {
	switch w.Event {
	case "media.play", "media.resume", "media.start":
		return true
	default:
		return false
	}
}

// RatingKey returns the content rating key, empty when no metadata.
func (w *PlexWebhook) RatingKey() string {
	if w.Metadata == nil {
		return ""
	}
	return w.Metadata.RatingKey
}

// GetUsername returns the username from the webhook account.
func (w *PlexWebhook) GetUsername() string {
	return w.Account.Title
}

// GetContentTitle returns a formatted content title.
func (w *PlexWebhook) GetContentTitle() string {
	if w.Metadata == nil {
		return ""
	}
	if w.Metadata.GrandparentTitle != "" {
		return w.Metadata.GrandparentTitle + " - " + w.Metadata.Title
	}
	return w.Metadata.Title
}

// GenreTags returns the raw genre labels carried in the payload.
func (w *PlexWebhook) GenreTags() []string {
	if w.Metadata == nil || len(w.Metadata.Genre) == 0 {
		return nil
	}
	tags := make([]string, 0, len(w.Metadata.Genre))
	for _, g := range w.Metadata.Genre {
		if g.Tag != "" {
			tags = append(tags, g.Tag)
		}
	}
	return tags
}

// WebhookReceipt is the 200 body the webhook endpoints return. Plex ignores
// it; it exists for operator curl tests.
type WebhookReceipt struct {
	Received bool   `json:"received"`
	Event    string `json:"event,omitempty"`
	Action   string `json:"action,omitempty"` // "applied", "skipped", "ignored"
	Reason   string `json:"reason,omitempty"`
}
