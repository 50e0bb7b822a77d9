// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package models

import (
	"encoding/xml"
	"testing"

	"github.com/goccy/go-json"
)

func TestPlexPrefsXML_Decode(t *testing.T) {
	raw := `<?xml version="1.0" encoding="UTF-8"?>
<MediaContainer size="2">
  <Setting id="FriendlyName" type="text" value="den" default="" hidden="0" />
  <Setting id="CinemaTrailersPrerollID" type="text" value="/pr/a.mp4;/pr/b.mp4" default="" hidden="1" />
</MediaContainer>`

	var prefs PlexPrefsXML
	if err := xml.Unmarshal([]byte(raw), &prefs); err != nil {
		t.Fatalf("xml.Unmarshal() error = %v", err)
	}

	if prefs.Size != 2 {
		t.Errorf("Size = %d, want 2", prefs.Size)
	}

	value, ok := prefs.Value(PlexPrefsKey)
	if !ok {
		t.Fatal("expected preroll preference to be present")
	}
	if value != "/pr/a.mp4;/pr/b.mp4" {
		t.Errorf("Value() = %q", value)
	}

	if _, ok := prefs.Value("NoSuchKey"); ok {
		t.Error("expected missing key to report false")
	}
}

func TestPlexSessionsXML_Decode(t *testing.T) {
	raw := `<?xml version="1.0" encoding="UTF-8"?>
<MediaContainer size="1">
  <Video sessionKey="3" ratingKey="1001" parentRatingKey="900" grandparentRatingKey="800"
         type="episode" title="Pilot" grandparentTitle="Some Show" viewOffset="120000" duration="2400000">
    <Genre tag="Horror" />
    <Genre tag="Thriller" />
    <Player state="playing" title="Living Room TV" product="Plex for Roku" />
  </Video>
</MediaContainer>`

	var sessions PlexSessionsXML
	if err := xml.Unmarshal([]byte(raw), &sessions); err != nil {
		t.Fatalf("xml.Unmarshal() error = %v", err)
	}

	if len(sessions.Videos) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions.Videos))
	}

	v := sessions.Videos[0]
	if v.RatingKey != "1001" || v.ViewOffset != 120000 {
		t.Errorf("session = %+v", v)
	}
	if len(v.Genres) != 2 || v.Genres[0].Tag != "Horror" {
		t.Errorf("Genres = %+v", v.Genres)
	}
	if v.Player == nil || v.Player.State != "playing" {
		t.Errorf("Player = %+v", v.Player)
	}
}

func TestPlexSessionsJSON_Decode(t *testing.T) {
	raw := `{
	  "MediaContainer": {
	    "size": 1,
	    "Metadata": [
	      {
	        "sessionKey": "5",
	        "ratingKey": "2002",
	        "type": "movie",
	        "title": "Some Movie",
	        "viewOffset": 60000,
	        "duration": 5400000,
	        "Genre": [{"tag": "Comedy"}],
	        "Player": {"state": "paused", "title": "Bedroom", "product": "Plex Web"}
	      }
	    ]
	  }
	}`

	var resp PlexSessionsResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}

	if resp.MediaContainer.Size != 1 {
		t.Errorf("Size = %d", resp.MediaContainer.Size)
	}
	m := resp.MediaContainer.Metadata[0]
	if m.RatingKey != "2002" || m.Player.State != "paused" {
		t.Errorf("session = %+v", m)
	}
	if len(m.Genre) != 1 || m.Genre[0].Tag != "Comedy" {
		t.Errorf("Genre = %+v", m.Genre)
	}
}

func TestPlexMetadataXML_Rows(t *testing.T) {
	raw := `<?xml version="1.0" encoding="UTF-8"?>
<MediaContainer size="1">
  <Directory ratingKey="800" type="show" title="Some Show">
    <Genre tag="Horror" />
  </Directory>
</MediaContainer>`

	var meta PlexMetadataXML
	if err := xml.Unmarshal([]byte(raw), &meta); err != nil {
		t.Fatalf("xml.Unmarshal() error = %v", err)
	}

	rows := meta.Rows()
	if len(rows) != 1 {
		t.Fatalf("Rows() = %d entries, want 1", len(rows))
	}
	if rows[0].RatingKey != "800" || rows[0].Genres[0].Tag != "Horror" {
		t.Errorf("row = %+v", rows[0])
	}
}

func TestPlexRootXML_Decode(t *testing.T) {
	raw := `<MediaContainer friendlyName="den" machineIdentifier="abc" platform="Windows" platformVersion="10" version="1.40.0" />`

	var root PlexRootXML
	if err := xml.Unmarshal([]byte(raw), &root); err != nil {
		t.Fatalf("xml.Unmarshal() error = %v", err)
	}
	if root.Platform != "Windows" || root.FriendlyName != "den" {
		t.Errorf("root = %+v", root)
	}
}

func TestPlaybackSession_Progress(t *testing.T) {
	tests := []struct {
		name     string
		session  PlaybackSession
		expected float64
	}{
		{"half way", PlaybackSession{ViewOffset: 50, Duration: 100}, 0.5},
		{"zero duration", PlaybackSession{ViewOffset: 50, Duration: 0}, 0},
		{"start", PlaybackSession{ViewOffset: 0, Duration: 100}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.session.Progress(); got != tt.expected {
				t.Errorf("Progress() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestServerInfo_IsWindows(t *testing.T) {
	if !(&ServerInfo{Platform: PlatformWindows}).IsWindows() {
		t.Error("expected windows platform to report true")
	}
	if (&ServerInfo{Platform: PlatformLinux}).IsWindows() {
		t.Error("expected linux platform to report false")
	}
}
