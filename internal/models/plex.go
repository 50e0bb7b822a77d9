// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package models

import "encoding/xml"

// Plex Wire Models
//
// Plex endpoints answer XML by default and JSON when the request carries
// Accept: application/json, except /:/prefs which is XML only. The adapter
// decodes whichever shape arrives (sniffed via Content-Type) into the
// normalized types in media_server.go.

// PlexPrefsKey is the server preference holding the preroll value.
const PlexPrefsKey = "CinemaTrailersPrerollID"

// PlexPrefsXML is the /:/prefs response container.
//
//	<MediaContainer size="163">
//	  <Setting id="CinemaTrailersPrerollID" type="text" value="/pr/a.mp4;/pr/b.mp4" ... />
//	</MediaContainer>
type PlexPrefsXML struct {
	XMLName  xml.Name         `xml:"MediaContainer"`
	Size     int              `xml:"size,attr"`
	Settings []PlexPrefSeting `xml:"Setting"`
}

// PlexPrefSeting is one <Setting> element of the prefs container.
type PlexPrefSeting struct {
	ID      string `xml:"id,attr"`
	Type    string `xml:"type,attr"`
	Value   string `xml:"value,attr"`
	Default string `xml:"default,attr"`
	Hidden  int    `xml:"hidden,attr"`
}

// Value returns the preference value for id, and whether it was present.
func (p *PlexPrefsXML) Value(id string) (string, bool) {
	for i := range p.Settings {
		if p.Settings[i].ID == id {
			return p.Settings[i].Value, true
		}
	}
	return "", false
}

// PlexRootXML is the "GET /" identity response, XML form. Carries the
// platform attribute used for path validation.
type PlexRootXML struct {
	XMLName           xml.Name `xml:"MediaContainer"`
	FriendlyName      string   `xml:"friendlyName,attr"`
	MachineIdentifier string   `xml:"machineIdentifier,attr"`
	Platform          string   `xml:"platform,attr"`
	PlatformVersion   string   `xml:"platformVersion,attr"`
	Version           string   `xml:"version,attr"`
}

// PlexRootResponse is the "GET /" identity response, JSON form.
type PlexRootResponse struct {
	MediaContainer PlexRootContainer `json:"MediaContainer"`
}

// PlexRootContainer carries the identity attributes in the JSON form.
type PlexRootContainer struct {
	FriendlyName      string `json:"friendlyName"`
	MachineIdentifier string `json:"machineIdentifier"`
	Platform          string `json:"platform"`
	PlatformVersion   string `json:"platformVersion"`
	Version           string `json:"version"`
}

// PlexTag is a tag element ({"tag":"Horror"} / <Genre tag="Horror"/>).
type PlexTag struct {
	Tag string `json:"tag" xml:"tag,attr"`
}

// PlexSessionsResponse is GET /status/sessions, JSON form.
type PlexSessionsResponse struct {
	MediaContainer PlexSessionsContainer `json:"MediaContainer"`
}

// PlexSessionsContainer wraps the active session array.
type PlexSessionsContainer struct {
	Size     int               `json:"size"`
	Metadata []PlexSessionItem `json:"Metadata"`
}

// PlexSessionItem is one active session in the JSON form. Only the fields
// the genre flow consumes are modeled.
type PlexSessionItem struct {
	SessionKey           string `json:"sessionKey"`
	RatingKey            string `json:"ratingKey"`
	ParentRatingKey      string `json:"parentRatingKey,omitempty"`
	GrandparentRatingKey string `json:"grandparentRatingKey,omitempty"`
	Type                 string `json:"type"`
	Title                string `json:"title"`
	GrandparentTitle     string `json:"grandparentTitle,omitempty"`
	ViewOffset           int64  `json:"viewOffset"`
	Duration             int64  `json:"duration"`

	Genre []PlexTag `json:"Genre,omitempty"`

	Player *PlexSessionPlayer `json:"Player,omitempty"`
}

// PlexSessionPlayer carries the client's playback state.
type PlexSessionPlayer struct {
	State   string `json:"state" xml:"state,attr"` // "playing", "paused", "buffering"
	Title   string `json:"title" xml:"title,attr"`
	Product string `json:"product" xml:"product,attr"`
}

// PlexSessionsXML is GET /status/sessions, XML form. Movie and episode
// sessions arrive as <Video> elements.
type PlexSessionsXML struct {
	XMLName xml.Name         `xml:"MediaContainer"`
	Size    int              `xml:"size,attr"`
	Videos  []PlexSessionXML `xml:"Video"`
}

// PlexSessionXML is one <Video> session element.
type PlexSessionXML struct {
	SessionKey           string `xml:"sessionKey,attr"`
	RatingKey            string `xml:"ratingKey,attr"`
	ParentRatingKey      string `xml:"parentRatingKey,attr"`
	GrandparentRatingKey string `xml:"grandparentRatingKey,attr"`
	Type                 string `xml:"type,attr"`
	Title                string `xml:"title,attr"`
	GrandparentTitle     string `xml:"grandparentTitle,attr"`
	ViewOffset           int64  `xml:"viewOffset,attr"`
	Duration             int64  `xml:"duration,attr"`

	Genres []PlexTag          `xml:"Genre"`
	Player *PlexSessionPlayer `xml:"Player"`
}

// PlexMetadataResponse is GET /library/metadata/{key}, JSON form.
type PlexMetadataResponse struct {
	MediaContainer PlexMetadataContainer `json:"MediaContainer"`
}

// PlexMetadataContainer wraps the metadata array (single element for a
// direct key fetch).
type PlexMetadataContainer struct {
	Size     int                `json:"size"`
	Metadata []PlexMetadataItem `json:"Metadata"`
}

// PlexMetadataItem is one metadata record in the JSON form.
type PlexMetadataItem struct {
	RatingKey            string `json:"ratingKey"`
	ParentRatingKey      string `json:"parentRatingKey,omitempty"`
	GrandparentRatingKey string `json:"grandparentRatingKey,omitempty"`
	Type                 string `json:"type"`
	Title                string `json:"title"`

	Genre []PlexTag `json:"Genre,omitempty"`
}

// PlexMetadataXML is GET /library/metadata/{key}, XML form. Movies and
// episodes arrive as <Video>, shows as <Directory>.
type PlexMetadataXML struct {
	XMLName     xml.Name          `xml:"MediaContainer"`
	Size        int               `xml:"size,attr"`
	Videos      []PlexMetadataRow `xml:"Video"`
	Directories []PlexMetadataRow `xml:"Directory"`
}

// PlexMetadataRow is one metadata element in the XML form.
type PlexMetadataRow struct {
	RatingKey            string `xml:"ratingKey,attr"`
	ParentRatingKey      string `xml:"parentRatingKey,attr"`
	GrandparentRatingKey string `xml:"grandparentRatingKey,attr"`
	Type                 string `xml:"type,attr"`
	Title                string `xml:"title,attr"`

	Genres []PlexTag `xml:"Genre"`
}

// Rows returns all metadata elements regardless of element name.
func (m *PlexMetadataXML) Rows() []PlexMetadataRow {
	if len(m.Videos) == 0 {
		return m.Directories
	}
	if len(m.Directories) == 0 {
		return m.Videos
	}
	out := make([]PlexMetadataRow, 0, len(m.Videos)+len(m.Directories))
	out = append(out, m.Videos...)
	out = append(out, m.Directories...)
	return out
}
