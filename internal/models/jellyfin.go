// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package models

// Jellyfin Wire Models
//
// Jellyfin has no native preroll support; the adapter drives the community
// "Local Intros" plugin through the generic plugin configuration API.

// JellyfinPlugin is one entry of GET /Plugins.
type JellyfinPlugin struct {
	Name        string `json:"Name"`
	ID          string `json:"Id"`
	Version     string `json:"Version,omitempty"`
	Description string `json:"Description,omitempty"`
	Status      string `json:"Status,omitempty"`
}

// JellyfinPluginConfig is the plugin's configuration document. The Local
// Intros plugin variants disagree on key names, so the adapter works on the
// raw object and probes the known keys in preference order.
type JellyfinPluginConfig map[string]interface{}

// JellyfinIntroListKeys are the list-valued configuration keys the adapter
// probes, in preference order.
var JellyfinIntroListKeys = []string{
	"IntroPaths",
	"Paths",
	"PrerollPaths",
	"Folders",
	"Directories",
	"IntroFolders",
	"FolderPaths",
}

// JellyfinIntroStringKeys are the string-valued configuration keys the
// adapter probes, in preference order.
var JellyfinIntroStringKeys = []string{
	"Path",
	"IntroPath",
	"Folder",
	"Directory",
	"IntroFolder",
	"Root",
	"BasePath",
}

// JellyfinLocalKey always receives the first directory in addition to
// whichever list or string key matched.
const JellyfinLocalKey = "Local"

// JellyfinSystemInfo is GET /System/Info, reduced to identity fields.
type JellyfinSystemInfo struct {
	ServerName      string `json:"ServerName"`
	Version         string `json:"Version"`
	OperatingSystem string `json:"OperatingSystem"`
	ID              string `json:"Id"`
}
