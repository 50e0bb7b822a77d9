// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

// Package holidays resolves dynamic holiday dates for holiday_dynamic
// schedules via the Nager.Date public-holiday API.
//
// Resolutions are cached per (name, country, year), including "no such
// holiday" results so an unknown name cannot hammer the API once per tick.
// Errors are never cached; the next tick retries.
package holidays

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/nexroll/nexroll/internal/logging"
)

// DefaultBaseURL is the public Nager.Date endpoint.
const DefaultBaseURL = "https://date.nager.at"

// Holiday is one public holiday as reported by the API.
type Holiday struct {
	Date      string `json:"date"` // "YYYY-MM-DD"
	LocalName string `json:"localName"`
	Name      string `json:"name"`
	Fixed     bool   `json:"fixed"`
	Global    bool   `json:"global"`
}

// cacheKey identifies one resolution.
type cacheKey struct {
	name    string
	country string
	year    int
}

// cacheEntry holds a resolved date. found=false is a cached negative
// result: the API answered but no holiday matched.
type cacheEntry struct {
	month time.Month
	day   int
	found bool
}

// Client resolves holiday names to concrete dates.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.Mutex
	cache map[cacheKey]cacheEntry
}

// New creates a client. baseURL falls back to DefaultBaseURL when empty.
func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		cache:   make(map[cacheKey]cacheEntry),
	}
}

// Resolve returns the (month, day) of the named holiday in the given
// country and year. found=false with a nil error means the API answered
// but no holiday matched the name; that result is cached for the year.
func (c *Client) Resolve(ctx context.Context, name, country string, year int) (time.Month, int, bool, error) {
	key := cacheKey{name: strings.ToLower(strings.TrimSpace(name)), country: strings.ToUpper(strings.TrimSpace(country)), year: year}
	if key.country == "" {
		key.country = "US"
	}

	c.mu.Lock()
	if entry, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return entry.month, entry.day, entry.found, nil
	}
	c.mu.Unlock()

	list, err := c.fetch(ctx, key.country, year)
	if err != nil {
		return 0, 0, false, err
	}

	entry := matchHoliday(list, key.name)

	c.mu.Lock()
	c.cache[key] = entry
	c.mu.Unlock()

	if !entry.found {
		logging.Debug().Str("holiday", name).Str("country", key.country).Int("year", year).
			Msg("No matching public holiday; caching negative result")
	}
	return entry.month, entry.day, entry.found, nil
}

// fetch retrieves the full holiday list for a country and year.
func (c *Client) fetch(ctx context.Context, country string, year int) ([]Holiday, error) {
	url := fmt.Sprintf("%s/api/v3/PublicHolidays/%d/%s", c.baseURL, year, country)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create holiday request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch holidays for %s/%d: %w", country, year, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("holiday API returned status %d for %s/%d", resp.StatusCode, country, year)
	}

	var list []Holiday
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode holiday response: %w", err)
	}
	return list, nil
}

// matchHoliday finds the first holiday whose name or localName matches the
// lowercased needle, exact first, then substring in either direction.
func matchHoliday(list []Holiday, needle string) cacheEntry {
	match := func(ok func(string) bool) *Holiday {
		for i := range list {
			if ok(strings.ToLower(list[i].Name)) || ok(strings.ToLower(list[i].LocalName)) {
				return &list[i]
			}
		}
		return nil
	}

	h := match(func(s string) bool { return s == needle })
	if h == nil {
		h = match(func(s string) bool {
			return strings.Contains(s, needle) || strings.Contains(needle, s)
		})
	}
	if h == nil {
		return cacheEntry{}
	}

	date, err := time.Parse("2006-01-02", h.Date)
	if err != nil {
		return cacheEntry{}
	}
	return cacheEntry{month: date.Month(), day: date.Day(), found: true}
}
