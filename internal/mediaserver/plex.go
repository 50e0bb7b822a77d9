// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package mediaserver

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/nexroll/nexroll/internal/logging"
	"github.com/nexroll/nexroll/internal/metrics"
	"github.com/nexroll/nexroll/internal/models"
)

// Setter variants for the Plex preference write, tried in order. Different
// Plex builds accept different shapes; the readback decides which one took.
const (
	VariantQueryPut = "query_put"
	VariantFormPut  = "form_put"
	VariantPost     = "post"
)

var setterVariants = []string{VariantQueryPut, VariantFormPut, VariantPost}

const plexMaxRetries = 3

// Plex drives a Plex Media Server through its HTTP API. The preroll value
// lives in the CinemaTrailersPrerollID server preference.
type Plex struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewPlex creates the adapter. An empty baseURL yields an unconfigured
// adapter whose methods return ErrNotConfigured.
func NewPlex(baseURL, token string, timeout time.Duration, tlsVerify bool) *Plex {
	return &Plex{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  newHTTPClient(timeout, tlsVerify),
	}
}

// Name implements Adapter.
func (p *Plex) Name() string { return "plex" }

// Configured implements Adapter.
func (p *Plex) Configured() bool { return p.baseURL != "" }

// TestConnection implements Adapter.
func (p *Plex) TestConnection(ctx context.Context) error {
	_, err := p.GetServerInfo(ctx)
	return err
}

// GetServerInfo fetches the server identity from "GET /".
func (p *Plex) GetServerInfo(ctx context.Context) (*models.ServerInfo, error) {
	if !p.Configured() {
		return nil, ErrNotConfigured
	}

	body, contentType, err := p.get(ctx, "/", true)
	if err != nil {
		return nil, err
	}

	var name, version, rawPlatform string
	if isJSONContent(contentType, body) {
		var root models.PlexRootResponse
		if err := json.Unmarshal(body, &root); err != nil {
			return nil, fmt.Errorf("decode identity response: %w", err)
		}
		name, version, rawPlatform = root.MediaContainer.FriendlyName, root.MediaContainer.Version, root.MediaContainer.Platform
	} else {
		var root models.PlexRootXML
		if err := xml.Unmarshal(body, &root); err != nil {
			return nil, fmt.Errorf("decode identity response: %w", err)
		}
		name, version, rawPlatform = root.FriendlyName, root.Version, root.Platform
	}

	return &models.ServerInfo{
		Platform:    normalizePlatform(rawPlatform),
		RawPlatform: rawPlatform,
		Name:        name,
		Version:     version,
	}, nil
}

// GetPreroll reads CinemaTrailersPrerollID from /:/prefs. The prefs endpoint
// answers XML regardless of the Accept header.
func (p *Plex) GetPreroll(ctx context.Context) (string, error) {
	if !p.Configured() {
		return "", ErrNotConfigured
	}

	body, _, err := p.get(ctx, "/:/prefs", false)
	if err != nil {
		return "", err
	}

	var prefs models.PlexPrefsXML
	if err := xml.Unmarshal(body, &prefs); err != nil {
		return "", fmt.Errorf("decode prefs response: %w", err)
	}
	value, ok := prefs.Value(models.PlexPrefsKey)
	if !ok {
		return "", fmt.Errorf("preference %s not present in prefs response", models.PlexPrefsKey)
	}
	return value, nil
}

// SetPreroll writes the preroll preference. Each setter variant is tried in
// order and gated on a readback: a variant only counts as success when the
// server afterwards reports the exact value (modulo surrounding whitespace).
func (p *Plex) SetPreroll(ctx context.Context, value string) error {
	if !p.Configured() {
		return ErrNotConfigured
	}

	variant, err := p.setPreroll(ctx, value)
	if err != nil {
		metrics.ApplyAttempts.WithLabelValues(p.Name(), "failure").Inc()
		return err
	}

	metrics.ApplyAttempts.WithLabelValues(p.Name(), "success").Inc()
	logging.Info().Str("variant", variant).Int("length", len(value)).Msg("Applied Plex preroll preference")
	return nil
}

func (p *Plex) setPreroll(ctx context.Context, value string) (string, error) {
	want := strings.TrimSpace(value)

	var lastErr error
	for _, variant := range setterVariants {
		if err := p.writeVariant(ctx, variant, value); err != nil {
			lastErr = err
			logging.Debug().Str("variant", variant).Err(err).Msg("Plex setter variant rejected")
			continue
		}

		got, err := p.GetPreroll(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		if strings.TrimSpace(got) == want {
			return variant, nil
		}

		metrics.ApplyReadbackMismatches.WithLabelValues(p.Name(), variant).Inc()
		logging.Debug().Str("variant", variant).Msg("Plex setter readback mismatch, trying next variant")
		lastErr = ErrValueMismatch
	}

	if lastErr == nil {
		lastErr = ErrValueMismatch
	}
	return "", fmt.Errorf("all setter variants failed: %w", lastErr)
}

// writeVariant issues one preference write in the given shape.
func (p *Plex) writeVariant(ctx context.Context, variant, value string) error {
	form := url.Values{models.PlexPrefsKey: {value}}

	var req *http.Request
	var err error
	switch variant {
	case VariantQueryPut:
		req, err = http.NewRequestWithContext(ctx, http.MethodPut,
			p.baseURL+"/:/prefs?"+form.Encode(), http.NoBody)
	case VariantFormPut:
		req, err = http.NewRequestWithContext(ctx, http.MethodPut,
			p.baseURL+"/:/prefs", strings.NewReader(form.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	case VariantPost:
		req, err = http.NewRequestWithContext(ctx, http.MethodPost,
			p.baseURL+"/:/prefs?"+form.Encode(), http.NoBody)
	default:
		return fmt.Errorf("unknown setter variant %q", variant)
	}
	if err != nil {
		return fmt.Errorf("create prefs request: %w", err)
	}

	resp, err := p.do(req)
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{StatusCode: resp.StatusCode, Body: readSnippet(resp.Body)}
	}
	return nil
}

// ActiveSessions lists current playback sessions, preferring the JSON shape
// and falling back to XML when the server ignores the Accept header.
func (p *Plex) ActiveSessions(ctx context.Context) ([]models.PlaybackSession, error) {
	if !p.Configured() {
		return nil, ErrNotConfigured
	}

	body, contentType, err := p.get(ctx, "/status/sessions", true)
	if err != nil {
		return nil, err
	}

	if isJSONContent(contentType, body) {
		var resp models.PlexSessionsResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decode sessions response: %w", err)
		}
		out := make([]models.PlaybackSession, 0, len(resp.MediaContainer.Metadata))
		for _, item := range resp.MediaContainer.Metadata {
			s := models.PlaybackSession{
				SessionKey:           item.SessionKey,
				RatingKey:            item.RatingKey,
				ParentRatingKey:      item.ParentRatingKey,
				GrandparentRatingKey: item.GrandparentRatingKey,
				Type:                 item.Type,
				Title:                item.Title,
				ViewOffset:           item.ViewOffset,
				Duration:             item.Duration,
				Genres:               tagsToStrings(item.Genre),
			}
			if item.Player != nil {
				s.State = item.Player.State
			}
			out = append(out, s)
		}
		return out, nil
	}

	var resp models.PlexSessionsXML
	if err := xml.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode sessions response: %w", err)
	}
	out := make([]models.PlaybackSession, 0, len(resp.Videos))
	for _, v := range resp.Videos {
		s := models.PlaybackSession{
			SessionKey:           v.SessionKey,
			RatingKey:            v.RatingKey,
			ParentRatingKey:      v.ParentRatingKey,
			GrandparentRatingKey: v.GrandparentRatingKey,
			Type:                 v.Type,
			Title:                v.Title,
			ViewOffset:           v.ViewOffset,
			Duration:             v.Duration,
			Genres:               tagsToStrings(v.Genres),
		}
		if v.Player != nil {
			s.State = v.Player.State
		}
		out = append(out, s)
	}
	return out, nil
}

// GetMetadata fetches metadata for one rating key.
func (p *Plex) GetMetadata(ctx context.Context, ratingKey string) (*models.MediaMetadata, error) {
	if !p.Configured() {
		return nil, ErrNotConfigured
	}

	// includeChildren pulls in tags that live on child items, where some
	// agents put the genres.
	body, contentType, err := p.get(ctx, "/library/metadata/"+url.PathEscape(ratingKey)+"?includeChildren=1", true)
	if err != nil {
		return nil, err
	}

	if isJSONContent(contentType, body) {
		var resp models.PlexMetadataResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decode metadata response: %w", err)
		}
		if len(resp.MediaContainer.Metadata) == 0 {
			return nil, fmt.Errorf("no metadata for rating key %s", ratingKey)
		}
		item := resp.MediaContainer.Metadata[0]
		return &models.MediaMetadata{
			RatingKey:            item.RatingKey,
			ParentRatingKey:      item.ParentRatingKey,
			GrandparentRatingKey: item.GrandparentRatingKey,
			Type:                 item.Type,
			Title:                item.Title,
			Genres:               tagsToStrings(item.Genre),
		}, nil
	}

	var resp models.PlexMetadataXML
	if err := xml.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode metadata response: %w", err)
	}
	rows := resp.Rows()
	if len(rows) == 0 {
		return nil, fmt.Errorf("no metadata for rating key %s", ratingKey)
	}
	row := rows[0]
	return &models.MediaMetadata{
		RatingKey:            row.RatingKey,
		ParentRatingKey:      row.ParentRatingKey,
		GrandparentRatingKey: row.GrandparentRatingKey,
		Type:                 row.Type,
		Title:                row.Title,
		Genres:               tagsToStrings(row.Genres),
	}, nil
}

// Probe reports which setter variant works against this server, by rewriting
// the current preference value to itself. The real value is never changed.
func (p *Plex) Probe(ctx context.Context) *models.ProbeResult {
	result := &models.ProbeResult{}

	if err := p.TestConnection(ctx); err != nil {
		result.Error = ErrorKind(err)
		return result
	}
	result.Reachable = true

	current, err := p.GetPreroll(ctx)
	if err != nil {
		result.Error = ErrorKind(err)
		return result
	}
	result.PrefsReadable = true
	result.CurrentValue = current

	variant, err := p.setPreroll(ctx, current)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.WorkingVariant = variant
	return result
}

// get issues a GET, retrying on 429 with the server's Retry-After hint.
func (p *Plex) get(ctx context.Context, path string, acceptJSON bool) (body []byte, contentType string, err error) {
	for attempt := 0; attempt <= plexMaxRetries; attempt++ {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, http.NoBody)
		if reqErr != nil {
			return nil, "", fmt.Errorf("create request: %w", reqErr)
		}
		if acceptJSON {
			req.Header.Set("Accept", "application/json")
		}

		resp, doErr := p.do(req)
		if doErr != nil {
			return nil, "", doErr
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			delay := retryAfter(resp, attempt)
			drainAndClose(resp.Body)
			select {
			case <-ctx.Done():
				return nil, "", classifyError(ctx.Err())
			case <-time.After(delay):
				continue
			}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			err := &HTTPError{StatusCode: resp.StatusCode, Body: readSnippet(resp.Body)}
			drainAndClose(resp.Body)
			return nil, "", err
		}

		data, readErr := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
		contentType = resp.Header.Get("Content-Type")
		drainAndClose(resp.Body)
		if readErr != nil {
			return nil, "", classifyError(readErr)
		}
		return data, contentType, nil
	}
	return nil, "", &HTTPError{StatusCode: http.StatusTooManyRequests, Body: "rate limited after retries"}
}

// do sends one request with the token header and classifies transport
// failures.
func (p *Plex) do(req *http.Request) (*http.Response, error) {
	if p.token != "" {
		req.Header.Set("X-Plex-Token", p.token)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, classifyError(err)
	}
	return resp, nil
}

// retryAfter derives the 429 backoff: the Retry-After header when present,
// otherwise exponential from one second.
func retryAfter(resp *http.Response, attempt int) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Duration(1<<attempt) * time.Second
}

func tagsToStrings(tags []models.PlexTag) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t.Tag != "" {
			out = append(out, t.Tag)
		}
	}
	return out
}

// isJSONContent sniffs whether a response body is JSON, trusting the
// Content-Type first and the first byte second.
func isJSONContent(contentType string, body []byte) bool {
	if strings.Contains(contentType, "json") {
		return true
	}
	if strings.Contains(contentType, "xml") {
		return false
	}
	trimmed := strings.TrimLeftFunc(string(body), func(r rune) bool { return r == ' ' || r == '\t' || r == '\n' || r == '\r' })
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 1<<20))
	_ = body.Close()
}

func readSnippet(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, 256))
	return strings.TrimSpace(string(data))
}
