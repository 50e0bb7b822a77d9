// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package mediaserver

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/nexroll/nexroll/internal/logging"
	"github.com/nexroll/nexroll/internal/metrics"
)

// plexNotification is one message from /:/websockets/notifications.
type plexNotification struct {
	NotificationContainer struct {
		Type                         string `json:"type"`
		PlaySessionStateNotification []struct {
			RatingKey string `json:"ratingKey"`
			State     string `json:"state"`
		} `json:"PlaySessionStateNotification"`
	} `json:"NotificationContainer"`
}

// AlertListener subscribes to Plex's realtime notification WebSocket and
// invokes onPlay for playback-start events. It is advisory only: webhooks
// remain the reliable trigger, this just shaves latency when it works. The
// listener runs as a suture service; connection errors surface as returned
// errors and the supervisor restarts it with backoff.
type AlertListener struct {
	plexURL   string
	token     string
	tlsVerify bool
	onPlay    func(ratingKey string)
}

// NewAlertListener creates the listener. onPlay is called from the read
// loop goroutine for every session entering the "playing" state.
func NewAlertListener(plexURL, token string, tlsVerify bool, onPlay func(ratingKey string)) *AlertListener {
	return &AlertListener{
		plexURL:   strings.TrimRight(plexURL, "/"),
		token:     token,
		tlsVerify: tlsVerify,
		onPlay:    onPlay,
	}
}

// String implements fmt.Stringer for supervisor logs.
func (a *AlertListener) String() string { return "plex-alert-listener" }

// Serve implements suture.Service. It connects, pumps notifications until
// the socket fails or ctx is cancelled, and returns.
func (a *AlertListener) Serve(ctx context.Context) error {
	wsURL, err := a.notificationURL()
	if err != nil {
		return err
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	if !a.tlsVerify {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402 -- operator opted out for local servers
	}

	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			drainAndClose(resp.Body)
		}
		return fmt.Errorf("dial plex notifications: %w", err)
	}
	defer conn.Close()

	logging.Info().Msg("Plex alert listener connected")

	// Unblock ReadMessage on shutdown.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read plex notification: %w", err)
		}
		a.handle(message)
	}
}

func (a *AlertListener) handle(message []byte) {
	var note plexNotification
	if err := json.Unmarshal(message, &note); err != nil {
		logging.Debug().Err(err).Msg("Undecodable Plex notification")
		return
	}
	if note.NotificationContainer.Type != "playing" {
		return
	}
	for _, s := range note.NotificationContainer.PlaySessionStateNotification {
		if s.State != "playing" || s.RatingKey == "" {
			continue
		}
		metrics.WebhookEvents.WithLabelValues("alert.playing").Inc()
		if a.onPlay != nil {
			a.onPlay(s.RatingKey)
		}
	}
}

// notificationURL converts the configured HTTP URL to the WebSocket
// endpoint, carrying the token as a query parameter as Plex expects.
func (a *AlertListener) notificationURL() (string, error) {
	u, err := url.Parse(a.plexURL)
	if err != nil {
		return "", fmt.Errorf("parse plex url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported plex url scheme %q", u.Scheme)
	}
	u.Path = "/:/websockets/notifications"
	if a.token != "" {
		q := u.Query()
		q.Set("X-Plex-Token", a.token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
