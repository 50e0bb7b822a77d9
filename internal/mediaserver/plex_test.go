// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package mediaserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// fakePlex simulates the Plex preference endpoints. acceptVariants controls
// which setter shapes actually persist the value; other shapes answer 200
// but drop the write, mimicking builds that silently ignore one form.
type fakePlex struct {
	mu             sync.Mutex
	value          string
	acceptVariants map[string]bool
	rejectVariants map[string]int // variant -> status code to answer
	setCalls       []string
}

func (f *fakePlex) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"MediaContainer":{"friendlyName":"Den","platform":"Windows","version":"1.41.0"}}`)
	})

	mux.HandleFunc("/:/prefs", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		if r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "text/xml;charset=utf-8")
			fmt.Fprintf(w, `<MediaContainer size="1"><Setting id="CinemaTrailersPrerollID" type="text" value="%s" /></MediaContainer>`, f.value)
			return
		}

		variant := classifyRequestVariant(r)
		f.setCalls = append(f.setCalls, variant)

		if code, ok := f.rejectVariants[variant]; ok {
			w.WriteHeader(code)
			return
		}
		if f.acceptVariants[variant] {
			if v := requestValue(r); v != "" || r.URL.Query().Has("CinemaTrailersPrerollID") {
				f.value = v
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	return mux
}

func classifyRequestVariant(r *http.Request) string {
	switch {
	case r.Method == http.MethodPost:
		return VariantPost
	case r.Header.Get("Content-Type") == "application/x-www-form-urlencoded":
		return VariantFormPut
	default:
		return VariantQueryPut
	}
}

func requestValue(r *http.Request) string {
	if v := r.URL.Query().Get("CinemaTrailersPrerollID"); v != "" {
		return v
	}
	_ = r.ParseForm()
	return r.PostForm.Get("CinemaTrailersPrerollID")
}

func newFakePlex(t *testing.T, f *fakePlex) (*httptest.Server, *Plex) {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return srv, NewPlex(srv.URL, "token", 5*time.Second, true)
}

func TestPlexGetPreroll(t *testing.T) {
	f := &fakePlex{value: "/mnt/plex/a.mp4;/mnt/plex/b.mp4"}
	_, p := newFakePlex(t, f)

	got, err := p.GetPreroll(context.Background())
	if err != nil {
		t.Fatalf("GetPreroll() error: %v", err)
	}
	if got != f.value {
		t.Errorf("GetPreroll() = %q, want %q", got, f.value)
	}
}

func TestPlexGetServerInfoNormalizesPlatform(t *testing.T) {
	f := &fakePlex{acceptVariants: map[string]bool{}}
	_, p := newFakePlex(t, f)

	info, err := p.GetServerInfo(context.Background())
	if err != nil {
		t.Fatalf("GetServerInfo() error: %v", err)
	}
	if info.Platform != "windows" {
		t.Errorf("Platform = %q, want windows", info.Platform)
	}
	if info.RawPlatform != "Windows" {
		t.Errorf("RawPlatform = %q, want Windows", info.RawPlatform)
	}
}

func TestPlexSetPrerollFirstVariant(t *testing.T) {
	f := &fakePlex{acceptVariants: map[string]bool{VariantQueryPut: true}}
	_, p := newFakePlex(t, f)

	want := "/mnt/plex/h1.mp4;/mnt/plex/h2.mp4"
	if err := p.SetPreroll(context.Background(), want); err != nil {
		t.Fatalf("SetPreroll() error: %v", err)
	}
	if f.value != want {
		t.Errorf("stored value = %q, want %q", f.value, want)
	}
	if len(f.setCalls) != 1 || f.setCalls[0] != VariantQueryPut {
		t.Errorf("setter calls = %v, want single query_put", f.setCalls)
	}
}

func TestPlexSetPrerollFallsThroughOnSilentDrop(t *testing.T) {
	// query_put answers 200 but drops the write; the readback gate must
	// push the adapter to form_put.
	f := &fakePlex{acceptVariants: map[string]bool{VariantFormPut: true}}
	_, p := newFakePlex(t, f)

	want := "/mnt/plex/a.mp4"
	if err := p.SetPreroll(context.Background(), want); err != nil {
		t.Fatalf("SetPreroll() error: %v", err)
	}
	if f.value != want {
		t.Errorf("stored value = %q, want %q", f.value, want)
	}
	if len(f.setCalls) != 2 || f.setCalls[1] != VariantFormPut {
		t.Errorf("setter calls = %v, want query_put then form_put", f.setCalls)
	}
}

func TestPlexSetPrerollRejectedVariants(t *testing.T) {
	// PUT is rejected outright; POST persists.
	f := &fakePlex{
		acceptVariants: map[string]bool{VariantPost: true},
		rejectVariants: map[string]int{
			VariantQueryPut: http.StatusMethodNotAllowed,
			VariantFormPut:  http.StatusMethodNotAllowed,
		},
	}
	_, p := newFakePlex(t, f)

	want := "/mnt/plex/a.mp4"
	if err := p.SetPreroll(context.Background(), want); err != nil {
		t.Fatalf("SetPreroll() error: %v", err)
	}
	if f.value != want {
		t.Errorf("stored value = %q, want %q", f.value, want)
	}
}

func TestPlexSetPrerollAllVariantsFail(t *testing.T) {
	f := &fakePlex{acceptVariants: map[string]bool{}} // every write silently dropped
	_, p := newFakePlex(t, f)

	err := p.SetPreroll(context.Background(), "/mnt/plex/a.mp4")
	if !errors.Is(err, ErrValueMismatch) {
		t.Errorf("SetPreroll() error = %v, want ErrValueMismatch", err)
	}
	if len(f.setCalls) != 3 {
		t.Errorf("setter calls = %d, want all 3 variants tried", len(f.setCalls))
	}
}

func TestPlexSessionsJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Plex-Token") != "token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"MediaContainer":{"size":1,"Metadata":[
			{"sessionKey":"5","ratingKey":"101","type":"movie","title":"The Thing",
			 "viewOffset":60000,"duration":6000000,
			 "Genre":[{"tag":"Horror"},{"tag":"Sci-Fi"}],
			 "Player":{"state":"playing"}}]}}`)
	}))
	defer srv.Close()

	p := NewPlex(srv.URL, "token", 5*time.Second, true)
	sessions, err := p.ActiveSessions(context.Background())
	if err != nil {
		t.Fatalf("ActiveSessions() error: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(sessions))
	}
	s := sessions[0]
	if s.RatingKey != "101" || s.State != "playing" || len(s.Genres) != 2 {
		t.Errorf("session = %+v", s)
	}
}

func TestPlexSessionsXMLFallback(t *testing.T) {
	// Server ignores Accept and answers XML.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml;charset=utf-8")
		fmt.Fprint(w, `<MediaContainer size="1">
			<Video sessionKey="5" ratingKey="101" type="movie" title="The Thing" viewOffset="60000" duration="6000000">
				<Genre tag="Horror"/>
				<Player state="paused"/>
			</Video>
		</MediaContainer>`)
	}))
	defer srv.Close()

	p := NewPlex(srv.URL, "token", 5*time.Second, true)
	sessions, err := p.ActiveSessions(context.Background())
	if err != nil {
		t.Fatalf("ActiveSessions() error: %v", err)
	}
	if len(sessions) != 1 || sessions[0].State != "paused" || sessions[0].Genres[0] != "Horror" {
		t.Errorf("sessions = %+v", sessions)
	}
}

func TestPlexMetadataFallbackChain(t *testing.T) {
	var includeChildren string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		includeChildren = r.URL.Query().Get("includeChildren")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"MediaContainer":{"size":1,"Metadata":[
			{"ratingKey":"201","parentRatingKey":"200","grandparentRatingKey":"199",
			 "type":"episode","title":"Pilot"}]}}`)
	}))
	defer srv.Close()

	p := NewPlex(srv.URL, "token", 5*time.Second, true)
	md, err := p.GetMetadata(context.Background(), "201")
	if err != nil {
		t.Fatalf("GetMetadata() error: %v", err)
	}
	if md.GrandparentRatingKey != "199" || len(md.Genres) != 0 {
		t.Errorf("metadata = %+v", md)
	}
	// Genres can live on child items; the fetch must ask for them.
	if includeChildren != "1" {
		t.Errorf("includeChildren = %q, want 1", includeChildren)
	}
}

func TestPlexRetriesOn429(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "text/xml")
		fmt.Fprint(w, `<MediaContainer size="1"><Setting id="CinemaTrailersPrerollID" value="/a.mp4"/></MediaContainer>`)
	}))
	defer srv.Close()

	p := NewPlex(srv.URL, "token", 5*time.Second, true)
	got, err := p.GetPreroll(context.Background())
	if err != nil {
		t.Fatalf("GetPreroll() error: %v", err)
	}
	if got != "/a.mp4" || calls != 2 {
		t.Errorf("got %q after %d calls, want /a.mp4 after 2", got, calls)
	}
}

func TestPlexNotConfigured(t *testing.T) {
	p := NewPlex("", "", 5*time.Second, true)
	if p.Configured() {
		t.Error("Configured() = true for empty URL")
	}
	if _, err := p.GetPreroll(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("GetPreroll() error = %v, want ErrNotConfigured", err)
	}
}

func TestPlexConnectionErrorClassified(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := NewPlex(url, "token", 2*time.Second, true)
	err := p.TestConnection(context.Background())
	if err == nil {
		t.Fatal("TestConnection() = nil, want error against closed server")
	}
	var connErr *ConnError
	if !errors.As(err, &connErr) {
		t.Fatalf("error %T is not *ConnError", err)
	}
	if kind := ErrorKind(err); kind != ErrKindConnRefused && kind != ErrKindConnError {
		t.Errorf("ErrorKind = %q, want conn_refused or conn_error", kind)
	}
}

func TestPlexProbeReportsWorkingVariant(t *testing.T) {
	f := &fakePlex{value: "/a.mp4", acceptVariants: map[string]bool{VariantQueryPut: true}}
	_, p := newFakePlex(t, f)

	result := p.Probe(context.Background())
	if !result.Reachable || !result.PrefsReadable {
		t.Fatalf("probe = %+v, want reachable and readable", result)
	}
	if result.WorkingVariant != VariantQueryPut || result.CurrentValue != "/a.mp4" {
		t.Errorf("probe = %+v", result)
	}
	// The probe rewrote the current value; it must be unchanged.
	if f.value != "/a.mp4" {
		t.Errorf("probe changed stored value to %q", f.value)
	}
}
