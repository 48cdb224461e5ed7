package videosource

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/api/option"

	"github.com/iconidentify/makanmap/internal/domain"
	"github.com/iconidentify/makanmap/internal/retry"
)

// fakeYouTube records requests made to a stand-in Data API endpoint.
type fakeYouTube struct {
	mu       sync.Mutex
	requests []*http.Request
	handler  func(w http.ResponseWriter, r *http.Request, n int)
}

func (f *fakeYouTube) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r)
	n := len(f.requests)
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	f.handler(w, r, n)
}

func (f *fakeYouTube) reqs() []*http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*http.Request(nil), f.requests...)
}

func newTestDataAPI(t *testing.T, fake *fakeYouTube) *DataAPISource {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	src, err := NewDataAPISource(context.Background(), "test-key", testLogger(),
		option.WithEndpoint(server.URL+"/"))
	if err != nil {
		t.Fatalf("NewDataAPISource() error = %v", err)
	}
	src.SetRetryConfig(retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1})
	return src
}

func TestNewDataAPISource_RequiresKey(t *testing.T) {
	_, err := NewDataAPISource(context.Background(), "", testLogger())
	if !errors.Is(err, domain.ErrSourceUnavailable) {
		t.Errorf("NewDataAPISource() error = %v, want ErrSourceUnavailable", err)
	}
}

func TestDataAPISource_ListVideoIDsSince_Paginates(t *testing.T) {
	fake := &fakeYouTube{handler: func(w http.ResponseWriter, r *http.Request, n int) {
		if !strings.HasSuffix(r.URL.Path, "/search") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		switch r.URL.Query().Get("pageToken") {
		case "":
			w.Write([]byte(`{"nextPageToken":"p2","items":[{"id":{"videoId":"a"}},{"id":{"videoId":"b"}}]}`))
		case "p2":
			w.Write([]byte(`{"nextPageToken":"p3","items":[{"id":{"videoId":"c"}},{"id":{"videoId":"d"}}]}`))
		default:
			t.Errorf("requested page beyond limit")
			w.Write([]byte(`{"items":[]}`))
		}
	}}
	src := newTestDataAPI(t, fake)

	since := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	ids, err := src.ListVideoIDsSince(context.Background(), "UCabcdefghijklmnopqrstuv", since, 3)
	if err != nil {
		t.Fatalf("ListVideoIDsSince() error = %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"a", "b", "c"}) {
		t.Errorf("ids = %v, want [a b c]", ids)
	}
	if len(fake.reqs()) != 2 {
		t.Fatalf("requests = %d, want 2", len(fake.reqs()))
	}

	first := fake.reqs()[0].URL.Query()
	if first.Get("channelId") != "UCabcdefghijklmnopqrstuv" || first.Get("type") != "video" || first.Get("order") != "date" {
		t.Errorf("first query = %v", first)
	}
	if first.Get("publishedAfter") != "2025-06-01T00:00:00Z" {
		t.Errorf("publishedAfter = %q", first.Get("publishedAfter"))
	}
	if got := fake.reqs()[1].URL.Query().Get("maxResults"); got != "1" {
		t.Errorf("second page maxResults = %q, want 1", got)
	}
}

func TestDataAPISource_ListVideoIDs_StopsWithoutToken(t *testing.T) {
	fake := &fakeYouTube{handler: func(w http.ResponseWriter, r *http.Request, n int) {
		w.Write([]byte(`{"items":[{"id":{"videoId":"only"}}]}`))
	}}
	src := newTestDataAPI(t, fake)

	ids, err := src.ListVideoIDs(context.Background(), "UCabcdefghijklmnopqrstuv", 500)
	if err != nil {
		t.Fatalf("ListVideoIDs() error = %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"only"}) || len(fake.reqs()) != 1 {
		t.Errorf("ids = %v after %d requests", ids, len(fake.reqs()))
	}
	if fake.reqs()[0].URL.Query().Get("publishedAfter") != "" {
		t.Error("publishedAfter should be omitted without a cutoff")
	}
}

func TestDataAPISource_ResolvesHandle(t *testing.T) {
	fake := &fakeYouTube{handler: func(w http.ResponseWriter, r *http.Request, n int) {
		if strings.HasSuffix(r.URL.Path, "/channels") {
			if r.URL.Query().Get("forHandle") != "@foodvlog" {
				t.Errorf("forHandle = %q", r.URL.Query().Get("forHandle"))
			}
			w.Write([]byte(`{"items":[{"id":"UCresolvedresolvedresolv"}]}`))
			return
		}
		if got := r.URL.Query().Get("channelId"); got != "UCresolvedresolvedresolv" {
			t.Errorf("channelId = %q", got)
		}
		w.Write([]byte(`{"items":[]}`))
	}}
	src := newTestDataAPI(t, fake)

	if _, err := src.ListVideoIDs(context.Background(), "https://www.youtube.com/@foodvlog", 10); err != nil {
		t.Fatalf("ListVideoIDs() error = %v", err)
	}
}

func TestDataAPISource_QuotaExceededNotRetried(t *testing.T) {
	fake := &fakeYouTube{handler: func(w http.ResponseWriter, r *http.Request, n int) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"quota","errors":[{"domain":"youtube.quota","reason":"quotaExceeded","message":"quota"}]}}`))
	}}
	src := newTestDataAPI(t, fake)

	_, err := src.ListVideoIDs(context.Background(), "UCabcdefghijklmnopqrstuv", 10)
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("ListVideoIDs() error = %v, want ErrQuotaExceeded", err)
	}
	if len(fake.reqs()) != 1 {
		t.Errorf("requests = %d, want 1", len(fake.reqs()))
	}
}

func TestDataAPISource_ServerErrorRetried(t *testing.T) {
	fake := &fakeYouTube{handler: func(w http.ResponseWriter, r *http.Request, n int) {
		if n == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":{"code":503,"message":"backend error"}}`))
			return
		}
		w.Write([]byte(`{"items":[{"id":{"videoId":"a"}}]}`))
	}}
	src := newTestDataAPI(t, fake)

	ids, err := src.ListVideoIDs(context.Background(), "UCabcdefghijklmnopqrstuv", 10)
	if err != nil {
		t.Fatalf("ListVideoIDs() error = %v", err)
	}
	if len(ids) != 1 || len(fake.reqs()) != 2 {
		t.Errorf("ids = %v after %d requests, want 1 id after 2", ids, len(fake.reqs()))
	}
}

func TestDataAPISource_FetchVideos(t *testing.T) {
	fake := &fakeYouTube{handler: func(w http.ResponseWriter, r *http.Request, n int) {
		if !strings.HasSuffix(r.URL.Path, "/videos") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query()["id"]; strings.Join(got, ",") != "v1,v2" && !reflect.DeepEqual(got, []string{"v1", "v2"}) {
			t.Errorf("id = %v", got)
		}
		w.Write([]byte(`{"items":[
			{"id":"v1","snippet":{"channelId":"UCx","title":"Warung Test","description":"full text https://maps.google.com/maps?q=-6.2,106.8","publishedAt":"2025-05-01T10:00:00Z","thumbnails":{"default":{"url":"https://i/d.jpg"},"high":{"url":"https://i/h.jpg"}}},"statistics":{"viewCount":"50000"}},
			{"id":"v2","snippet":{"title":"No stats","publishedAt":"bad"}}
		]}`))
	}}
	src := newTestDataAPI(t, fake)

	videos, err := src.FetchVideos(context.Background(), []string{"v1", "v2"})
	if err != nil {
		t.Fatalf("FetchVideos() error = %v", err)
	}
	if len(videos) != 2 {
		t.Fatalf("videos = %d, want 2", len(videos))
	}

	v := videos[0]
	if v.Title != "Warung Test" || v.ViewCount != 50000 || v.ChannelID != "UCx" {
		t.Errorf("video = %+v", v)
	}
	if v.ThumbnailURL != "https://i/h.jpg" {
		t.Errorf("ThumbnailURL = %q, want high", v.ThumbnailURL)
	}
	if !v.PublishedAt.Equal(time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("PublishedAt = %v", v.PublishedAt)
	}
	if !videos[1].PublishedAt.IsZero() || videos[1].ViewCount != 0 {
		t.Errorf("second video = %+v", videos[1])
	}
}

func TestDataAPISource_FetchVideo_NotFound(t *testing.T) {
	src := newTestDataAPI(t, &fakeYouTube{handler: func(w http.ResponseWriter, r *http.Request, n int) {
		w.Write([]byte(`{"items":[]}`))
	}})

	_, err := src.FetchVideo(context.Background(), "gone")
	if !errors.Is(err, domain.ErrVideoNotFound) {
		t.Fatalf("FetchVideo() error = %v, want ErrVideoNotFound", err)
	}
}

func TestDataAPISource_FetchVideos_BatchLimit(t *testing.T) {
	src := newTestDataAPI(t, &fakeYouTube{handler: func(w http.ResponseWriter, r *http.Request, n int) {
		t.Error("no request expected")
	}})

	ids := make([]string, maxBatchSize+1)
	if _, err := src.FetchVideos(context.Background(), ids); err == nil {
		t.Error("FetchVideos() should reject more than 50 ids")
	}
}

func TestDataAPISource_ChannelAvatar(t *testing.T) {
	fake := &fakeYouTube{handler: func(w http.ResponseWriter, r *http.Request, n int) {
		if r.URL.Query().Get("id") != "UCabcdefghijklmnopqrstuv" {
			w.Write([]byte(`{"items":[]}`))
			return
		}
		w.Write([]byte(`{"items":[{"id":"UCabcdefghijklmnopqrstuv","snippet":{"thumbnails":{"medium":{"url":"https://yt3/avatar.jpg"}}}}]}`))
	}}
	src := newTestDataAPI(t, fake)

	got, err := src.ChannelAvatar(context.Background(), "UCabcdefghijklmnopqrstuv")
	if err != nil {
		t.Fatalf("ChannelAvatar() error = %v", err)
	}
	if got != "https://yt3/avatar.jpg" {
		t.Errorf("ChannelAvatar() = %q", got)
	}

	if _, err := src.ChannelAvatar(context.Background(), "not a channel"); !errors.Is(err, domain.ErrChannelNotFound) {
		t.Errorf("ChannelAvatar() error = %v, want ErrChannelNotFound", err)
	}
}
