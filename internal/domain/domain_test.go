package domain

import (
	"errors"
	"testing"
	"time"
)

// =============================================================================
// SyncRun Tests
// =============================================================================

func TestNewSyncRun(t *testing.T) {
	run := NewSyncRun(SyncRunID("run_1"), 3)

	if run.Status != SyncStatusRunning {
		t.Errorf("Status = %q, want %q", run.Status, SyncStatusRunning)
	}
	if run.TotalChannels != 3 {
		t.Errorf("TotalChannels = %d, want 3", run.TotalChannels)
	}
	if run.Errors == nil {
		t.Error("Errors should be an empty slice, not nil")
	}
	if run.StartedAt.IsZero() {
		t.Error("StartedAt should be set")
	}
	if run.CompletedAt != nil {
		t.Error("CompletedAt should be nil for a running run")
	}
}

func TestSyncRun_Progress(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		processed int
		want      int
	}{
		{"no videos", 0, 0, 0},
		{"none processed", 10, 0, 0},
		{"half", 10, 5, 50},
		{"rounds up", 3, 2, 67},
		{"rounds down", 3, 1, 33},
		{"all", 7, 7, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := &SyncRun{TotalVideos: tt.total, ProcessedVideos: tt.processed}
			if got := run.Progress(); got != tt.want {
				t.Errorf("Progress() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSyncRun_MarkCompleted(t *testing.T) {
	run := NewSyncRun("run_1", 1)
	run.AddError("Channel A: boom")
	run.MarkCompleted()

	if run.Status != SyncStatusCompleted {
		t.Errorf("Status = %q, want %q", run.Status, SyncStatusCompleted)
	}
	if run.CompletedAt == nil {
		t.Fatal("CompletedAt should be set")
	}
	if !run.HasErrors() {
		t.Error("completed run should keep its channel errors")
	}
}

func TestSyncRun_MarkFailed(t *testing.T) {
	run := NewSyncRun("run_1", 1)
	run.MarkFailed("store unavailable")

	if run.Status != SyncStatusFailed {
		t.Errorf("Status = %q, want %q", run.Status, SyncStatusFailed)
	}
	if len(run.Errors) != 1 || run.Errors[0] != "store unavailable" {
		t.Errorf("Errors = %v, want [store unavailable]", run.Errors)
	}
}

func TestSyncStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status SyncStatus
		want   bool
	}{
		{SyncStatusRunning, false},
		{SyncStatusCompleted, true},
		{SyncStatusFailed, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsTerminal(); got != tt.want {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSyncRun_Clone(t *testing.T) {
	run := NewSyncRun("run_1", 2)
	run.AddError("first")
	run.MarkCompleted()

	clone := run.Clone()
	clone.Errors[0] = "changed"
	*clone.CompletedAt = time.Time{}

	if run.Errors[0] != "first" {
		t.Error("Clone should not share the Errors slice")
	}
	if run.CompletedAt.IsZero() {
		t.Error("Clone should not share CompletedAt")
	}
}

// =============================================================================
// Restaurant Tests
// =============================================================================

func TestRestaurant_Validate(t *testing.T) {
	valid := Restaurant{VideoID: "v1", MapsURL: "https://maps.app.goo.gl/x", Latitude: -6.2, Longitude: 106.8}

	tests := []struct {
		name    string
		mutate  func(r *Restaurant)
		wantErr bool
	}{
		{"valid", func(r *Restaurant) {}, false},
		{"missing video", func(r *Restaurant) { r.VideoID = "" }, true},
		{"missing url", func(r *Restaurant) { r.MapsURL = "" }, true},
		{"lat too high", func(r *Restaurant) { r.Latitude = 90.1 }, true},
		{"lat too low", func(r *Restaurant) { r.Latitude = -91 }, true},
		{"lng too high", func(r *Restaurant) { r.Longitude = 180.5 }, true},
		{"boundary values", func(r *Restaurant) { r.Latitude = 90; r.Longitude = -180 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			err := r.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidRestaurant) {
				t.Errorf("Validate() error = %v, want ErrInvalidRestaurant", err)
			}
		})
	}
}

func TestRestaurant_MergeFrom(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	existing := &Restaurant{
		ID:        "r_1",
		Name:      "Old Name",
		VideoID:   "v1",
		MapsURL:   "https://maps.app.goo.gl/x",
		ViewCount: 100,
		CreatedAt: created,
	}
	fresh := &Restaurant{
		ID:        "r_other",
		Name:      "New Name",
		VideoID:   "v1",
		MapsURL:   "https://maps.app.goo.gl/x",
		Latitude:  1.5,
		Longitude: 2.5,
		ViewCount: 50000,
	}

	existing.MergeFrom(fresh)

	if existing.ID != "r_1" {
		t.Errorf("ID = %q, want r_1", existing.ID)
	}
	if existing.Name != "New Name" || existing.ViewCount != 50000 {
		t.Errorf("mutable fields not merged: %+v", existing)
	}
	if existing.Latitude != 1.5 || existing.Longitude != 2.5 {
		t.Errorf("coordinates not refreshed: %f,%f", existing.Latitude, existing.Longitude)
	}
	if !existing.CreatedAt.Equal(created) {
		t.Error("CreatedAt should be preserved")
	}
}

// =============================================================================
// Channel / Suggestion Tests
// =============================================================================

func TestNewChannel_NameFallback(t *testing.T) {
	ch := NewChannel("ch_1", "  UCabc  ", "  ")
	if ch.ExternalID != "UCabc" {
		t.Errorf("ExternalID = %q, want UCabc", ch.ExternalID)
	}
	if ch.Name != "UCabc" {
		t.Errorf("Name = %q, want fallback to external id", ch.Name)
	}
}

func TestChannelSuggestion_Review(t *testing.T) {
	s := NewChannelSuggestion("sg_1", "UCabc", "Food Vlog", "")
	if err := s.Review(true); err != nil {
		t.Fatalf("Review() error = %v", err)
	}
	if s.Status != SuggestionApproved || s.ReviewedAt == nil {
		t.Errorf("unexpected suggestion after approval: %+v", s)
	}
	if err := s.Review(false); !errors.Is(err, ErrSuggestionReviewed) {
		t.Errorf("second Review() error = %v, want ErrSuggestionReviewed", err)
	}
}

// =============================================================================
// Video / Error Tests
// =============================================================================

func TestVideo_PublishedBefore(t *testing.T) {
	cutoff := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		published time.Time
		want      bool
	}{
		{"unknown date", time.Time{}, false},
		{"older", cutoff.Add(-time.Hour), true},
		{"newer", cutoff.Add(time.Hour), false},
		{"equal", cutoff, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &Video{PublishedAt: tt.published}
			if got := v.PublishedBefore(cutoff); got != tt.want {
				t.Errorf("PublishedBefore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChannelError(t *testing.T) {
	base := errors.New("yt-dlp exited")
	err := NewChannelError("Food Vlog", "list videos", base)

	if got, want := err.Error(), "list videos [Food Vlog]: yt-dlp exited"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, base) {
		t.Error("ChannelError should unwrap to the underlying error")
	}

	noChannel := NewChannelError("", "load channels", base)
	if got, want := noChannel.Error(), "load channels: yt-dlp exited"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
