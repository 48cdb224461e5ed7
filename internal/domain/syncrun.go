package domain

import (
	"math"
	"time"
)

// SyncRunID is a unique identifier for a sync run.
type SyncRunID string

// String returns the string representation of the SyncRunID.
func (id SyncRunID) String() string {
	return string(id)
}

// SyncStatus represents the current state of a sync run.
type SyncStatus string

const (
	SyncStatusRunning   SyncStatus = "running"
	SyncStatusCompleted SyncStatus = "completed"
	SyncStatusFailed    SyncStatus = "failed"
)

// IsTerminal reports whether no further updates are allowed.
func (s SyncStatus) IsTerminal() bool {
	return s == SyncStatusCompleted || s == SyncStatusFailed
}

// SyncRun is the progress record of one synchronization run. It is created
// running and written incrementally until it completes or fails.
type SyncRun struct {
	ID                 SyncRunID  `json:"id"`
	Status             SyncStatus `json:"status"`
	TotalChannels      int        `json:"total_channels"`
	CurrentChannel     int        `json:"current_channel"`
	CurrentChannelName string     `json:"current_channel_name,omitempty"`
	TotalVideos        int        `json:"total_videos"`
	ProcessedVideos    int        `json:"processed_videos"`
	SkippedVideos      int        `json:"skipped_videos"`
	Added              int        `json:"added"`
	Updated            int        `json:"updated"`
	Errors             []string   `json:"errors"`
	Method             string     `json:"method,omitempty"`
	StartedAt          time.Time  `json:"started_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}

// NewSyncRun creates a running sync run.
func NewSyncRun(id SyncRunID, totalChannels int) *SyncRun {
	return &SyncRun{
		ID:            id,
		Status:        SyncStatusRunning,
		TotalChannels: totalChannels,
		Errors:        []string{},
		StartedAt:     time.Now().UTC(),
	}
}

// Progress returns processed/total as a rounded percentage, 0 when no
// videos have been counted yet.
func (r *SyncRun) Progress() int {
	if r.TotalVideos <= 0 {
		return 0
	}
	return int(math.Round(float64(r.ProcessedVideos) / float64(r.TotalVideos) * 100))
}

// AddError appends a message to the error list.
func (r *SyncRun) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// HasErrors reports whether any channel failed during the run.
func (r *SyncRun) HasErrors() bool {
	return len(r.Errors) > 0
}

// MarkCompleted finishes the run.
func (r *SyncRun) MarkCompleted() {
	now := time.Now().UTC()
	r.Status = SyncStatusCompleted
	r.CompletedAt = &now
}

// MarkFailed finishes the run as failed with the given message.
func (r *SyncRun) MarkFailed(msg string) {
	now := time.Now().UTC()
	r.Status = SyncStatusFailed
	r.CompletedAt = &now
	if msg != "" {
		r.Errors = append(r.Errors, msg)
	}
}

// Clone returns a deep copy safe to hand to concurrent readers.
func (r *SyncRun) Clone() *SyncRun {
	c := *r
	c.Errors = append([]string(nil), r.Errors...)
	if c.Errors == nil {
		c.Errors = []string{}
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
