package sync

import (
	"fmt"
	"strings"
)

// DocumentFields is the remote representation of a member record.
// Nil pointers are sent as explicit nulls since every put replaces the whole document.
type DocumentFields struct {
	ID          string  `json:"id"`
	FirstName   string  `json:"firstName"`
	MiddleName  string  `json:"middleName"`
	LastName    string  `json:"lastName"`
	Town        string  `json:"town"`
	ShortName   string  `json:"shortName"`
	ImageURL    *string `json:"imageUrl"`
	Comment     *string `json:"comment"`
	ChildNumber *int    `json:"childNumber"`
	ParentID    *string `json:"parentId"`
	SpouseID    *string `json:"spouseId"`
	CreatedAt   int64   `json:"createdAt"`
	CreatedBy   string  `json:"createdBy"`
}

// Document is what the remote store returns: the fields plus the
// server-assigned modification marker.
type Document struct {
	ID        string         `json:"id"`
	Fields    DocumentFields `json:"fields"`
	UpdatedAt int64          `json:"updatedAt"`
	Deleted   bool           `json:"deleted"`
}

type Watermark struct {
	Timestamp int64
	OwnerID   string
}

type OutcomeStatus string

const (
	OutcomePushed     OutcomeStatus = "pushed"
	OutcomeDeleted    OutcomeStatus = "deleted"
	OutcomeStillDirty OutcomeStatus = "still_dirty"
	OutcomeFailed     OutcomeStatus = "failed"
)

type RecordOutcome struct {
	RecordID  string
	ShortName string
	Status    OutcomeStatus
	Err       error
}

func (o RecordOutcome) Message() string {
	label := o.RecordID
	if o.ShortName != "" {
		label = o.ShortName + " (" + o.RecordID + ")"
	}

	switch o.Status {
	case OutcomePushed:
		return fmt.Sprintf("pushed %s", label)
	case OutcomeDeleted:
		return fmt.Sprintf("deleted %s on remote", label)
	case OutcomeStillDirty:
		return fmt.Sprintf("pushed %s, edited meanwhile, will push again", label)
	case OutcomeFailed:
		return fmt.Sprintf("failed to push %s: %v", label, o.Err)
	default:
		return fmt.Sprintf("%s: %s", label, o.Status)
	}
}

type PushResult struct {
	Outcomes []RecordOutcome
	Pushed   int
	Deleted  int
	Failed   int
}

func (r *PushResult) add(outcome RecordOutcome) {
	r.Outcomes = append(r.Outcomes, outcome)
	switch outcome.Status {
	case OutcomePushed:
		r.Pushed++
	case OutcomeDeleted:
		r.Deleted++
	case OutcomeFailed:
		r.Failed++
	case OutcomeStillDirty:
	}
}

// Message joins every per-record outcome, one per line.
func (r *PushResult) Message() string {
	lines := make([]string, 0, len(r.Outcomes))
	for _, outcome := range r.Outcomes {
		lines = append(lines, outcome.Message())
	}
	return strings.Join(lines, "\n")
}

type PullInput struct {
	IsFirstRun bool
}

type PullResult struct {
	FullPull  bool
	Fetched   int
	Inserted  int
	Updated   int
	Deleted   int
	Conflicts int
	Failed    int
	Watermark Watermark
	Messages  []string
}

func (r *PullResult) note(format string, args ...any) {
	r.Messages = append(r.Messages, fmt.Sprintf(format, args...))
}

func (r *PullResult) Message() string {
	return strings.Join(r.Messages, "\n")
}

type Result struct {
	Push *PushResult
	Pull *PullResult
}

// SyncState is the single-row table holding the pull watermark on the device.
type SyncState struct {
	ID                int    `gorm:"primaryKey;autoIncrement:false"`
	LastSyncTimestamp int64  `gorm:"not null;default:0"`
	OwnerID           string `gorm:"not null;default:''"`
	UpdatedAt         int64  `gorm:"autoUpdateTime:milli"`
}

func (SyncState) TableName() string {
	return "sync_state"
}
