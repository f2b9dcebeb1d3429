package member

// SyncStatus tags every local record with its relation to the remote copy.
type SyncStatus string

const (
	StatusNotSynced SyncStatus = "NOT_SYNCED"
	StatusUpdated   SyncStatus = "UPDATED"
	StatusSynced    SyncStatus = "SYNCED"
)

func (s SyncStatus) Valid() bool {
	switch s {
	case StatusNotSynced, StatusUpdated, StatusSynced:
		return true
	default:
		return false
	}
}

// Dirty reports whether the record holds local changes the remote has not confirmed.
func (s SyncStatus) Dirty() bool {
	switch s {
	case StatusNotSynced, StatusUpdated:
		return true
	case StatusSynced:
		return false
	default:
		return true
	}
}

// AfterLocalEdit is the status a record moves to when the user edits it.
// A record that was never pushed stays NOT_SYNCED.
func (s SyncStatus) AfterLocalEdit() SyncStatus {
	switch s {
	case StatusNotSynced:
		return StatusNotSynced
	case StatusUpdated, StatusSynced:
		return StatusUpdated
	default:
		return StatusUpdated
	}
}

type Record struct {
	ID          string     `gorm:"type:varchar(36);primaryKey"`
	FirstName   string     `gorm:"not null"`
	MiddleName  string     `gorm:"not null;default:''"`
	LastName    string     `gorm:"not null;default:''"`
	Town        string     `gorm:"not null;default:''"`
	ShortName   string     `gorm:"not null;uniqueIndex"`
	ImageURL    *string    `gorm:"column:image_url"`
	Comment     *string    `gorm:"type:text"`
	ChildNumber *int       `gorm:"column:child_number"`
	ParentID    *string    `gorm:"type:varchar(36);index"`
	SpouseID    *string    `gorm:"type:varchar(36);index"`
	CreatedAt   int64      `gorm:"not null;autoCreateTime:false"`
	CreatedBy   string     `gorm:"not null;default:''"`
	ModifiedAt  int64      `gorm:"not null;default:0"`
	SyncStatus  SyncStatus `gorm:"type:varchar(16);not null;index"`
	Version     int64      `gorm:"not null;default:1"`
}

func (Record) TableName() string {
	return "members"
}

// Tombstone records a local delete whose remote counterpart is not confirmed yet.
type Tombstone struct {
	RecordID  string `gorm:"type:varchar(36);primaryKey"`
	DeletedAt int64  `gorm:"not null"`
}

func (Tombstone) TableName() string {
	return "member_tombstones"
}

type CreateInput struct {
	FirstName   string
	MiddleName  string
	LastName    string
	Town        string
	ImageURL    *string
	Comment     *string
	ChildNumber *int
	ParentID    *string
	SpouseID    *string
	CreatedBy   string
}

// UpdateInput carries only the fields to change. ClearParent/ClearSpouse
// remove a link, since a nil pointer means "leave as is".
type UpdateInput struct {
	ID          string
	FirstName   *string
	MiddleName  *string
	LastName    *string
	Town        *string
	ImageURL    *string
	Comment     *string
	ChildNumber *int
	ParentID    *string
	SpouseID    *string
	ClearParent bool
	ClearSpouse bool
}
