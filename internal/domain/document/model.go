package document

import (
	"time"

	"gorm.io/datatypes"
)

const (
	DefaultPageSize = 200
	MaxPageSize     = 1000
	maxIDLength     = 64
)

// Document is the server copy of one member record. Deletes are soft so
// other devices learn about them through ListModifiedSince.
type Document struct {
	ID        string         `gorm:"type:varchar(64);primaryKey"`
	OwnerID   string         `gorm:"type:varchar(64);not null;index:idx_member_documents_owner_updated,priority:1"`
	Fields    datatypes.JSON `gorm:"type:jsonb;not null"`
	UpdatedAt int64          `gorm:"not null;autoUpdateTime:false;index:idx_member_documents_owner_updated,priority:2"`
	Deleted   bool           `gorm:"not null;default:false"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
}

func (Document) TableName() string {
	return "member_documents"
}

type ListInput struct {
	OwnerID string
	Since   int64
	AfterID string
	Limit   int
}

// Page is ordered by (UpdatedAt, ID). NextSince and NextAfterID resume the
// listing right after the last item.
type Page struct {
	Items       []Document
	NextSince   int64
	NextAfterID string
	HasMore     bool
}
