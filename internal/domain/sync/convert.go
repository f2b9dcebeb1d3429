package sync

import "threegen/internal/domain/member"

func FieldsFromRecord(record member.Record) DocumentFields {
	return DocumentFields{
		ID:          record.ID,
		FirstName:   record.FirstName,
		MiddleName:  record.MiddleName,
		LastName:    record.LastName,
		Town:        record.Town,
		ShortName:   record.ShortName,
		ImageURL:    record.ImageURL,
		Comment:     record.Comment,
		ChildNumber: record.ChildNumber,
		ParentID:    record.ParentID,
		SpouseID:    record.SpouseID,
		CreatedAt:   record.CreatedAt,
		CreatedBy:   record.CreatedBy,
	}
}

// recordFromDocument builds a SYNCED local record. Bookkeeping fields that
// only exist locally are left to the caller.
func recordFromDocument(doc Document) member.Record {
	fields := doc.Fields
	return member.Record{
		ID:          doc.ID,
		FirstName:   fields.FirstName,
		MiddleName:  fields.MiddleName,
		LastName:    fields.LastName,
		Town:        fields.Town,
		ShortName:   fields.ShortName,
		ImageURL:    fields.ImageURL,
		Comment:     fields.Comment,
		ChildNumber: fields.ChildNumber,
		ParentID:    nonEmpty(fields.ParentID),
		SpouseID:    nonEmpty(fields.SpouseID),
		CreatedAt:   fields.CreatedAt,
		CreatedBy:   fields.CreatedBy,
		ModifiedAt:  doc.UpdatedAt,
		SyncStatus:  member.StatusSynced,
	}
}

func nonEmpty(value *string) *string {
	if value == nil || *value == "" {
		return nil
	}
	return value
}
