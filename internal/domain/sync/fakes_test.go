package sync

import (
	"context"
	"sort"

	"threegen/internal/domain/member"
)

type fakeLocalStore struct {
	records    map[string]*member.Record
	tombstones map[string]*member.Tombstone
	createErr  error
}

func newFakeLocalStore() *fakeLocalStore {
	return &fakeLocalStore{
		records:    make(map[string]*member.Record),
		tombstones: make(map[string]*member.Tombstone),
	}
}

func (r *fakeLocalStore) Transaction(ctx context.Context, fn func(member.Repository) error) error {
	records := make(map[string]*member.Record, len(r.records))
	for id, record := range r.records {
		copied := *record
		records[id] = &copied
	}
	tombstones := make(map[string]*member.Tombstone, len(r.tombstones))
	for id, tombstone := range r.tombstones {
		copied := *tombstone
		tombstones[id] = &copied
	}

	if err := fn(r); err != nil {
		r.records = records
		r.tombstones = tombstones
		return err
	}
	return nil
}

func (r *fakeLocalStore) ListAll(ctx context.Context) ([]member.Record, error) {
	result := make([]member.Record, 0, len(r.records))
	for _, record := range r.records {
		result = append(result, *record)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *fakeLocalStore) ListUnsynced(ctx context.Context) ([]member.Record, error) {
	all, _ := r.ListAll(ctx)
	result := make([]member.Record, 0)
	for _, record := range all {
		if record.SyncStatus != member.StatusSynced {
			result = append(result, record)
		}
	}
	return result, nil
}

func (r *fakeLocalStore) GetByID(ctx context.Context, id string) (*member.Record, error) {
	record, ok := r.records[id]
	if !ok {
		return nil, member.ErrMemberNotFound
	}
	copied := *record
	return &copied, nil
}

func (r *fakeLocalStore) FindByShortName(ctx context.Context, shortName string) (*member.Record, error) {
	for _, record := range r.records {
		if record.ShortName == shortName {
			copied := *record
			return &copied, nil
		}
	}
	return nil, member.ErrMemberNotFound
}

func (r *fakeLocalStore) IsShortNameTaken(ctx context.Context, shortName string) (bool, error) {
	_, err := r.FindByShortName(ctx, shortName)
	return err == nil, nil
}

func (r *fakeLocalStore) Create(ctx context.Context, record *member.Record) error {
	if r.createErr != nil {
		return r.createErr
	}
	if holder, err := r.FindByShortName(ctx, record.ShortName); err == nil && holder.ID != record.ID {
		return member.ErrShortNameTaken
	}
	copied := *record
	r.records[record.ID] = &copied
	return nil
}

func (r *fakeLocalStore) Update(ctx context.Context, record *member.Record) error {
	if _, ok := r.records[record.ID]; !ok {
		return member.ErrMemberNotFound
	}
	copied := *record
	r.records[record.ID] = &copied
	return nil
}

func (r *fakeLocalStore) Upsert(ctx context.Context, record *member.Record) error {
	if r.createErr != nil {
		return r.createErr
	}
	if holder, err := r.FindByShortName(ctx, record.ShortName); err == nil && holder.ID != record.ID {
		return member.ErrShortNameTaken
	}
	copied := *record
	r.records[record.ID] = &copied
	return nil
}

func (r *fakeLocalStore) UpdateStatus(ctx context.Context, id string, status member.SyncStatus) error {
	record, ok := r.records[id]
	if !ok {
		return member.ErrMemberNotFound
	}
	record.SyncStatus = status
	return nil
}

func (r *fakeLocalStore) MarkSynced(ctx context.Context, id string, version int64, createdBy string) (bool, error) {
	record, ok := r.records[id]
	if !ok || record.Version != version {
		return false, nil
	}
	record.SyncStatus = member.StatusSynced
	if record.CreatedBy == "" {
		record.CreatedBy = createdBy
	}
	return true, nil
}

func (r *fakeLocalStore) Delete(ctx context.Context, id string) error {
	delete(r.records, id)
	return nil
}

func (r *fakeLocalStore) ClearReferences(ctx context.Context, id string, markDirty bool) (int64, error) {
	var affected int64
	for _, record := range r.records {
		changed := false
		if record.ParentID != nil && *record.ParentID == id {
			record.ParentID = nil
			changed = true
		}
		if record.SpouseID != nil && *record.SpouseID == id {
			record.SpouseID = nil
			changed = true
		}
		if changed {
			affected++
			if markDirty {
				record.SyncStatus = record.SyncStatus.AfterLocalEdit()
				record.Version++
			}
		}
	}
	return affected, nil
}

func (r *fakeLocalStore) AddTombstone(ctx context.Context, tombstone *member.Tombstone) error {
	copied := *tombstone
	r.tombstones[tombstone.RecordID] = &copied
	return nil
}

func (r *fakeLocalStore) ListTombstones(ctx context.Context) ([]member.Tombstone, error) {
	result := make([]member.Tombstone, 0, len(r.tombstones))
	for _, tombstone := range r.tombstones {
		result = append(result, *tombstone)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RecordID < result[j].RecordID })
	return result, nil
}

func (r *fakeLocalStore) HasTombstone(ctx context.Context, id string) (bool, error) {
	_, ok := r.tombstones[id]
	return ok, nil
}

func (r *fakeLocalStore) RemoveTombstone(ctx context.Context, id string) error {
	delete(r.tombstones, id)
	return nil
}

type fakeRemoteStore struct {
	docs      map[string]*Document
	clock     int64
	putErr    map[string]error
	deleteErr map[string]error
	queryErr  error
	onPut     func(id string)
	puts      int
	lastSince int64
}

func newFakeRemoteStore() *fakeRemoteStore {
	return &fakeRemoteStore{
		docs:      make(map[string]*Document),
		clock:     1000,
		putErr:    make(map[string]error),
		deleteErr: make(map[string]error),
		lastSince: -1,
	}
}

func (r *fakeRemoteStore) tick() int64 {
	r.clock++
	return r.clock
}

func (r *fakeRemoteStore) Put(ctx context.Context, id string, fields DocumentFields) error {
	if err := r.putErr[id]; err != nil {
		return err
	}
	r.puts++
	r.docs[id] = &Document{ID: id, Fields: fields, UpdatedAt: r.tick()}
	if r.onPut != nil {
		r.onPut(id)
	}
	return nil
}

func (r *fakeRemoteStore) Get(ctx context.Context, id string) (*Document, error) {
	doc, ok := r.docs[id]
	if !ok || doc.Deleted {
		return nil, nil
	}
	copied := *doc
	return &copied, nil
}

func (r *fakeRemoteStore) QueryModifiedSince(ctx context.Context, since int64) ([]Document, error) {
	r.lastSince = since
	if r.queryErr != nil {
		return nil, r.queryErr
	}
	result := make([]Document, 0)
	for _, doc := range r.docs {
		if doc.UpdatedAt >= since {
			result = append(result, *doc)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].UpdatedAt != result[j].UpdatedAt {
			return result[i].UpdatedAt < result[j].UpdatedAt
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *fakeRemoteStore) Delete(ctx context.Context, id string) error {
	if err := r.deleteErr[id]; err != nil {
		return err
	}
	doc, ok := r.docs[id]
	if !ok {
		return nil
	}
	doc.Deleted = true
	doc.UpdatedAt = r.tick()
	return nil
}

type fakeWatermarkStore struct {
	value  Watermark
	writes int
}

func (w *fakeWatermarkStore) Read(ctx context.Context) (Watermark, error) {
	return w.value, nil
}

func (w *fakeWatermarkStore) Write(ctx context.Context, watermark Watermark) error {
	w.writes++
	w.value = watermark
	return nil
}

func (w *fakeWatermarkStore) Reset(ctx context.Context) error {
	w.value = Watermark{}
	return nil
}

type fakeIdentity struct {
	ownerID string
}

func (i fakeIdentity) CurrentOwnerID(ctx context.Context) (string, bool) {
	return i.ownerID, i.ownerID != ""
}

type device struct {
	local      *fakeLocalStore
	watermarks *fakeWatermarkStore
	members    *member.Service
	sync       *Service
}

func newDevice(remote *fakeRemoteStore, ownerID string) *device {
	local := newFakeLocalStore()
	watermarks := &fakeWatermarkStore{}
	return &device{
		local:      local,
		watermarks: watermarks,
		members:    member.NewService(local, fakeIdentity{ownerID: ownerID}),
		sync:       NewService(local, remote, watermarks, fakeIdentity{ownerID: ownerID}),
	}
}

func stringPtr(value string) *string {
	return &value
}
