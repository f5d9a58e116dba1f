package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/jazz-17/reservation-system/internal/model"
	"github.com/jazz-17/reservation-system/internal/repository"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = fmt.Sprintf("user-%d", len(m.users)+1)
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	return m.users[id], nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

// ── Mock AllowListRepository ──

type mockAllowListRepo struct {
	entries map[string]*model.AllowListEntry
}

func newMockAllowListRepo() *mockAllowListRepo {
	return &mockAllowListRepo{entries: make(map[string]*model.AllowListEntry)}
}

func (m *mockAllowListRepo) GetByEmail(_ context.Context, email string) (*model.AllowListEntry, error) {
	for _, e := range m.entries {
		if e.Email == email {
			return e, nil
		}
	}
	return nil, nil
}

func (m *mockAllowListRepo) List(_ context.Context) ([]model.AllowListEntry, error) {
	var result []model.AllowListEntry
	for _, e := range m.entries {
		result = append(result, *e)
	}
	return result, nil
}

func (m *mockAllowListRepo) Create(_ context.Context, entry *model.AllowListEntry) error {
	if entry.EntryID == "" {
		entry.EntryID = fmt.Sprintf("entry-%d", len(m.entries)+1)
	}
	m.entries[entry.EntryID] = entry
	return nil
}

func (m *mockAllowListRepo) Delete(_ context.Context, id string) error {
	delete(m.entries, id)
	return nil
}

// ── Mock ReservationRepository ──

type mockReservationRepo struct {
	reservations map[string]*model.Reservation
	seq          int
}

func newMockReservationRepo() *mockReservationRepo {
	return &mockReservationRepo{reservations: make(map[string]*model.Reservation)}
}

func (m *mockReservationRepo) Create(_ context.Context, reservation *model.Reservation) error {
	if reservation.ReservationID == "" {
		m.seq++
		reservation.ReservationID = fmt.Sprintf("resv-%d", m.seq)
	}
	if reservation.CreatedAt.IsZero() {
		reservation.CreatedAt = time.Now().UTC()
	}
	clone := *reservation
	m.reservations[reservation.ReservationID] = &clone
	return nil
}

func (m *mockReservationRepo) GetByID(_ context.Context, id string) (*model.Reservation, error) {
	r, ok := m.reservations[id]
	if !ok {
		return nil, nil
	}
	clone := *r
	return &clone, nil
}

func (m *mockReservationRepo) Update(_ context.Context, reservation *model.Reservation) error {
	clone := *reservation
	m.reservations[reservation.ReservationID] = &clone
	return nil
}

func (m *mockReservationRepo) List(_ context.Context, filter repository.ReservationFilter) ([]model.Reservation, int64, error) {
	var result []model.Reservation
	for _, r := range m.reservations {
		if filter.UserID != "" && r.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.From != nil && r.StartsAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !r.StartsAt.Before(*filter.To) {
			continue
		}
		result = append(result, *r)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartsAt.After(result[j].StartsAt)
	})
	return result, int64(len(result)), nil
}

func blocksIn(status model.ReservationStatus, statuses []model.ReservationStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func (m *mockReservationRepo) CountBlocking(_ context.Context, userID string, statuses []model.ReservationStatus) (int64, error) {
	var count int64
	for _, r := range m.reservations {
		if r.UserID == userID && blocksIn(r.Status, statuses) {
			count++
		}
	}
	return count, nil
}

func (m *mockReservationRepo) CountGroupInWindow(_ context.Context, school string, baseYear int, startUtc, endUtc time.Time, statuses []model.ReservationStatus) (int64, error) {
	var count int64
	for _, r := range m.reservations {
		if r.School != school || r.BaseYear == nil || *r.BaseYear != baseYear {
			continue
		}
		if !blocksIn(r.Status, statuses) {
			continue
		}
		if !r.StartsAt.Before(startUtc) && r.StartsAt.Before(endUtc) {
			count++
		}
	}
	return count, nil
}

func (m *mockReservationRepo) ExistsOverlapping(_ context.Context, start, end time.Time, statuses []model.ReservationStatus, excludeID string) (bool, error) {
	for _, r := range m.reservations {
		if r.ReservationID == excludeID {
			continue
		}
		if blocksIn(r.Status, statuses) && r.StartsAt.Before(end) && r.EndsAt.After(start) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockReservationRepo) ListOverlapping(_ context.Context, start, end time.Time, statuses []model.ReservationStatus) ([]model.Reservation, error) {
	var result []model.Reservation
	for _, r := range m.reservations {
		if blocksIn(r.Status, statuses) && r.StartsAt.Before(end) && r.EndsAt.After(start) {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockReservationRepo) ListPendingCreatedBefore(_ context.Context, cutoff time.Time) ([]model.Reservation, error) {
	var result []model.Reservation
	for _, r := range m.reservations {
		if r.Status == model.StatusPending && !r.CreatedAt.After(cutoff) {
			result = append(result, *r)
		}
	}
	return result, nil
}

// ── Mock BlackoutRepository ──

type mockBlackoutRepo struct {
	blackouts map[string]*model.Blackout
	seq       int
}

func newMockBlackoutRepo() *mockBlackoutRepo {
	return &mockBlackoutRepo{blackouts: make(map[string]*model.Blackout)}
}

func (m *mockBlackoutRepo) Create(_ context.Context, blackout *model.Blackout) error {
	if blackout.BlackoutID == "" {
		m.seq++
		blackout.BlackoutID = fmt.Sprintf("blackout-%d", m.seq)
	}
	m.blackouts[blackout.BlackoutID] = blackout
	return nil
}

func (m *mockBlackoutRepo) GetByID(_ context.Context, id string) (*model.Blackout, error) {
	return m.blackouts[id], nil
}

func (m *mockBlackoutRepo) Delete(_ context.Context, id string) error {
	delete(m.blackouts, id)
	return nil
}

func (m *mockBlackoutRepo) List(_ context.Context) ([]model.Blackout, error) {
	var result []model.Blackout
	for _, b := range m.blackouts {
		result = append(result, *b)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartsAt.Before(result[j].StartsAt)
	})
	return result, nil
}

func (m *mockBlackoutRepo) ExistsOverlapping(_ context.Context, start, end time.Time) (bool, error) {
	for _, b := range m.blackouts {
		if b.StartsAt.Before(end) && b.EndsAt.After(start) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockBlackoutRepo) ListOverlapping(_ context.Context, start, end time.Time) ([]model.Blackout, error) {
	var result []model.Blackout
	for _, b := range m.blackouts {
		if b.StartsAt.Before(end) && b.EndsAt.After(start) {
			result = append(result, *b)
		}
	}
	return result, nil
}

// ── Mock ArtifactRepository ──

type mockArtifactRepo struct {
	artifacts map[string]*model.ReservationArtifact
	seq       int
}

func newMockArtifactRepo() *mockArtifactRepo {
	return &mockArtifactRepo{artifacts: make(map[string]*model.ReservationArtifact)}
}

func (m *mockArtifactRepo) Upsert(_ context.Context, reservationID string, kind model.ArtifactKind, payload datatypes.JSON) (*model.ReservationArtifact, error) {
	// 与真实实现一致：同 (reservation, kind) 幂等复位同一行
	for _, a := range m.artifacts {
		if a.ReservationID == reservationID && a.Kind == kind {
			a.Status = model.ArtifactPending
			a.Attempts = 0
			a.LastError = nil
			a.Payload = payload
			clone := *a
			return &clone, nil
		}
	}
	m.seq++
	artifact := &model.ReservationArtifact{
		ArtifactID:    fmt.Sprintf("artifact-%d", m.seq),
		ReservationID: reservationID,
		Kind:          kind,
		Status:        model.ArtifactPending,
		Payload:       payload,
	}
	m.artifacts[artifact.ArtifactID] = artifact
	clone := *artifact
	return &clone, nil
}

func (m *mockArtifactRepo) GetByID(_ context.Context, id string) (*model.ReservationArtifact, error) {
	a, ok := m.artifacts[id]
	if !ok {
		return nil, nil
	}
	clone := *a
	return &clone, nil
}

func (m *mockArtifactRepo) GetByReservationAndKind(_ context.Context, reservationID string, kind model.ArtifactKind) (*model.ReservationArtifact, error) {
	for _, a := range m.artifacts {
		if a.ReservationID == reservationID && a.Kind == kind {
			clone := *a
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *mockArtifactRepo) Update(_ context.Context, artifact *model.ReservationArtifact) error {
	clone := *artifact
	m.artifacts[artifact.ArtifactID] = &clone
	return nil
}

func (m *mockArtifactRepo) ListByReservation(_ context.Context, reservationID string) ([]model.ReservationArtifact, error) {
	var result []model.ReservationArtifact
	for _, a := range m.artifacts {
		if a.ReservationID == reservationID {
			result = append(result, *a)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ArtifactID < result[j].ArtifactID
	})
	return result, nil
}

// ── Mock SettingRepository ──

type mockSettingRepo struct {
	settings map[string]*model.Setting
}

func newMockSettingRepo() *mockSettingRepo {
	return &mockSettingRepo{settings: make(map[string]*model.Setting)}
}

func (m *mockSettingRepo) GetAll(_ context.Context) ([]model.Setting, error) {
	var result []model.Setting
	for _, s := range m.settings {
		result = append(result, *s)
	}
	return result, nil
}

func (m *mockSettingRepo) Get(_ context.Context, key string) (*model.Setting, error) {
	return m.settings[key], nil
}

func (m *mockSettingRepo) Upsert(_ context.Context, key string, value datatypes.JSON, updatedBy string) error {
	m.settings[key] = &model.Setting{
		Key:       key,
		Value:     value,
		UpdatedBy: &updatedBy,
		UpdatedAt: time.Now().UTC(),
	}
	return nil
}

// ── Mock AuditRepository ──

type mockAuditRepo struct {
	events []model.AuditEvent
}

func newMockAuditRepo() *mockAuditRepo {
	return &mockAuditRepo{}
}

func (m *mockAuditRepo) Create(_ context.Context, event *model.AuditEvent) error {
	event.EventID = int64(len(m.events) + 1)
	m.events = append(m.events, *event)
	return nil
}

func (m *mockAuditRepo) List(_ context.Context, eventType string, page, pageSize int) ([]model.AuditEvent, int64, error) {
	var filtered []model.AuditEvent
	for _, e := range m.events {
		if eventType == "" || strings.EqualFold(e.EventType, eventType) {
			filtered = append(filtered, e)
		}
	}
	total := int64(len(filtered))
	start := (page - 1) * pageSize
	if start >= len(filtered) {
		return nil, total, nil
	}
	end := start + pageSize
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end], total, nil
}

// ── 测试用聚合构造 ──

// newMockRepository 全部 mock 注入的聚合；db 为 nil 时 Transaction 直接透传执行
func newMockRepository() (*repository.Repository, *mockReservationRepo, *mockArtifactRepo) {
	reservationRepo := newMockReservationRepo()
	artifactRepo := newMockArtifactRepo()
	repo := &repository.Repository{
		User:        newMockUserRepo(),
		AllowList:   newMockAllowListRepo(),
		Reservation: reservationRepo,
		Blackout:    newMockBlackoutRepo(),
		Artifact:    artifactRepo,
		Setting:     newMockSettingRepo(),
		Audit:       newMockAuditRepo(),
	}
	return repo, reservationRepo, artifactRepo
}

// mockDispatcher 记录投递的产物 ID
type mockDispatcher struct {
	pdfIDs   []string
	emailIDs []string
}

func (m *mockDispatcher) EnqueuePDF(artifactID string)   { m.pdfIDs = append(m.pdfIDs, artifactID) }
func (m *mockDispatcher) EnqueueEmail(artifactID string) { m.emailIDs = append(m.emailIDs, artifactID) }
