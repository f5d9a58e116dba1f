package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/datatypes"

	"github.com/jazz-17/reservation-system/internal/model"
	"github.com/jazz-17/reservation-system/internal/repository"
	"github.com/jazz-17/reservation-system/pkg/mailer"
	"github.com/jazz-17/reservation-system/pkg/pdf"
)

// ── 内存 Repository ──

type memArtifactRepo struct {
	mu        sync.Mutex
	artifacts map[string]*model.ReservationArtifact
	seq       int
}

func newMemArtifactRepo() *memArtifactRepo {
	return &memArtifactRepo{artifacts: make(map[string]*model.ReservationArtifact)}
}

func (m *memArtifactRepo) Upsert(_ context.Context, reservationID string, kind model.ArtifactKind, payload datatypes.JSON) (*model.ReservationArtifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
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

func (m *memArtifactRepo) GetByID(_ context.Context, id string) (*model.ReservationArtifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.artifacts[id]
	if !ok {
		return nil, nil
	}
	clone := *a
	return &clone, nil
}

func (m *memArtifactRepo) GetByReservationAndKind(_ context.Context, reservationID string, kind model.ArtifactKind) (*model.ReservationArtifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.artifacts {
		if a.ReservationID == reservationID && a.Kind == kind {
			clone := *a
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *memArtifactRepo) Update(_ context.Context, artifact *model.ReservationArtifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *artifact
	m.artifacts[artifact.ArtifactID] = &clone
	return nil
}

func (m *memArtifactRepo) ListByReservation(_ context.Context, reservationID string) ([]model.ReservationArtifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.ReservationArtifact
	for _, a := range m.artifacts {
		if a.ReservationID == reservationID {
			result = append(result, *a)
		}
	}
	return result, nil
}

type memReservationRepo struct {
	reservations map[string]*model.Reservation
}

func newMemReservationRepo() *memReservationRepo {
	return &memReservationRepo{reservations: make(map[string]*model.Reservation)}
}

func (m *memReservationRepo) Create(_ context.Context, reservation *model.Reservation) error {
	m.reservations[reservation.ReservationID] = reservation
	return nil
}

func (m *memReservationRepo) GetByID(_ context.Context, id string) (*model.Reservation, error) {
	r, ok := m.reservations[id]
	if !ok {
		return nil, nil
	}
	clone := *r
	return &clone, nil
}

func (m *memReservationRepo) Update(_ context.Context, reservation *model.Reservation) error {
	m.reservations[reservation.ReservationID] = reservation
	return nil
}

func (m *memReservationRepo) List(_ context.Context, _ repository.ReservationFilter) ([]model.Reservation, int64, error) {
	return nil, 0, nil
}

func (m *memReservationRepo) CountBlocking(_ context.Context, _ string, _ []model.ReservationStatus) (int64, error) {
	return 0, nil
}

func (m *memReservationRepo) CountGroupInWindow(_ context.Context, _ string, _ int, _, _ time.Time, _ []model.ReservationStatus) (int64, error) {
	return 0, nil
}

func (m *memReservationRepo) ExistsOverlapping(_ context.Context, _, _ time.Time, _ []model.ReservationStatus, _ string) (bool, error) {
	return false, nil
}

func (m *memReservationRepo) ListOverlapping(_ context.Context, _, _ time.Time, _ []model.ReservationStatus) ([]model.Reservation, error) {
	return nil, nil
}

func (m *memReservationRepo) ListPendingCreatedBefore(_ context.Context, _ time.Time) ([]model.Reservation, error) {
	return nil, nil
}

type memSettingRepo struct{}

func (memSettingRepo) GetAll(_ context.Context) ([]model.Setting, error) { return nil, nil }
func (memSettingRepo) Get(_ context.Context, _ string) (*model.Setting, error) {
	return nil, nil
}
func (memSettingRepo) Upsert(_ context.Context, _ string, _ datatypes.JSON, _ string) error {
	return nil
}

func newMemRepository() (*repository.Repository, *memReservationRepo, *memArtifactRepo) {
	reservationRepo := newMemReservationRepo()
	artifactRepo := newMemArtifactRepo()
	repo := &repository.Repository{
		Reservation: reservationRepo,
		Artifact:    artifactRepo,
		Setting:     memSettingRepo{},
	}
	return repo, reservationRepo, artifactRepo
}

// ── 执行器替身 ──

// fakeRenderer 返回固定内容或失败
type fakeRenderer struct {
	content []byte
	err     error
	last    *pdf.ConfirmationData
}

func (f *fakeRenderer) Render(data *pdf.ConfirmationData) ([]byte, error) {
	f.last = data
	if f.err != nil {
		return nil, f.err
	}
	return f.content, nil
}

// fakeMailer 记录发出的邮件，可注入失败
type fakeMailer struct {
	sent []*mailer.Message
	err  error
}

func (f *fakeMailer) Send(msg *mailer.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}
