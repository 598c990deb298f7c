package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rapidusexpress/rapidus-backend/pkg/db/models"
	"github.com/rapidusexpress/rapidus-backend/pkg/enums"
	pkgerrors "github.com/rapidusexpress/rapidus-backend/pkg/errors"
	"github.com/rapidusexpress/rapidus-backend/pkg/pagination"
)

type stubNotificationsRepo struct {
	notifications []models.Notification
	dispatchers   []PushTarget
	couriers      map[uuid.UUID]PushTarget
}

func newStubNotificationsRepo() *stubNotificationsRepo {
	return &stubNotificationsRepo{couriers: make(map[uuid.UUID]PushTarget)}
}

func (s *stubNotificationsRepo) WithTx(_ *gorm.DB) Repository { return s }

func (s *stubNotificationsRepo) Create(_ context.Context, notification *models.Notification) error {
	s.notifications = append(s.notifications, *notification)
	return nil
}

func (s *stubNotificationsRepo) CreateBatch(_ context.Context, notifications []models.Notification) error {
	s.notifications = append(s.notifications, notifications...)
	return nil
}

func (s *stubNotificationsRepo) List(_ context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error) {
	var matched []models.Notification
	for _, n := range s.notifications {
		if n.ProfileID != params.ProfileID {
			continue
		}
		if params.UnreadOnly && n.ReadAt != nil {
			continue
		}
		matched = append(matched, n)
	}
	normalized := pagination.NormalizeLimit(params.Limit)
	if len(matched) > normalized {
		next := matched[normalized]
		return matched[:normalized], &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return matched, nil, nil
}

func (s *stubNotificationsRepo) MarkRead(_ context.Context, profileID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
	for i := range s.notifications {
		n := &s.notifications[i]
		if n.ID != notificationID || n.ProfileID != profileID {
			continue
		}
		if n.ReadAt != nil {
			return notificationMarkResult{Found: true}, nil
		}
		n.ReadAt = &now
		return notificationMarkResult{Found: true, Updated: true}, nil
	}
	return notificationMarkResult{}, nil
}

func (s *stubNotificationsRepo) MarkAllRead(_ context.Context, profileID uuid.UUID, now time.Time) (int64, error) {
	var count int64
	for i := range s.notifications {
		n := &s.notifications[i]
		if n.ProfileID == profileID && n.ReadAt == nil {
			n.ReadAt = &now
			count++
		}
	}
	return count, nil
}

func (s *stubNotificationsRepo) ListDispatcherTargets(_ context.Context) ([]PushTarget, error) {
	return s.dispatchers, nil
}

func (s *stubNotificationsRepo) FindCourierTarget(_ context.Context, courierID uuid.UUID) (*PushTarget, error) {
	target, ok := s.couriers[courierID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &target, nil
}

func (s *stubNotificationsRepo) DeleteReadBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var kept []models.Notification
	var removed int64
	for _, n := range s.notifications {
		if n.ReadAt != nil && n.ReadAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, n)
	}
	s.notifications = kept
	return removed, nil
}

func seedNotification(repo *stubNotificationsRepo, profileID uuid.UUID, read bool) uuid.UUID {
	id := uuid.New()
	notification := models.Notification{
		ID:        id,
		ProfileID: profileID,
		Type:      enums.NotificationTypeDeliveryPending,
		Title:     "New delivery request",
		Message:   "New request awaiting assignment.",
		CreatedAt: time.Now().UTC(),
	}
	if read {
		readAt := time.Now().UTC()
		notification.ReadAt = &readAt
	}
	repo.notifications = append(repo.notifications, notification)
	return id
}

func TestListUnreadOnly(t *testing.T) {
	repo := newStubNotificationsRepo()
	profileID := uuid.New()
	seedNotification(repo, profileID, false)
	seedNotification(repo, profileID, true)
	seedNotification(repo, uuid.New(), false)

	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	result, err := svc.List(context.Background(), ListParams{ProfileID: profileID, UnreadOnly: true})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected one unread notification, got %d", len(result.Items))
	}
	if result.Cursor != "" {
		t.Fatal("expected no next cursor")
	}
}

func TestListRejectsBadCursor(t *testing.T) {
	svc, err := NewService(newStubNotificationsRepo())
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	_, err = svc.List(context.Background(), ListParams{ProfileID: uuid.New(), Cursor: "%%%"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMarkRead(t *testing.T) {
	repo := newStubNotificationsRepo()
	profileID := uuid.New()
	notificationID := seedNotification(repo, profileID, false)

	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	if err := svc.MarkRead(context.Background(), profileID, notificationID); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if repo.notifications[0].ReadAt == nil {
		t.Fatal("expected notification marked read")
	}
}

func TestMarkReadUnknownNotification(t *testing.T) {
	svc, err := NewService(newStubNotificationsRepo())
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	err = svc.MarkRead(context.Background(), uuid.New(), uuid.New())
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMarkAllRead(t *testing.T) {
	repo := newStubNotificationsRepo()
	profileID := uuid.New()
	seedNotification(repo, profileID, false)
	seedNotification(repo, profileID, false)
	seedNotification(repo, profileID, true)

	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	count, err := svc.MarkAllRead(context.Background(), profileID)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if count != 2 {
		t.Fatalf("expected two updates, got %d", count)
	}
}
