package notifications

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"github.com/rapidusexpress/rapidus-backend/pkg/enums"
	"github.com/rapidusexpress/rapidus-backend/pkg/logger"
	"github.com/rapidusexpress/rapidus-backend/pkg/outbox/payloads"
)

type recordingSender struct {
	sends []PushTarget
}

func (s *recordingSender) Send(_ context.Context, target PushTarget, _, _ string) {
	s.sends = append(s.sends, target)
}

func newTestConsumer(repo *stubNotificationsRepo, sender *recordingSender) *Consumer {
	return &Consumer{
		repo:   repo,
		sender: sender,
		logg:   logger.New(logger.Options{ServiceName: "test"}),
	}
}

func mustMarshal(t *testing.T, payload any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}

func TestRequestedNotifiesAllDispatchers(t *testing.T) {
	repo := newStubNotificationsRepo()
	token := "ExponentPushToken[abc]"
	repo.dispatchers = []PushTarget{
		{ProfileID: uuid.New(), PushToken: &token},
		{ProfileID: uuid.New()},
	}
	sender := &recordingSender{}
	consumer := newTestConsumer(repo, sender)

	data := mustMarshal(t, payloads.DeliveryRequestedEvent{
		IntakeRequestID: uuid.New(),
		EstablishmentID: uuid.New(),
		PickupAddress:   "Rua A, 10",
		TotalCents:      2290,
	})
	if err := consumer.handleRequested(context.Background(), data, context.Background()); err != nil {
		t.Fatalf("expected success got %v", err)
	}

	if len(repo.notifications) != 2 {
		t.Fatalf("expected one row per dispatcher, got %d", len(repo.notifications))
	}
	for _, n := range repo.notifications {
		if n.Type != enums.NotificationTypeDeliveryPending {
			t.Fatalf("unexpected type %s", n.Type)
		}
		if n.DeliveryID != nil {
			t.Fatal("expected no delivery link for queued request")
		}
	}
	if len(sender.sends) != 2 {
		t.Fatalf("expected two pushes, got %d", len(sender.sends))
	}
}

func TestAssignedNotifiesCourier(t *testing.T) {
	repo := newStubNotificationsRepo()
	courierID := uuid.New()
	repo.couriers[courierID] = PushTarget{ProfileID: courierID}
	sender := &recordingSender{}
	consumer := newTestConsumer(repo, sender)

	deliveryID := uuid.New()
	data := mustMarshal(t, payloads.DeliveryAssignedEvent{
		DeliveryID:         deliveryID,
		EstablishmentID:    uuid.New(),
		CourierID:          &courierID,
		Status:             enums.DeliveryStatusAssigned,
		TotalCents:         10000,
		CourierPayoutCents: 8000,
	})
	if err := consumer.handleAssigned(context.Background(), data, context.Background()); err != nil {
		t.Fatalf("expected success got %v", err)
	}

	if len(repo.notifications) != 1 {
		t.Fatalf("expected one notification, got %d", len(repo.notifications))
	}
	n := repo.notifications[0]
	if n.ProfileID != courierID {
		t.Fatalf("expected courier target, got %s", n.ProfileID)
	}
	if n.Type != enums.NotificationTypeDeliveryAssigned {
		t.Fatalf("unexpected type %s", n.Type)
	}
	if n.DeliveryID == nil || *n.DeliveryID != deliveryID {
		t.Fatal("expected delivery link")
	}
	if len(sender.sends) != 1 || sender.sends[0].ProfileID != courierID {
		t.Fatalf("expected push to courier, got %v", sender.sends)
	}
}

func TestAssignedOperatorFulfilledSkipsNotification(t *testing.T) {
	repo := newStubNotificationsRepo()
	sender := &recordingSender{}
	consumer := newTestConsumer(repo, sender)

	data := mustMarshal(t, payloads.DeliveryAssignedEvent{
		DeliveryID:        uuid.New(),
		EstablishmentID:   uuid.New(),
		Status:            enums.DeliveryStatusAssigned,
		OperatorFulfilled: true,
	})
	if err := consumer.handleAssigned(context.Background(), data, context.Background()); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(repo.notifications) != 0 || len(sender.sends) != 0 {
		t.Fatal("expected no notifications for operator run")
	}
}

func TestRejectedNotifiesDispatchersWithDeliveryLink(t *testing.T) {
	repo := newStubNotificationsRepo()
	repo.dispatchers = []PushTarget{{ProfileID: uuid.New()}}
	sender := &recordingSender{}
	consumer := newTestConsumer(repo, sender)

	deliveryID := uuid.New()
	data := mustMarshal(t, payloads.DeliveryRejectedEvent{
		DeliveryID:      deliveryID,
		EstablishmentID: uuid.New(),
		CourierID:       uuid.New(),
		RejectionCount:  2,
	})
	if err := consumer.handleRejected(context.Background(), data, context.Background()); err != nil {
		t.Fatalf("expected success got %v", err)
	}

	if len(repo.notifications) != 1 {
		t.Fatalf("expected one notification, got %d", len(repo.notifications))
	}
	n := repo.notifications[0]
	if n.Type != enums.NotificationTypeDeliveryRejected {
		t.Fatalf("unexpected type %s", n.Type)
	}
	if n.DeliveryID == nil || *n.DeliveryID != deliveryID {
		t.Fatal("expected delivery link")
	}
}

func TestFormatBRL(t *testing.T) {
	cases := []struct {
		cents int
		want  string
	}{
		{2290, "R$ 22,90"},
		{100, "R$ 1,00"},
		{5, "R$ 0,05"},
		{-1234, "-R$ 12,34"},
	}
	for _, tc := range cases {
		if got := formatBRL(tc.cents); got != tc.want {
			t.Fatalf("formatBRL(%d) = %q, want %q", tc.cents, got, tc.want)
		}
	}
}
