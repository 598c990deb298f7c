package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/rapidusexpress/rapidus-backend/internal/notifications"
	"github.com/rapidusexpress/rapidus-backend/pkg/db/models"
	"github.com/rapidusexpress/rapidus-backend/pkg/enums"
	"github.com/rapidusexpress/rapidus-backend/pkg/logger"
)

const (
	defaultStaleAssignedAfter = 30 * time.Minute
	staleMarkerTTL            = 24 * time.Hour
	staleMarkerScope          = "stale-assignment"
)

type staleDeliveryReader interface {
	FindStaleAssigned(ctx context.Context, cutoff time.Time) ([]models.Delivery, error)
}

type staleNotifier interface {
	CreateBatch(ctx context.Context, rows []models.Notification) error
	ListDispatcherTargets(ctx context.Context) ([]notifications.PushTarget, error)
}

type staleMarker interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
}

// StaleAssignmentJobParams configure the stale assignment watchdog.
type StaleAssignmentJobParams struct {
	Logger        *logger.Logger
	Deliveries    staleDeliveryReader
	Notifications staleNotifier
	Marker        staleMarker
	After         time.Duration
}

// NewStaleAssignmentJob builds the watchdog that flags deliveries stuck in
// assigned state. Couriers who never accept leave the run invisible to
// dispatchers otherwise.
func NewStaleAssignmentJob(params StaleAssignmentJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Deliveries == nil {
		return nil, fmt.Errorf("deliveries reader required")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if params.Marker == nil {
		return nil, fmt.Errorf("redis marker required")
	}
	after := params.After
	if after <= 0 {
		after = defaultStaleAssignedAfter
	}
	return &staleAssignmentJob{
		logg:          params.Logger,
		deliveries:    params.Deliveries,
		notifications: params.Notifications,
		marker:        params.Marker,
		after:         after,
		now:           time.Now,
	}, nil
}

type staleAssignmentJob struct {
	logg          *logger.Logger
	deliveries    staleDeliveryReader
	notifications staleNotifier
	marker        staleMarker
	after         time.Duration
	now           func() time.Time
}

func (j *staleAssignmentJob) Name() string { return "stale-assignment" }

func (j *staleAssignmentJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.after)
	stale, err := j.deliveries.FindStaleAssigned(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("query stale assignments: %w", err)
	}
	if len(stale) == 0 {
		return nil
	}

	targets, err := j.notifications.ListDispatcherTargets(ctx)
	if err != nil {
		return fmt.Errorf("load dispatcher targets: %w", err)
	}

	var errs []error
	flagged := 0
	for _, delivery := range stale {
		fresh, err := j.markOnce(ctx, delivery)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !fresh {
			continue
		}
		if err := j.notifyDispatchers(ctx, delivery, targets); err != nil {
			errs = append(errs, err)
			continue
		}
		flagged++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"stale":   len(stale),
		"flagged": flagged,
	})
	j.logg.Info(logCtx, "stale assignment sweep complete")
	return multierr.Combine(errs...)
}

// markOnce reports true the first time a delivery is flagged. The marker TTL
// bounds repeat alerts for runs that stay stuck across cycles.
func (j *staleAssignmentJob) markOnce(ctx context.Context, delivery models.Delivery) (bool, error) {
	key := j.marker.IdempotencyKey(staleMarkerScope, delivery.ID.String())
	fresh, err := j.marker.SetNX(ctx, key, "1", staleMarkerTTL)
	if err != nil {
		return false, fmt.Errorf("mark stale delivery %s: %w", delivery.ID, err)
	}
	return fresh, nil
}

func (j *staleAssignmentJob) notifyDispatchers(ctx context.Context, delivery models.Delivery, targets []notifications.PushTarget) error {
	if len(targets) == 0 {
		return nil
	}
	age := j.now().UTC().Sub(timeOrNow(delivery.AssignedAt)).Round(time.Minute)
	message := fmt.Sprintf("Delivery assigned %s ago has not been accepted.", age)
	deliveryID := delivery.ID
	rows := make([]models.Notification, 0, len(targets))
	for _, target := range targets {
		rows = append(rows, models.Notification{
			ProfileID:  target.ProfileID,
			Type:       enums.NotificationTypeStaleAssignment,
			Title:      "Assignment not accepted",
			Message:    message,
			DeliveryID: &deliveryID,
		})
	}
	if err := j.notifications.CreateBatch(ctx, rows); err != nil {
		return fmt.Errorf("notify stale delivery %s: %w", delivery.ID, err)
	}
	return nil
}

func timeOrNow(value *time.Time) time.Time {
	if value != nil {
		return *value
	}
	return time.Now().UTC()
}
