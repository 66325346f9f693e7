package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"writehub/order-portal/order-portal-backend/internal/orders"
)

const reminderWindow = 24 * time.Hour

// DeadlineReminder periodically scans for orders whose freelancer deadline
// falls inside the next 24 hours and notifies the assigned freelancer. Each
// order is reminded once per process lifetime; a restart may repeat a
// reminder, which is acceptable.
type DeadlineReminder struct {
	cron     *cron.Cron
	repo     orders.Repository
	notifier orders.Notifier
	logger   *zap.Logger

	mu       sync.Mutex
	reminded map[uuid.UUID]bool
}

func NewDeadlineReminder(repo orders.Repository, notifier orders.Notifier, logger *zap.Logger) *DeadlineReminder {
	return &DeadlineReminder{
		cron:     cron.New(),
		repo:     repo,
		notifier: notifier,
		logger:   logger,
		reminded: make(map[uuid.UUID]bool),
	}
}

// Start schedules the hourly scan and runs one immediately.
func (d *DeadlineReminder) Start() error {
	if _, err := d.cron.AddFunc("@hourly", d.runCycle); err != nil {
		return err
	}
	d.cron.Start()
	go d.runCycle()
	return nil
}

func (d *DeadlineReminder) Stop() {
	ctx := d.cron.Stop()
	<-ctx.Done()
}

func (d *DeadlineReminder) runCycle() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	approaching, err := d.repo.ListApproachingFreelancerDeadline(ctx, reminderWindow)
	if err != nil {
		d.logger.Error("deadline scan failed", zap.Error(err))
		return
	}

	sent := 0
	for _, order := range approaching {
		if order.AssignedFreelancerID == nil {
			continue
		}

		d.mu.Lock()
		already := d.reminded[order.ID]
		if !already {
			d.reminded[order.ID] = true
		}
		d.mu.Unlock()
		if already {
			continue
		}

		d.notifier.Notify(ctx, "deadline.approaching", map[string]interface{}{
			"order_id":      order.ID.String(),
			"order_code":    order.OrderCode,
			"freelancer_id": order.AssignedFreelancerID.String(),
			"deadline":      order.FreelancerDeadline.Format(time.RFC3339),
		})
		sent++
	}

	if sent > 0 {
		d.logger.Info("deadline reminders sent",
			zap.Int("count", sent), zap.Int("approaching", len(approaching)))
	}
}
