package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var (
	// ErrInvalidHandle is returned for handles this facility never issued.
	ErrInvalidHandle = errors.New("invalid alert handle")
	// ErrAlertInPast is returned for alerts whose instant has already passed.
	ErrAlertInPast = errors.New("alert time is not in the future")
)

// deliverTimeout bounds a single delivery attempt.
const deliverTimeout = 30 * time.Second

// oneShot fires once at a fixed instant.
type oneShot struct {
	at time.Time
}

// Next implements cron.Schedule. After the instant has passed it returns the
// zero time, which cron treats as "never".
func (s oneShot) Next(t time.Time) time.Time {
	if t.Before(s.at) {
		return s.at
	}
	return time.Time{}
}

// CronFacility keeps pending alerts as one-shot cron entries and hands them
// to a Deliverer when they fire.
type CronFacility struct {
	cron      *cron.Cron
	deliverer Deliverer
	log       *zap.Logger
	now       func() time.Time

	mu      sync.Mutex
	pending map[cron.EntryID]struct{}
}

// NewCronFacility returns a facility that is not yet running. A nil deliverer
// means alerts are not permitted.
func NewCronFacility(deliverer Deliverer, log *zap.Logger) *CronFacility {
	return &CronFacility{
		cron:      cron.New(cron.WithLocation(time.UTC)),
		deliverer: deliverer,
		log:       log,
		now:       time.Now,
		pending:   make(map[cron.EntryID]struct{}),
	}
}

func (f *CronFacility) Start() {
	f.cron.Start()
}

// Stop halts the scheduler and waits for running deliveries or ctx.
func (f *CronFacility) Stop(ctx context.Context) error {
	done := f.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *CronFacility) PermissionGranted(context.Context) (bool, error) {
	return f.deliverer != nil && f.deliverer.Enabled(), nil
}

func (f *CronFacility) Schedule(_ context.Context, alert Alert) (Handle, error) {
	if f.deliverer == nil {
		return "", ErrPermissionDenied
	}
	// a one-shot schedule for a past instant would never fire
	if !alert.At.After(f.now()) {
		return "", fmt.Errorf("%w: %s", ErrAlertInPast, alert.At.Format(time.RFC3339Nano))
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var id cron.EntryID
	id = f.cron.Schedule(oneShot{at: alert.At}, cron.FuncJob(func() {
		f.fire(&id, alert)
	}))
	f.pending[id] = struct{}{}

	f.log.Debug("alert scheduled",
		zap.String("task_id", alert.TaskID),
		zap.Time("at", alert.At),
		zap.Int("entry", int(id)))
	return handleFor(id), nil
}

func (f *CronFacility) Cancel(_ context.Context, handle Handle) error {
	id, err := parseHandle(handle)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.pending[id]; ok {
		f.cron.Remove(id)
		delete(f.pending, id)
	}
	return nil
}

func (f *CronFacility) CancelAll(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for id := range f.pending {
		f.cron.Remove(id)
		delete(f.pending, id)
	}
	return nil
}

// Pending returns the number of alerts that have not fired yet.
func (f *CronFacility) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// fire reads the entry id under the lock, since Schedule assigns it only after
// the entry is registered.
func (f *CronFacility) fire(idp *cron.EntryID, alert Alert) {
	f.mu.Lock()
	id := *idp
	_, ok := f.pending[id]
	delete(f.pending, id)
	f.mu.Unlock()
	if !ok {
		return
	}
	f.cron.Remove(id)

	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()
	if err := f.deliverer.Deliver(ctx, alert); err != nil {
		f.log.Error("deliver alert", zap.String("task_id", alert.TaskID), zap.Error(err))
	}
}

func handleFor(id cron.EntryID) Handle {
	return Handle(strconv.Itoa(int(id)))
}

func parseHandle(h Handle) (cron.EntryID, error) {
	n, err := strconv.Atoi(string(h))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidHandle, h)
	}
	return cron.EntryID(n), nil
}
