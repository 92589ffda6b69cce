package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"taskmanager/internal/notify"
	"taskmanager/internal/repository"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := repository.NewDB(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// recordingFacility accepts every alert and remembers what is pending.
type recordingFacility struct {
	denied bool

	mu       sync.Mutex
	next     int
	requests []notify.Alert
	pending  map[notify.Handle]notify.Alert
}

func newRecordingFacility() *recordingFacility {
	return &recordingFacility{pending: make(map[notify.Handle]notify.Alert)}
}

func (f *recordingFacility) PermissionGranted(context.Context) (bool, error) {
	return !f.denied, nil
}

func (f *recordingFacility) Schedule(_ context.Context, alert notify.Alert) (notify.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	h := notify.Handle(fmt.Sprintf("alert-%d", f.next))
	f.requests = append(f.requests, alert)
	f.pending[h] = alert
	return h, nil
}

func (f *recordingFacility) Cancel(_ context.Context, h notify.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pending, h)
	return nil
}

func (f *recordingFacility) CancelAll(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = make(map[notify.Handle]notify.Alert)
	return nil
}

func (f *recordingFacility) pendingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

type fixture struct {
	tasks     *TaskService
	reminders *ReminderService
	repo      *repository.TaskRepository
	facility  *recordingFacility
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	repo := repository.NewTaskRepository(setupTestDB(t))
	facility := newRecordingFacility()
	reminders := NewReminderService(notify.NewScheduler(facility, zap.NewNop()), repo, zap.NewNop())
	return fixture{
		tasks:     NewTaskService(repo, reminders, zap.NewNop()),
		reminders: reminders,
		repo:      repo,
		facility:  facility,
	}
}
