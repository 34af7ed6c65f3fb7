package job

import (
	"errors"
	"testing"
	"time"

	"github.com/newthinker/scorecard/internal/core"
)

func TestStore_CreateAndGet(t *testing.T) {
	store := NewStore(100, time.Hour)

	job := store.Create("batch")
	if job.ID == "" {
		t.Error("expected job ID")
	}
	if job.Status != StatusPending {
		t.Errorf("expected pending, got %s", job.Status)
	}

	retrieved, err := store.Get(job.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if retrieved.ID != job.ID {
		t.Error("IDs don't match")
	}
	if retrieved.Type != "batch" {
		t.Errorf("expected batch, got %s", retrieved.Type)
	}
}

func TestStore_Update(t *testing.T) {
	store := NewStore(100, time.Hour)
	job := store.Create("batch")

	err := store.Update(job.ID, func(j *Job) {
		j.Status = StatusRunning
		j.Progress = 50
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	retrieved, _ := store.Get(job.ID)
	if retrieved.Status != StatusRunning {
		t.Errorf("expected running, got %s", retrieved.Status)
	}
	if retrieved.Progress != 50 {
		t.Errorf("expected 50, got %d", retrieved.Progress)
	}
	if store.Active() != 1 {
		t.Errorf("expected 1 active job, got %d", store.Active())
	}

	if err := store.Update("missing", func(*Job) {}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestStore_MaxSize(t *testing.T) {
	store := NewStore(2, time.Hour)

	job1 := store.Create("batch")
	store.Create("batch")
	store.Create("batch") // Should evict job1

	_, err := store.Get(job1.ID)
	if err == nil {
		t.Error("expected job1 to be evicted")
	}
	if len(store.List()) != 2 {
		t.Errorf("expected 2 jobs, got %d", len(store.List()))
	}
}

func TestStore_NotFound(t *testing.T) {
	store := NewStore(100, time.Hour)

	_, err := store.Get("nonexistent")
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestStore_List(t *testing.T) {
	store := NewStore(100, time.Hour)
	first := store.Create("batch")
	store.Create("score")

	jobs := store.List()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].ID != first.ID {
		t.Error("expected insertion order")
	}
}

func TestStore_Cleanup(t *testing.T) {
	store := NewStore(100, time.Hour)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	done := store.Create("batch")
	running := store.Create("batch")
	store.Update(done.ID, func(j *Job) { j.Status = StatusComplete })
	store.Update(running.ID, func(j *Job) { j.Status = StatusRunning })

	now = now.Add(2 * time.Hour)
	if n := store.Cleanup(); n != 1 {
		t.Errorf("expected 1 expired job, got %d", n)
	}
	if _, err := store.Get(done.ID); err == nil {
		t.Error("finished job should have expired")
	}
	if _, err := store.Get(running.ID); err != nil {
		t.Error("running job must not expire")
	}
}
