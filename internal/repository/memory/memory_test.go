package memory

import (
	"sync"
	"testing"

	"labelstation/internal/model"
)

func TestCaptureRepository_OldestFollowsSeq(t *testing.T) {
	repo := NewCaptureRepository()

	// Insertion order, not filename order, decides the queue.
	for _, name := range []string{"b.jpg", "a.jpg", "c.jpg"} {
		if _, err := repo.Insert(&model.CaptureItem{Filename: name}); err != nil {
			t.Fatalf("Insert %s failed: %v", name, err)
		}
	}

	oldest, err := repo.Oldest()
	if err != nil {
		t.Fatalf("Oldest failed: %v", err)
	}
	if oldest == nil || oldest.Filename != "b.jpg" {
		t.Fatalf("Expected b.jpg, got %+v", oldest)
	}

	if ok, _ := repo.Transition("b.jpg", model.CapturePending, model.CaptureIntegrated); !ok {
		t.Fatal("Transition should succeed")
	}

	oldest, _ = repo.Oldest()
	if oldest == nil || oldest.Filename != "a.jpg" {
		t.Errorf("Expected a.jpg after b.jpg left the queue, got %+v", oldest)
	}
}

func TestCaptureRepository_DuplicateFilename(t *testing.T) {
	repo := NewCaptureRepository()

	if _, err := repo.Insert(&model.CaptureItem{Filename: "dup.jpg"}); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if _, err := repo.Insert(&model.CaptureItem{Filename: "dup.jpg"}); err == nil {
		t.Error("Expected error for duplicate filename, got nil")
	}
}

func TestCaptureRepository_TransitionIsCompareAndSet(t *testing.T) {
	repo := NewCaptureRepository()
	repo.Insert(&model.CaptureItem{Filename: "race.jpg"})

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.Transition("race.jpg", model.CapturePending, model.CaptureIntegrating)
			if err != nil {
				t.Errorf("Transition failed: %v", err)
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("Expected exactly one winner, got %d", wins)
	}

	counts, _ := repo.CountByState()
	if counts[model.CaptureIntegrating] != 1 || counts[model.CapturePending] != 0 {
		t.Errorf("Unexpected counts: %v", counts)
	}
}

func TestCaptureRepository_UnknownFilename(t *testing.T) {
	repo := NewCaptureRepository()

	item, err := repo.GetByFilename("missing.jpg")
	if err != nil || item != nil {
		t.Errorf("Expected nil, nil; got %+v, %v", item, err)
	}

	ok, err := repo.Transition("missing.jpg", model.CapturePending, model.CaptureDiscarding)
	if err != nil || ok {
		t.Errorf("Expected false, nil; got %v, %v", ok, err)
	}
}

func TestEventRepository_RecentNewestFirst(t *testing.T) {
	repo := NewEventRepository(3)
	for _, name := range []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg"} {
		if _, err := repo.Record(&model.Event{Kind: model.EventCaptured, Filename: name}); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	events, _ := repo.Recent(10)
	if len(events) != 3 {
		t.Fatalf("Expected capacity of 3 events, got %d", len(events))
	}
	if events[0].Filename != "d.jpg" || events[2].Filename != "b.jpg" {
		t.Errorf("Unexpected order: %+v", events)
	}
	if events[0].ID != 4 {
		t.Errorf("Expected id 4, got %d", events[0].ID)
	}

	two, _ := repo.Recent(2)
	if len(two) != 2 {
		t.Errorf("Expected 2 events, got %d", len(two))
	}
}

func TestSplitRepository_Latest(t *testing.T) {
	repo := NewSplitRepository()
	if latest, err := repo.Latest(); latest != nil || err != nil {
		t.Fatalf("Expected nil for an empty repository, got %+v, %v", latest, err)
	}

	repo.Insert(&model.SplitRun{ID: "first", TrainCount: 8, ValCount: 2})
	repo.Insert(&model.SplitRun{ID: "second", TrainCount: 4, ValCount: 1})

	latest, _ := repo.Latest()
	if latest == nil || latest.ID != "second" {
		t.Errorf("Expected second run, got %+v", latest)
	}
}
