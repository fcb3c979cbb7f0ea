package events

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"mapleboard/internal/domain"
	"mapleboard/internal/store"
)

func doneTask(title string) domain.Task {
	task := domain.NewTask(title)
	task.Status = domain.StatusDone
	return task
}

func watcherFixture(t *testing.T, projects []domain.Project) (*CompletionWatcher, *store.Store, *[]string) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := store.New(projects, nil, logger)
	w := NewCompletionWatcher(st, true, logger)

	fired := &[]string{}
	w.notify = func(title, message string) error {
		*fired = append(*fired, message)
		return nil
	}
	return w, st, fired
}

func TestWatcher_FirstObservationSeedsWithoutFiring(t *testing.T) {
	p := domain.NewProject("done-already", "/tmp/p")
	p.Tasks = []domain.Task{doneTask("a")}
	w, _, fired := watcherFixture(t, []domain.Project{p})

	w.Observe([]domain.Project{p})

	if len(*fired) != 0 {
		t.Fatalf("fired = %v, want none on seed", *fired)
	}
}

func TestWatcher_FiresOnTransitionToAllDone(t *testing.T) {
	p := domain.NewProject("demo", "/tmp/p")
	todo := domain.NewTask("a")
	p.Tasks = []domain.Task{todo}
	w, _, fired := watcherFixture(t, []domain.Project{p})

	w.Observe([]domain.Project{p}) // seed: not done

	p.Tasks[0].Status = domain.StatusDone
	w.Observe([]domain.Project{p})

	if len(*fired) != 1 {
		t.Fatalf("fired = %v, want exactly one", *fired)
	}
	// A repeat observation of the same done state stays quiet.
	w.Observe([]domain.Project{p})
	if len(*fired) != 1 {
		t.Fatalf("fired again without a transition: %v", *fired)
	}
}

func TestWatcher_NewTaskClearsCacheSoCompletionRefires(t *testing.T) {
	p := domain.NewProject("demo", "/tmp/p")
	p.Tasks = []domain.Task{doneTask("a")}
	w, _, fired := watcherFixture(t, []domain.Project{p})

	w.Observe([]domain.Project{p}) // seed: done

	p.Tasks = append(p.Tasks, domain.NewTask("b"))
	w.Observe([]domain.Project{p}) // no longer done

	p.Tasks[1].Status = domain.StatusDone
	w.Observe([]domain.Project{p})

	if len(*fired) != 1 {
		t.Fatalf("fired = %v, want one after re-completion", *fired)
	}
}

func TestWatcher_EmptyProjectNeverCountsAsDone(t *testing.T) {
	p := domain.NewProject("empty", "/tmp/p")
	w, _, fired := watcherFixture(t, []domain.Project{p})

	w.Observe([]domain.Project{p})
	w.Observe([]domain.Project{p})

	if len(*fired) != 0 {
		t.Fatalf("fired = %v for empty project", *fired)
	}
}

func TestWatcher_NotifyFailureFallsBackToNotice(t *testing.T) {
	p := domain.NewProject("demo", "/tmp/p")
	p.Tasks = []domain.Task{domain.NewTask("a")}
	w, st, _ := watcherFixture(t, []domain.Project{p})
	w.notify = func(string, string) error { return errors.New("no notification daemon") }

	w.Observe([]domain.Project{p})
	p.Tasks[0].Status = domain.StatusDone
	w.Observe([]domain.Project{p})

	select {
	case n := <-st.Notices():
		if n.Level != store.NoticeSuccess {
			t.Fatalf("notice level = %v", n.Level)
		}
	default:
		t.Fatal("no in-app notice raised")
	}
}

func TestWatcher_AttachObservesStoreMutations(t *testing.T) {
	task := domain.NewTask("a")
	p := domain.NewProject("demo", "/tmp/p")
	p.Tasks = []domain.Task{task}
	w, st, fired := watcherFixture(t, []domain.Project{p})
	w.Attach()

	// First mutation seeds, second completes the board.
	st.UpdateTask(p.ID, task.ID, func(t *domain.Task) {})
	st.UpdateTask(p.ID, task.ID, func(t *domain.Task) {
		t.Status = domain.StatusDone
	})

	if len(*fired) != 1 {
		t.Fatalf("fired = %v, want one", *fired)
	}
}
