package sched

import (
	"errors"
	"testing"
	"time"

	"github.com/cmarrin/m8rscript-sub000/internal/value"
)

// fakeTask is a Runnable whose Execute result and run count are
// controlled directly, for exercising Scheduler without a real VM.
type fakeTask struct {
	runs   int
	result value.CallReturnValue
	err    error
}

func (f *fakeTask) Execute() (value.CallReturnValue, error) {
	f.runs++
	return f.result, f.err
}

func TestEmptyInitially(t *testing.T) {
	s := New(nil)
	if !s.Empty() {
		t.Fatal("new scheduler should be empty")
	}
}

func TestAddAndExecuteFinished(t *testing.T) {
	s := New(nil)
	task := &fakeTask{result: value.CallReturnValue{Kind: value.CallReturnFinished}}
	s.Add(task)

	if s.Empty() {
		t.Fatal("scheduler should not be empty after Add")
	}

	ran, err := s.ExecuteNextTask()
	if err != nil {
		t.Fatalf("ExecuteNextTask: %v", err)
	}
	if !ran {
		t.Fatal("ExecuteNextTask should report a task ran")
	}
	if task.runs != 1 {
		t.Fatalf("task should have run once, ran %d times", task.runs)
	}
	if !s.Empty() {
		t.Fatal("a Finished task should not be re-queued")
	}
}

func TestYieldReQueues(t *testing.T) {
	s := New(nil)
	task := &fakeTask{result: value.CallReturnValue{Kind: value.CallReturnYield}}
	s.Add(task)

	if _, err := s.ExecuteNextTask(); err != nil {
		t.Fatalf("ExecuteNextTask: %v", err)
	}
	if s.Empty() {
		t.Fatal("a Yield task should be re-queued, not dropped")
	}
}

func TestTerminatedDropsTask(t *testing.T) {
	s := New(nil)
	task := &fakeTask{result: value.CallReturnValue{Kind: value.CallReturnTerminated}}
	s.Add(task)

	if _, err := s.ExecuteNextTask(); err != nil {
		t.Fatalf("ExecuteNextTask: %v", err)
	}
	if !s.Empty() {
		t.Fatal("a Terminated task should be dropped")
	}
}

func TestExecuteNextTaskPropagatesError(t *testing.T) {
	s := New(nil)
	wantErr := errors.New("boom")
	task := &fakeTask{err: wantErr}
	s.Add(task)

	_, err := s.ExecuteNextTask()
	if !errors.Is(err, wantErr) {
		t.Fatalf("ExecuteNextTask error = %v, want %v", err, wantErr)
	}
}

func TestExecuteNextTaskOnEmptyScheduler(t *testing.T) {
	s := New(nil)
	ran, err := s.ExecuteNextTask()
	if err != nil {
		t.Fatalf("ExecuteNextTask on empty scheduler: %v", err)
	}
	if ran {
		t.Fatal("ExecuteNextTask should report nothing ran on an empty scheduler")
	}
}

func TestTerminateRemovesTask(t *testing.T) {
	s := New(nil)
	task := &fakeTask{result: value.CallReturnValue{Kind: value.CallReturnFinished}}
	id := s.Add(task)

	s.Terminate(id)
	if !s.Empty() {
		t.Fatal("Terminate should remove the only scheduled task")
	}
}

func TestMsDelayReQueuesLater(t *testing.T) {
	now := time.Unix(0, 0)
	s := New(func() time.Time { return now })

	delayed := &fakeTask{result: value.CallReturnValue{Kind: value.CallReturnMsDelay, N: 1000}}
	s.Add(delayed)

	if _, err := s.ExecuteNextTask(); err != nil {
		t.Fatalf("ExecuteNextTask: %v", err)
	}
	if delayed.runs != 1 {
		t.Fatalf("delayed task should have run once, ran %d times", delayed.runs)
	}
	if s.Empty() {
		t.Fatal("an MsDelay task should be re-queued, not dropped")
	}
	if want := now.Add(1000 * time.Millisecond); !s.NextTimeToFire().Equal(want) {
		t.Fatalf("NextTimeToFire = %v, want %v", s.NextTimeToFire(), want)
	}
}

func TestNowReflectsInjectedClock(t *testing.T) {
	fixed := time.Unix(1000, 0)
	s := New(func() time.Time { return fixed })
	if !s.Now().Equal(fixed) {
		t.Fatalf("Now() = %v, want %v", s.Now(), fixed)
	}
}
