// Package sched implements the cooperative task scheduler from spec
// §4.8: a time-ordered list of runnable tasks, each an independent VM
// (or other Runnable) driven to its next yield point, re-queued at a
// time derived from what that yield point asked for. Grounded on
// `original_source/src/TaskManager.h`/`.cpp`: the insert-sorted
// forward-list of (fireTime, task) pairs, the min/max delay clamp, and
// executeNextTask's CallReturnValue-driven re-insertion rules, ported
// from an intrusive linked list to a slice kept sorted by insertion.
package sched

import (
	"time"

	"github.com/google/uuid"

	"github.com/cmarrin/m8rscript-sub000/internal/value"
)

// Runnable is one schedulable unit of work — a VM task in the normal
// case, but kept abstract so tests (and internal/engine's event-only
// "micro tasks") don't need a real VM to exercise the scheduler.
type Runnable interface {
	Execute() (value.CallReturnValue, error)
}

// Limits on the delay a task may request, per TaskManager.cpp's
// MaxTaskDelay/MinTaskDelay constants.
const (
	MaxTaskDelay = 6000 * time.Second
	MinTaskDelay = 1 * time.Millisecond
	// PollingRate is how often a WaitForEvent task is re-checked absent
	// any other signal (TaskManager.cpp's TaskPollingRate).
	PollingRate = 50 * time.Millisecond
)

// entry is one scheduled task: a fire time and the task to run then.
type entry struct {
	id       uuid.UUID
	fireTime time.Time
	task     Runnable
}

// Scheduler holds the time-ordered task list. The zero value is ready to
// use (no tasks scheduled).
type Scheduler struct {
	list []entry
	now  func() time.Time
}

// New creates an empty Scheduler. now, if nil, defaults to time.Now —
// tests may override it for deterministic fire-time assertions.
func New(now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{now: now}
}

// Empty reports whether any task is scheduled (TaskManager::empty).
func (s *Scheduler) Empty() bool { return len(s.list) == 0 }

// Now returns the scheduler's notion of the current time, letting a
// caller driving its own dispatch loop (internal/engine.Run) wait for
// NextTimeToFire using the same clock ExecuteNextTask's re-queueing
// uses, rather than an unrelated time.Now.
func (s *Scheduler) Now() time.Time { return s.now() }

// NextTimeToFire returns the earliest fire time among scheduled tasks, or
// the zero Time if none are scheduled.
func (s *Scheduler) NextTimeToFire() time.Time {
	if len(s.list) == 0 {
		return time.Time{}
	}
	return s.list[0].fireTime
}

// Add schedules task to run immediately (fires on the next
// ExecuteNextTask call once its turn in the sorted list comes up).
func (s *Scheduler) Add(task Runnable) uuid.UUID {
	return s.yield(task, 0)
}

// yield implements TaskManager::yield: cap delay at MaxTaskDelay (a delay
// below MinTaskDelay becomes 0, so the task is due at once), then insert
// task into the list in fire-time order.
func (s *Scheduler) yield(task Runnable, delay time.Duration) uuid.UUID {
	if delay > MaxTaskDelay {
		delay = MaxTaskDelay
	} else if delay < MinTaskDelay {
		delay = 0
	}
	fireTime := s.now().Add(delay)
	e := entry{id: uuid.New(), fireTime: fireTime, task: task}

	i := 0
	for ; i < len(s.list); i++ {
		if fireTime.Before(s.list[i].fireTime) {
			break
		}
	}
	s.list = append(s.list, entry{})
	copy(s.list[i+1:], s.list[i:])
	s.list[i] = e
	return e.id
}

// Terminate removes a scheduled task by id (TaskManager::terminate), a
// no-op if it has already run or was never scheduled.
func (s *Scheduler) Terminate(id uuid.UUID) {
	for i, e := range s.list {
		if e.id == id {
			s.list = append(s.list[:i], s.list[i+1:]...)
			return
		}
	}
}

// ExecuteNextTask implements TaskManager::executeNextTask: run the
// earliest-firing task once, then re-queue it (at a delay the task's
// CallReturnValue dictates) or drop it (Finished/Terminated). Reports
// whether a task actually ran.
func (s *Scheduler) ExecuteNextTask() (bool, error) {
	if len(s.list) == 0 {
		return false, nil
	}
	e := s.list[0]
	s.list = s.list[1:]

	result, err := e.task.Execute()
	if err != nil {
		return true, err
	}

	switch result.Kind {
	case value.CallReturnMsDelay:
		s.yield(e.task, time.Duration(result.N)*time.Millisecond)
	case value.CallReturnYield:
		s.yield(e.task, 0)
	case value.CallReturnWaitForEvent:
		s.yield(e.task, PollingRate)
	case value.CallReturnFinished, value.CallReturnTerminated:
		// drop: task is done
	default:
		// CallReturnCount/FunctionStart/Error shouldn't reach the
		// scheduler (Execute never returns those directly), but if one
		// does, treat it as finished rather than looping forever.
	}
	return true, nil
}

// Run drives ExecuteNextTask in a loop until the task list is empty,
// sleeping until the next fire time when the earliest task isn't ready
// yet (the single-threaded host-side run loop; SystemInterface::runLoop
// in the source delegates this to the platform's own event loop instead).
func (s *Scheduler) Run() error {
	for !s.Empty() {
		wait := s.NextTimeToFire().Sub(s.now())
		if wait > 0 {
			time.Sleep(wait)
		}
		if _, err := s.ExecuteNextTask(); err != nil {
			return err
		}
	}
	return nil
}
