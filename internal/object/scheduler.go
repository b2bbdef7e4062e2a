package object

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"lyng/internal/util/future"
)

// ObjDeferred is the result of `launch { }`. The task runs on its own
// goroutine and evaluates only while it holds the machine's execution token.
type ObjDeferred struct {
	f      *future.Future[Obj]
	cancel context.CancelFunc
}

func (d *ObjDeferred) Class() *ObjClass { return DeferredClass }
func (d *ObjDeferred) Inspect() string {
	if d.f.IsDone() {
		return "Deferred(completed)"
	}
	return "Deferred(active)"
}

// Launch starts fn as a concurrent task of the machine of s.
func Launch(s *Scope, fn Obj) *ObjDeferred {
	m := s.machine
	ctx, cancel := context.WithCancel(s.ctx)
	caller := s.WithContext(ctx)
	slog.Debug("launch task", slog.Uint64("scope", s.id))
	return &ObjDeferred{
		cancel: cancel,
		f: future.New(func() (Obj, error) {
			defer cancel()
			if err := m.Acquire(ctx); err != nil {
				return nil, err
			}
			defer m.Release()
			return Call(caller, fn, NoArgs())
		}),
	}
}

// Await suspends s until the task completes and returns its result.
func (d *ObjDeferred) Await(s *Scope) (Obj, error) {
	if d.f.IsDone() {
		return d.f.Await()
	}
	var res Obj
	err := s.machine.Suspend(s.ctx, func() error {
		var err error
		res, err = d.f.AwaitContext(s.ctx)
		if err != nil && s.ctx.Err() != nil {
			return &CancelledSignal{Cause: err}
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ObjMutex is a task-level lock. Waiting for it suspends the task.
type ObjMutex struct {
	ch chan struct{}
}

func NewMutex() *ObjMutex { return &ObjMutex{ch: make(chan struct{}, 1)} }

func (mu *ObjMutex) Class() *ObjClass { return MutexClass }
func (mu *ObjMutex) Inspect() string  { return "Mutex" }

func (mu *ObjMutex) Lock(s *Scope) error {
	select {
	case mu.ch <- struct{}{}:
		return nil
	default:
	}
	return s.machine.Suspend(s.ctx, func() error {
		select {
		case mu.ch <- struct{}{}:
			return nil
		case <-s.ctx.Done():
			return &CancelledSignal{Cause: s.ctx.Err()}
		}
	})
}

func (mu *ObjMutex) Unlock(s *Scope) error {
	select {
	case <-mu.ch:
		return nil
	default:
		return s.Raise(IllegalStateExceptionClass, "mutex is not locked")
	}
}

// Delay suspends s for d.
func Delay(s *Scope, d time.Duration) error {
	return s.machine.Suspend(s.ctx, func() error {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
			return nil
		case <-s.ctx.Done():
			return &CancelledSignal{Cause: s.ctx.Err()}
		}
	})
}

// Yield lets other tasks of the machine run.
func Yield(s *Scope) error {
	return s.machine.Suspend(s.ctx, func() error {
		runtime.Gosched()
		return nil
	})
}

func registerSchedulerMembers() {
	DeferredClass.Instantiable = false
	DefMethod(DeferredClass, "await", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		return recv.(*ObjDeferred).Await(s)
	})
	DefMethod(DeferredClass, "cancel", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		recv.(*ObjDeferred).cancel()
		return VOID, nil
	})
	DefProperty(DeferredClass, "isCompleted", func(s *Scope, recv Obj) (Obj, error) {
		return NewBool(recv.(*ObjDeferred).f.IsDone()), nil
	})

	MutexClass.Factory = func(s *Scope, args *Arguments) (Obj, error) {
		if err := expectArgs(s, "Mutex", args, 0, 0); err != nil {
			return nil, err
		}
		return NewMutex(), nil
	}
	DefMethod(MutexClass, "lock", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		return VOID, recv.(*ObjMutex).Lock(s)
	})
	DefMethod(MutexClass, "unlock", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		return VOID, recv.(*ObjMutex).Unlock(s)
	})
	DefMethod(MutexClass, "withLock", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		fn, err := argCallable(s, "withLock", args)
		if err != nil {
			return nil, err
		}
		mu := recv.(*ObjMutex)
		if err := mu.Lock(s); err != nil {
			return nil, err
		}
		res, err := Call(s, fn, NoArgs())
		if uerr := mu.Unlock(s); err == nil {
			err = uerr
		}
		return res, err
	})
}
