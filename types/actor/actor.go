// Package actor holds the scaffolding shared by every long-running goroutine in this module;
// each one owns its state, and is only ever talked to through channels.
package actor

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
)

type Actor interface {
	Run()

	Ctx() context.Context

	// Cancel this actor's context.
	Cancel()

	// Close is called by the actor's Run loop when cancelled.
	Close()
}

type Common struct {
	ctx     context.Context
	ctxCan  context.CancelFunc
	running RunCheck
}

func MakeCommon(pCtx context.Context) *Common {
	ctx, ctxCan := context.WithCancel(pCtx)

	return &Common{
		ctx:     ctx,
		ctxCan:  ctxCan,
		running: MakeRunCheck(),
	}
}

func (ac *Common) Ctx() context.Context {
	return ac.ctx
}

func (ac *Common) Cancel() {
	ac.ctxCan()
}

// Start marks the actor as running, returns false if it already is.
func (ac *Common) Start() bool {
	return ac.running.CheckOrMark()
}

// RunCheck ensures that only one instance of the actor is running at all times.
type RunCheck struct {
	*atomic.Bool
}

func MakeRunCheck() RunCheck {
	return RunCheck{
		&atomic.Bool{},
	}
}

// CheckOrMark atomically checks if its already running, else marks as running, returns a false value if the instance is already running.
func (rc *RunCheck) CheckOrMark() bool {
	return rc.CompareAndSwap(false, true)
}

func L(a any) *slog.Logger {
	return slog.With("actor", fmt.Sprintf("%T", a))
}

// Bail is deferred at the top of every Run; a panicking actor logs, and cancels itself.
func Bail(a Actor) {
	if v := recover(); v != nil {
		L(a).Error("panicked", "panic", v)
		a.Cancel()
	}
}
