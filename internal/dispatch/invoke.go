package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/attachments/internal/domain"
	"github.com/kailas-cloud/attachments/internal/domain/unit"
	logpkg "github.com/kailas-cloud/attachments/internal/logger"
	"github.com/kailas-cloud/attachments/internal/registry"
)

// invoke runs a scalar entry on u with panic recovery, metrics and logging.
// The returned error is a *domain.HandlerError.
func (d *Dispatcher) invoke(ctx context.Context, stage domain.Stage, e *registry.Entry, u *unit.Unit) error {
	start := time.Now()
	err := safeCall(func() error { return e.Apply(ctx, u) })
	dur := time.Since(start)
	d.rec.Handler(string(stage), e.Name, dur, err)

	if err != nil {
		herr := domain.NewHandlerError(stage, e.Name, u.Path(), err)
		d.logFailure(herr, e, u)
		return herr
	}
	u.Record(e.Ref())
	d.logger.Debug("handler applied",
		logpkg.Verb(e.Ref()),
		logpkg.Identifier(u.Path()),
		zap.Duration("duration", dur),
	)
	return nil
}

func (d *Dispatcher) logFailure(err error, e *registry.Entry, u *unit.Unit) {
	d.logger.Warn("handler failed",
		logpkg.Stage(e.Stage),
		logpkg.Verb(e.Name),
		logpkg.Identifier(u.Path()),
		zap.Error(err),
	)
}

// safeCall converts a handler panic into an error.
func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return fn()
}

// note records a handler failure on the unit: the error joins the unit's
// failures and a readable message lands in metadata under "<verb>_error".
func note(u *unit.Unit, err error) {
	var herr *domain.HandlerError
	if errors.As(err, &herr) {
		u.SetMeta(herr.Verb+"_error", herr.Err.Error())
	} else {
		u.SetMeta("error", err.Error())
	}
	u.Fail(err)
}
