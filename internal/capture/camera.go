package capture

import (
	"context"
	"errors"
	"sync"

	apperrors "menu-scorecard/internal/common/errors"
)

// ErrPermissionDenied is the cause recorded when camera access is refused.
var ErrPermissionDenied = errors.New("camera permission denied")

// Device hands out exclusive camera leases.
type Device interface {
	Acquire(ctx context.Context) (Lease, error)
}

// Lease is an open camera. Release stops every track and is safe to call
// more than once.
type Lease interface {
	Release()
	Active() bool
}

// ClientDevice models a camera that lives in the browser. The client asks for
// permission itself and reports the outcome through Granted; the server keeps
// the lease so every exit path can release it.
type ClientDevice struct {
	Granted bool
}

func (d ClientDevice) Acquire(ctx context.Context) (Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewCaptureFailedError(err)
	}
	if !d.Granted {
		return nil, apperrors.NewCaptureFailedError(ErrPermissionDenied)
	}
	return NewLease(nil), nil
}

type lease struct {
	once    sync.Once
	mu      sync.Mutex
	active  bool
	onClose func()
}

// NewLease returns an active lease. onClose, if set, runs once on the first Release.
func NewLease(onClose func()) Lease {
	return &lease{active: true, onClose: onClose}
}

func (l *lease) Release() {
	l.once.Do(func() {
		l.mu.Lock()
		l.active = false
		l.mu.Unlock()
		if l.onClose != nil {
			l.onClose()
		}
	})
}

func (l *lease) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}
