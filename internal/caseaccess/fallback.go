package caseaccess

import (
	"context"
	"fmt"

	"github.com/hazuki802/bukkaku/internal/client"
	"github.com/hazuki802/bukkaku/internal/store"
)

// Session represents a case access handle and its cleanup function.
type Session struct {
	Access Access
	Direct bool
	close  func() error
}

// Close releases resources associated with the session.
func (s Session) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenWithFallback tries daemon-backed access first, then falls back to
// opening the store directly. The probe decides reachability, so a daemon
// that answers its health endpoint wins even when a later call fails.
func OpenWithFallback(
	ctx context.Context,
	dial func(ctx context.Context) (*client.Client, error),
	openStore func() (*store.Store, error),
) (Session, error) {
	if dial != nil {
		if c, err := dial(ctx); err == nil && c != nil {
			return Session{Access: NewClientAccess(c)}, nil
		}
	}

	if openStore == nil {
		return Session{}, fmt.Errorf("open case store: no store opener configured")
	}
	st, err := openStore()
	if err != nil {
		return Session{}, fmt.Errorf("open case store: %w", err)
	}
	return Session{
		Access: NewStoreAccess(st),
		Direct: true,
		close:  st.Close,
	}, nil
}
