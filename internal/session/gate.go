package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/folio/internal/shared"
	"github.com/urfave/cli/v3"
)

// State is the gate's view of authentication.
type State int

const (
	Resolving State = iota
	Authenticated
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Resolving:
		return "resolving"
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// LoginHint is appended to errors returned for protected commands when logged out.
const LoginHint = "run `folio auth login` first"

// Gate is the single place that decides whether protected operations may run.
//
// It starts in [Resolving] and moves to [Authenticated] or [Unauthenticated] once the persisted
// session has been loaded. Nothing protected renders or runs while resolving.
type Gate struct {
	store *Store

	once     sync.Once
	resolved chan struct{}
	err      error
}

// NewGate creates a gate over store.
func NewGate(store *Store) *Gate {
	return &Gate{store: store, resolved: make(chan struct{})}
}

// Resolve performs the resolving transition exactly once and returns the resulting state.
func (g *Gate) Resolve(ctx context.Context) State {
	g.once.Do(func() {
		_, g.err = g.store.Resolve(ctx)
		close(g.resolved)
	})
	<-g.resolved
	return g.State()
}

// State reports the current state. After resolution it follows later logins and logouts.
func (g *Gate) State() State {
	select {
	case <-g.resolved:
	default:
		return Resolving
	}
	if g.store.Current() == nil {
		return Unauthenticated
	}
	return Authenticated
}

// Err returns the storage error hit while resolving, if any.
func (g *Gate) Err() error {
	select {
	case <-g.resolved:
		return g.err
	default:
		return nil
	}
}

// Store returns the underlying session store.
func (g *Gate) Store() *Store {
	return g.store
}

// Require returns nil when authenticated and [shared.ErrNotAuthenticated] with a login hint otherwise.
func (g *Gate) Require(ctx context.Context) error {
	if g.Resolve(ctx) == Authenticated {
		return nil
	}
	if g.err != nil {
		return fmt.Errorf("%w: %v; %s", shared.ErrNotAuthenticated, g.err, LoginHint)
	}
	return fmt.Errorf("%w: %s", shared.ErrNotAuthenticated, LoginHint)
}

// Guard wraps a protected CLI action so it only runs with a live session.
func (g *Gate) Guard(next cli.ActionFunc) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		if err := g.Require(ctx); err != nil {
			return err
		}
		return next(ctx, cmd)
	}
}
