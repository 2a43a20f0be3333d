package animation

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/ivlev/keyframer/internal/vector"
)

// Animation owns the key frames and parameter registry of one timeline.
//
// Mutations are serialised and published as whole snapshots; all read
// methods are safe to call from any goroutine.
type Animation struct {
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]

	listenersMu sync.Mutex
	listeners   []func(revision uint64)
}

// New creates an empty animation with a random identity.
func New() *Animation {
	return NewWithID(uuid.NewString())
}

// NewWithID creates an empty animation with the given identity.
func NewWithID(id string) *Animation {
	a := &Animation{}
	a.current.Store(emptySnapshot(id))
	return a
}

// Snapshot returns the current published state.
func (a *Animation) Snapshot() *Snapshot { return a.current.Load() }

// Update runs fn against a private copy of the current state and publishes
// the result as a single revision. If fn fails nothing is published.
func (a *Animation) Update(fn func(tx *Tx) error) error {
	a.mu.Lock()
	tx := newTx(a.current.Load())
	if err := fn(tx); err != nil {
		a.mu.Unlock()
		return err
	}
	if !tx.dirty {
		a.mu.Unlock()
		return nil
	}
	snap := tx.commit()
	a.current.Store(snap)
	a.mu.Unlock()

	a.notify(snap.revision)
	return nil
}

// Subscribe registers fn to be called after every published revision.
// Listeners run on the writer's goroutine.
func (a *Animation) Subscribe(fn func(revision uint64)) {
	a.listenersMu.Lock()
	a.listeners = append(a.listeners, fn)
	a.listenersMu.Unlock()
}

func (a *Animation) notify(revision uint64) {
	a.listenersMu.Lock()
	listeners := append([]func(uint64){}, a.listeners...)
	a.listenersMu.Unlock()

	for _, fn := range listeners {
		fn(revision)
	}
}

func (a *Animation) Register(p *Parameter) error {
	return a.Update(func(tx *Tx) error { return tx.Register(p) })
}

func (a *Animation) SetEnabled(p *Parameter, enabled bool) error {
	return a.Update(func(tx *Tx) error { return tx.SetEnabled(p, enabled) })
}

func (a *Animation) AddOrReplaceValue(p *Parameter, frame int, v vector.Vector) error {
	return a.Update(func(tx *Tx) error { return tx.AddOrReplaceValue(p, frame, v) })
}

func (a *Animation) RemoveValue(p *Parameter, frame int) {
	_ = a.Update(func(tx *Tx) error {
		tx.RemoveValue(p, frame)
		return nil
	})
}

func (a *Animation) RemoveKeyFrame(frame int) {
	_ = a.Update(func(tx *Tx) error {
		tx.RemoveKeyFrame(frame)
		return nil
	})
}

func (a *Animation) MoveKeyFrame(from, to int) error {
	return a.Update(func(tx *Tx) error { return tx.MoveKeyFrame(from, to) })
}

// ID returns the identity of the animation.
func (a *Animation) ID() string { return a.Snapshot().ID() }

func (a *Animation) Revision() uint64 { return a.Snapshot().Revision() }

func (a *Animation) KeyFrames() []*KeyFrame { return a.Snapshot().KeyFrames() }

func (a *Animation) FirstFrame() (int, bool) { return a.Snapshot().FirstFrame() }

func (a *Animation) LastFrame() (int, bool) { return a.Snapshot().LastFrame() }

func (a *Animation) Parameters() []*Parameter { return a.Snapshot().Parameters() }

func (a *Animation) Parameter(id string) (*Parameter, bool) {
	return a.Snapshot().Parameter(id)
}

func (a *Animation) Enabled(p *Parameter) bool { return a.Snapshot().Enabled(p) }

func (a *Animation) HasValueForParameter(p *Parameter, frame int) bool {
	return a.Snapshot().HasValueForParameter(p, frame)
}
