package animation

import (
	"fmt"

	"github.com/ivlev/keyframer/internal/vector"
)

// Tx is a batch of edits applied to a private copy of the current snapshot.
// Nothing is visible to readers until the batch is committed by
// Animation.Update.
type Tx struct {
	next   *Snapshot
	copied map[string]bool // tracks already copied for this batch
	dirty  bool
}

func newTx(base *Snapshot) *Tx {
	next := &Snapshot{
		id:        base.id,
		revision:  base.revision,
		keyFrames: make([]*KeyFrame, len(base.keyFrames)),
		tracks:    make(map[string][]ControlPoint, len(base.tracks)),
		params:    make(map[string]*Parameter, len(base.params)),
		order:     append([]string(nil), base.order...),
		disabled:  make(map[string]bool, len(base.disabled)),
	}
	copy(next.keyFrames, base.keyFrames)
	for id, tr := range base.tracks {
		next.tracks[id] = tr
	}
	for id, p := range base.params {
		next.params[id] = p
	}
	for id, d := range base.disabled {
		next.disabled[id] = d
	}
	return &Tx{next: next, copied: map[string]bool{}}
}

func (tx *Tx) commit() *Snapshot {
	tx.next.revision++
	return tx.next
}

// Snapshot returns the state of the batch so far. It is only valid until
// the next edit.
func (tx *Tx) Snapshot() *Snapshot { return tx.next }

// Register adds p to the parameter registry.
func (tx *Tx) Register(p *Parameter) error {
	if p == nil {
		return ErrNilParameter
	}
	if cur, ok := tx.next.params[p.ID]; ok {
		if cur != p {
			return fmt.Errorf("%w: %s", ErrDuplicateParameter, p.ID)
		}
		return nil
	}
	tx.next.params[p.ID] = p
	tx.next.order = append(tx.next.order, p.ID)
	tx.dirty = true
	return nil
}

// SetEnabled toggles whether p takes part in path markers and scene updates.
func (tx *Tx) SetEnabled(p *Parameter, enabled bool) error {
	if err := tx.Register(p); err != nil {
		return err
	}
	if tx.next.disabled[p.ID] == !enabled {
		return nil
	}
	if enabled {
		delete(tx.next.disabled, p.ID)
	} else {
		tx.next.disabled[p.ID] = true
	}
	tx.dirty = true
	return nil
}

// AddOrReplaceValue sets the value of p at frame, creating the key frame if
// needed. Other parameters at that frame are left untouched.
func (tx *Tx) AddOrReplaceValue(p *Parameter, frame int, v vector.Vector) error {
	if p == nil {
		return ErrNilParameter
	}
	if frame < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidFrame, frame)
	}
	if err := p.check(v); err != nil {
		return err
	}
	if err := tx.Register(p); err != nil {
		return err
	}

	pv := ParameterValue{Value: v, Owner: p}
	kfs := tx.next.keyFrames
	i, found := searchKeyFrames(kfs, frame)
	if found {
		kfs[i] = kfs[i].with(pv)
	} else {
		kf := &KeyFrame{frame: frame, values: map[string]ParameterValue{p.ID: pv}}
		kfs = append(kfs, nil)
		copy(kfs[i+1:], kfs[i:])
		kfs[i] = kf
		tx.next.keyFrames = kfs
	}

	track := tx.track(p.ID)
	j, found := searchTrack(track, frame)
	if found {
		track[j].Value = v
	} else {
		track = append(track, ControlPoint{})
		copy(track[j+1:], track[j:])
		track[j] = ControlPoint{Frame: frame, Value: v}
	}
	tx.next.tracks[p.ID] = track
	tx.dirty = true
	return nil
}

// RemoveValue clears the value of p at frame. A key frame left without
// values is removed. Removing a value that does not exist is a no-op.
func (tx *Tx) RemoveValue(p *Parameter, frame int) {
	if p == nil {
		return
	}
	kfs := tx.next.keyFrames
	i, found := searchKeyFrames(kfs, frame)
	if !found || !kfs[i].HasValueForParameter(p) {
		return
	}

	if kfs[i].Len() == 1 {
		tx.next.keyFrames = append(kfs[:i], kfs[i+1:]...)
	} else {
		kfs[i] = kfs[i].without(p.ID)
	}
	tx.removeControlPoint(p.ID, frame)
	tx.dirty = true
}

// RemoveKeyFrame removes every value at frame. It is a no-op when there is
// no key frame at frame.
func (tx *Tx) RemoveKeyFrame(frame int) {
	kfs := tx.next.keyFrames
	i, found := searchKeyFrames(kfs, frame)
	if !found {
		return
	}
	for id := range kfs[i].values {
		tx.removeControlPoint(id, frame)
	}
	tx.next.keyFrames = append(kfs[:i], kfs[i+1:]...)
	tx.dirty = true
}

// MoveKeyFrame moves all values at from to to, replacing values of the same
// parameters already at to.
func (tx *Tx) MoveKeyFrame(from, to int) error {
	if to < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidFrame, to)
	}
	i, found := searchKeyFrames(tx.next.keyFrames, from)
	if !found {
		return fmt.Errorf("%w: %d", ErrKeyFrameNotFound, from)
	}
	if from == to {
		return nil
	}

	values := tx.next.keyFrames[i].Values()
	tx.RemoveKeyFrame(from)
	for _, pv := range values {
		if err := tx.AddOrReplaceValue(pv.Owner, to, pv.Value); err != nil {
			return err
		}
	}
	return nil
}

// track returns a private copy of the control points of id, copying the
// published slice the first time it is touched in this batch.
func (tx *Tx) track(id string) []ControlPoint {
	track := tx.next.tracks[id]
	if !tx.copied[id] {
		track = append(make([]ControlPoint, 0, len(track)+1), track...)
		tx.copied[id] = true
	}
	return track
}

func (tx *Tx) removeControlPoint(id string, frame int) {
	track := tx.track(id)
	j, found := searchTrack(track, frame)
	if found {
		track = append(track[:j], track[j+1:]...)
	}
	if len(track) == 0 {
		delete(tx.next.tracks, id)
		return
	}
	tx.next.tracks[id] = track
}
