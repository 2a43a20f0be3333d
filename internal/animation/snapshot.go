package animation

import "sort"

// Timeline is anything that can hand out a consistent view of an animation.
// Both *Animation and *Snapshot implement it.
type Timeline interface {
	Snapshot() *Snapshot
}

// Snapshot is an immutable view of an Animation at one revision.
type Snapshot struct {
	id        string
	revision  uint64
	keyFrames []*KeyFrame
	tracks    map[string][]ControlPoint
	params    map[string]*Parameter
	order     []string
	disabled  map[string]bool
}

func emptySnapshot(id string) *Snapshot {
	return &Snapshot{
		id:       id,
		tracks:   map[string][]ControlPoint{},
		params:   map[string]*Parameter{},
		disabled: map[string]bool{},
	}
}

func (s *Snapshot) Snapshot() *Snapshot { return s }

// ID returns the identity of the animation this snapshot belongs to.
func (s *Snapshot) ID() string { return s.id }

// Revision increments on every published mutation.
func (s *Snapshot) Revision() uint64 { return s.revision }

// KeyFrames returns the key frames sorted by frame.
func (s *Snapshot) KeyFrames() []*KeyFrame {
	out := make([]*KeyFrame, len(s.keyFrames))
	copy(out, s.keyFrames)
	return out
}

// KeyFrame returns the key frame at frame, if any.
func (s *Snapshot) KeyFrame(frame int) (*KeyFrame, bool) {
	i, ok := searchKeyFrames(s.keyFrames, frame)
	if !ok {
		return nil, false
	}
	return s.keyFrames[i], true
}

func (s *Snapshot) FirstFrame() (int, bool) {
	if len(s.keyFrames) == 0 {
		return 0, false
	}
	return s.keyFrames[0].frame, true
}

func (s *Snapshot) LastFrame() (int, bool) {
	if len(s.keyFrames) == 0 {
		return 0, false
	}
	return s.keyFrames[len(s.keyFrames)-1].frame, true
}

// HasValueForParameter reports whether p has an explicit value at frame.
func (s *Snapshot) HasValueForParameter(p *Parameter, frame int) bool {
	kf, ok := s.KeyFrame(frame)
	return ok && kf.HasValueForParameter(p)
}

// ControlPoints returns the frames at which p has a value, in order.
// The returned slice is shared and must not be modified.
func (s *Snapshot) ControlPoints(p *Parameter) []ControlPoint {
	if p == nil {
		return nil
	}
	return s.tracks[p.ID]
}

// Parameters returns the registered parameters in registration order.
func (s *Snapshot) Parameters() []*Parameter {
	out := make([]*Parameter, len(s.order))
	for i, id := range s.order {
		out[i] = s.params[id]
	}
	return out
}

func (s *Snapshot) Parameter(id string) (*Parameter, bool) {
	p, ok := s.params[id]
	return p, ok
}

// Enabled reports whether p is enabled. Parameters are enabled unless
// explicitly disabled.
func (s *Snapshot) Enabled(p *Parameter) bool {
	return p != nil && !s.disabled[p.ID]
}

func searchKeyFrames(kfs []*KeyFrame, frame int) (int, bool) {
	i := sort.Search(len(kfs), func(i int) bool { return kfs[i].frame >= frame })
	return i, i < len(kfs) && kfs[i].frame == frame
}

func searchTrack(track []ControlPoint, frame int) (int, bool) {
	i := sort.Search(len(track), func(i int) bool { return track[i].Frame >= frame })
	return i, i < len(track) && track[i].Frame == frame
}
