// Package camerapath samples animated parameters into polylines for drawing
// camera trajectories and their key frame markers.
package camerapath

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sgostarter/i/l"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/keyframer/internal/animation"
	"github.com/ivlev/keyframer/internal/interp"
	"github.com/ivlev/keyframer/internal/vector"
)

var (
	ErrEmptyTimeline = errors.New("animation has no key frames")
	ErrInvalidStep   = errors.New("sampling step must be at least 1")
)

// Path is the result of sampling an animation. Paths may be shared through
// the cache and must be treated as read-only.
type Path struct {
	Name     string
	Revision uint64

	Frames        []int
	Positions     []vector.Vector
	KeyFrameFlags []bool
}

func (p *Path) Len() int { return len(p.Positions) }

// KeyFrameIndices returns the sample indices flagged as key frames.
func (p *Path) KeyFrameIndices() []int {
	var out []int
	for i, flag := range p.KeyFrameFlags {
		if flag {
			out = append(out, i)
		}
	}
	return out
}

// Sampler walks the frame range of an animation and projects the values of
// its tracked parameters into one position per sampled frame.
type Sampler struct {
	name    string
	tracked []*animation.Parameter
	project Projection
	variant string
	ic      *interp.Context
	cache   *cache.Cache
	logger  l.Wrapper
}

type Option func(*Sampler)

// WithContext sets the interpolation context. The default is a Hermite
// context without caching.
func WithContext(ic *interp.Context) Option {
	return func(s *Sampler) { s.ic = ic }
}

// WithCache enables read-through caching of whole paths. One cache may be
// shared by several samplers.
func WithCache(c *cache.Cache) Option {
	return func(s *Sampler) { s.cache = c }
}

// WithVariant tells apart samplers that share a name and a cache but
// project differently, e.g. onto globes of different radii.
func WithVariant(variant string) Option {
	return func(s *Sampler) { s.variant = variant }
}

func WithLogger(logger l.Wrapper) Option {
	return func(s *Sampler) { s.logger = logger }
}

// NewCache creates a path cache. Entries of old revisions are never read
// again and simply expire.
func NewCache() *cache.Cache {
	return cache.New(5*time.Minute, 10*time.Minute)
}

func New(name string, tracked []*animation.Parameter, project Projection, opts ...Option) *Sampler {
	s := &Sampler{
		name:    name,
		tracked: tracked,
		project: project,
		ic:      interp.NewContext(),
		logger:  l.NewNopLoggerWrapper(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = l.NewNopLoggerWrapper()
	}
	s.logger = s.logger.WithFields(l.StringField(l.ClsKey, "pathSampler"), l.StringField("path", name))
	return s
}

func (s *Sampler) Name() string { return s.name }

func (s *Sampler) Tracked() []*animation.Parameter { return s.tracked }

// Sample evaluates the tracked parameters from the first to the last key
// frame of tl every step frames. The last frame is always included. ctx is
// checked between samples so a stale resample can be abandoned.
func (s *Sampler) Sample(ctx context.Context, tl animation.Timeline, step int) (*Path, error) {
	if step < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStep, step)
	}

	snap := tl.Snapshot()
	first, ok := snap.FirstFrame()
	if !ok {
		return nil, ErrEmptyTimeline
	}
	last, _ := snap.LastFrame()

	key := s.cacheKey(snap, step)
	if s.cache != nil {
		if cached, found := s.cache.Get(key); found {
			return cached.(*Path), nil
		}
	}

	frames := Frames(first, last, step)
	p := &Path{
		Name:          s.name,
		Revision:      snap.Revision(),
		Frames:        frames,
		Positions:     make([]vector.Vector, len(frames)),
		KeyFrameFlags: make([]bool, len(frames)),
	}

	values := make([]vector.Vector, len(s.tracked))
	for i, f := range frames {
		if err := ctx.Err(); err != nil {
			s.logger.WithFields(l.IntField("frame", f), l.UInt64Field("revision", snap.Revision())).
				Debug("sampling abandoned")
			return nil, err
		}

		for j, param := range s.tracked {
			v, err := s.ic.ValueAtFrame(snap, param, f)
			if err != nil {
				return nil, fmt.Errorf("sample %s at frame %d: %w", s.name, f, err)
			}
			values[j] = v
		}

		pos, err := s.project(values)
		if err != nil {
			return nil, fmt.Errorf("project %s at frame %d: %w", s.name, f, err)
		}
		p.Positions[i] = pos
		p.KeyFrameFlags[i] = s.isPathFrame(snap, f)
	}

	if s.cache != nil {
		s.cache.Set(key, p, cache.DefaultExpiration)
	}

	s.logger.WithFields(l.IntField("samples", len(frames)), l.UInt64Field("revision", snap.Revision())).
		Debug("path sampled")
	return p, nil
}

// isPathFrame reports whether any tracked parameter is keyed at f. Disabled
// parameters still mark their key frames.
func (s *Sampler) isPathFrame(snap *animation.Snapshot, f int) bool {
	kf, ok := snap.KeyFrame(f)
	if !ok {
		return false
	}
	for _, param := range s.tracked {
		if kf.HasValueForParameter(param) {
			return true
		}
	}
	return false
}

func (s *Sampler) cacheKey(snap *animation.Snapshot, step int) string {
	ids := make([]string, len(s.tracked))
	for i, p := range s.tracked {
		ids[i] = p.ID
	}
	return fmt.Sprintf("%s|%s|%s|%s|%d|%d|%s", snap.ID(), s.name, s.variant, s.ic.Mode(),
		snap.Revision(), step, strings.Join(ids, ","))
}

// Frames lists the frames sampled between first and last inclusive.
// It yields ceil((last-first)/step)+1 frames, the final one always last.
func Frames(first, last, step int) []int {
	if last < first || step < 1 {
		return nil
	}
	n := (last-first+step-1)/step + 1
	frames := make([]int, 0, n)
	for f := first; f < last; f += step {
		frames = append(frames, f)
	}
	return append(frames, last)
}

// SampleAll samples every sampler against the same snapshot of tl with at
// most workers samplers running at once (unlimited when workers <= 0).
// The first failure cancels the others.
func SampleAll(ctx context.Context, tl animation.Timeline, step, workers int, samplers ...*Sampler) ([]*Path, error) {
	snap := tl.Snapshot()
	paths := make([]*Path, len(samplers))

	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, s := range samplers {
		i, s := i, s
		g.Go(func() error {
			p, err := s.Sample(gctx, snap, step)
			if err != nil {
				return err
			}
			paths[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}
