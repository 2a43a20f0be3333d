package camerapath

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/keyframer/internal/animation"
	"github.com/ivlev/keyframer/internal/interp"
	"github.com/ivlev/keyframer/internal/vector"
)

func scalarParam(id string) *animation.Parameter {
	return &animation.Parameter{ID: id, Owner: "camera", Kind: vector.KindScalar}
}

func TestElevationExample(t *testing.T) {
	elev := scalarParam("elevation")
	a := animation.New()
	require.NoError(t, a.AddOrReplaceValue(elev, 0, vector.Scalar(1000)))
	require.NoError(t, a.AddOrReplaceValue(elev, 10, vector.Scalar(2000)))
	require.NoError(t, a.AddOrReplaceValue(elev, 20, vector.Scalar(1000)))

	s := New("elevation", []*animation.Parameter{elev}, Identity)
	p, err := s.Sample(context.Background(), a, 10)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 10, 20}, p.Frames)
	assert.Equal(t, []bool{true, true, true}, p.KeyFrameFlags)
	assert.Equal(t, []vector.Vector{vector.Scalar(1000), vector.Scalar(2000), vector.Scalar(1000)}, p.Positions)
	assert.Equal(t, a.Revision(), p.Revision)
}

func TestFrames(t *testing.T) {
	tests := []struct {
		first, last, step int
		want              []int
	}{
		{0, 20, 10, []int{0, 10, 20}},
		{0, 25, 10, []int{0, 10, 20, 25}},
		{5, 5, 3, []int{5}},
		{3, 10, 1, []int{3, 4, 5, 6, 7, 8, 9, 10}},
		{2, 9, 100, []int{2, 9}},
	}

	for _, tt := range tests {
		got := Frames(tt.first, tt.last, tt.step)
		assert.Equal(t, tt.want, got)
		n := (tt.last-tt.first+tt.step-1)/tt.step + 1
		assert.Len(t, got, n)
	}
	assert.Nil(t, Frames(0, 10, 0))
}

func TestSamplingLength(t *testing.T) {
	lat := scalarParam("lat")
	a := animation.New()
	require.NoError(t, a.AddOrReplaceValue(lat, 3, vector.Scalar(0)))
	require.NoError(t, a.AddOrReplaceValue(lat, 50, vector.Scalar(1)))
	s := New("lat", []*animation.Parameter{lat}, Identity)

	for step := 1; step <= 60; step++ {
		p, err := s.Sample(context.Background(), a, step)
		require.NoError(t, err)
		want := (47+step-1)/step + 1
		require.Equal(t, want, p.Len(), "step %d", step)
		assert.Equal(t, 50, p.Frames[p.Len()-1])
		assert.Equal(t, 3, p.Frames[0])
	}
}

func TestKeyFrameFlags(t *testing.T) {
	lat, lon, other := scalarParam("lat"), scalarParam("lon"), scalarParam("other")
	a := animation.New()
	require.NoError(t, a.AddOrReplaceValue(lat, 0, vector.Scalar(0)))
	require.NoError(t, a.AddOrReplaceValue(lon, 0, vector.Scalar(0)))
	require.NoError(t, a.AddOrReplaceValue(lat, 4, vector.Scalar(1)))
	require.NoError(t, a.AddOrReplaceValue(lon, 6, vector.Scalar(2)))
	require.NoError(t, a.AddOrReplaceValue(other, 2, vector.Scalar(9)))
	require.NoError(t, a.AddOrReplaceValue(lat, 8, vector.Scalar(3)))

	s := New("latlon", []*animation.Parameter{lat, lon}, Concat)
	p, err := s.Sample(context.Background(), a, 1)
	require.NoError(t, err)

	assert.Equal(t, []bool{true, false, false, false, true, false, true, false, true}, p.KeyFrameFlags)
	assert.Equal(t, []int{0, 4, 6, 8}, p.KeyFrameIndices())
	for _, pos := range p.Positions {
		assert.Equal(t, vector.KindVec2, pos.Kind())
	}

	require.NoError(t, a.SetEnabled(lon, false))
	p, err = s.Sample(context.Background(), a, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 4, 6, 8}, p.KeyFrameIndices(), "disabled parameters still mark frames")
	for i, f := range p.Frames {
		assert.Equal(t, a.HasValueForParameter(lat, f) || a.HasValueForParameter(lon, f), p.KeyFrameFlags[i], "frame %d", f)
	}
}

func TestSampleErrors(t *testing.T) {
	lat, lon := scalarParam("lat"), scalarParam("lon")
	a := animation.New()
	s := New("latlon", []*animation.Parameter{lat, lon}, Concat)

	_, err := s.Sample(context.Background(), a, 1)
	assert.True(t, errors.Is(err, ErrEmptyTimeline))

	require.NoError(t, a.AddOrReplaceValue(lat, 0, vector.Scalar(0)))
	_, err = s.Sample(context.Background(), a, 0)
	assert.True(t, errors.Is(err, ErrInvalidStep))

	_, err = s.Sample(context.Background(), a, 1)
	assert.True(t, errors.Is(err, interp.ErrNoKeyFrames))
}

func TestSampleCancellation(t *testing.T) {
	lat := scalarParam("lat")
	a := animation.New()
	require.NoError(t, a.AddOrReplaceValue(lat, 0, vector.Scalar(0)))
	require.NoError(t, a.AddOrReplaceValue(lat, 1000, vector.Scalar(1)))

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	project := func(values []vector.Vector) (vector.Vector, error) {
		calls++
		if calls == 10 {
			cancel()
		}
		return values[0], nil
	}

	s := New("lat", []*animation.Parameter{lat}, project)
	_, err := s.Sample(ctx, a, 1)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 10, calls)
}

func TestSampleCache(t *testing.T) {
	lat := scalarParam("lat")
	a := animation.New()
	require.NoError(t, a.AddOrReplaceValue(lat, 0, vector.Scalar(0)))
	require.NoError(t, a.AddOrReplaceValue(lat, 10, vector.Scalar(1)))

	c := NewCache()
	s := New("lat", []*animation.Parameter{lat}, Identity, WithCache(c),
		WithContext(interp.NewContext(interp.WithMode(interp.Linear))))

	p1, err := s.Sample(context.Background(), a, 5)
	require.NoError(t, err)
	p2, err := s.Sample(context.Background(), a, 5)
	require.NoError(t, err)
	assert.Same(t, p1, p2)

	p3, err := s.Sample(context.Background(), a, 2)
	require.NoError(t, err)
	assert.NotSame(t, p1, p3)

	rev := a.Revision()
	require.NoError(t, a.AddOrReplaceValue(lat, 10, vector.Scalar(2)))
	p4, err := s.Sample(context.Background(), a, 5)
	require.NoError(t, err)
	assert.NotSame(t, p1, p4)
	assert.Equal(t, vector.Scalar(1), p4.Positions[1])
	assert.Equal(t, vector.Scalar(0.5), p1.Positions[1])
	assert.Equal(t, rev+1, p4.Revision)
}

func TestSharedCacheSeparatesModesAndVariants(t *testing.T) {
	elev := scalarParam("elevation")
	a := animation.New()
	require.NoError(t, a.AddOrReplaceValue(elev, 0, vector.Scalar(1000)))
	require.NoError(t, a.AddOrReplaceValue(elev, 10, vector.Scalar(2000)))
	require.NoError(t, a.AddOrReplaceValue(elev, 20, vector.Scalar(1000)))

	c := NewCache()
	tracked := []*animation.Parameter{elev}
	linear := New("e", tracked, Identity, WithCache(c), WithContext(interp.NewContext(interp.WithMode(interp.Linear))))
	hermite := New("e", tracked, Identity, WithCache(c), WithContext(interp.NewContext()))

	p, err := linear.Sample(context.Background(), a, 5)
	require.NoError(t, err)
	assert.Equal(t, vector.Scalar(1500), p.Positions[1])

	p, err = hermite.Sample(context.Background(), a, 5)
	require.NoError(t, err)
	assert.InDelta(t, 1625, float64(p.Positions[1].(vector.Scalar)), 1e-9)

	double := Then(Identity, func(v vector.Vector) (vector.Vector, error) { return v.Scale(2), nil })
	doubled := New("e", tracked, double, WithCache(c), WithVariant("double"),
		WithContext(interp.NewContext(interp.WithMode(interp.Linear))))
	p, err = doubled.Sample(context.Background(), a, 5)
	require.NoError(t, err)
	assert.Equal(t, vector.Scalar(3000), p.Positions[1])
	assert.Equal(t, 3, c.ItemCount())
}

func TestSampleDoesNotMutate(t *testing.T) {
	lat := scalarParam("lat")
	a := animation.New()
	require.NoError(t, a.AddOrReplaceValue(lat, 0, vector.Scalar(0)))
	require.NoError(t, a.AddOrReplaceValue(lat, 7, vector.Scalar(1)))
	before := a.Snapshot()

	_, err := New("lat", []*animation.Parameter{lat}, Identity).Sample(context.Background(), a, 2)
	require.NoError(t, err)
	assert.Same(t, before, a.Snapshot())
}

func TestSampleAll(t *testing.T) {
	lat, lon, elev := scalarParam("lat"), scalarParam("lon"), scalarParam("elev")
	a := animation.New()
	require.NoError(t, a.Update(func(tx *animation.Tx) error {
		for f, v := range map[int]float64{0: 1, 5: 2, 12: 3} {
			for _, p := range []*animation.Parameter{lat, lon, elev} {
				if err := tx.AddOrReplaceValue(p, f, vector.Scalar(v)); err != nil {
					return err
				}
			}
		}
		return nil
	}))

	pos := New("position", []*animation.Parameter{lat, lon, elev}, Concat)
	alt := New("elevation", []*animation.Parameter{elev}, Identity)

	paths, err := SampleAll(context.Background(), a, 3, 2, pos, alt)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, "position", paths[0].Name)
	assert.Equal(t, "elevation", paths[1].Name)
	assert.Equal(t, paths[0].Frames, paths[1].Frames)
	assert.Equal(t, vector.Vec3{X: 2, Y: 2, Z: 2}, paths[0].Positions[0].Add(paths[0].Positions[0]))

	missing := New("missing", []*animation.Parameter{scalarParam("roll")}, Identity)
	_, err = SampleAll(context.Background(), a, 3, 0, pos, missing)
	assert.True(t, errors.Is(err, interp.ErrNoKeyFrames))
}

func TestProjections(t *testing.T) {
	_, err := Identity([]vector.Vector{vector.Scalar(1), vector.Scalar(2)})
	assert.Error(t, err)

	v, err := Concat([]vector.Vector{vector.Vec2{X: 1, Y: 2}, vector.Scalar(3)})
	require.NoError(t, err)
	assert.Equal(t, vector.Vec3{X: 1, Y: 2, Z: 3}, v)

	_, err = Concat([]vector.Vector{vector.Vec3{}, vector.Scalar(3)})
	assert.Error(t, err)

	double := Then(Identity, func(v vector.Vector) (vector.Vector, error) { return v.Scale(2), nil })
	v, err = double([]vector.Vector{vector.Scalar(4)})
	require.NoError(t, err)
	assert.Equal(t, vector.Scalar(8), v)
}
