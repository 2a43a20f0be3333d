package animation

import (
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/keyframer/internal/vector"
)

func newParams() (lat, lon, elev *Parameter) {
	lat = &Parameter{ID: "lat", Owner: "camera", Kind: vector.KindScalar}
	lon = &Parameter{ID: "lon", Owner: "camera", Kind: vector.KindScalar, Angular: true}
	elev = &Parameter{ID: "elev", Owner: "camera", Kind: vector.KindScalar}
	return
}

func frames(a *Animation) []int {
	var out []int
	for _, kf := range a.KeyFrames() {
		out = append(out, kf.Frame())
	}
	return out
}

func TestAddOrReplaceValue(t *testing.T) {
	lat, lon, _ := newParams()
	a := New()

	require.NoError(t, a.AddOrReplaceValue(lat, 10, vector.Scalar(1)))
	require.NoError(t, a.AddOrReplaceValue(lat, 0, vector.Scalar(2)))
	require.NoError(t, a.AddOrReplaceValue(lon, 10, vector.Scalar(3)))
	require.NoError(t, a.AddOrReplaceValue(lat, 10, vector.Scalar(4)))

	assert.Equal(t, []int{0, 10}, frames(a))

	kf, ok := a.Snapshot().KeyFrame(10)
	require.True(t, ok)
	assert.Equal(t, 2, kf.Len())
	v, ok := kf.Value(lat)
	require.True(t, ok)
	assert.Equal(t, vector.Scalar(4), v.Value)
	assert.Same(t, lat, v.Owner)
	v, _ = kf.Value(lon)
	assert.Equal(t, vector.Scalar(3), v.Value)

	first, ok := a.FirstFrame()
	assert.True(t, ok)
	assert.Equal(t, 0, first)
	last, _ := a.LastFrame()
	assert.Equal(t, 10, last)

	assert.Equal(t, []ControlPoint{{0, vector.Scalar(2)}, {10, vector.Scalar(4)}}, a.Snapshot().ControlPoints(lat))
	assert.Equal(t, []*Parameter{lat, lon}, a.Parameters())
}

func TestAddOrReplaceValueErrors(t *testing.T) {
	lat, _, _ := newParams()
	a := New()

	err := a.AddOrReplaceValue(lat, -1, vector.Scalar(1))
	assert.True(t, errors.Is(err, ErrInvalidFrame))

	err = a.AddOrReplaceValue(lat, 1, vector.Vec2{})
	assert.True(t, errors.Is(err, ErrKindMismatch))

	err = a.AddOrReplaceValue(nil, 1, vector.Scalar(1))
	assert.True(t, errors.Is(err, ErrNilParameter))

	clone := *lat
	require.NoError(t, a.Register(lat))
	err = a.AddOrReplaceValue(&clone, 1, vector.Scalar(1))
	assert.True(t, errors.Is(err, ErrDuplicateParameter))

	assert.Empty(t, a.KeyFrames())
	assert.Equal(t, uint64(1), a.Revision())
}

func TestRemoveValue(t *testing.T) {
	lat, lon, _ := newParams()
	a := New()
	require.NoError(t, a.AddOrReplaceValue(lat, 5, vector.Scalar(1)))
	require.NoError(t, a.AddOrReplaceValue(lon, 5, vector.Scalar(2)))
	require.NoError(t, a.AddOrReplaceValue(lat, 9, vector.Scalar(3)))

	a.RemoveValue(lat, 5)
	assert.Equal(t, []int{5, 9}, frames(a))
	assert.False(t, a.HasValueForParameter(lat, 5))
	assert.True(t, a.HasValueForParameter(lon, 5))

	a.RemoveValue(lon, 5)
	assert.Equal(t, []int{9}, frames(a), "empty key frame is dropped")
	assert.Empty(t, a.Snapshot().ControlPoints(lon))
}

func TestRemoveValueIdempotent(t *testing.T) {
	lat, lon, elev := newParams()
	a := New()
	require.NoError(t, a.AddOrReplaceValue(lat, 5, vector.Scalar(1)))
	require.NoError(t, a.AddOrReplaceValue(lon, 7, vector.Scalar(2)))

	before := a.Snapshot()
	a.RemoveValue(elev, 5)
	a.RemoveValue(lat, 6)
	a.RemoveValue(lat, -3)
	a.RemoveValue(nil, 5)
	a.RemoveKeyFrame(100)

	after := a.Snapshot()
	assert.Same(t, before, after)
	assert.Equal(t, before.KeyFrames(), after.KeyFrames())
}

func TestRemoveKeyFrame(t *testing.T) {
	lat, lon, _ := newParams()
	a := New()
	require.NoError(t, a.AddOrReplaceValue(lat, 1, vector.Scalar(1)))
	require.NoError(t, a.AddOrReplaceValue(lon, 1, vector.Scalar(2)))
	require.NoError(t, a.AddOrReplaceValue(lat, 2, vector.Scalar(3)))

	a.RemoveKeyFrame(1)
	assert.Equal(t, []int{2}, frames(a))
	assert.Len(t, a.Snapshot().ControlPoints(lat), 1)
	assert.Empty(t, a.Snapshot().ControlPoints(lon))
}

func TestMoveKeyFrame(t *testing.T) {
	lat, lon, elev := newParams()
	a := New()
	require.NoError(t, a.AddOrReplaceValue(lat, 1, vector.Scalar(1)))
	require.NoError(t, a.AddOrReplaceValue(lon, 1, vector.Scalar(2)))
	require.NoError(t, a.AddOrReplaceValue(lat, 8, vector.Scalar(3)))
	require.NoError(t, a.AddOrReplaceValue(elev, 8, vector.Scalar(4)))

	require.NoError(t, a.MoveKeyFrame(1, 8))
	assert.Equal(t, []int{8}, frames(a))

	kf, _ := a.Snapshot().KeyFrame(8)
	assert.Equal(t, 3, kf.Len())
	v, _ := kf.Value(lat)
	assert.Equal(t, vector.Scalar(1), v.Value, "moved value replaces the one at the target")

	assert.True(t, errors.Is(a.MoveKeyFrame(3, 4), ErrKeyFrameNotFound))
	assert.True(t, errors.Is(a.MoveKeyFrame(8, -1), ErrInvalidFrame))
	assert.Equal(t, []int{8}, frames(a))
}

func TestUpdateIsAtomic(t *testing.T) {
	lat, lon, _ := newParams()
	a := New()
	rev := a.Revision()

	err := a.Update(func(tx *Tx) error {
		if err := tx.AddOrReplaceValue(lat, 0, vector.Scalar(1)); err != nil {
			return err
		}
		return tx.AddOrReplaceValue(lon, -5, vector.Scalar(1))
	})
	assert.True(t, errors.Is(err, ErrInvalidFrame))
	assert.Empty(t, a.KeyFrames())
	assert.Equal(t, rev, a.Revision())

	require.NoError(t, a.Update(func(tx *Tx) error {
		if err := tx.AddOrReplaceValue(lat, 0, vector.Scalar(1)); err != nil {
			return err
		}
		return tx.AddOrReplaceValue(lon, 0, vector.Scalar(1))
	}))
	assert.Equal(t, rev+1, a.Revision())
}

func TestSetEnabled(t *testing.T) {
	lat, _, _ := newParams()
	a := New()

	assert.True(t, a.Enabled(lat))
	require.NoError(t, a.SetEnabled(lat, false))
	assert.False(t, a.Enabled(lat))
	rev := a.Revision()
	require.NoError(t, a.SetEnabled(lat, false))
	assert.Equal(t, rev, a.Revision())
	require.NoError(t, a.SetEnabled(lat, true))
	assert.True(t, a.Enabled(lat))
}

func TestSubscribe(t *testing.T) {
	lat, _, _ := newParams()
	a := New()

	var got []uint64
	a.Subscribe(func(rev uint64) { got = append(got, rev) })

	require.NoError(t, a.AddOrReplaceValue(lat, 0, vector.Scalar(1)))
	a.RemoveValue(lat, 3)
	a.RemoveValue(lat, 0)
	assert.Equal(t, []uint64{1, 2}, got)
}

func TestOrderingInvariant(t *testing.T) {
	lat, lon, elev := newParams()
	params := []*Parameter{lat, lon, elev}
	a := New()
	r := rand.New(rand.NewSource(7))

	for i := 0; i < 2000; i++ {
		p := params[r.Intn(len(params))]
		frame := r.Intn(60)
		switch r.Intn(4) {
		case 0, 1:
			require.NoError(t, a.AddOrReplaceValue(p, frame, vector.Scalar(r.Float64())))
		case 2:
			a.RemoveValue(p, frame)
		default:
			_ = a.MoveKeyFrame(frame, r.Intn(60))
		}

		snap := a.Snapshot()
		kfs := snap.KeyFrames()
		for j := 1; j < len(kfs); j++ {
			require.Less(t, kfs[j-1].Frame(), kfs[j].Frame())
		}
		for _, kf := range kfs {
			require.NotZero(t, kf.Len())
		}
		for _, p := range params {
			track := snap.ControlPoints(p)
			for j, cp := range track {
				require.True(t, snap.HasValueForParameter(p, cp.Frame))
				if j > 0 {
					require.Less(t, track[j-1].Frame, cp.Frame)
				}
			}
		}
	}
}

func TestConcurrentReaders(t *testing.T) {
	lat, _, _ := newParams()
	a := New()

	var wg sync.WaitGroup
	done := make(chan struct{})
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				kfs := a.KeyFrames()
				for j := 1; j < len(kfs); j++ {
					if kfs[j-1].Frame() >= kfs[j].Frame() {
						t.Error("observed unsorted key frames")
						return
					}
				}
			}
		}()
	}

	for i := 0; i < 500; i++ {
		require.NoError(t, a.AddOrReplaceValue(lat, (i*37)%211, vector.Scalar(float64(i))))
		if i%3 == 0 {
			a.RemoveValue(lat, (i*11)%211)
		}
	}
	close(done)
	wg.Wait()
}
