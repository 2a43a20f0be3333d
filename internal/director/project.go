package director

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cast"

	"github.com/ivlev/keyframer/internal/animation"
	"github.com/ivlev/keyframer/internal/vector"
)

const ProjectVersion = "1.0"

var ErrUnknownParameter = errors.New("unknown parameter")

// Project is the on-disk form of an animation
type Project struct {
	Version    string          `yaml:"version"`
	ID         string          `yaml:"id,omitempty"`
	Name       string          `yaml:"name,omitempty"`
	FPS        float64         `yaml:"fps"`
	Parameters []ParameterSpec `yaml:"parameters"`
	KeyFrames  []KeyFrameSpec  `yaml:"keyframes"`
}

// ParameterSpec describes one animatable parameter
type ParameterSpec struct {
	ID       string    `yaml:"id"`
	Name     string    `yaml:"name,omitempty"`
	Owner    string    `yaml:"owner,omitempty"`
	Kind     string    `yaml:"kind"`
	Angular  bool      `yaml:"angular,omitempty"`
	Disabled bool      `yaml:"disabled,omitempty"`
	Default  []float64 `yaml:"default,omitempty,flow"`
}

// KeyFrameSpec holds the values set at one frame, keyed by parameter id.
// A value is a number for scalar parameters and a list of numbers otherwise;
// numeric strings are accepted too.
type KeyFrameSpec struct {
	Frame  int                    `yaml:"frame"`
	Values map[string]interface{} `yaml:"values"`
}

// Encode converts the current state of tl into a project
func Encode(tl animation.Timeline, name string, fps float64) *Project {
	snap := tl.Snapshot()
	p := &Project{
		Version: ProjectVersion,
		ID:      snap.ID(),
		Name:    name,
		FPS:     fps,
	}

	for _, param := range snap.Parameters() {
		spec := ParameterSpec{
			ID:       param.ID,
			Name:     param.Name,
			Owner:    param.Owner,
			Kind:     param.Kind.String(),
			Angular:  param.Angular,
			Disabled: !snap.Enabled(param),
		}
		if param.Default != nil {
			spec.Default = param.Default.Components()
		}
		p.Parameters = append(p.Parameters, spec)
	}

	for _, kf := range snap.KeyFrames() {
		spec := KeyFrameSpec{Frame: kf.Frame(), Values: map[string]interface{}{}}
		for _, pv := range kf.Values() {
			spec.Values[pv.Owner.ID] = encodeValue(pv.Value)
		}
		p.KeyFrames = append(p.KeyFrames, spec)
	}

	return p
}

func encodeValue(v vector.Vector) interface{} {
	if s, ok := v.(vector.Scalar); ok {
		return float64(s)
	}
	return v.Components()
}

// Decode rebuilds an animation from p in a single update. Parameters found
// in known are used as is so that callers keep their handles; the rest are
// created from the project's parameter list.
func Decode(p *Project, known ...*animation.Parameter) (*animation.Animation, error) {
	if p == nil {
		return nil, fmt.Errorf("nil project")
	}

	params := make(map[string]*animation.Parameter, len(known))
	for _, param := range known {
		params[param.ID] = param
	}

	var disabled []*animation.Parameter
	order := make([]*animation.Parameter, 0, len(p.Parameters))
	for _, spec := range p.Parameters {
		param, err := decodeParameter(spec, params[spec.ID])
		if err != nil {
			return nil, err
		}
		params[spec.ID] = param
		order = append(order, param)
		if spec.Disabled {
			disabled = append(disabled, param)
		}
	}

	keyFrames := make([]KeyFrameSpec, len(p.KeyFrames))
	copy(keyFrames, p.KeyFrames)
	sort.SliceStable(keyFrames, func(i, j int) bool { return keyFrames[i].Frame < keyFrames[j].Frame })

	var a *animation.Animation
	if p.ID != "" {
		a = animation.NewWithID(p.ID)
	} else {
		a = animation.New()
	}

	err := a.Update(func(tx *animation.Tx) error {
		for _, param := range order {
			if err := tx.Register(param); err != nil {
				return err
			}
		}
		for _, kf := range keyFrames {
			ids := make([]string, 0, len(kf.Values))
			for id := range kf.Values {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			for _, id := range ids {
				param, ok := params[id]
				if !ok {
					return fmt.Errorf("%w: %s at frame %d", ErrUnknownParameter, id, kf.Frame)
				}
				v, err := decodeValue(param.Kind, kf.Values[id])
				if err != nil {
					return fmt.Errorf("frame %d, %s: %w", kf.Frame, id, err)
				}
				if err := tx.AddOrReplaceValue(param, kf.Frame, v); err != nil {
					return err
				}
			}
		}
		for _, param := range disabled {
			if err := tx.SetEnabled(param, false); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func decodeParameter(spec ParameterSpec, existing *animation.Parameter) (*animation.Parameter, error) {
	kind, err := vector.ParseKind(spec.Kind)
	if err != nil {
		return nil, fmt.Errorf("parameter %s: %w", spec.ID, err)
	}
	if existing != nil {
		if existing.Kind != kind {
			return nil, fmt.Errorf("%w: %s is %v, project says %v", animation.ErrKindMismatch, spec.ID, existing.Kind, kind)
		}
		return existing, nil
	}

	param := &animation.Parameter{
		ID:      spec.ID,
		Name:    spec.Name,
		Owner:   spec.Owner,
		Kind:    kind,
		Angular: spec.Angular,
	}
	if len(spec.Default) > 0 {
		if param.Default, err = vector.New(kind, spec.Default); err != nil {
			return nil, fmt.Errorf("parameter %s default: %w", spec.ID, err)
		}
	}
	return param, nil
}

func decodeValue(kind vector.Kind, raw interface{}) (vector.Vector, error) {
	if kind == vector.KindScalar {
		if list, ok := raw.([]interface{}); ok && len(list) == 1 {
			raw = list[0]
		}
		f, err := cast.ToFloat64E(raw)
		if err != nil {
			return nil, err
		}
		return vector.Scalar(f), nil
	}

	if c, ok := raw.([]float64); ok {
		return vector.New(kind, c)
	}
	list, err := cast.ToSliceE(raw)
	if err != nil {
		return nil, err
	}
	c := make([]float64, len(list))
	for i, item := range list {
		if c[i], err = cast.ToFloat64E(item); err != nil {
			return nil, err
		}
	}
	return vector.New(kind, c)
}
