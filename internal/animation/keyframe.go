package animation

import "sort"

// KeyFrame holds the parameter values authored at one frame.
// KeyFrames are immutable once published.
type KeyFrame struct {
	frame  int
	values map[string]ParameterValue
}

func (k *KeyFrame) Frame() int { return k.frame }

// Len returns the number of parameters armed at this frame.
func (k *KeyFrame) Len() int { return len(k.values) }

func (k *KeyFrame) Value(p *Parameter) (ParameterValue, bool) {
	if p == nil {
		return ParameterValue{}, false
	}
	v, ok := k.values[p.ID]
	return v, ok
}

func (k *KeyFrame) HasValueForParameter(p *Parameter) bool {
	_, ok := k.Value(p)
	return ok
}

// Values returns the values of this key frame ordered by parameter id.
func (k *KeyFrame) Values() []ParameterValue {
	ids := make([]string, 0, len(k.values))
	for id := range k.values {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]ParameterValue, len(ids))
	for i, id := range ids {
		out[i] = k.values[id]
	}
	return out
}

func (k *KeyFrame) with(v ParameterValue) *KeyFrame {
	values := make(map[string]ParameterValue, len(k.values)+1)
	for id, pv := range k.values {
		values[id] = pv
	}
	values[v.Owner.ID] = v
	return &KeyFrame{frame: k.frame, values: values}
}

func (k *KeyFrame) without(id string) *KeyFrame {
	values := make(map[string]ParameterValue, len(k.values))
	for pid, pv := range k.values {
		if pid != id {
			values[pid] = pv
		}
	}
	return &KeyFrame{frame: k.frame, values: values}
}
