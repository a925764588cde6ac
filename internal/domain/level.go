package domain

import "bytes"

// Obstacle is one element of a level layout. The editor owns its shape
// (type, x, y, width, dangerous, hasSpike, mode and whatever it adds later),
// so it is stored and returned exactly as the client sent it.
type Obstacle []byte

func (o Obstacle) MarshalJSON() ([]byte, error) {
	if len(o) == 0 {
		return []byte("null"), nil
	}
	return o, nil
}

func (o *Obstacle) UnmarshalJSON(b []byte) error {
	*o = append((*o)[:0], b...)
	return nil
}

// CloneObstacles deep-copies a layout so callers cannot alias stored bytes
func CloneObstacles(in []Obstacle) []Obstacle {
	if in == nil {
		return nil
	}
	out := make([]Obstacle, len(in))
	for i, o := range in {
		out[i] = bytes.Clone(o)
	}
	return out
}

// LevelLayouts maps a difficulty label to its obstacle list
type LevelLayouts map[string][]Obstacle
