package sim

import "sync"

// StatePool recycles observer scratch states of one size.
type StatePool struct {
	pool sync.Pool
	size int
}

func NewStatePool(stateSize int) *StatePool {
	return &StatePool{
		size: stateSize,
		pool: sync.Pool{
			New: func() interface{} {
				return make(State, stateSize)
			},
		},
	}
}

func (p *StatePool) Get() State {
	return p.pool.Get().(State)
}

func (p *StatePool) Put(s State) {
	if len(s) == p.size {
		for i := range s {
			s[i] = 0
		}
		p.pool.Put(s)
	}
}

// Fill returns a pooled state holding the current positions and
// velocities of q and v.
func (p *StatePool) Fill(q, v []float64) State {
	dst := p.Get()
	n := copy(dst, q)
	copy(dst[n:], v)
	return dst
}
