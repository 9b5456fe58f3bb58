package dynamics

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// CacheKind identifies one lazily recomputed aggregate.
type CacheKind int

const (
	ArticulatedInertiaCache CacheKind = iota
	MassMatrixCache
	AugMassMatrixCache
	InvMassMatrixCache
	InvAugMassMatrixCache
	CoriolisCache
	GravityCache
	CoriolisAndGravityCache
	ExternalForcesCache
	ConstraintForcesCache

	numCacheKinds
)

var cacheKindNames = [numCacheKinds]string{
	"articulated-inertia",
	"mass-matrix",
	"aug-mass-matrix",
	"inv-mass-matrix",
	"inv-aug-mass-matrix",
	"coriolis",
	"gravity",
	"coriolis-and-gravity",
	"external-forces",
	"constraint-forces",
}

func (k CacheKind) String() string {
	if k >= 0 && k < numCacheKinds {
		return cacheKindNames[k]
	}
	return fmt.Sprintf("CacheKind(%d)", int(k))
}

func (k CacheKind) valid() bool { return k >= 0 && k < numCacheKinds }

// AllCacheKinds lists every cache kind in order.
func AllCacheKinds() []CacheKind {
	out := make([]CacheKind, numCacheKinds)
	for i := range out {
		out[i] = CacheKind(i)
	}
	return out
}

// change classifies a state mutation for invalidation.
type change int

const (
	changePositions change = iota
	changeVelocities
	changeGravity
	changeExternal
	changeConstraint
	changeStructure
	changeImplicit
	changeActuatorMode
)

var invalidationTable = map[change][]CacheKind{
	changePositions:    AllCacheKinds(),
	changeVelocities:   {CoriolisCache, CoriolisAndGravityCache},
	changeGravity:      {GravityCache, CoriolisAndGravityCache},
	changeExternal:     {ExternalForcesCache},
	changeConstraint:   {ConstraintForcesCache},
	changeStructure:    AllCacheKinds(),
	changeImplicit:     {ArticulatedInertiaCache, AugMassMatrixCache, InvAugMassMatrixCache},
	changeActuatorMode: {ArticulatedInertiaCache},
}

// cacheSet holds one tree's (or the skeleton's) aggregates, each behind its
// own dirty bit.
type cacheSet struct {
	dirty      [numCacheKinds]bool
	recomputes [numCacheKinds]int

	massMatrix       *mat.Dense
	augMassMatrix    *mat.Dense
	invMassMatrix    *mat.Dense
	invAugMassMatrix *mat.Dense

	coriolis        []float64
	gravity         []float64
	coriolisGravity []float64
	external        []float64
	constraint      []float64
}

func newCacheSet() cacheSet {
	var c cacheSet
	for i := range c.dirty {
		c.dirty[i] = true
	}
	return c
}

func (c *cacheSet) apply(ch change) {
	for _, k := range invalidationTable[ch] {
		c.dirty[k] = true
	}
}

func (c *cacheSet) invalidate(k CacheKind) {
	if !k.valid() {
		return
	}
	c.dirty[k] = true
}

func (c *cacheSet) markFresh(k CacheKind) {
	c.dirty[k] = false
	c.recomputes[k]++
}

func (c *cacheSet) matrix(k CacheKind) *mat.Dense {
	switch k {
	case MassMatrixCache:
		return c.massMatrix
	case AugMassMatrixCache:
		return c.augMassMatrix
	case InvMassMatrixCache:
		return c.invMassMatrix
	case InvAugMassMatrixCache:
		return c.invAugMassMatrix
	}
	return nil
}

func (c *cacheSet) setMatrix(k CacheKind, m *mat.Dense) {
	switch k {
	case MassMatrixCache:
		c.massMatrix = m
	case AugMassMatrixCache:
		c.augMassMatrix = m
	case InvMassMatrixCache:
		c.invMassMatrix = m
	case InvAugMassMatrixCache:
		c.invAugMassMatrix = m
	}
}

func (c *cacheSet) vector(k CacheKind) []float64 {
	switch k {
	case CoriolisCache:
		return c.coriolis
	case GravityCache:
		return c.gravity
	case CoriolisAndGravityCache:
		return c.coriolisGravity
	case ExternalForcesCache:
		return c.external
	case ConstraintForcesCache:
		return c.constraint
	}
	return nil
}

func (c *cacheSet) setVector(k CacheKind, v []float64) {
	switch k {
	case CoriolisCache:
		c.coriolis = v
	case GravityCache:
		c.gravity = v
	case CoriolisAndGravityCache:
		c.coriolisGravity = v
	case ExternalForcesCache:
		c.external = v
	case ConstraintForcesCache:
		c.constraint = v
	}
}

func isMatrixKind(k CacheKind) bool {
	switch k {
	case MassMatrixCache, AugMassMatrixCache, InvMassMatrixCache, InvAugMassMatrixCache:
		return true
	}
	return false
}
