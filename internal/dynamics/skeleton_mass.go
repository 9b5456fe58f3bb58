package dynamics

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/multibody/internal/spatial"
)

// ensure brings kind k of every tree and of the skeleton aggregate up to
// date. Only dirty trees are recomputed.
func (s *Skeleton) ensure(k CacheKind) {
	if k == ArticulatedInertiaCache {
		s.selectStrategies()
	}
	s.ensureKinematics()
	for _, t := range s.trees {
		s.ensureTree(t, k)
	}
	if s.cache.dirty[k] {
		s.assemble(k)
		s.cache.markFresh(k)
	}
}

func (s *Skeleton) ensureTree(t *tree, k CacheKind) {
	if !t.cache.dirty[k] {
		return
	}
	switch k {
	case ArticulatedInertiaCache:
		s.updateArticulatedInertia(t)
	case MassMatrixCache:
		t.cache.massMatrix = t.massMatrix()
	case AugMassMatrixCache:
		s.ensureTree(t, MassMatrixCache)
		t.cache.augMassMatrix = t.augment(t.cache.massMatrix, s.timeStep)
	case InvMassMatrixCache:
		t.cache.invMassMatrix = t.invMassMatrix(nil)
	case InvAugMassMatrixCache:
		dt := s.timeStep
		t.cache.invAugMassMatrix = t.invMassMatrix(func(j *jointCore) []float64 { return j.implicitDiagonal(dt) })
	case CoriolisCache:
		t.cache.coriolis = t.coriolisForces()
	case GravityCache:
		t.cache.gravity = t.gravityForces()
	case CoriolisAndGravityCache:
		t.cache.coriolisGravity = t.coriolisAndGravityForces()
	case ExternalForcesCache:
		t.cache.external = t.externalForces()
	case ConstraintForcesCache:
		t.cache.constraint = t.constraintForces(s.timeStep)
	}
	t.cache.markFresh(k)
}

// assemble builds the skeleton aggregate from the tree caches. Matrices
// are block diagonal since trees share no DOFs.
func (s *Skeleton) assemble(k CacheKind) {
	if k == ArticulatedInertiaCache {
		return
	}
	n := len(s.dofs)
	if !isMatrixKind(k) {
		v := make([]float64, 0, n)
		for _, t := range s.trees {
			v = append(v, t.cache.vector(k)...)
		}
		s.cache.setVector(k, v)
		return
	}
	if n == 0 {
		s.cache.setMatrix(k, &mat.Dense{})
		return
	}
	m := mat.NewDense(n, n, nil)
	for _, t := range s.trees {
		tn := t.numDofs()
		if tn == 0 {
			continue
		}
		o := t.dofOffset
		m.Slice(o, o+tn, o, o+tn).(*mat.Dense).Copy(t.cache.matrix(k))
	}
	s.cache.setMatrix(k, m)
}

// sweeps

// sweepOut propagates a body-frame acceleration outward:
// a = AdInvT(T, a_parent) + extra(b).
func (t *tree) sweepOut(extra func(b *BodyNode) spatial.Vec6) {
	for _, b := range t.bodies {
		var a spatial.Vec6
		if b.parent != nil {
			a = spatial.AdInvT(b.joint.core().transform(), b.parent.sweepAcc)
		}
		b.sweepAcc = a.Add(extra(b))
	}
}

// sweepIn accumulates wrenches toward the root:
// F = leaf(b) + Σ DAdInvT(T_c, F_c).
func (t *tree) sweepIn(leaf func(b *BodyNode) spatial.Vec6) {
	for i := len(t.bodies) - 1; i >= 0; i-- {
		b := t.bodies[i]
		f := leaf(b)
		for _, c := range b.child {
			f = f.Add(spatial.DAdInvT(c.joint.core().transform(), c.sweepForce))
		}
		b.sweepForce = f
	}
}

// project returns sign·Sᵀ·F for every DOF in tree order.
func (t *tree) project(sign float64) []float64 {
	out := make([]float64, t.numDofs())
	for _, b := range t.bodies {
		j := b.joint.core()
		for k, v := range jacobianTranspose(j.jacobian(), b.sweepForce) {
			out[j.indexInTree[k]] = sign * v
		}
	}
	return out
}

func unitColumn(col int) func(b *BodyNode) spatial.Vec6 {
	return func(b *BodyNode) spatial.Vec6 {
		j := b.joint.core()
		for k := 0; k < j.n; k++ {
			if j.indexInTree[k] == col {
				return j.jacobian()[k]
			}
		}
		return spatial.Vec6{}
	}
}

func inertial(b *BodyNode) spatial.Vec6 { return b.inertia.MulVec(b.sweepAcc) }
func partial(b *BodyNode) spatial.Vec6  { return b.partialAcc }

func velocityProduct(b *BodyNode) spatial.Vec6 {
	v := b.velocity
	return spatial.Dad(v, b.inertia.MulVec(v))
}

// massMatrix builds M column by column from unit-acceleration sweeps.
func (t *tree) massMatrix() *mat.Dense {
	n := t.numDofs()
	if n == 0 {
		return &mat.Dense{}
	}
	m := mat.NewDense(n, n, nil)
	for col := 0; col < n; col++ {
		t.sweepOut(unitColumn(col))
		t.sweepIn(inertial)
		for row, v := range t.project(1) {
			m.Set(row, col, v)
		}
	}
	return m
}

// augment returns M + diag(dt·d + dt²·k).
func (t *tree) augment(m *mat.Dense, dt float64) *mat.Dense {
	if t.numDofs() == 0 {
		return &mat.Dense{}
	}
	aug := mat.DenseCopyOf(m)
	for _, b := range t.bodies {
		j := b.joint.core()
		for k, d := range j.implicitDiagonal(dt) {
			i := j.indexInTree[k]
			aug.Set(i, i, aug.At(i, i)+d)
		}
	}
	return aug
}

// invMassMatrix inverts the mass matrix without factorizing it: every
// column is the acceleration response to a unit generalized force, solved
// by the articulated recursion with all joints free. diag, when given,
// adds joint-space terms to each projected inertia.
func (t *tree) invMassMatrix(diag func(j *jointCore) []float64) *mat.Dense {
	n := t.numDofs()
	if n == 0 {
		return &mat.Dense{}
	}

	for i := len(t.bodies) - 1; i >= 0; i-- {
		b := t.bodies[i]
		ai := b.inertia
		for _, c := range b.child {
			cj := c.joint.core()
			rest := projectedRemainder(cj.jacobian(), c.invMassAI, cj.invMassProj)
			ai = ai.Add(spatial.TransformInertia(cj.transform().Inverse(), rest))
		}
		b.invMassAI = ai
		j := b.joint.core()
		if j.n > 0 {
			var d []float64
			if diag != nil {
				d = diag(j)
			}
			j.invMassProj = invertProjected(j, projectInertia(j.jacobian(), ai, d))
		}
	}

	inv := mat.NewDense(n, n, nil)
	for col := 0; col < n; col++ {
		for i := len(t.bodies) - 1; i >= 0; i-- {
			b := t.bodies[i]
			var bias spatial.Vec6
			for _, c := range b.child {
				cj := c.joint.core()
				beta := c.sweepForce
				if cj.n > 0 {
					x := matVec(cj.invMassProj, cj.invMassForce)
					beta = beta.Add(c.invMassAI.MulVec(jacobianTimes(cj.jacobian(), x)))
				}
				bias = bias.Add(spatial.DAdInvT(cj.transform(), beta))
			}
			b.sweepForce = bias

			j := b.joint.core()
			for k, v := range jacobianTranspose(j.jacobian(), bias) {
				e := 0.0
				if j.indexInTree[k] == col {
					e = 1
				}
				j.invMassForce[k] = e - v
			}
		}

		for _, b := range t.bodies {
			j := b.joint.core()
			var a spatial.Vec6
			if b.parent != nil {
				a = spatial.AdInvT(j.transform(), b.parent.sweepAcc)
			}
			if j.n > 0 {
				rhs := sub(j.invMassForce, jacobianTranspose(j.jacobian(), b.invMassAI.MulVec(a)))
				x := matVec(j.invMassProj, rhs)
				for k, v := range x {
					inv.Set(j.indexInTree[k], col, v)
				}
				a = a.Add(jacobianTimes(j.jacobian(), x))
			}
			b.sweepAcc = a
		}
	}
	return inv
}

// coriolisForces returns C(q, dq) such that M·q̈ + C + g = τ.
func (t *tree) coriolisForces() []float64 {
	t.sweepOut(partial)
	t.sweepIn(func(b *BodyNode) spatial.Vec6 {
		return inertial(b).Sub(velocityProduct(b))
	})
	return t.project(1)
}

func (t *tree) gravityForces() []float64 {
	t.sweepIn(func(b *BodyNode) spatial.Vec6 { return b.fgravity })
	return t.project(-1)
}

func (t *tree) coriolisAndGravityForces() []float64 {
	t.sweepOut(partial)
	t.sweepIn(func(b *BodyNode) spatial.Vec6 {
		return inertial(b).Sub(b.fgravity).Sub(velocityProduct(b))
	})
	return t.project(1)
}

// externalForces maps the body external wrenches to generalized forces.
func (t *tree) externalForces() []float64 {
	t.sweepIn(func(b *BodyNode) spatial.Vec6 { return b.fext })
	return t.project(1)
}

// constraintForces spreads body and joint constraint impulses over dt.
func (t *tree) constraintForces(dt float64) []float64 {
	t.sweepIn(func(b *BodyNode) spatial.Vec6 { return b.constraintImpulse })
	out := t.project(1)
	for _, b := range t.bodies {
		j := b.joint.core()
		for k := 0; k < j.n; k++ {
			i := j.indexInTree[k]
			out[i] = (out[i] + j.constraintImpulses[k]) / dt
		}
	}
	return out
}

// aggregates

func (s *Skeleton) matrix(k CacheKind) *mat.Dense {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beginPass()
	defer s.endPass()
	s.ensure(k)
	m := s.cache.matrix(k)
	r, _ := m.Dims()
	return copyDense(m, r)
}

func (s *Skeleton) vector(k CacheKind) []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beginPass()
	defer s.endPass()
	s.ensure(k)
	return append([]float64(nil), s.cache.vector(k)...)
}

// MassMatrix returns the joint-space mass matrix M(q) in skeleton DOF order.
func (s *Skeleton) MassMatrix() *mat.Dense { return s.matrix(MassMatrixCache) }

// AugMassMatrix returns M + dt·D + dt²·K.
func (s *Skeleton) AugMassMatrix() *mat.Dense { return s.matrix(AugMassMatrixCache) }

func (s *Skeleton) InvMassMatrix() *mat.Dense    { return s.matrix(InvMassMatrixCache) }
func (s *Skeleton) InvAugMassMatrix() *mat.Dense { return s.matrix(InvAugMassMatrixCache) }

func (s *Skeleton) CoriolisForces() []float64           { return s.vector(CoriolisCache) }
func (s *Skeleton) GravityForces() []float64            { return s.vector(GravityCache) }
func (s *Skeleton) CoriolisAndGravityForces() []float64 { return s.vector(CoriolisAndGravityCache) }
func (s *Skeleton) ExternalForces() []float64           { return s.vector(ExternalForcesCache) }

// ConstraintForces returns the aggregated constraint impulses divided by
// the time step.
func (s *Skeleton) ConstraintForces() []float64 { return s.vector(ConstraintForcesCache) }

// TreeMatrix returns matrix kind k of tree ti in tree DOF order.
func (s *Skeleton) TreeMatrix(ti int, k CacheKind) (*mat.Dense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.tree(ti)
	if err != nil {
		return nil, err
	}
	if !isMatrixKind(k) {
		return nil, errors.Wrapf(ErrInvalidProperty, "%s is not a matrix cache", k)
	}
	s.beginPass()
	defer s.endPass()
	s.ensureKinematics()
	s.ensureTree(t, k)
	return copyDense(t.cache.matrix(k), t.numDofs()), nil
}

// TreeVector returns vector kind k of tree ti in tree DOF order.
func (s *Skeleton) TreeVector(ti int, k CacheKind) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.tree(ti)
	if err != nil {
		return nil, err
	}
	if isMatrixKind(k) || k == ArticulatedInertiaCache || !k.valid() {
		return nil, errors.Wrapf(ErrInvalidProperty, "%s is not a vector cache", k)
	}
	s.beginPass()
	defer s.endPass()
	s.ensureKinematics()
	s.ensureTree(t, k)
	return append([]float64(nil), t.cache.vector(k)...), nil
}

// ArticulatedInertia returns the articulated inertia of a body, recomputed
// if its tree changed.
func (s *Skeleton) ArticulatedInertia(id BodyID) (spatial.Mat6, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.body(id)
	if err != nil {
		return spatial.Mat6{}, err
	}
	s.beginPass()
	defer s.endPass()
	s.ensure(ArticulatedInertiaCache)
	return b.artInertia, nil
}

// ArticulatedInertiaImplicit is ArticulatedInertia with joint damping and
// springs folded in over one time step.
func (s *Skeleton) ArticulatedInertiaImplicit(id BodyID) (spatial.Mat6, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.body(id)
	if err != nil {
		return spatial.Mat6{}, err
	}
	s.beginPass()
	defer s.endPass()
	s.ensure(ArticulatedInertiaCache)
	return b.artInertiaImpl, nil
}

// BiasForce returns the articulated bias force of the last forward
// dynamics pass.
func (s *Skeleton) BiasForce(id BodyID) (spatial.Vec6, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.body(id)
	if err != nil {
		return spatial.Vec6{}, err
	}
	return b.biasForce, nil
}

// cache control

// Invalidate marks kind k dirty in every tree and in the aggregate.
func (s *Skeleton) Invalidate(k CacheKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.checkKind("Invalidate", k) {
		return
	}
	for _, t := range s.trees {
		t.cache.invalidate(k)
	}
	s.cache.invalidate(k)
}

// checkKind logs and reports false for a kind outside AllCacheKinds.
func (s *Skeleton) checkKind(op string, k CacheKind) bool {
	if k.valid() {
		return true
	}
	s.logger.Warnw("unknown cache kind", "op", op, "kind", int(k), "error", ErrInvalidProperty)
	return false
}

// EnsureFresh recomputes kind k where it is dirty.
func (s *Skeleton) EnsureFresh(k CacheKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.checkKind("EnsureFresh", k) {
		return
	}
	s.beginPass()
	defer s.endPass()
	s.ensure(k)
}

// IsDirty reports whether the skeleton aggregate of kind k is stale.
func (s *Skeleton) IsDirty(k CacheKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.checkKind("IsDirty", k) {
		return false
	}
	return s.cache.dirty[k]
}

func (s *Skeleton) TreeIsDirty(ti int, k CacheKind) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.checkKind("TreeIsDirty", k) {
		return false, errors.Wrapf(ErrInvalidProperty, "unknown cache kind %d", int(k))
	}
	t, err := s.tree(ti)
	if err != nil {
		return false, err
	}
	return t.cache.dirty[k], nil
}

// RecomputeCount is the number of times the aggregate of kind k was rebuilt.
func (s *Skeleton) RecomputeCount(k CacheKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.checkKind("RecomputeCount", k) {
		return 0
	}
	return s.cache.recomputes[k]
}

func (s *Skeleton) TreeRecomputeCount(ti int, k CacheKind) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.checkKind("TreeRecomputeCount", k) {
		return 0, errors.Wrapf(ErrInvalidProperty, "unknown cache kind %d", int(k))
	}
	t, err := s.tree(ti)
	if err != nil {
		return 0, err
	}
	return t.cache.recomputes[k], nil
}
