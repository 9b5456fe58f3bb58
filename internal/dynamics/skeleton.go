package dynamics

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/san-kum/multibody/internal/logging"
)

const (
	DefaultTimeStep = 0.001
)

// DefaultGravity points down the world z axis.
var DefaultGravity = mgl64.Vec3{0, 0, -9.81}

var skeletonSerial atomic.Uint64

// Skeleton is a forest of articulated bodies. Bodies and their parent
// joints live in an arena addressed by generational handles; every
// structural change reindexes the whole skeleton under its lock.
type Skeleton struct {
	mu     sync.Mutex
	serial uint64
	inPass atomic.Bool

	name       string
	baseLogger *zap.SugaredLogger
	logger     *zap.SugaredLogger

	gravity  mgl64.Vec3
	timeStep float64

	slots     []slot
	freeSlots []uint32

	roots  []*BodyNode
	trees  []*tree
	bodies []*BodyNode
	dofs   []DegreeOfFreedom

	bodyNames  *nameRegistry
	jointNames *nameRegistry
	dofNames   *nameRegistry

	cache           cacheSet
	kinematicsDirty bool
}

type slot struct {
	gen  uint32
	body *BodyNode
}

// tree is one connected component, bodies in pre-order.
type tree struct {
	bodies    []*BodyNode
	dofs      []DegreeOfFreedom
	dofOffset int
	cache     cacheSet
}

func (t *tree) numDofs() int { return len(t.dofs) }

// Option configures a new skeleton.
type Option func(*Skeleton)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Skeleton) { s.logger = l }
}

func WithGravity(g mgl64.Vec3) Option {
	return func(s *Skeleton) { s.gravity = g }
}

func WithTimeStep(dt float64) Option {
	return func(s *Skeleton) { s.timeStep = dt }
}

// NewSkeleton returns an empty skeleton.
func NewSkeleton(name string, opts ...Option) *Skeleton {
	s := &Skeleton{
		serial:          skeletonSerial.Add(1),
		name:            name,
		logger:          logging.NewNop(),
		gravity:         DefaultGravity,
		timeStep:        DefaultTimeStep,
		bodyNames:       newNameRegistry("body"),
		jointNames:      newNameRegistry("joint"),
		dofNames:        newNameRegistry("dof"),
		cache:           newCacheSet(),
		kinematicsDirty: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.baseLogger = s.logger
	s.logger = s.logger.With("skeleton", name)
	if s.timeStep <= 0 {
		s.logger.Warnw("non-positive time step replaced by default", "dt", s.timeStep)
		s.timeStep = DefaultTimeStep
	}
	return s
}

func (s *Skeleton) Name() string { return s.name }

// Lock excludes other goroutines from the skeleton. Skeleton methods take
// the lock themselves; use Lock only to guard direct joint and body
// mutation and do not call skeleton methods while holding it.
func (s *Skeleton) Lock()   { s.mu.Lock() }
func (s *Skeleton) Unlock() { s.mu.Unlock() }

func (s *Skeleton) Gravity() mgl64.Vec3 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gravity
}

func (s *Skeleton) SetGravity(g mgl64.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g == s.gravity {
		return
	}
	s.gravity = g
	s.allTreesChanged(changeGravity)
}

func (s *Skeleton) TimeStep() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeStep
}

func (s *Skeleton) SetTimeStep(dt float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return errors.Wrapf(ErrInvalidProperty, "skeleton %q time step %g", s.name, dt)
	}
	if dt == s.timeStep {
		return nil
	}
	s.timeStep = dt
	s.allTreesChanged(changeImplicit)
	for _, t := range s.trees {
		t.cache.invalidate(ConstraintForcesCache)
	}
	s.cache.invalidate(ConstraintForcesCache)
	return nil
}

// change notifications; none of these lock

func (s *Skeleton) treeChanged(ti int, c change) {
	if ti >= 0 && ti < len(s.trees) {
		s.trees[ti].cache.apply(c)
	}
	s.cache.apply(c)
	switch c {
	case changePositions, changeVelocities, changeStructure, changeGravity:
		s.kinematicsDirty = true
	}
}

func (s *Skeleton) allTreesChanged(c change) {
	for i := range s.trees {
		s.treeChanged(i, c)
	}
	s.treeChanged(-1, c)
}

func (s *Skeleton) jointChanged(j *jointCore, c change) { s.treeChanged(j.treeIndex, c) }
func (s *Skeleton) passActive() bool                    { return s.inPass.Load() }

func (s *Skeleton) issueDofName(j *jointCore, local int, name string) string {
	return s.dofNames.issue(dofKey{j, local}, name)
}

func (s *Skeleton) issueJointName(j *jointCore, name string) string {
	return s.jointNames.issue(j, name)
}

func (s *Skeleton) issueBodyName(b *BodyNode, name string) string {
	return s.bodyNames.issue(b, name)
}

func (s *Skeleton) beginPass() { s.inPass.Store(true) }
func (s *Skeleton) endPass()   { s.inPass.Store(false) }

// handles

func (s *Skeleton) body(id BodyID) (*BodyNode, error) {
	if id.IsZero() || int(id.slot) >= len(s.slots) {
		return nil, errors.Wrapf(ErrInvalidHandle, "skeleton %q %s", s.name, id)
	}
	sl := s.slots[id.slot]
	if sl.gen != id.gen || sl.body == nil {
		return nil, errors.Wrapf(ErrInvalidHandle, "skeleton %q stale %s", s.name, id)
	}
	return sl.body, nil
}

func (s *Skeleton) allocSlot(b *BodyNode) BodyID {
	var idx uint32
	if n := len(s.freeSlots); n > 0 {
		idx = s.freeSlots[n-1]
		s.freeSlots = s.freeSlots[:n-1]
	} else {
		idx = uint32(len(s.slots))
		s.slots = append(s.slots, slot{})
	}
	s.slots[idx].gen++
	s.slots[idx].body = b
	return BodyID{slot: idx, gen: s.slots[idx].gen}
}

func (s *Skeleton) freeSlot(id BodyID) {
	s.slots[id.slot].body = nil
	s.slots[id.slot].gen++
	s.freeSlots = append(s.freeSlots, id.slot)
}

// Body resolves a handle.
func (s *Skeleton) Body(id BodyID) (*BodyNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.body(id)
}

// Joint resolves the handle of a parent joint.
func (s *Skeleton) Joint(id JointID) (Joint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.body(id.Body())
	if err != nil {
		return nil, err
	}
	return b.joint, nil
}

func (s *Skeleton) BodyByName(name string) (*BodyNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, ok := s.bodyNames.lookup(name)
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "skeleton %q body %q", s.name, name)
	}
	return owner.(*BodyNode), nil
}

func (s *Skeleton) JointByName(name string) (Joint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, ok := s.jointNames.lookup(name)
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "skeleton %q joint %q", s.name, name)
	}
	return s.jointOf(owner.(*jointCore))
}

func (s *Skeleton) DofByName(name string) (DegreeOfFreedom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, ok := s.dofNames.lookup(name)
	if !ok {
		return DegreeOfFreedom{}, errors.Wrapf(ErrNotFound, "skeleton %q dof %q", s.name, name)
	}
	key := owner.(dofKey)
	return DegreeOfFreedom{Joint: key.joint.id, Local: key.local}, nil
}

func (s *Skeleton) jointOf(j *jointCore) (Joint, error) {
	b, err := s.body(j.id.Body())
	if err != nil {
		return nil, err
	}
	return b.joint, nil
}

// dof resolves a DOF handle to its joint.
func (s *Skeleton) dof(d DegreeOfFreedom) (*jointCore, error) {
	b, err := s.body(d.Joint.Body())
	if err != nil {
		return nil, err
	}
	j := b.joint.core()
	if d.Local < 0 || d.Local >= j.n {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "skeleton %q dof %s", s.name, d)
	}
	return j, nil
}

func (s *Skeleton) DofName(d DegreeOfFreedom) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, err := s.dof(d)
	if err != nil {
		return "", err
	}
	return j.props.DofNames[d.Local], nil
}

func (s *Skeleton) DofIndexInSkeleton(d DegreeOfFreedom) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, err := s.dof(d)
	if err != nil {
		return -1, err
	}
	return j.indexInSkeleton[d.Local], nil
}

func (s *Skeleton) DofIndexInTree(d DegreeOfFreedom) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, err := s.dof(d)
	if err != nil {
		return -1, err
	}
	return j.indexInTree[d.Local], nil
}

func (s *Skeleton) DofTreeIndex(d DegreeOfFreedom) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, err := s.dof(d)
	if err != nil {
		return -1, err
	}
	return j.treeIndex, nil
}

func (s *Skeleton) DofJoint(d DegreeOfFreedom) (Joint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, err := s.dof(d)
	if err != nil {
		return nil, err
	}
	return s.jointOf(j)
}

// Bodies returns the bodies in skeleton order: trees in creation order,
// each in pre-order.
func (s *Skeleton) Bodies() []*BodyNode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*BodyNode(nil), s.bodies...)
}

func (s *Skeleton) Joints() []Joint {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Joint, len(s.bodies))
	for i, b := range s.bodies {
		out[i] = b.joint
	}
	return out
}

func (s *Skeleton) Dofs() []DegreeOfFreedom {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]DegreeOfFreedom(nil), s.dofs...)
}

func (s *Skeleton) NumBodies() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bodies)
}

func (s *Skeleton) NumDofs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dofs)
}

func (s *Skeleton) NumTrees() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.trees)
}

// TreeBodies returns the bodies of tree ti in pre-order.
func (s *Skeleton) TreeBodies(ti int) ([]*BodyNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.tree(ti)
	if err != nil {
		return nil, err
	}
	return append([]*BodyNode(nil), t.bodies...), nil
}

func (s *Skeleton) TreeDofs(ti int) ([]DegreeOfFreedom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.tree(ti)
	if err != nil {
		return nil, err
	}
	return append([]DegreeOfFreedom(nil), t.dofs...), nil
}

func (s *Skeleton) tree(ti int) (*tree, error) {
	if ti < 0 || ti >= len(s.trees) {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "skeleton %q tree %d of %d", s.name, ti, len(s.trees))
	}
	return s.trees[ti], nil
}

// structure

// CreateJointAndBodyNodePair attaches a new body under parent through
// joint. A zero parent starts a new tree. The joint must not belong to any
// skeleton yet.
func (s *Skeleton) CreateJointAndBodyNodePair(parent BodyID, joint Joint, props BodyNodeProperties) (BodyID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if joint == nil {
		return BodyID{}, errors.Wrap(ErrInvalidHandle, "nil joint")
	}
	if joint.core().owner != nil {
		return BodyID{}, errors.Wrapf(ErrInvalidHandle, "joint %q already belongs to a skeleton", joint.Name())
	}
	if err := props.validate(); err != nil {
		return BodyID{}, errors.Wrapf(err, "body %q", props.Name)
	}

	var p *BodyNode
	if !parent.IsZero() {
		var err error
		if p, err = s.body(parent); err != nil {
			return BodyID{}, err
		}
	}

	b := s.attach(p, joint, props)
	s.reindex(map[*BodyNode]bool{rootOf(b): true})
	s.logger.Debugw("attached body", "body", b.props.Name, "joint", joint.Name(), "type", joint.Type(),
		"dofs", joint.NumDofs())
	return b.id, nil
}

// attach links a body under p (nil for a new root) without reindexing.
func (s *Skeleton) attach(p *BodyNode, joint Joint, props BodyNodeProperties) *BodyNode {
	b := newBodyNode(props)
	b.skel = s
	b.joint = joint
	b.parent = p
	b.id = s.allocSlot(b)
	b.treeIndex = -1
	if p != nil {
		p.child = append(p.child, b)
	} else {
		s.roots = append(s.roots, b)
	}
	b.props.Name = s.bodyNames.issue(b, props.Name)

	j := joint.core()
	j.treeIndex = -1
	j.attach(s, b.id.Joint(), s.logger.With("joint", j.props.Name))
	j.props.Name = s.jointNames.issue(j, j.props.Name)
	for i := 0; i < j.n; i++ {
		want := j.props.DofNames[i]
		if want == "" {
			want = j.defaultDofName(i)
		}
		j.props.DofNames[i] = s.dofNames.issue(dofKey{j, i}, want)
	}
	return b
}

// detach unlinks the subtree rooted at b and releases its handles and
// names. It returns the subtree in pre-order.
func (s *Skeleton) detach(b *BodyNode) []*BodyNode {
	if b.parent != nil {
		b.parent.child = removeBody(b.parent.child, b)
	} else {
		s.roots = removeBody(s.roots, b)
	}
	sub := subtree(b)
	for _, n := range sub {
		j := n.joint.core()
		for i := 0; i < j.n; i++ {
			s.dofNames.release(dofKey{j, i})
		}
		s.jointNames.release(j)
		s.bodyNames.release(n)
		s.freeSlot(n.id)
		j.detach()
		n.skel = nil
	}
	return sub
}

// RemoveBodyNode destroys the subtree rooted at id. Handles into it become
// invalid.
func (s *Skeleton) RemoveBodyNode(id BodyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.body(id)
	if err != nil {
		return err
	}
	touched := map[*BodyNode]bool{}
	if b.parent != nil {
		touched[rootOf(b.parent)] = true
	}
	sub := s.detach(b)
	b.parent = nil
	s.reindex(touched)
	s.logger.Debugw("removed subtree", "root", b.props.Name, "bodies", len(sub))
	return nil
}

// MoveBodyNode moves the subtree rooted at id under newParent of dst (a
// zero newParent starts a new tree in dst). dst may be s. It returns the
// handle of the moved root in dst.
func (s *Skeleton) MoveBodyNode(id BodyID, dst *Skeleton, newParent BodyID) (BodyID, error) {
	if dst == nil {
		dst = s
	}
	unlock := lockPair(s, dst)
	defer unlock()

	b, err := s.body(id)
	if err != nil {
		return BodyID{}, err
	}
	var p *BodyNode
	if !newParent.IsZero() {
		if p, err = dst.body(newParent); err != nil {
			return BodyID{}, err
		}
		if dst == s && inSubtree(p, b) {
			return BodyID{}, errors.Wrapf(ErrInvalidHandle, "new parent %q lies in the moved subtree", p.props.Name)
		}
	}

	srcTouched := map[*BodyNode]bool{}
	if b.parent != nil {
		srcTouched[rootOf(b.parent)] = true
	}
	sub := s.detach(b)

	moved := make(map[*BodyNode]*BodyNode, len(sub))
	for _, n := range sub {
		parent := p
		if n != b {
			parent = moved[n.parent]
		}
		joint := n.joint
		props := n.props
		m := dst.attach(parent, joint, props)
		// keep the recursion state of the moved body
		m.fext = n.fext
		m.constraintImpulse = n.constraintImpulse
		moved[n] = m
	}
	root := moved[b]

	if dst != s {
		s.reindex(srcTouched)
		dst.reindex(map[*BodyNode]bool{rootOf(root): true})
	} else {
		srcTouched[rootOf(root)] = true
		s.reindex(srcTouched)
	}
	s.logger.Debugw("moved subtree", "root", b.props.Name, "to", dst.name, "bodies", len(sub))
	return root.id, nil
}

// CloneBodyNode copies the subtree rooted at id under newParent of dst (a
// zero newParent starts a new tree). The copies start at their joints'
// initial configuration.
func (s *Skeleton) CloneBodyNode(id BodyID, dst *Skeleton, newParent BodyID) (BodyID, error) {
	if dst == nil {
		dst = s
	}
	unlock := lockPair(s, dst)
	defer unlock()

	b, err := s.body(id)
	if err != nil {
		return BodyID{}, err
	}
	var p *BodyNode
	if !newParent.IsZero() {
		if p, err = dst.body(newParent); err != nil {
			return BodyID{}, err
		}
	}

	root := dst.cloneSubtree(b, p)
	dst.reindex(map[*BodyNode]bool{rootOf(root): true})
	return root.id, nil
}

func (s *Skeleton) cloneSubtree(b, parent *BodyNode) *BodyNode {
	copies := make(map[*BodyNode]*BodyNode)
	var root *BodyNode
	for _, n := range subtree(b) {
		p := parent
		if n != b {
			p = copies[n.parent]
		}
		c := s.attach(p, n.joint.cloneJoint(), n.props)
		copies[n] = c
		if n == b {
			root = c
		}
	}
	return root
}

// Clone copies structure and static properties into a new skeleton. Every
// joint of the clone starts at its initial positions and velocities with
// zero accelerations, forces and commands.
func (s *Skeleton) Clone(name string) *Skeleton {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := NewSkeleton(name, WithGravity(s.gravity), WithTimeStep(s.timeStep), WithLogger(s.baseLogger))
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range s.roots {
		c.cloneSubtree(r, nil)
	}
	c.reindex(nil)
	return c
}

// reindex rebuilds trees, orders and indices. Trees whose root is not in
// touched keep their caches.
func (s *Skeleton) reindex(touched map[*BodyNode]bool) {
	old := make(map[*BodyNode]*tree, len(s.trees))
	for _, t := range s.trees {
		if len(t.bodies) > 0 {
			old[t.bodies[0]] = t
		}
	}

	s.trees = make([]*tree, 0, len(s.roots))
	s.bodies = s.bodies[:0]
	s.dofs = s.dofs[:0]
	for ti, r := range s.roots {
		t := &tree{dofOffset: len(s.dofs), cache: newCacheSet()}
		if prev, ok := old[r]; ok && !touched[r] {
			t.cache = prev.cache
		}
		for _, b := range subtree(r) {
			b.treeIndex = ti
			b.indexInTree = len(t.bodies)
			b.indexInSkeleton = len(s.bodies)
			t.bodies = append(t.bodies, b)
			s.bodies = append(s.bodies, b)

			j := b.joint.core()
			j.treeIndex = ti
			for k := 0; k < j.n; k++ {
				d := DegreeOfFreedom{Joint: j.id, Local: k}
				j.indexInTree[k] = len(t.dofs)
				j.indexInSkeleton[k] = len(s.dofs)
				t.dofs = append(t.dofs, d)
				s.dofs = append(s.dofs, d)
			}
		}
		s.trees = append(s.trees, t)
	}
	s.cache.apply(changeStructure)
	s.kinematicsDirty = true
}

// lockPair locks both skeletons in serial order and returns the unlock.
func lockPair(a, b *Skeleton) func() {
	if a == b {
		a.mu.Lock()
		return a.mu.Unlock
	}
	first, second := a, b
	if second.serial < first.serial {
		first, second = second, first
	}
	first.mu.Lock()
	second.mu.Lock()
	return func() {
		second.mu.Unlock()
		first.mu.Unlock()
	}
}

func subtree(b *BodyNode) []*BodyNode {
	var out []*BodyNode
	var walk func(n *BodyNode)
	walk = func(n *BodyNode) {
		out = append(out, n)
		for _, c := range n.child {
			walk(c)
		}
	}
	walk(b)
	return out
}

func rootOf(b *BodyNode) *BodyNode {
	for b.parent != nil {
		b = b.parent
	}
	return b
}

func inSubtree(n, root *BodyNode) bool {
	for ; n != nil; n = n.parent {
		if n == root {
			return true
		}
	}
	return false
}

func removeBody(list []*BodyNode, b *BodyNode) []*BodyNode {
	for i, x := range list {
		if x == b {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
