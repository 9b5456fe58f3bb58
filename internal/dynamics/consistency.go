package dynamics

import (
	"fmt"

	"go.uber.org/multierr"
)

// CheckIndexingConsistency re-scans the skeleton and compares every stored
// index, handle and name with the scan. It returns all mismatches
// combined, or nil.
func (s *Skeleton) CheckIndexingConsistency() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	bad := func(format string, args ...any) {
		err = multierr.Append(err, fmt.Errorf("skeleton %q: "+format, append([]any{s.name}, args...)...))
	}

	if len(s.trees) != len(s.roots) {
		bad("%d trees for %d roots", len(s.trees), len(s.roots))
	}

	bi, di := 0, 0
	for ti, r := range s.roots {
		if r.parent != nil {
			bad("root %q has a parent", r.props.Name)
		}
		var t *tree
		if ti < len(s.trees) {
			t = s.trees[ti]
			if t.dofOffset != di {
				bad("tree %d dof offset %d, expected %d", ti, t.dofOffset, di)
			}
		}
		td, start := 0, bi
		for k, b := range subtree(r) {
			if b.treeIndex != ti || b.indexInTree != k || b.indexInSkeleton != bi {
				bad("body %q indexed (%d, %d, %d), expected (%d, %d, %d)", b.props.Name,
					b.treeIndex, b.indexInTree, b.indexInSkeleton, ti, k, bi)
			}
			if bi >= len(s.bodies) || s.bodies[bi] != b {
				bad("body %q missing at skeleton position %d", b.props.Name, bi)
			}
			if t != nil && (k >= len(t.bodies) || t.bodies[k] != b) {
				bad("body %q missing at tree position %d", b.props.Name, k)
			}
			if got, e := s.body(b.id); e != nil || got != b {
				bad("body %q handle %s does not resolve", b.props.Name, b.id)
			}
			if owner, ok := s.bodyNames.lookup(b.props.Name); !ok || owner != b {
				bad("body name %q not registered", b.props.Name)
			}

			j := b.joint.core()
			if j.id != b.id.Joint() || j.treeIndex != ti || j.owner != s {
				bad("joint %q handle or tree index out of date", j.props.Name)
			}
			if owner, ok := s.jointNames.lookup(j.props.Name); !ok || owner != j {
				bad("joint name %q not registered", j.props.Name)
			}
			for l := 0; l < j.n; l++ {
				if j.indexInTree[l] != td || j.indexInSkeleton[l] != di {
					bad("dof %q indexed (%d, %d), expected (%d, %d)", j.props.DofNames[l],
						j.indexInTree[l], j.indexInSkeleton[l], td, di)
				}
				want := DegreeOfFreedom{Joint: j.id, Local: l}
				if di >= len(s.dofs) || s.dofs[di] != want {
					bad("dof %q missing at skeleton position %d", j.props.DofNames[l], di)
				}
				if t != nil && (td >= len(t.dofs) || t.dofs[td] != want) {
					bad("dof %q missing at tree position %d", j.props.DofNames[l], td)
				}
				if owner, ok := s.dofNames.lookup(j.props.DofNames[l]); !ok || owner != (dofKey{j, l}) {
					bad("dof name %q not registered", j.props.DofNames[l])
				}
				td++
				di++
			}
			bi++
		}
		if t != nil && (len(t.bodies) != bi-start || len(t.dofs) != td) {
			bad("tree %d holds %d bodies and %d dofs", ti, len(t.bodies), len(t.dofs))
		}
	}
	if bi != len(s.bodies) || di != len(s.dofs) {
		bad("%d bodies and %d dofs stored, %d and %d reachable", len(s.bodies), len(s.dofs), bi, di)
	}
	if s.bodyNames.len() != bi || s.jointNames.len() != bi || s.dofNames.len() != di {
		bad("name tables hold %d bodies, %d joints, %d dofs", s.bodyNames.len(), s.jointNames.len(), s.dofNames.len())
	}
	return err
}
