package dynamics

import "fmt"

// nameRegistry issues unique names within one skeleton. A taken name gets
// a "(k)" suffix with the smallest free k.
type nameRegistry struct {
	fallback string
	byName   map[string]any
	byOwner  map[any]string
}

type dofKey struct {
	joint *jointCore
	local int
}

func newNameRegistry(fallback string) *nameRegistry {
	return &nameRegistry{
		fallback: fallback,
		byName:   make(map[string]any),
		byOwner:  make(map[any]string),
	}
}

func (r *nameRegistry) issue(owner any, want string) string {
	if want == "" {
		want = r.fallback
	}
	if cur, ok := r.byOwner[owner]; ok {
		if cur == want {
			return cur
		}
		delete(r.byName, cur)
	}
	name := want
	for k := 1; ; k++ {
		holder, taken := r.byName[name]
		if !taken || holder == owner {
			break
		}
		name = fmt.Sprintf("%s(%d)", want, k)
	}
	r.byName[name] = owner
	r.byOwner[owner] = name
	return name
}

func (r *nameRegistry) release(owner any) {
	if cur, ok := r.byOwner[owner]; ok {
		delete(r.byName, cur)
		delete(r.byOwner, owner)
	}
}

func (r *nameRegistry) lookup(name string) (any, bool) {
	owner, ok := r.byName[name]
	return owner, ok
}

func (r *nameRegistry) len() int { return len(r.byName) }
