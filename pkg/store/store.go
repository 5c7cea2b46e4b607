// Package store holds named bindings in a stack of lexical scopes and
// enforces the mutability contract.
//
// Every binding is immutable unless declared mutable. Declaring a name that
// already exists shadows it: the new binding wins lookups from then on, but
// the old one is kept until its scope is popped, so it becomes visible again
// when an inner scope that shadowed it ends.
//
// A Store is not safe for concurrent use; confine each Store to one
// goroutine.
package store

import (
	"fmt"

	"github.com/thomasrohde/bindeval/pkg/value"
)

// BindingID identifies one binding for the lifetime of its scope.
// The zero BindingID is never live.
type BindingID struct {
	slot  int
	epoch uint64
}

func (id BindingID) String() string {
	return fmt.Sprintf("#%d@%d", id.slot, id.epoch)
}

// IsZero reports whether id is the zero BindingID.
func (id BindingID) IsZero() bool {
	return id.epoch == 0
}

type slot struct {
	name     string
	typ      string // value.TypeName of the binding; empty until first assignment
	val      value.Value
	mutable  bool
	assigned bool
	epoch    uint64
	depth    int
}

// frame maps each name to the slots declared under it in this scope,
// oldest first. Shadowing appends; nothing is overwritten in place.
type frame struct {
	base  int
	names map[string][]int
}

// Store is a scope stack of bindings. The zero value is not usable; call New.
type Store struct {
	slots  []slot
	frames []frame
	epoch  uint64
}

// New creates a store holding an empty root scope.
func New() *Store {
	return &Store{
		frames: []frame{{base: 0, names: make(map[string][]int)}},
	}
}

// Depth returns the number of scopes pushed above the root scope.
func (s *Store) Depth() int {
	return len(s.frames) - 1
}

// Len returns the number of live bindings, shadowed ones included.
func (s *Store) Len() int {
	return len(s.slots)
}

// Push opens a new, empty scope on top of the stack.
func (s *Store) Push() {
	s.frames = append(s.frames, frame{base: len(s.slots), names: make(map[string][]int)})
}

// Pop discards the innermost scope and every binding declared in it.
// Their BindingIDs stop being live.
func (s *Store) Pop() error {
	if len(s.frames) == 1 {
		return ErrRootScope
	}
	top := s.frames[len(s.frames)-1]
	for i := top.base; i < len(s.slots); i++ {
		s.slots[i] = slot{}
	}
	s.slots = s.slots[:top.base]
	s.frames = s.frames[:len(s.frames)-1]
	return nil
}

// Declare creates an initialised binding in the current scope. It always
// succeeds; an existing binding of the same name is shadowed, not replaced.
func (s *Store) Declare(name string, v value.Value, mutable bool) BindingID {
	return s.add(name, value.TypeName(v), v, mutable, true)
}

// Reserve creates an uninitialised binding of the given type name (as
// returned by value.TypeName). An empty type name is fixed by the first
// Assign, which initialises the binding even when it is immutable.
func (s *Store) Reserve(name, typeName string, mutable bool) BindingID {
	return s.add(name, typeName, nil, mutable, false)
}

func (s *Store) add(name, typ string, v value.Value, mutable, assigned bool) BindingID {
	s.epoch++
	idx := len(s.slots)
	s.slots = append(s.slots, slot{
		name:     name,
		typ:      typ,
		val:      v,
		mutable:  mutable,
		assigned: assigned,
		epoch:    s.epoch,
		depth:    s.Depth(),
	})
	top := &s.frames[len(s.frames)-1]
	top.names[name] = append(top.names[name], idx)
	return BindingID{slot: idx, epoch: s.epoch}
}

// Assign replaces the value of a mutable binding, or initialises a reserved
// one. Assigning to an initialised immutable binding fails with
// *MutabilityError; assigning a value of another type fails with
// *KindMismatchError. On failure the stored value is unchanged.
func (s *Store) Assign(id BindingID, v value.Value) error {
	sl := s.live(id)
	if sl.assigned && !sl.mutable {
		return &MutabilityError{Name: sl.name, Attempted: v, Current: sl.val}
	}
	if got := value.TypeName(v); sl.typ != "" && got != sl.typ {
		return &KindMismatchError{Name: sl.name, Want: sl.typ, Got: got}
	}
	if sl.typ == "" {
		sl.typ = value.TypeName(v)
	}
	sl.val = v
	sl.assigned = true
	return nil
}

// Read returns the current value of a live binding. Using an ID whose scope
// has ended, or reading a reserved binding before its first assignment, is a
// caller bug and panics.
func (s *Store) Read(id BindingID) value.Value {
	sl := s.live(id)
	if !sl.assigned {
		panic(&UninitializedError{Name: sl.name})
	}
	return sl.val
}

// Live reports whether id refers to a binding whose scope has not ended.
func (s *Store) Live(id BindingID) bool {
	return id.epoch != 0 && id.slot < len(s.slots) && s.slots[id.slot].epoch == id.epoch
}

func (s *Store) live(id BindingID) *slot {
	if !s.Live(id) {
		panic(&InvalidBindingError{ID: id})
	}
	return &s.slots[id.slot]
}

// Lookup resolves name to the binding a read would see: the innermost scope
// first, and within a scope the most recent declaration.
func (s *Store) Lookup(name string) (BindingID, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if idxs := s.frames[i].names[name]; len(idxs) > 0 {
			idx := idxs[len(idxs)-1]
			return BindingID{slot: idx, epoch: s.slots[idx].epoch}, true
		}
	}
	return BindingID{}, false
}

// Shadows reports whether another live binding shares id's name, in any
// scope. It costs one map lookup per scope.
func (s *Store) Shadows(id BindingID) bool {
	name := s.live(id).name
	n := 0
	for i := range s.frames {
		n += len(s.frames[i].names[name])
		if n > 1 {
			return true
		}
	}
	return false
}

// Binding is a read-only snapshot of one binding.
type Binding struct {
	ID       BindingID
	Name     string
	Type     string
	Value    value.Value // nil until a reserved binding is assigned
	Mutable  bool
	Assigned bool
	Depth    int
	Shadowed bool
}

// Info returns a snapshot of a live binding. It panics like Read when id is
// not live, but never for an uninitialised binding.
func (s *Store) Info(id BindingID) Binding {
	sl := s.live(id)
	cur, _ := s.Lookup(sl.name)
	return Binding{
		ID:       id,
		Name:     sl.name,
		Type:     sl.typ,
		Value:    sl.val,
		Mutable:  sl.mutable,
		Assigned: sl.assigned,
		Depth:    sl.depth,
		Shadowed: cur != id,
	}
}

// Bindings returns every live binding in declaration order, shadowed ones
// included.
func (s *Store) Bindings() []Binding {
	out := make([]Binding, 0, len(s.slots))
	for i := range s.slots {
		out = append(out, s.Info(BindingID{slot: i, epoch: s.slots[i].epoch}))
	}
	return out
}

// Visible returns the bindings a lookup can currently reach, in declaration
// order.
func (s *Store) Visible() []Binding {
	var out []Binding
	for _, b := range s.Bindings() {
		if !b.Shadowed {
			out = append(out, b)
		}
	}
	return out
}
