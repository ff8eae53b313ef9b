// Package objstore implements the per-client table of protocol
// objects.
package objstore

import (
	"errors"
	"fmt"
)

const (
	// ClientMin and ClientMax bound the IDs that clients allocate.
	ClientMin uint32 = 1
	ClientMax uint32 = 0xFEFFFFFF

	// ServerMin is the first ID that the server allocates.
	ServerMin uint32 = 0xFF000000
)

var (
	ErrNullID       = errors.New("null object ID")
	ErrWrongRange   = errors.New("object ID is outside of the allowed range")
	ErrInUse        = errors.New("object ID is already in use")
	ErrNotFound     = errors.New("no such object")
	ErrIDsExhausted = errors.New("server object IDs exhausted")
)

// State is the state of a slot in a Store.
type State int

const (
	Missing State = iota
	Live
	Zombie
)

func (s State) String() string {
	switch s {
	case Missing:
		return "missing"
	case Live:
		return "live"
	case Zombie:
		return "zombie"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Side indicates who allocated an ID.
type Side int

const (
	ClientSide Side = iota
	ServerSide
)

// SideOf returns the side that is allowed to allocate id.
func SideOf(id uint32) Side {
	if id >= ServerMin {
		return ServerSide
	}
	return ClientSide
}

type slot[T any] struct {
	v      T
	zombie bool
}

// Store maps object IDs to objects. It is not safe for concurrent use.
type Store[T any] struct {
	objects map[uint32]slot[T]
	nextID  uint32
	wrapped bool
}

func New[T any]() *Store[T] {
	return &Store[T]{
		objects: make(map[uint32]slot[T]),
		nextID:  ServerMin,
	}
}

// Insert adds obj under id. side is the side that allocated the ID,
// and the ID must be in that side's range. A zombie slot may be
// reused, but a live one may not.
func (s *Store[T]) Insert(id uint32, side Side, obj T) error {
	if id == 0 {
		return ErrNullID
	}
	if SideOf(id) != side {
		return fmt.Errorf("insert %v: %w", id, ErrWrongRange)
	}
	if sl, ok := s.objects[id]; ok && !sl.zombie {
		return fmt.Errorf("insert %v: %w", id, ErrInUse)
	}

	s.objects[id] = slot[T]{v: obj}
	return nil
}

// Get returns the object stored under id along with the state of its
// slot. A zombie's object is still returned.
func (s *Store[T]) Get(id uint32) (T, State) {
	sl, ok := s.objects[id]
	switch {
	case !ok:
		var z T
		return z, Missing
	case sl.zombie:
		return sl.v, Zombie
	default:
		return sl.v, Live
	}
}

// Lookup returns the live object stored under id.
func (s *Store[T]) Lookup(id uint32) (T, error) {
	v, state := s.Get(id)
	if state != Live {
		var z T
		return z, fmt.Errorf("lookup %v: %w", id, ErrNotFound)
	}
	return v, nil
}

// Destroy removes id entirely.
func (s *Store[T]) Destroy(id uint32) {
	delete(s.objects, id)
}

// Zombie marks id as destroyed while remembering it so that messages
// sent to it by a client that has not yet noticed can be recognised.
func (s *Store[T]) Zombie(id uint32) {
	sl, ok := s.objects[id]
	if !ok {
		return
	}
	sl.zombie = true
	s.objects[id] = sl
}

// NewServerID allocates an unused server-side ID. Running out of IDs is
// unrecoverable for the connection.
func (s *Store[T]) NewServerID() (uint32, error) {
	for {
		if s.wrapped {
			return 0, ErrIDsExhausted
		}

		id := s.nextID
		if id == ^uint32(0) {
			s.wrapped = true
		} else {
			s.nextID++
		}

		if sl, ok := s.objects[id]; !ok || sl.zombie {
			return id, nil
		}
	}
}

// Len returns the number of live objects.
func (s *Store[T]) Len() (n int) {
	for _, sl := range s.objects {
		if !sl.zombie {
			n++
		}
	}
	return n
}

// Range calls yield for every live object in no particular order,
// stopping early if it returns false. The store must not be modified
// during iteration.
func (s *Store[T]) Range(yield func(id uint32, obj T) bool) {
	for id, sl := range s.objects {
		if sl.zombie {
			continue
		}
		if !yield(id, sl.v) {
			return
		}
	}
}
