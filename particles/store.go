package particles

import (
	"errors"
	"fmt"
	"math"
	"unsafe"
)

const vec4Size = int(unsafe.Sizeof(Vec4{}))

var (
	// ErrBadCount is returned for negative or overflowing particle counts.
	ErrBadCount = errors.New("particles: invalid particle count")
	// ErrBadAlignment is returned for alignments that are not a power of two >= 16.
	ErrBadAlignment = errors.New("particles: invalid alignment")
)

// MinAlignment is the alignment every store guarantees (one Vec4).
const MinAlignment = 16

// Store owns the per-particle position and velocity arrays.
// Both slices have the same length and start on an aligned address.
type Store struct {
	Positions  []Vec4
	Velocities []Vec4

	align int

	// Backing allocations; the aligned slices point into these.
	posBuf []byte
	velBuf []byte
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{align: MinAlignment}
}

// Len returns the particle count.
func (s *Store) Len() int {
	return len(s.Positions)
}

// Alignment returns the alignment requested at the last Resize.
func (s *Store) Alignment() int {
	return s.align
}

// Aligned reports whether both arrays start on an align-byte boundary.
func (s *Store) Aligned(align int) bool {
	if s.Len() == 0 {
		return true
	}
	return uintptr(unsafe.Pointer(&s.Positions[0]))%uintptr(align) == 0 &&
		uintptr(unsafe.Pointer(&s.Velocities[0]))%uintptr(align) == 0
}

// Resize allocates both arrays with n zeroed slots aligned to align bytes.
// Any slices obtained before the call are invalidated.
func (s *Store) Resize(n, align int) error {
	if align < MinAlignment || align&(align-1) != 0 {
		return fmt.Errorf("%w: %d", ErrBadAlignment, align)
	}
	if n < 0 || n > (math.MaxInt-align)/vec4Size {
		return fmt.Errorf("%w: %d", ErrBadCount, n)
	}

	s.align = align
	s.Positions, s.posBuf = allocAligned(n, align)
	s.Velocities, s.velBuf = allocAligned(n, align)
	return nil
}

// allocAligned over-allocates a byte buffer and carves an aligned []Vec4 out of it.
func allocAligned(n, align int) ([]Vec4, []byte) {
	if n == 0 {
		return []Vec4{}, nil
	}
	buf := make([]byte, n*vec4Size+align)
	base := uintptr(unsafe.Pointer(&buf[0]))
	off := int((uintptr(align) - base%uintptr(align)) % uintptr(align))
	return unsafe.Slice((*Vec4)(unsafe.Pointer(&buf[off])), n), buf
}

// PositionFloats returns a flat 4*N float view of the position array.
func (s *Store) PositionFloats() []float32 {
	return Floats(s.Positions)
}

// VelocityFloats returns a flat 4*N float view of the velocity array.
func (s *Store) VelocityFloats() []float32 {
	return Floats(s.Velocities)
}

// Floats reinterprets a Vec4 slice as its underlying float lanes.
func Floats(v []Vec4) []float32 {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&v[0])), len(v)*4)
}

// ByteSize returns the size in bytes of one array of n particles.
func ByteSize(n int) int {
	return n * vec4Size
}

// CopyFrom copies both arrays from other. Lengths must match.
func (s *Store) CopyFrom(other *Store) error {
	if other.Len() != s.Len() {
		return fmt.Errorf("%w: copy from %d into %d", ErrBadCount, other.Len(), s.Len())
	}
	copy(s.Positions, other.Positions)
	copy(s.Velocities, other.Velocities)
	return nil
}
