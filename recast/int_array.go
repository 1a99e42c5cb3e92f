package recast

// RC_INT_ARRAY_MAX_CAP caps the capacity of an RcIntArray.
const RC_INT_ARRAY_MAX_CAP = 1 << 30

// RcIntArray is a growable int buffer. Capacity starts at 8 and doubles until
// it covers the requested size; it never shrinks.
type RcIntArray struct {
	data []int
	size int
}

// NewRcIntArray returns an array holding n zeroed elements. It fails like Resize.
func NewRcIntArray(n int) (*RcIntArray, error) {
	a := &RcIntArray{}
	if err := a.Resize(n); err != nil {
		return nil, err
	}
	return a, nil
}

// Resize sets the length to n, growing the buffer when needed. It returns an
// *RcAllocError wrapping ErrOutOfMemory when n is negative or above
// RC_INT_ARRAY_MAX_CAP, leaving the array unchanged.
func (a *RcIntArray) Resize(n int) error {
	if n < 0 || n > RC_INT_ARRAY_MAX_CAP {
		return &RcAllocError{Name: "intArray", Count: n, Cause: ErrOutOfMemory}
	}
	if n > cap(a.data) {
		newCap := cap(a.data)
		if newCap == 0 {
			newCap = 8
		}
		for newCap < n {
			newCap *= 2
		}
		newCap = min(newCap, RC_INT_ARRAY_MAX_CAP)
		buf, err := rcAlloc[int]("intArray", newCap)
		if err != nil {
			return err
		}
		copy(buf, a.data[:a.size])
		a.data = buf
	}
	a.data = a.data[:cap(a.data)]
	a.size = n
	return nil
}

// Push appends v. It fails like Resize once the array is full.
func (a *RcIntArray) Push(v int) error {
	if err := a.Resize(a.size + 1); err != nil {
		return err
	}
	a.data[a.size-1] = v
	return nil
}

// Pop removes and returns the last element. Popping an empty array returns 0.
func (a *RcIntArray) Pop() int {
	if a.size == 0 {
		return 0
	}
	a.size--
	return a.data[a.size]
}

// Clear drops all elements and keeps the buffer.
func (a *RcIntArray) Clear() {
	a.size = 0
}

// Len returns the number of elements.
func (a *RcIntArray) Len() int {
	return a.size
}

// Cap returns the buffer capacity.
func (a *RcIntArray) Cap() int {
	return cap(a.data)
}

// Index returns element i. It panics when i is out of range.
func (a *RcIntArray) Index(i int) int {
	return a.data[:a.size][i]
}

// Set stores v at element i. It panics when i is out of range.
func (a *RcIntArray) Set(i, v int) {
	a.data[:a.size][i] = v
}

// Data returns the live elements. The slice aliases the buffer until the
// next growth.
func (a *RcIntArray) Data() []int {
	return a.data[:a.size]
}
