/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: bitset.go
Description: Fixed 256-bit set used to record which byte values were observed at an
offset. Four machine words, no allocations, cheap union for table merges.
*/

package core

import "math/bits"

// ByteSet represents a fixed size set of byte values [0..255]
type ByteSet [4]uint64

// Add inserts the value
func (s *ByteSet) Add(v byte) {
	s[v>>6] |= 1 << (v & 63)
}

// Has reports whether the value is present
func (s ByteSet) Has(v byte) bool {
	return s[v>>6]&(1<<(v&63)) != 0
}

// IsEmpty returns true if no value is present
func (s ByteSet) IsEmpty() bool {
	return s[0] == 0 && s[1] == 0 && s[2] == 0 && s[3] == 0
}

// Len is the number of values present (popcount)
func (s ByteSet) Len() (n int) {
	n += bits.OnesCount64(s[0])
	n += bits.OnesCount64(s[1])
	n += bits.OnesCount64(s[2])
	n += bits.OnesCount64(s[3])
	return
}

// Union creates the union of both sets
func (s *ByteSet) Union(o *ByteSet) (u ByteSet) {
	u[0] = s[0] | o[0]
	u[1] = s[1] | o[1]
	u[2] = s[2] | o[2]
	u[3] = s[3] | o[3]
	return
}

// Values returns the present values in ascending unsigned order
func (s ByteSet) Values() []byte {
	out := make([]byte, 0, s.Len())
	for w, word := range s {
		for ; word != 0; word &= word - 1 {
			out = append(out, byte(w<<6+bits.TrailingZeros64(word)))
		}
	}
	return out
}

// NotMask returns the bits that are clear in every present value.
// An empty set yields 0xFF.
func (s ByteSet) NotMask() byte {
	mask := byte(0xFF)
	for _, v := range s.Values() {
		mask &^= v
	}
	return mask
}
