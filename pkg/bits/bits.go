// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package bits includes all bit related types and operations.
package bits

import (
	"fmt"
	"unsafe"
)

// Unsigned is the set of register-sized types the helpers operate on.
type Unsigned interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// IsOn returns true if *all* bits set in 'bits' are set in 'mask'.
func IsOn[T Unsigned](mask, bits T) bool {
	return mask&bits == bits
}

// IsAnyOn returns true if *any* bit set in 'bits' is set in 'mask'.
func IsAnyOn[T Unsigned](mask, bits T) bool {
	return mask&bits != 0
}

// Mask returns a T with all of the given bits set.
func Mask[T Unsigned](is ...int) T {
	ret := T(0)
	for _, i := range is {
		ret |= MaskOf[T](i)
	}
	return ret
}

// MaskOf is like Mask, but sets only a single bit (more efficiently).
func MaskOf[T Unsigned](i int) T {
	return T(1) << T(i)
}

// FieldMask returns a mask covering width bits starting at bit lo.
func FieldMask[T Unsigned](lo, width uint) T {
	if width == 0 {
		return 0
	}
	return (^T(0) >> (bitSize[T]() - width)) << lo
}

// Field extracts the width-bit field starting at bit lo.
func Field[T Unsigned](v T, lo, width uint) T {
	return (v & FieldMask[T](lo, width)) >> lo
}

// SetField returns v with the width-bit field starting at bit lo replaced by
// val.
//
// Precondition: val fits in width bits. A value that does not fit is a
// programming error and panics.
func SetField[T Unsigned](v T, lo, width uint, val T) T {
	if lo+width > bitSize[T]() {
		panic(fmt.Sprintf("field [%d, %d) exceeds %d-bit value", lo, lo+width, bitSize[T]()))
	}
	if val&^(FieldMask[T](0, width)) != 0 {
		panic(fmt.Sprintf("value %#x does not fit in %d bits", uint64(val), width))
	}
	return v&^FieldMask[T](lo, width) | val<<lo
}

// SetBit returns v with bit i set or cleared.
func SetBit[T Unsigned](v T, i int, on bool) T {
	if on {
		return v | MaskOf[T](i)
	}
	return v &^ MaskOf[T](i)
}

func bitSize[T Unsigned]() uint {
	var zero T
	return uint(8 * unsafe.Sizeof(zero))
}
