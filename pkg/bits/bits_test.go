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

package bits

import "testing"

func TestMask(t *testing.T) {
	for _, tc := range []struct {
		bits []int
		want uint16
	}{
		{nil, 0},
		{[]int{0}, 0x1},
		{[]int{15}, 0x8000},
		{[]int{9, 10, 11}, 0x0e00},
		{[]int{0, 15}, 0x8001},
	} {
		if got := Mask[uint16](tc.bits...); got != tc.want {
			t.Errorf("Mask(%v): got %#x, wanted %#x", tc.bits, got, tc.want)
		}
	}
}

func TestIsOn(t *testing.T) {
	if !IsOn[uint16](0x8e00, 0x8000) {
		t.Errorf("IsOn(0x8e00, 0x8000): got false, wanted true")
	}
	if IsOn[uint16](0x0e00, 0x8000) {
		t.Errorf("IsOn(0x0e00, 0x8000): got true, wanted false")
	}
	if !IsAnyOn[uint16](0x0e00, 0x8200) {
		t.Errorf("IsAnyOn(0x0e00, 0x8200): got false, wanted true")
	}
}

func TestFieldMask(t *testing.T) {
	for _, tc := range []struct {
		lo, width uint
		want      uint16
	}{
		{0, 0, 0},
		{0, 3, 0x0007},
		{9, 3, 0x0e00},
		{13, 2, 0x6000},
		{0, 16, 0xffff},
	} {
		if got := FieldMask[uint16](tc.lo, tc.width); got != tc.want {
			t.Errorf("FieldMask(%d, %d): got %#x, wanted %#x", tc.lo, tc.width, got, tc.want)
		}
	}
}

func TestSetField(t *testing.T) {
	v := SetField[uint16](0, 9, 3, 0b111)
	if v != 0x0e00 {
		t.Fatalf("SetField(0, 9, 3, 0b111): got %#x, wanted 0x0e00", v)
	}
	v = SetField(v, 13, 2, 3)
	if got, want := Field(v, 13, 2), uint16(3); got != want {
		t.Errorf("Field(%#x, 13, 2): got %d, wanted %d", v, got, want)
	}
	v = SetField(v, 13, 2, 1)
	if got, want := v, uint16(0x2e00); got != want {
		t.Errorf("SetField overwrite: got %#x, wanted %#x", got, want)
	}
	if got, want := Field(v, 9, 3), uint16(0b111); got != want {
		t.Errorf("adjacent field changed: got %#b, wanted %#b", got, want)
	}
}

func TestSetFieldOverflowPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("SetField with oversized value did not panic")
		}
	}()
	SetField[uint16](0, 0, 3, 8)
}

func TestSetBit(t *testing.T) {
	v := SetBit[uint16](0x0e00, 15, true)
	if v != 0x8e00 {
		t.Errorf("SetBit(0x0e00, 15, true): got %#x, wanted 0x8e00", v)
	}
	v = SetBit(v, 15, false)
	if v != 0x0e00 {
		t.Errorf("SetBit(0x8e00, 15, false): got %#x, wanted 0x0e00", v)
	}
}
