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

package ring0

import "fmt"

// TaskStateSize is the architectural size of TaskState64.
const TaskStateSize = 104

// TaskState64 is a 64-bit task state structure.
//
// Hardware task switching does not exist in long mode; the structure only
// supplies the privilege level stacks and the interrupt stack table.
type TaskState64 struct {
	_      uint32
	rsp    [3][2]uint32
	_      [2]uint32
	ist    [MaxStackIndex + 1][2]uint32
	_      [2]uint32
	_      uint16
	ioPerm uint16
}

// SetIST stores the stack top for zero-based interrupt stack table slot.
func (t *TaskState64) SetIST(slot int, top uint64) {
	if slot < 0 || slot > MaxStackIndex {
		panic(fmt.Sprintf("interrupt stack slot %d out of range [0, %d]", slot, MaxStackIndex))
	}
	t.ist[slot][0] = uint32(top)
	t.ist[slot][1] = uint32(top >> 32)
}

// IST returns the stack top for zero-based interrupt stack table slot.
func (t *TaskState64) IST(slot int) uint64 {
	if slot < 0 || slot > MaxStackIndex {
		panic(fmt.Sprintf("interrupt stack slot %d out of range [0, %d]", slot, MaxStackIndex))
	}
	return uint64(t.ist[slot][1])<<32 | uint64(t.ist[slot][0])
}

// SetRSP stores the stack used on a transition to privilege level ring.
func (t *TaskState64) SetRSP(ring int, top uint64) {
	t.rsp[ring][0] = uint32(top)
	t.rsp[ring][1] = uint32(top >> 32)
}

// RSP returns the stack used on a transition to privilege level ring.
func (t *TaskState64) RSP(ring int) uint64 {
	return uint64(t.rsp[ring][1])<<32 | uint64(t.rsp[ring][0])
}

// IOPerm returns the offset of the I/O permission bitmap.
func (t *TaskState64) IOPerm() uint16 {
	return t.ioPerm
}
