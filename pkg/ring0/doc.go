// Copyright 2018 The gVisor Authors.
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

// Package ring0 provides the x86_64 descriptor tables a kernel needs to take
// exceptions: the interrupt descriptor table, the global descriptor table and
// the task state segment with its interrupt stack table.
//
// Everything here is plain data with an exact hardware layout. The privileged
// instructions that hand the tables to the processor go through Hardware.
package ring0
