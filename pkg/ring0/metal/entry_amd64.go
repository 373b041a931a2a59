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

//go:build amd64
// +build amd64

package metal

// This is an assembly function.
//
// trap is the common exception entry. Each per-vector stub pushes a zero
// error code when the processor does not supply one, then the vector number,
// and jumps here. trap saves the general purpose registers, calls dispatch
// and returns with iretq.
func trap()

// entryStubs returns the start addresses of the 256 per-vector stubs.
//
// In Go 1.17+, Go references to assembly functions resolve to an ABIInternal
// wrapper function rather than the function itself. The table is built in
// assembly to get the ABI0 (i.e., primary) addresses.
func entryStubs() *[256]uintptr

// These are assembly functions: the per-vector stubs referenced by
// entryStubTable in entry_amd64.s.
func vector0()
func vector1()
func vector2()
func vector3()
func vector4()
func vector5()
func vector6()
func vector7()
func vector8()
func vector9()
func vector10()
func vector11()
func vector12()
func vector13()
func vector14()
func vector15()
func vector16()
func vector17()
func vector18()
func vector19()
func vector20()
func vector21()
func vector22()
func vector23()
func vector24()
func vector25()
func vector26()
func vector27()
func vector28()
func vector29()
func vector30()
func vector31()
func vector32()
func vector33()
func vector34()
func vector35()
func vector36()
func vector37()
func vector38()
func vector39()
func vector40()
func vector41()
func vector42()
func vector43()
func vector44()
func vector45()
func vector46()
func vector47()
func vector48()
func vector49()
func vector50()
func vector51()
func vector52()
func vector53()
func vector54()
func vector55()
func vector56()
func vector57()
func vector58()
func vector59()
func vector60()
func vector61()
func vector62()
func vector63()
func vector64()
func vector65()
func vector66()
func vector67()
func vector68()
func vector69()
func vector70()
func vector71()
func vector72()
func vector73()
func vector74()
func vector75()
func vector76()
func vector77()
func vector78()
func vector79()
func vector80()
func vector81()
func vector82()
func vector83()
func vector84()
func vector85()
func vector86()
func vector87()
func vector88()
func vector89()
func vector90()
func vector91()
func vector92()
func vector93()
func vector94()
func vector95()
func vector96()
func vector97()
func vector98()
func vector99()
func vector100()
func vector101()
func vector102()
func vector103()
func vector104()
func vector105()
func vector106()
func vector107()
func vector108()
func vector109()
func vector110()
func vector111()
func vector112()
func vector113()
func vector114()
func vector115()
func vector116()
func vector117()
func vector118()
func vector119()
func vector120()
func vector121()
func vector122()
func vector123()
func vector124()
func vector125()
func vector126()
func vector127()
func vector128()
func vector129()
func vector130()
func vector131()
func vector132()
func vector133()
func vector134()
func vector135()
func vector136()
func vector137()
func vector138()
func vector139()
func vector140()
func vector141()
func vector142()
func vector143()
func vector144()
func vector145()
func vector146()
func vector147()
func vector148()
func vector149()
func vector150()
func vector151()
func vector152()
func vector153()
func vector154()
func vector155()
func vector156()
func vector157()
func vector158()
func vector159()
func vector160()
func vector161()
func vector162()
func vector163()
func vector164()
func vector165()
func vector166()
func vector167()
func vector168()
func vector169()
func vector170()
func vector171()
func vector172()
func vector173()
func vector174()
func vector175()
func vector176()
func vector177()
func vector178()
func vector179()
func vector180()
func vector181()
func vector182()
func vector183()
func vector184()
func vector185()
func vector186()
func vector187()
func vector188()
func vector189()
func vector190()
func vector191()
func vector192()
func vector193()
func vector194()
func vector195()
func vector196()
func vector197()
func vector198()
func vector199()
func vector200()
func vector201()
func vector202()
func vector203()
func vector204()
func vector205()
func vector206()
func vector207()
func vector208()
func vector209()
func vector210()
func vector211()
func vector212()
func vector213()
func vector214()
func vector215()
func vector216()
func vector217()
func vector218()
func vector219()
func vector220()
func vector221()
func vector222()
func vector223()
func vector224()
func vector225()
func vector226()
func vector227()
func vector228()
func vector229()
func vector230()
func vector231()
func vector232()
func vector233()
func vector234()
func vector235()
func vector236()
func vector237()
func vector238()
func vector239()
func vector240()
func vector241()
func vector242()
func vector243()
func vector244()
func vector245()
func vector246()
func vector247()
func vector248()
func vector249()
func vector250()
func vector251()
func vector252()
func vector253()
func vector254()
func vector255()
