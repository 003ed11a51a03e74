/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package scan

import (
	"encoding/binary"
	"net"

	"golang.org/x/net/bpf"
)

// Byte offsets into a captured Ethernet frame, assuming no 802.1Q tag and
// a 20-byte IPv4 header — the same assumption the original source's BPF
// filter string ("tcp and src host %s and dst port %d") makes.
const (
	offEtherType     = 12
	offIPProto       = 14 + 9
	offIPSrc         = 14 + 12
	offTCPDst        = 14 + 20 + 2
	offIPv6NextHdr   = 14 + 6
	offTCPDstV6      = 14 + 40 + 2
)

// buildIPv4Filter compiles a classic BPF program that accepts only TCP
// segments from srcIP addressed to dstPort, rejecting everything else at
// the kernel so userspace never has to look at unrelated traffic sharing
// the capture socket. Grounded on the original source's openbpf(), which
// compiles the equivalent pcap filter string via BIOCSETF.
func buildIPv4Filter(srcIP net.IP, dstPort uint16) ([]bpf.RawInstruction, error) {
	ip4 := srcIP.To4()
	if ip4 == nil {
		return nil, ErrNonIPv4SourceIP
	}

	srcIPUint := binary.BigEndian.Uint32(ip4)

	prog := []bpf.Instruction{
		bpf.LoadAbsolute{Off: offEtherType, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: etherTypeIPv4, SkipFalse: 7},

		bpf.LoadAbsolute{Off: offIPProto, Size: 1},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: tcpProtocol, SkipFalse: 5},

		bpf.LoadAbsolute{Off: offIPSrc, Size: 4},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: uint32(srcIPUint), SkipFalse: 3},

		bpf.LoadAbsolute{Off: offTCPDst, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: uint32(dstPort), SkipFalse: 1},

		bpf.RetConstant{Val: 0xFFFF},
		bpf.RetConstant{Val: 0},
	}

	return bpf.Assemble(prog)
}

// buildIPv6Filter compiles a classic BPF program that accepts TCP segments
// addressed to dstPort over IPv6. Unlike buildIPv4Filter it does not match
// on the source address: comparing a 16-byte address would need four
// chained word comparisons, and destination-port matching on a freshly
// allocated magic port is already a clean enough discriminator for a
// single in-flight scan. IPv6 extension headers are not traversed, so a
// target that inserts one ahead of TCP will not match.
func buildIPv6Filter(dstPort uint16) ([]bpf.RawInstruction, error) {
	prog := []bpf.Instruction{
		bpf.LoadAbsolute{Off: offEtherType, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: etherTypeIPv6, SkipFalse: 5},

		bpf.LoadAbsolute{Off: offIPv6NextHdr, Size: 1},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: tcpProtocol, SkipFalse: 3},

		bpf.LoadAbsolute{Off: offTCPDstV6, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: uint32(dstPort), SkipFalse: 1},

		bpf.RetConstant{Val: 0xFFFF},
		bpf.RetConstant{Val: 0},
	}

	return bpf.Assemble(prog)
}
