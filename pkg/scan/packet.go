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
	"math/rand"
	"net"
)

const (
	synFlag byte = 0x02
	ackFlag byte = 0x10
	rstFlag byte = 0x04

	defaultTCPWindow  = 4096
	defaultTCPWindow6 = 5760

	ipv4HeaderLen = 20
	tcpHeaderLen  = 20
)

// buildSYNv4 builds a 40-byte IPv4+TCP buffer: a filled-in IPv4 header
// (IHL=5, TOS=0, total length 40, random ID, TTL=64, protocol TCP) followed
// by a TCP header with the given ports, sent_at placed verbatim in the
// sequence field, and the requested flag byte. Grounded on the original
// source's mktcp().
func buildSYNv4(src, dst net.IP, sport, dport uint16, seq uint32, flag byte) []byte {
	pkt := make([]byte, ipv4HeaderLen+tcpHeaderLen)

	ip := pkt[:ipv4HeaderLen]
	ip[0] = 0x45 // version 4, IHL 5
	ip[1] = 0    // TOS
	binary.BigEndian.PutUint16(ip[2:4], uint16(len(pkt)))
	binary.BigEndian.PutUint16(ip[4:6], uint16(rand.Intn(1<<16))) //nolint:gosec // IP ID only needs to avoid collisions, not be cryptographic
	binary.BigEndian.PutUint16(ip[6:8], 0)                        // flags/frag offset
	ip[8] = 64                                                    // TTL
	ip[9] = tcpProtocol
	binary.BigEndian.PutUint16(ip[10:12], 0) // checksum, filled below
	copy(ip[12:16], src.To4())
	copy(ip[16:20], dst.To4())
	binary.BigEndian.PutUint16(ip[10:12], ChecksumNew(ip))

	tcp := pkt[ipv4HeaderLen:]
	fillTCPHeader(tcp, sport, dport, seq, 0, flag, defaultTCPWindow)
	binary.BigEndian.PutUint16(tcp[16:18], tcpChecksumNew(src, dst, tcp, nil))

	return pkt
}

// buildSYNv6 builds only the 20-byte TCP header for an IPv6 SYN/RST; the
// kernel prepends the IPv6 header and fills the checksum via the
// IPV6_CHECKSUM socket option. Grounded on the original source's
// mktcpv6(). Window is 5760, and the ack field carries a random value for
// SYN segments (mirroring the original, which never explained why).
func buildSYNv6(sport, dport uint16, seq uint32, flag byte) []byte {
	tcp := make([]byte, tcpHeaderLen)

	ack := uint32(0)
	if flag == synFlag {
		ack = rand.Uint32() //nolint:gosec // matches the original's unauthenticated random ack
	}

	fillTCPHeader(tcp, sport, dport, seq, ack, flag, defaultTCPWindow6)

	return tcp
}

// fillTCPHeader writes the fixed-layout 20-byte TCP header shared by the
// IPv4 and IPv6 builders, leaving the checksum field zeroed.
func fillTCPHeader(tcp []byte, sport, dport uint16, seq, ack uint32, flag byte, window uint16) {
	binary.BigEndian.PutUint16(tcp[0:2], sport)
	binary.BigEndian.PutUint16(tcp[2:4], dport)
	binary.BigEndian.PutUint32(tcp[4:8], seq)
	binary.BigEndian.PutUint32(tcp[8:12], ack)
	tcp[12] = 5 << 4 // data offset = 5 words, no options
	tcp[13] = flag
	binary.BigEndian.PutUint16(tcp[14:16], window)
	binary.BigEndian.PutUint16(tcp[16:18], 0) // checksum, filled by caller
	binary.BigEndian.PutUint16(tcp[18:20], 0) // urgent pointer
}
