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

import "encoding/binary"

const (
	etherHeaderLen  = 14
	vlanTagLen      = 4
	etherTypeIPv4   = 0x0800
	etherTypeIPv6   = 0x86DD
	etherTypeVLAN   = 0x8100
	ipv6HeaderLen   = 40
	ipv6TCPOffset   = ipv6HeaderLen
	synAckFlagsByte = synFlag | ackFlag
)

// datalinkHeaderLen returns the length of the Ethernet header at the front
// of frame, accounting for at most one 802.1Q VLAN tag, and the EtherType
// that follows it. It never looks past the bytes it has validated are
// present — a captured frame's claimed length is not trusted per spec.
func datalinkHeaderLen(frame []byte) (hdrLen int, etherType uint16, err error) {
	if len(frame) < etherHeaderLen {
		return 0, 0, ErrShortEthernet
	}

	etherType = binary.BigEndian.Uint16(frame[12:14])
	hdrLen = etherHeaderLen

	if etherType == etherTypeVLAN {
		if len(frame) < etherHeaderLen+vlanTagLen {
			return 0, 0, ErrShortVLANHeader
		}

		etherType = binary.BigEndian.Uint16(frame[16:18])
		hdrLen = etherHeaderLen + vlanTagLen
	}

	return hdrLen, etherType, nil
}

// tcpOffsetV4 returns the offset of the TCP header within an IPv4 datagram
// starting at ip[0], rejecting a frame whose claimed IHL would run past the
// captured length.
func tcpOffsetV4(ip []byte) (int, error) {
	if len(ip) < ipv4HeaderLen {
		return 0, ErrShortIPv4Header
	}

	version := ip[0] >> 4
	if version != 4 {
		return 0, ErrNotIPv4
	}

	ihl := int(ip[0]&0x0F) * 4
	if ihl < ipv4HeaderLen {
		return 0, ErrBadIPv4HeaderLength
	}

	if ihl+tcpHeaderLen > len(ip) {
		return 0, ErrShortTCPHeader
	}

	return ihl, nil
}

// tcpOffsetV6 returns the offset of the TCP header within an IPv6 payload
// starting at ip[0]. Extension headers (Hop-by-Hop, Routing, Fragment) are
// not traversed — a known limitation inherited from the spec, documented in
// DESIGN.md, not fixed here.
func tcpOffsetV6(ip []byte) (int, error) {
	if len(ip) < ipv6HeaderLen+tcpHeaderLen {
		return 0, ErrShortTCPHeader
	}

	return ipv6TCPOffset, nil
}

// sourcePortOf returns the TCP source port of a TCP header (the port on the
// peer that produced this segment — i.e. the port we scanned, when the
// segment is a reply to one of our SYNs).
func sourcePortOf(tcp []byte) uint16 {
	return binary.BigEndian.Uint16(tcp[0:2])
}

// destPortOf returns the TCP destination port, i.e. the magic source port
// we used when we sent the probe this is a reply to.
func destPortOf(tcp []byte) uint16 {
	return binary.BigEndian.Uint16(tcp[2:4])
}

// ackSentAt recovers the sent_at value the peer echoed back to us: a
// compliant TCP sets ACK = our SYN's SEQ + 1, so subtracting 1 undoes that.
func ackSentAt(tcp []byte) uint32 {
	return binary.BigEndian.Uint32(tcp[8:12]) - 1
}

// isSYNACK reports whether the TCP flags byte is exactly SYN|ACK. Any other
// combination (SYN+ACK+ECE, for instance) is deliberately not classified as
// an open port — see spec §4.D.
func isSYNACK(tcp []byte) bool {
	return tcp[13] == synAckFlagsByte
}

// isRST reports whether the RST bit is set, regardless of what else is set
// alongside it.
func isRST(tcp []byte) bool {
	return tcp[13]&rstFlag != 0
}
