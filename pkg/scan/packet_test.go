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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSYNv4_WellFormed(t *testing.T) {
	src := net.IPv4(10, 0, 0, 1)
	dst := net.IPv4(10, 0, 0, 2)

	pkt := buildSYNv4(src, dst, 4444, 443, 0x12345678, synFlag)
	require.Len(t, pkt, ipv4HeaderLen+tcpHeaderLen)

	ip := pkt[:ipv4HeaderLen]
	assert.Equal(t, byte(0x45), ip[0])
	assert.Equal(t, uint16(len(pkt)), binary.BigEndian.Uint16(ip[2:4]))
	assert.Equal(t, byte(tcpProtocol), ip[9])
	assert.True(t, net.IP(ip[12:16]).Equal(src))
	assert.True(t, net.IP(ip[16:20]).Equal(dst))
	assert.Equal(t, uint16(0), foldChecksum(checksumSum(ip)))

	tcp := pkt[ipv4HeaderLen:]
	assert.Equal(t, uint16(4444), binary.BigEndian.Uint16(tcp[0:2]))
	assert.Equal(t, uint16(443), binary.BigEndian.Uint16(tcp[2:4]))
	assert.Equal(t, uint32(0x12345678), binary.BigEndian.Uint32(tcp[4:8]))
	assert.Equal(t, synFlag, tcp[13])
}

func TestBuildSYNv6_OmitsIPHeader(t *testing.T) {
	tcp := buildSYNv6(4444, 443, 0xAABBCCDD, synFlag)
	require.Len(t, tcp, tcpHeaderLen)

	assert.Equal(t, uint16(4444), binary.BigEndian.Uint16(tcp[0:2]))
	assert.Equal(t, uint16(443), binary.BigEndian.Uint16(tcp[2:4]))
	assert.Equal(t, synFlag, tcp[13])
	assert.Equal(t, uint16(defaultTCPWindow6), binary.BigEndian.Uint16(tcp[14:16]))
}

func TestBuildSYNv4_RSTHasNoRandomAck(t *testing.T) {
	src := net.IPv4(10, 0, 0, 1)
	dst := net.IPv4(10, 0, 0, 2)

	pkt := buildSYNv4(src, dst, 4444, 443, 1, rstFlag)
	tcp := pkt[ipv4HeaderLen:]
	assert.Equal(t, uint32(0), binary.BigEndian.Uint32(tcp[8:12]))
}
