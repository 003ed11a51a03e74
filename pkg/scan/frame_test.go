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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ethFrame(etherType uint16, vlan bool) []byte {
	if !vlan {
		frame := make([]byte, 14)
		binary.BigEndian.PutUint16(frame[12:14], etherType)

		return frame
	}

	frame := make([]byte, 18)
	binary.BigEndian.PutUint16(frame[12:14], etherTypeVLAN)
	binary.BigEndian.PutUint16(frame[16:18], etherType)

	return frame
}

func TestDatalinkHeaderLen_Plain(t *testing.T) {
	hdrLen, etherType, err := datalinkHeaderLen(ethFrame(etherTypeIPv4, false))
	require.NoError(t, err)
	assert.Equal(t, etherHeaderLen, hdrLen)
	assert.Equal(t, uint16(etherTypeIPv4), etherType)
}

func TestDatalinkHeaderLen_VLAN(t *testing.T) {
	hdrLen, etherType, err := datalinkHeaderLen(ethFrame(etherTypeIPv6, true))
	require.NoError(t, err)
	assert.Equal(t, etherHeaderLen+vlanTagLen, hdrLen)
	assert.Equal(t, uint16(etherTypeIPv6), etherType)
}

func TestDatalinkHeaderLen_TooShort(t *testing.T) {
	_, _, err := datalinkHeaderLen(make([]byte, 10))
	assert.ErrorIs(t, err, ErrShortEthernet)
}

func TestTCPOffsetV4_RejectsBadIHL(t *testing.T) {
	ip := make([]byte, ipv4HeaderLen+tcpHeaderLen)
	ip[0] = 0x45

	_, err := tcpOffsetV4(ip)
	require.NoError(t, err)

	ip[0] = 0x40 // IHL=0
	_, err = tcpOffsetV4(ip)
	assert.ErrorIs(t, err, ErrBadIPv4HeaderLength)

	ip[0] = 0x65 // version 6
	_, err = tcpOffsetV4(ip)
	assert.ErrorIs(t, err, ErrNotIPv4)
}

func TestIsSYNACKAndRST(t *testing.T) {
	tcp := make([]byte, tcpHeaderLen)

	tcp[13] = synFlag | ackFlag
	assert.True(t, isSYNACK(tcp))
	assert.False(t, isRST(tcp))

	tcp[13] = rstFlag | ackFlag
	assert.False(t, isSYNACK(tcp))
	assert.True(t, isRST(tcp))

	tcp[13] = synFlag | ackFlag | 0x01 // FIN also set
	assert.False(t, isSYNACK(tcp))
}

func TestAckSentAt_UndoesIncrement(t *testing.T) {
	tcp := make([]byte, tcpHeaderLen)
	binary.BigEndian.PutUint32(tcp[8:12], 1001)

	assert.Equal(t, uint32(1000), ackSentAt(tcp))
}

func TestSourceAndDestPort(t *testing.T) {
	tcp := make([]byte, tcpHeaderLen)
	binary.BigEndian.PutUint16(tcp[0:2], 443)
	binary.BigEndian.PutUint16(tcp[2:4], 4444)

	assert.Equal(t, uint16(443), sourcePortOf(tcp))
	assert.Equal(t, uint16(4444), destPortOf(tcp))
}
