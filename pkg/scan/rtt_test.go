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
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeNetwork simulates a host that answers every probe to a fixed set of
// ports after a constant delay, and never answers anything else.
type fakeNetwork struct {
	answers map[uint16]bool
	delay   time.Duration
	last    uint16
}

func (f *fakeNetwork) send(port uint16, _ uint32) error {
	f.last = port
	return nil
}

func (f *fakeNetwork) recv(_ context.Context, deadline time.Duration) (uint16, uint32, bool) {
	if deadline < f.delay {
		return 0, 0, false
	}

	// Answer from whichever port was most recently probed, if that port is
	// open, the way a real host echoes the exact port it was sent to.
	if f.answers[f.last] {
		return f.last, now(), true
	}

	return 0, 0, false
}

func TestEstimateRTT_NoCandidates_ReturnsMaxRTT(t *testing.T) {
	net := &fakeNetwork{answers: map[uint16]bool{}}

	got := estimateRTT(context.Background(), net.send, net.recv)
	assert.Equal(t, byteSwap32(maxRTT), got)
}

func TestPickCandidatePorts_StopsAtLimit(t *testing.T) {
	net := &fakeNetwork{answers: map[uint16]bool{
		rttWarmupPorts[0]: true,
		rttWarmupPorts[1]: true,
		rttWarmupPorts[2]: true,
		rttWarmupPorts[3]: true,
	}}

	got := pickCandidatePorts(context.Background(), net.send, net.recv)
	assert.Len(t, got, rttProbePortCount)
}

func TestEstimateRTT_GivesUpAfterTooManyErrors(t *testing.T) {
	net := &fakeNetwork{answers: map[uint16]bool{}, delay: time.Hour}

	sendErrCount := 0
	send := func(port uint16, sentAt uint32) error {
		sendErrCount++
		return assert.AnError
	}

	got := estimateRTT(context.Background(), send, net.recv)
	assert.Equal(t, byteSwap32(maxRTT), got)
	assert.Positive(t, sendErrCount)
}
