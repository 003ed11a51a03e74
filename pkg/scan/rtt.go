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
	"time"
)

// rttWarmupPorts lists the well-known ports tried, in order, when looking
// for a handful of responsive ports to sample RTT against before the real
// scan begins. Taken verbatim from the original source's candidate list.
var rttWarmupPorts = []uint16{
	21, 22, 34, 25, 53, 79, 80, 110, 113, 135,
	139, 143, 264, 389, 443, 993, 1454, 1723, 3389, 8080,
}

const (
	rttProbePortCount = 3
	rttWarmupRounds   = 10
	rttMaxErrors      = 10
	rttPickTimeout    = 1 * time.Second
)

// initialRTTBudget seeds the warmup loop's read deadline at one second,
// packed the same way a measured RTT would be.
var initialRTTBudget = packTime(1, 0)

// sendProbeFunc sends a bare SYN to port carrying sentAt in its sequence
// field.
type sendProbeFunc func(port uint16, sentAt uint32) error

// nextReplyFunc blocks up to deadline for the next classified SYN/ACK,
// returning the port it came from and the sentAt value it echoed back.
type nextReplyFunc func(ctx context.Context, deadline time.Duration) (port uint16, sentAt uint32, ok bool)

// estimateRTT samples round-trip time against a few of the host's
// responsive well-known ports before the real scan starts, so the retry
// and dead-probe budgets used during the scan are sized to the actual
// network path rather than a fixed guess. Grounded on the original
// source's find_rtt(): pick up to three candidate ports, round-robin SYNs
// across them until rttWarmupRounds *successful* samples are collected (a
// missed reply doesn't count against that budget, only against
// rttMaxErrors), each probe waiting against the same fixed one-second
// deadline (initialRTTBudget) every round — the original re-declares its
// `struct timeval tv = {1, 0}` on every iteration rather than adapting it
// from what it has measured so far, and this does the same — and keep a
// running (max, maxMax) pair — maxMax is the largest sample seen, max is
// the one before it — promoting a new sample into maxMax only if it isn't
// more than double the current max, so one freak slow reply can't drag
// the final estimate up by itself. The returned estimate is max, the
// second-largest sample, not maxMax: that is what resists a single
// outlier. Gives up and returns the maximum RTT sentinel (maxRTT in packed,
// network-order form) once more than rttMaxErrors attempts have failed;
// failures are counted over the whole warmup and a success does not reset
// the count.
func estimateRTT(ctx context.Context, send sendProbeFunc, recv nextReplyFunc) uint32 {
	candidates := pickCandidatePorts(ctx, send, recv)
	if len(candidates) == 0 {
		return byteSwap32(maxRTT)
	}

	var max, maxMax uint32

	errs, n, successes := 0, 0, 0

	// A missed reply doesn't consume a round: only a successful sample
	// advances successes toward rttWarmupRounds, matching the original's
	// `j--` on a failed bpf_next_tv. The candidate cursor n still advances
	// every attempt, successful or not.
	for successes < rttWarmupRounds {
		port := candidates[n%len(candidates)]
		n++

		sentAt := now()
		if err := send(port, sentAt); err != nil {
			errs++
			if errs > rttMaxErrors {
				return byteSwap32(maxRTT)
			}

			continue
		}

		replyPort, ackedSentAt, ok := recv(ctx, rttDuration(initialRTTBudget))
		if !ok || replyPort != port {
			errs++
			if errs > rttMaxErrors {
				return byteSwap32(maxRTT)
			}

			continue
		}

		successes++

		sample := elapsed(ackedSentAt)

		if byteSwap32(sample) != 0 && byteSwap32(sample) > byteSwap32(maxMax) {
			switch {
			case max == 0:
				max = maxMax
				maxMax = sample
			case byteSwap32(sample) < byteSwap32(max)*2:
				max = maxMax
				maxMax = sample
			}
		}
	}

	if max == 0 {
		return byteSwap32(maxRTT)
	}

	return max
}

// pickCandidatePorts probes rttWarmupPorts in order, keeping the first
// rttProbePortCount that answer within rttPickTimeout.
func pickCandidatePorts(ctx context.Context, send sendProbeFunc, recv nextReplyFunc) []uint16 {
	found := make([]uint16, 0, rttProbePortCount)

	for _, port := range rttWarmupPorts {
		if len(found) >= rttProbePortCount {
			break
		}

		sentAt := now()
		if err := send(port, sentAt); err != nil {
			continue
		}

		replyPort, _, ok := recv(ctx, rttPickTimeout)
		if ok && replyPort == port {
			found = append(found, port)
		}
	}

	return found
}
