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

import "container/list"

// numRetries is the number of times a probe that never got an answer is
// resent before the scan gives up on that port and reports it filtered.
// Mirrors the original source's fixed retry budget.
const numRetries = 2

// probe tracks one in-flight SYN: the destination port it was sent to, the
// packed timestamp it carried in the sequence field, and how many times it
// has been resent.
type probe struct {
	port    uint16
	sentAt  uint32
	retries int
}

// probeTable is the in-flight probe set for a single host's scan, ordered
// oldest-sent-first so expiry can always consider the probe that has been
// outstanding the longest. Grounded on the original source's doubly linked
// `struct list` maintained by add_packet/rm_packet/get_packet.
type probeTable struct {
	order *list.List               // of *probe, oldest at Front
	byPort map[uint16]*list.Element // port -> its element in order
}

func newProbeTable() *probeTable {
	return &probeTable{
		order:  list.New(),
		byPort: make(map[uint16]*list.Element),
	}
}

// insertOrBump adds a new probe for port, or — if one is already
// outstanding for that port — bumps its sent_at and retry count in place
// and moves it to the back of the age order, as if it were newly sent.
func (t *probeTable) insertOrBump(port uint16, sentAt uint32) {
	if el, ok := t.byPort[port]; ok {
		p := el.Value.(*probe) //nolint:forcetypeassert // element always holds *probe
		p.sentAt = sentAt
		p.retries++
		t.order.MoveToBack(el)

		return
	}

	p := &probe{port: port, sentAt: sentAt}
	el := t.order.PushBack(p)
	t.byPort[port] = el
}

// find returns the outstanding probe for port, if any.
func (t *probeTable) find(port uint16) (*probe, bool) {
	el, ok := t.byPort[port]
	if !ok {
		return nil, false
	}

	return el.Value.(*probe), true //nolint:forcetypeassert // element always holds *probe
}

// remove drops the outstanding probe for port, e.g. once a SYN/ACK has
// resolved it or a resend of it has failed. An RST reply does not remove a
// probe: scanHost only resolves SYN/ACKs, so a port that answers with RST
// stays in the table until expire drops it.
func (t *probeTable) remove(port uint16) {
	el, ok := t.byPort[port]
	if !ok {
		return
	}

	t.order.Remove(el)
	delete(t.byPort, port)
}

func (t *probeTable) len() int {
	return t.order.Len()
}

// expire sweeps every outstanding probe against the current RTT budget.
// Grounded on the original source's rm_dead_packets(): a probe dead (aged
// past 2x budget) with its retry budget exhausted is removed from the
// table and reported in dropped — the original drops these without a sink
// event, but this port dropping a probe is distinguishable from the
// original's scan() so scanHost still reports it as a negative Result,
// unlike the original's silent removal. A probe dead but with retries
// left is kept in the table (still unresolved, as in the original, which
// also leaves it in place) and becomes the retry candidate: scanning the
// whole table mirrors the original's full list walk per call, and when
// more than one probe qualifies, the last one found wins, same as the
// original overwriting *retry on every match rather than stopping at the
// first. ok is false when no probe currently qualifies for a resend, the
// signal the driver's retry loop uses to fall through to a bare sniff.
// maxRetries lets the caller vary the retry budget (the spec's asymmetry:
// IPv4 probes get numRetries resends, IPv6 gets none).
func (t *probeTable) expire(rtt uint32, maxRetries int) (port uint16, ok bool, dropped []uint16) {
	for el := t.order.Front(); el != nil; {
		next := el.Next()

		p := el.Value.(*probe) //nolint:forcetypeassert // element always holds *probe

		if isDead(p.sentAt, rtt) {
			if p.retries >= maxRetries {
				dropped = append(dropped, p.port)
				t.order.Remove(el)
				delete(t.byPort, p.port)
			} else {
				port, ok = p.port, true
			}
		}

		el = next
	}

	return port, ok, dropped
}

// ports returns every outstanding port, oldest first. Used when a scan is
// torn down early and every remaining probe must be reported filtered.
func (t *probeTable) ports() []uint16 {
	out := make([]uint16, 0, t.order.Len())
	for el := t.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*probe).port) //nolint:forcetypeassert // element always holds *probe
	}

	return out
}
