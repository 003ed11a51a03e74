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

// SYNScannerOptions configures a SYNScanner. The zero value is usable:
// every field defaults to automatic discovery or the original source's
// fixed constants.
//
// Fields present on the teacher's SYNScannerOptions that controlled
// batched sends and a PACKET_MMAP ring buffer (SendBatchSize, RingBlockSize,
// RingBlockCount, RingFrameSize, RingReaders, RingPollTimeoutMs,
// GlobalRingMemoryMB) and rate limiting (RateLimit, RateLimitBurst) are
// deliberately absent: this scanner sends and sniffs one packet at a time
// on a single goroutine per host, paced only by the RTT estimator.
type SYNScannerOptions struct {
	// Interface pins the scan to a named network interface instead of
	// letting discoverRoute pick one per target.
	Interface string

	// RouteDiscoveryHost is dialed (UDP, no packet sent) to make the
	// kernel reveal which local address and interface it would use, when
	// Interface is unset. Defaults to the scan target itself.
	RouteDiscoveryHost string

	// SuppressRSTReply asks the caller's firewall/conntrack setup to drop
	// the kernel's own RST for our half-open connections before it
	// reaches the wire. This scanner does not configure firewall rules
	// itself; the field only controls whether a warning is logged when
	// an RST addressed to our magic port (the target's answer from a
	// closed port) is captured mid-scan.
	SuppressRSTReply bool

	// WarmupRTT opts into the find_rtt-style warmup pass. The reference
	// configuration bypasses it and starts unconditionally at the fixed
	// one-second initial budget (rtt = 1<<28); this mirrors that default.
	WarmupRTT bool
}

func (o SYNScannerOptions) routeTarget(host string) string {
	if o.RouteDiscoveryHost != "" {
		return o.RouteDiscoveryHost
	}

	return host
}
