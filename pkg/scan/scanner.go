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

// Package scan implements the SYN scanner used by a host runner: it crafts
// and parses its own IPv4/IPv6 TCP segments from a raw socket, classifying
// open/closed/filtered ports from the peer's response without completing a
// full TCP handshake.
package scan

import (
	"context"

	"github.com/KevAligo/synscan/pkg/models"
)

// Scanner is satisfied by every probing backend in this package.
type Scanner interface {
	// Scan probes targets and streams Results on the returned channel,
	// which is closed once the scan is finished. An implementation may
	// send no Result for a target it never got to probe.
	Scan(ctx context.Context, targets []models.Target) (<-chan models.Result, error)
	// Stop releases any resources (sockets, filters) held by the scanner.
	Stop(ctx context.Context) error
}
