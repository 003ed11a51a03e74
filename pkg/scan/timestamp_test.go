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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestByteSwap32_Involution(t *testing.T) {
	for _, v := range []uint32{0, 1, 0xDEADBEEF, 0xFFFFFFFF, 0x12345678} {
		assert.Equal(t, v, byteSwap32(byteSwap32(v)))
	}
}

func TestPackTime_QuantizesMicroseconds(t *testing.T) {
	a := packTime(1, 100)
	b := packTime(1, 103)

	// Microseconds are quantized to 16us steps, so nearby values collapse.
	assert.Equal(t, a, b)

	c := packTime(1, 1000)
	assert.NotEqual(t, a, c)
}

func TestDecode_NormalizesOverflowAndSaturates(t *testing.T) {
	packed := packTime(3, 0)

	sec, usec := decode(packed)
	assert.LessOrEqual(t, sec, uint32(2))
	assert.Zero(t, usec)
}

func TestElapsed_FutureClampsToZero(t *testing.T) {
	future := byteSwap32(byteSwap32(now()) + 1_000_000)
	assert.Equal(t, uint32(0), elapsed(future))
}

func TestElapsed_ClampsToMaxRTT(t *testing.T) {
	ancient := byteSwap32(byteSwap32(now()) - (1 << 30))
	assert.Equal(t, byteSwap32(maxRTT), elapsed(ancient))
}

func TestIsDead(t *testing.T) {
	budget := packTime(0, 500_000)

	fresh := now()
	assert.False(t, isDead(fresh, budget))

	ancient := byteSwap32(byteSwap32(now()) - 5_000_000)
	assert.True(t, isDead(ancient, budget))
}
