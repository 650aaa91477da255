// Copyright 2025 CortexAI
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPoolAcquireRelease(t *testing.T) {
	p := newWorkerPool(2)
	ctx := context.Background()

	require.NoError(t, p.acquire(ctx))
	require.NoError(t, p.acquire(ctx))
	assert.Equal(t, 2, p.inUse())

	p.release()
	assert.Equal(t, 1, p.inUse())
	require.NoError(t, p.acquire(ctx))
}

func TestWorkerPoolSaturation(t *testing.T) {
	p := newWorkerPool(1)
	ctx := context.Background()

	require.NoError(t, p.acquire(ctx))

	err := p.acquire(ctx)
	assert.True(t, errors.Is(err, errPoolSaturated))

	p.release()
	assert.NoError(t, p.acquire(ctx))
}

func TestWorkerPoolContextCancelled(t *testing.T) {
	p := newWorkerPool(1)
	require.NoError(t, p.acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.acquire(ctx)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, errPoolSaturated), "cancellation is not saturation")
}

func TestWorkerPoolZeroSizeGetsOneSlot(t *testing.T) {
	p := newWorkerPool(0)
	require.NoError(t, p.acquire(context.Background()))
	assert.ErrorIs(t, p.acquire(context.Background()), errPoolSaturated)
}
