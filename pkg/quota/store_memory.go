// Copyright 2025 Kadir Pekel
//
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

package quota

import (
	"context"
	"fmt"
	"sync"

	"github.com/kadirpekel/launchgate/pkg/plan"
)

// MemoryStore is an in-process CounterStore. Used in tests and
// single-node setups where durability across restarts does not matter.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[string]int64)}
}

func bucketKey(userID string, period plan.Period, periodKey string) string {
	return fmt.Sprintf("%s|%s|%s", userID, period, periodKey)
}

// DataUsage returns the counter for a bucket, zero when absent.
func (s *MemoryStore) DataUsage(_ context.Context, userID string, period plan.Period, periodKey string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[bucketKey(userID, period, periodKey)], nil
}

// IncrementDataUsage adds one to a bucket.
func (s *MemoryStore) IncrementDataUsage(_ context.Context, userID string, period plan.Period, periodKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[bucketKey(userID, period, periodKey)]++
	return nil
}
