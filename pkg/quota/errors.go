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
	"errors"
	"fmt"
)

var (
	// ErrAuthRequired means quota enforcement ran for an anonymous
	// caller. Quotas are per-user; there is nothing to charge.
	ErrAuthRequired = errors.New("authenticated user required")

	// ErrStoreUnavailable wraps storage failures. Callers treat it as a
	// fail-open signal, never as a rejection.
	ErrStoreUnavailable = errors.New("quota store unavailable")
)

// StoreError wraps an underlying storage failure with the operation
// that hit it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("quota store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return ErrStoreUnavailable }

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}
