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

package gateway

import (
	"context"
	"fmt"
	"net/url"
)

// DatasetBackend serves the data-class routes: launches, vehicles,
// pads and the rest of the catalog. The gateway only meters these
// calls; the backend owns the data.
type DatasetBackend interface {
	Query(ctx context.Context, path string, params url.Values) (any, error)
}

// AIResult is what an AI backend reports for one completed call.
type AIResult struct {
	Model        string `json:"model"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
	Output       any    `json:"output"`
}

// AIBackend serves the AI routes. Invoke runs the model call for a
// route and reports the model and token counts actually consumed, which
// the gateway turns into a ledger event.
type AIBackend interface {
	Invoke(ctx context.Context, route string, payload map[string]any) (*AIResult, error)
}

// StaticDatasetBackend answers every dataset query with a fixed stub.
// Development and test wiring for when no real backend is configured.
type StaticDatasetBackend struct{}

func (StaticDatasetBackend) Query(_ context.Context, path string, params url.Values) (any, error) {
	return map[string]any{
		"path":    path,
		"params":  params,
		"results": []any{},
	}, nil
}

// EchoAIBackend answers every AI route with a fixed stub and small
// token counts. Development and test wiring.
type EchoAIBackend struct {
	// Model reported for every call. Defaults to gpt-5-mini.
	Model string
}

func (b EchoAIBackend) Invoke(_ context.Context, route string, payload map[string]any) (*AIResult, error) {
	model := b.Model
	if model == "" {
		model = "gpt-5-mini"
	}
	return &AIResult{
		Model:        model,
		InputTokens:  int64(len(fmt.Sprint(payload))),
		OutputTokens: 16,
		Output:       map[string]any{"route": route, "echo": payload},
	}, nil
}
