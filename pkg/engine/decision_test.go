// Copyright 2026 Handrail Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecision_Valid(t *testing.T) {
	raw := json.RawMessage(`{
		"reply_to_user": "Check the thermostat dial on the tank.",
		"status": "IN_PROGRESS",
		"result_value": null,
		"reasoning": "User has not yet confirmed the thermostat setting."
	}`)

	d, err := ParseDecision(raw)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, d.Status)
	assert.Empty(t, d.ResultValue)
	assert.Contains(t, d.ReplyToUser, "thermostat")
}

func TestParseDecision_ResultValueString(t *testing.T) {
	raw := json.RawMessage(`{
		"reply_to_user": "Great, that resolves it.",
		"status": "COMPLETE",
		"result_value": "was_low",
		"reasoning": "User confirmed the fix."
	}`)

	d, err := ParseDecision(raw)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, d.Status)
	assert.Equal(t, "was_low", d.ResultValue)
}

func TestParseDecision_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"unknown status", `{"reply_to_user":"x","status":"MAYBE","result_value":null,"reasoning":"y"}`},
		{"missing reasoning", `{"reply_to_user":"x","status":"COMPLETE","result_value":null}`},
		{"extra field", `{"reply_to_user":"x","status":"COMPLETE","result_value":null,"reasoning":"y","mood":"happy"}`},
		{"not json", `thinking about it...`},
		{"wrong type", `{"reply_to_user":"x","status":"COMPLETE","result_value":42,"reasoning":"y"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDecision(json.RawMessage(tt.raw))
			assert.Error(t, err)
		})
	}
}
