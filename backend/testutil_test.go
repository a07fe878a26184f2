// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
)

// mustEqualJSON compares two values structurally and prints a unified diff
// of their JSON forms on mismatch.
func mustEqualJSON(t *testing.T, got, want any) {
	t.Helper()
	if reflect.DeepEqual(got, want) {
		return
	}
	gotJSON, _ := json.MarshalIndent(got, "", "  ")
	wantJSON, _ := json.MarshalIndent(want, "", "  ")
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(wantJSON) + "\n"),
		B:        difflib.SplitLines(string(gotJSON) + "\n"),
		FromFile: "want",
		ToFile:   "got",
		Context:  3,
	})
	t.Errorf("mismatch:\n%s", diff)
}

// testLineup builds a lineup of n players with predictable ids p1..pn.
func testLineup(ids ...string) []Player {
	lineup := make([]Player, 0, len(ids))
	for _, id := range ids {
		lineup = append(lineup, Player{ID: id, Name: "Player " + id})
	}
	return lineup
}
