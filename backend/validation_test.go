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
	"fmt"
	"strings"
	"testing"
)

func TestIsValidUUID(t *testing.T) {
	for _, tc := range []struct {
		id   string
		want bool
	}{
		{"6ba7b810-9dad-11d1-80b4-00c04fd430c8", true},
		{"6BA7B810-9DAD-11D1-80B4-00C04FD430C8", true},
		{"6ba7b810-9dad-11d1-80b4", false},
		{"not-a-uuid", false},
		{"", false},
	} {
		if got := isValidUUID(tc.id); got != tc.want {
			t.Errorf("isValidUUID(%q) = %v, want %v", tc.id, got, tc.want)
		}
	}
}

func TestIsValidEmail(t *testing.T) {
	for _, tc := range []struct {
		email string
		want  bool
	}{
		{"coach@example.com", true},
		{"Coach <coach@example.com>", true},
		{"not-an-email", false},
		{"", false},
	} {
		if got := isValidEmail(tc.email); got != tc.want {
			t.Errorf("isValidEmail(%q) = %v, want %v", tc.email, got, tc.want)
		}
	}
}

func TestValidateAtBatData(t *testing.T) {
	good := AtBatData{BatterID: "p1", Result: "1B", FinalCount: Count{Balls: 2, Strikes: 1}}
	if v := ValidateAtBatData(good); !v.IsValid {
		t.Errorf("valid data rejected: %v", v.Errors)
	}

	for _, tc := range []struct {
		name string
		data AtBatData
	}{
		{"missing batter", AtBatData{Result: "1B"}},
		{"unknown result", AtBatData{BatterID: "p1", Result: "XYZ"}},
		{"balls out of range", AtBatData{BatterID: "p1", Result: "BB", FinalCount: Count{Balls: 5}}},
		{"strikes out of range", AtBatData{BatterID: "p1", Result: "SO", FinalCount: Count{Strikes: 4}}},
		{"bad pitch in sequence", AtBatData{BatterID: "p1", Result: "1B", PitchSequence: []string{"spitball"}}},
		{"bad base key", AtBatData{BatterID: "p1", Result: "1B", BaserunnerAdvancement: map[string]string{"shortstop": AdvanceHome}}},
		{"bad advancement target", AtBatData{BatterID: "p1", Result: "1B", BaserunnerAdvancement: map[string]string{BaseFirst: "first"}}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if v := ValidateAtBatData(tc.data); v.IsValid {
				t.Error("invalid data accepted")
			}
		})
	}
}

func TestValidateGameStart(t *testing.T) {
	mk := func(p GameStartPayload) json.RawMessage {
		b, err := json.Marshal(p)
		if err != nil {
			t.Fatal(err)
		}
		return b
	}

	good := GameStartPayload{
		ID:   "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		Date: "2026-04-12T14:00:00Z",
		Away: "Thunder",
		Home: "Lightning",
		Lineups: map[string][]Player{
			TeamAway: testLineup("6ba7b810-9dad-11d1-80b4-00c04fd430c1"),
		},
	}
	if err := validateGameStart(mk(good)); err != nil {
		t.Errorf("valid payload rejected: %v", err)
	}

	for _, tc := range []struct {
		name   string
		mutate func(*GameStartPayload)
	}{
		{"bad id", func(p *GameStartPayload) { p.ID = "nope" }},
		{"missing teams", func(p *GameStartPayload) { p.Away = "" }},
		{"team name too long", func(p *GameStartPayload) { p.Home = strings.Repeat("x", 51) }},
		{"bad date", func(p *GameStartPayload) { p.Date = "April 12" }},
		{"bad lineup key", func(p *GameStartPayload) {
			p.Lineups = map[string][]Player{"visitors": nil}
		}},
		{"bad player id", func(p *GameStartPayload) {
			p.Lineups = map[string][]Player{TeamHome: {{ID: "p1"}}}
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := good
			tc.mutate(&p)
			if err := validateGameStart(mk(p)); err == nil {
				t.Error("invalid payload accepted")
			}
		})
	}

	if err := validateGameStart(json.RawMessage(`{`)); err == nil {
		t.Error("malformed JSON accepted")
	}
}

func TestValidatePitch(t *testing.T) {
	for _, pitch := range []string{PitchTypeBall, PitchTypeStrike, PitchTypeFoul} {
		payload := json.RawMessage(fmt.Sprintf(`{"type":%q}`, pitch))
		if err := validatePitch(payload); err != nil {
			t.Errorf("validatePitch(%q): %v", pitch, err)
		}
	}
	if err := validatePitch(json.RawMessage(`{"type":"changeup"}`)); err == nil {
		t.Error("invalid pitch type accepted")
	}
	if err := validatePitch(json.RawMessage(`{}`)); err == nil {
		t.Error("missing pitch type accepted")
	}
}

func TestValidateAtBatPayload(t *testing.T) {
	mk := func(p AtBatPayload) json.RawMessage {
		b, err := json.Marshal(p)
		if err != nil {
			t.Fatal(err)
		}
		return b
	}

	good := AtBatPayload{
		ID:    "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		AtBat: AtBatData{BatterID: "p1", Result: "HR"},
	}
	if err := validateAtBat(mk(good)); err != nil {
		t.Errorf("valid payload rejected: %v", err)
	}

	bad := good
	bad.ID = "ab-1"
	if err := validateAtBat(mk(bad)); err == nil {
		t.Error("invalid at-bat ID accepted")
	}

	bad = good
	bad.AtBat.Result = "XYZ"
	if err := validateAtBat(mk(bad)); err == nil {
		t.Error("invalid at-bat data accepted")
	}
}

func TestValidateLineupUpdate(t *testing.T) {
	mk := func(p LineupUpdatePayload) json.RawMessage {
		b, err := json.Marshal(p)
		if err != nil {
			t.Fatal(err)
		}
		return b
	}

	good := LineupUpdatePayload{
		Team:   TeamHome,
		Lineup: testLineup("6ba7b810-9dad-11d1-80b4-00c04fd430c1", "6ba7b810-9dad-11d1-80b4-00c04fd430c2"),
	}
	if err := validateLineupUpdate(mk(good)); err != nil {
		t.Errorf("valid payload rejected: %v", err)
	}

	if err := validateLineupUpdate(mk(LineupUpdatePayload{Team: "visitors"})); err == nil {
		t.Error("invalid team accepted")
	}
	if err := validateLineupUpdate(mk(LineupUpdatePayload{Team: TeamAway, Lineup: []Player{{ID: "p1"}}})); err == nil {
		t.Error("invalid player ID accepted")
	}
}
