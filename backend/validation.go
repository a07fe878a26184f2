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
	"net/mail"
	"regexp"
	"time"
)

// uuidRegex is a regex for standard UUIDs (8-4-4-4-12 hex digits)
var uuidRegex = regexp.MustCompile(`^[a-fA-F0-9]{8}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{12}$`)

// isValidUUID checks if the string is a valid UUID.
func isValidUUID(id string) bool {
	return uuidRegex.MatchString(id)
}

// isValidEmail checks if the string is a valid email address.
func isValidEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

// ValidationResult is the standard response for user-correctable input
// problems. It is always returned as a value, never raised, so callers can
// render retryable feedback.
type ValidationResult struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

// validateStringLen checks if the string length is within the limit.
func validateStringLen(s string, max int, name string) error {
	if len(s) > max {
		return fmt.Errorf("%s too long (max %d chars)", name, max)
	}
	return nil
}

// validBases and validAdvanceTargets bound the override vocabulary at the
// input boundary.
var validBases = map[string]bool{
	BaseFirst:  true,
	BaseSecond: true,
	BaseThird:  true,
}

var validAdvanceTargets = map[string]bool{
	AdvanceStay:   true,
	AdvanceSecond: true,
	AdvanceThird:  true,
	AdvanceHome:   true,
	AdvanceOut:    true,
}

// ValidateAtBatData checks raw at-bat input for user-correctable problems.
func ValidateAtBatData(data AtBatData) ValidationResult {
	var errs []string

	if data.BatterID == "" {
		errs = append(errs, "batterId is required")
	}
	if !BattingResult(data.Result).Known() {
		errs = append(errs, fmt.Sprintf("unknown result code: %q", data.Result))
	}
	if data.FinalCount.Balls < 0 || data.FinalCount.Balls > BallsPerWalk {
		errs = append(errs, fmt.Sprintf("balls out of range [0,%d]: %d", BallsPerWalk, data.FinalCount.Balls))
	}
	if data.FinalCount.Strikes < 0 || data.FinalCount.Strikes > StrikesPerOut {
		errs = append(errs, fmt.Sprintf("strikes out of range [0,%d]: %d", StrikesPerOut, data.FinalCount.Strikes))
	}
	for _, pitch := range data.PitchSequence {
		if pitch != PitchTypeBall && pitch != PitchTypeStrike && pitch != PitchTypeFoul {
			errs = append(errs, fmt.Sprintf("unknown pitch type in sequence: %q", pitch))
		}
	}
	for base, target := range data.BaserunnerAdvancement {
		if !validBases[base] {
			errs = append(errs, fmt.Sprintf("unknown base in advancement map: %q", base))
		}
		if target != "" && !validAdvanceTargets[target] {
			errs = append(errs, fmt.Sprintf("unknown advancement target for %s: %q", base, target))
		}
	}

	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

// --- HTTP payload validators ---

// GameStartPayload creates a new game.
type GameStartPayload struct {
	ID         string              `json:"id"`
	Date       string              `json:"date"`
	Away       string              `json:"away"`
	Home       string              `json:"home"`
	Event      string              `json:"event,omitempty"`
	Location   string              `json:"location,omitempty"`
	AwayTeamID string              `json:"awayTeamId,omitempty"`
	HomeTeamID string              `json:"homeTeamId,omitempty"`
	Lineups    map[string][]Player `json:"lineups"` // keyed "away"/"home"
}

func validateGameStart(payload json.RawMessage) error {
	var p GameStartPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return err
	}
	if !isValidUUID(p.ID) {
		return fmt.Errorf("invalid game ID in payload")
	}
	if p.Away == "" || p.Home == "" {
		return fmt.Errorf("missing team names")
	}
	if err := validateStringLen(p.Away, 50, "away team"); err != nil {
		return err
	}
	if err := validateStringLen(p.Home, 50, "home team"); err != nil {
		return err
	}
	if err := validateStringLen(p.Event, 100, "event"); err != nil {
		return err
	}
	if err := validateStringLen(p.Location, 100, "location"); err != nil {
		return err
	}
	if p.Date != "" {
		if _, err := time.Parse(time.RFC3339, p.Date); err != nil {
			return fmt.Errorf("invalid date format: %v", err)
		}
	}
	for team, lineup := range p.Lineups {
		if team != TeamAway && team != TeamHome {
			return fmt.Errorf("invalid lineup team key: %q", team)
		}
		if err := validateLineup(lineup); err != nil {
			return err
		}
	}
	return nil
}

func validateLineup(lineup []Player) error {
	for _, pl := range lineup {
		if !isValidUUID(pl.ID) {
			return fmt.Errorf("invalid lineup player ID: %q", pl.ID)
		}
		if err := validateStringLen(pl.Name, 50, "player name"); err != nil {
			return err
		}
		if err := validateStringLen(pl.Number, 10, "player number"); err != nil {
			return err
		}
		if err := validateStringLen(pl.Pos, 10, "position"); err != nil {
			return err
		}
	}
	return nil
}

// PitchPayload records one pitch against the current count.
type PitchPayload struct {
	Type string `json:"type"`
}

func validatePitch(payload json.RawMessage) error {
	var p PitchPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return err
	}
	if p.Type != PitchTypeBall && p.Type != PitchTypeStrike && p.Type != PitchTypeFoul {
		return fmt.Errorf("invalid pitch type: %q", p.Type)
	}
	return nil
}

// AtBatPayload records a completed plate appearance.
type AtBatPayload struct {
	ID    string    `json:"id"`
	AtBat AtBatData `json:"atBat"`
}

func validateAtBat(payload json.RawMessage) error {
	var p AtBatPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return err
	}
	if !isValidUUID(p.ID) {
		return fmt.Errorf("invalid at-bat ID")
	}
	if v := ValidateAtBatData(p.AtBat); !v.IsValid {
		return fmt.Errorf("invalid at-bat data: %s", v.Errors[0])
	}
	return nil
}

// LineupUpdatePayload replaces a team's lineup mid-game.
type LineupUpdatePayload struct {
	Team   string   `json:"team"`
	Lineup []Player `json:"lineup"`
}

func validateLineupUpdate(payload json.RawMessage) error {
	var p LineupUpdatePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return err
	}
	if p.Team != TeamAway && p.Team != TeamHome {
		return fmt.Errorf("invalid team")
	}
	return validateLineup(p.Lineup)
}
