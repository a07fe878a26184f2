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
	"fmt"
)

// Count is the ball-strike count of the plate appearance in progress.
type Count struct {
	Balls   int `json:"balls"`
	Strikes int `json:"strikes"`
}

// Score is the game score from the home team's perspective.
type Score struct {
	Home int `json:"homeScore"`
	Away int `json:"awayScore"`
}

// GameCompletion reports whether a half-inning transition ended the game.
type GameCompletion struct {
	Complete bool   `json:"complete"`
	Reason   string `json:"reason,omitempty"`
}

// GameSessionState is the live scoring position: where we are in the game
// and who is batting. It is a value; every transition returns a new state.
type GameSessionState struct {
	Inning          int             `json:"inning"`
	IsTop           bool            `json:"isTop"`
	Outs            int             `json:"outs"`
	Count           Count           `json:"count"`
	Baserunners     BaserunnerState `json:"baserunners"`
	CurrentBatterID string          `json:"currentBatterId,omitempty"`
}

// NewGameSessionState returns the state at first pitch: top of the first,
// nobody on, nobody out.
func NewGameSessionState(firstBatterID string) GameSessionState {
	return GameSessionState{Inning: 1, IsTop: true, CurrentBatterID: firstBatterID}
}

// UpdateCount applies one pitch to the count. When the pitch completes the
// plate appearance (ball four, strike three) the completed result is
// returned alongside the final count; otherwise the result is empty. A foul
// with two strikes leaves the count unchanged.
func UpdateCount(c Count, pitch string) (Count, BattingResult, error) {
	switch pitch {
	case PitchTypeBall:
		c.Balls++
		if c.Balls >= BallsPerWalk {
			return c, ResultWalk, nil
		}
		return c, "", nil
	case PitchTypeStrike:
		c.Strikes++
		if c.Strikes >= StrikesPerOut {
			return c, ResultStrikeout, nil
		}
		return c, "", nil
	case PitchTypeFoul:
		if c.Strikes < StrikesPerOut-1 {
			c.Strikes++
		}
		return c, "", nil
	}
	return c, "", fmt.Errorf("unknown pitch type: %q", pitch)
}

// ProcessAtBat applies a completed at-bat to the session state using the
// automatic advancement path. It returns the new state, the resolved
// advancement, and whether the half-inning ended. When the third out is
// recorded, outs reset to zero and the bases clear.
func (s GameSessionState) ProcessAtBat(batterID string, result BattingResult) (GameSessionState, Advancement, bool, error) {
	adv, err := CalculateStandardAdvancement(s.Baserunners, result, batterID)
	if err != nil {
		return s, Advancement{}, false, err
	}

	next := s
	next.Count = Count{}
	next.Baserunners = adv.After
	next.Outs = s.Outs + result.OutsProduced()

	if next.Outs >= OutsPerHalfInning {
		next.Outs = 0
		next.Baserunners = BaserunnerState{}
		return next, adv, true, nil
	}
	return next, adv, false, nil
}

// AdvanceInning rotates to the next half-inning: the top flips to the bottom
// of the same inning, the bottom rolls over to the top of the next. Outs,
// count, and baserunners reset, and the batter is reassigned to the first
// slot of the lineup now due up.
//
// Completion is evaluated against the half that just ended. Leaving the
// bottom of the seventh or later with the score not tied ends the game in
// regulation; from the fifth inning on, a ten-run differential ends it on
// the mercy rule. A tie after regulation continues into extra innings.
func AdvanceInning(s GameSessionState, score Score, lineup []Player) (GameSessionState, GameCompletion) {
	endedBottom := !s.IsTop

	next := s
	next.Outs = 0
	next.Count = Count{}
	next.Baserunners = BaserunnerState{}
	if s.IsTop {
		next.IsTop = false
	} else {
		next.IsTop = true
		next.Inning = s.Inning + 1
	}
	next.CurrentBatterID = ""
	if len(lineup) > 0 {
		next.CurrentBatterID = lineup[0].ID
	}

	var completion GameCompletion
	diff := score.Home - score.Away
	if diff < 0 {
		diff = -diff
	}
	switch {
	case endedBottom && s.Inning >= RegulationInnings && score.Home != score.Away:
		completion = GameCompletion{Complete: true, Reason: CompletionRegulation}
	case s.Inning >= MercyRuleInning && diff >= MercyRuleRunDiff:
		completion = GameCompletion{Complete: true, Reason: CompletionMercyRule}
	}

	return next, completion
}

// ValidateGameState checks session state bounds. The score is optional;
// when supplied it must be non-negative.
func ValidateGameState(s GameSessionState, score *Score) ValidationResult {
	var errs []string

	if s.Inning < 1 {
		errs = append(errs, fmt.Sprintf("inning must be at least 1, got %d", s.Inning))
	}
	if s.Outs < 0 || s.Outs > OutsPerHalfInning {
		errs = append(errs, fmt.Sprintf("outs out of range [0,%d]: %d", OutsPerHalfInning, s.Outs))
	}
	if s.Count.Balls < 0 || s.Count.Balls > BallsPerWalk {
		errs = append(errs, fmt.Sprintf("balls out of range [0,%d]: %d", BallsPerWalk, s.Count.Balls))
	}
	if s.Count.Strikes < 0 || s.Count.Strikes > StrikesPerOut {
		errs = append(errs, fmt.Sprintf("strikes out of range [0,%d]: %d", StrikesPerOut, s.Count.Strikes))
	}
	if err := s.Baserunners.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if score != nil {
		if score.Home < 0 {
			errs = append(errs, fmt.Sprintf("home score is negative: %d", score.Home))
		}
		if score.Away < 0 {
			errs = append(errs, fmt.Sprintf("away score is negative: %d", score.Away))
		}
	}

	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}
