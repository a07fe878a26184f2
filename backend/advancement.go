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
	"errors"
	"fmt"
)

// ErrIllegalAdvancement indicates a manual override set that violates base
// running rules (runner passing, backward movement, double occupancy).
var ErrIllegalAdvancement = errors.New("illegal advancement")

// Advancement is the outcome of resolving baserunner movement for one play.
type Advancement struct {
	After      BaserunnerState `json:"after"`
	RunsScored []string        `json:"runsScored"`
	RBIs       int             `json:"rbis"`

	// BatterBase is the base the batter ends the play on ("home" when he
	// scores, empty when he is out).
	BatterBase string `json:"batterBase,omitempty"`

	// RunnersOut lists runners retired on the play beyond the batter:
	// the presumed out on a fielder's choice, or runners directed "out"
	// by a manual override.
	RunnersOut []string `json:"runnersOut,omitempty"`
}

// batterDestination returns the base the batter naturally reaches for a
// result, or "" when the batter is out.
func batterDestination(result BattingResult) string {
	switch result {
	case ResultSingle, ResultWalk, ResultIntentionalWalk, ResultFieldersChoice, ResultError:
		return BaseFirst
	case ResultDouble:
		return BaseSecond
	case ResultTriple:
		return BaseThird
	case ResultHomeRun:
		return BaseHome
	}
	return ""
}

// forcedAdvance places the batter on first and advances only runners forced
// by the chain of occupied bases behind them. Returns the new state and any
// run forced home.
func forcedAdvance(before BaserunnerState, batterID string) (BaserunnerState, []string) {
	switch {
	case before.First == "":
		return BaserunnerState{First: batterID, Second: before.Second, Third: before.Third}, nil
	case before.Second == "":
		return BaserunnerState{First: batterID, Second: before.First, Third: before.Third}, nil
	case before.Third == "":
		return BaserunnerState{First: batterID, Second: before.First, Third: before.Second}, nil
	}
	// Bases loaded: the runner on third is forced home.
	return BaserunnerState{First: batterID, Second: before.First, Third: before.Second},
		[]string{before.Third}
}

// scoringRunners returns the occupants of the given bases in base order
// (first, second, third), skipping empty ones.
func scoringRunners(before BaserunnerState, bases ...string) []string {
	var runs []string
	for _, base := range bases {
		if id := before.Runner(base); id != "" {
			runs = append(runs, id)
		}
	}
	return runs
}

// CalculateStandardAdvancement resolves base movement for a batting result
// using the canonical rule table. Optional movement (extra bases on a
// sacrifice fly, runners taking liberties on an error) is the scorer's job
// via manual overrides; this function applies only what the result forces.
func CalculateStandardAdvancement(before BaserunnerState, result BattingResult, batterID string) (Advancement, error) {
	if !result.Known() {
		return Advancement{}, fmt.Errorf("%w: %q", ErrUnknownResult, result)
	}
	if batterID == "" {
		return Advancement{}, fmt.Errorf("%w: missing batter id", ErrIllegalAdvancement)
	}
	if err := before.Validate(); err != nil {
		return Advancement{}, fmt.Errorf("%w: %v", ErrIllegalAdvancement, err)
	}

	adv := Advancement{BatterBase: batterDestination(result)}

	switch result {
	case ResultSingle:
		adv.RunsScored = scoringRunners(before, BaseSecond, BaseThird)
		adv.After = BaserunnerState{First: batterID, Second: before.First}

	case ResultDouble:
		adv.RunsScored = scoringRunners(before, BaseFirst, BaseSecond, BaseThird)
		adv.After = BaserunnerState{Second: batterID}

	case ResultTriple:
		adv.RunsScored = scoringRunners(before, BaseFirst, BaseSecond, BaseThird)
		adv.After = BaserunnerState{Third: batterID}

	case ResultHomeRun:
		adv.RunsScored = append(scoringRunners(before, BaseFirst, BaseSecond, BaseThird), batterID)
		adv.After = BaserunnerState{}

	case ResultWalk, ResultIntentionalWalk:
		adv.After, adv.RunsScored = forcedAdvance(before, batterID)

	case ResultSacFly:
		adv.RunsScored = scoringRunners(before, BaseThird)
		adv.After = BaserunnerState{First: before.First, Second: before.Second}

	case ResultFieldersChoice:
		// The lead runner is presumed out; the scorer corrects with
		// overrides when the defense retires someone else.
		after := before
		if lead := before.LeadRunnerBase(); lead != "" {
			adv.RunnersOut = []string{before.Runner(lead)}
			switch lead {
			case BaseThird:
				after.Third = ""
			case BaseSecond:
				after.Second = ""
			case BaseFirst:
				after.First = ""
			}
		}
		adv.After, _ = forcedAdvance(after, batterID)

	case ResultError:
		adv.After, adv.RunsScored = forcedAdvance(before, batterID)

	case ResultStrikeout, ResultGroundOut, ResultAirOut, ResultDoublePlay:
		adv.After = before

	default:
		return Advancement{}, fmt.Errorf("%w: %q", ErrUnknownResult, result)
	}

	adv.RBIs, _ = CalculateRBIs(result, before, adv.RunsScored, batterID)
	return adv, nil
}

// runnerMove is a resolved override for one runner, lead-to-trail ordered.
type runnerMove struct {
	id    string
	start int // base number before the play
	final int // base number after the play, 4 = home, 0 = out
}

// ApplyManualOverrides resolves base movement from an explicit scorer
// override map keyed by runner player id, replacing the automatic path
// entirely. Runners without an entry hold their base. The batter still takes
// the base dictated by the result.
func ApplyManualOverrides(before BaserunnerState, result BattingResult, batterID string, overrides map[string]string) (Advancement, error) {
	if !result.Known() {
		return Advancement{}, fmt.Errorf("%w: %q", ErrUnknownResult, result)
	}
	if batterID == "" {
		return Advancement{}, fmt.Errorf("%w: missing batter id", ErrIllegalAdvancement)
	}
	if err := before.Validate(); err != nil {
		return Advancement{}, fmt.Errorf("%w: %v", ErrIllegalAdvancement, err)
	}

	adv := Advancement{BatterBase: batterDestination(result)}

	// Resolve every runner, lead to trail.
	var moves []runnerMove
	for _, base := range []string{BaseThird, BaseSecond, BaseFirst} {
		id := before.Runner(base)
		if id == "" {
			continue
		}
		start := baseNumber(base)
		target, ok := overrides[id]
		if !ok || target == AdvanceStay {
			moves = append(moves, runnerMove{id: id, start: start, final: start})
			continue
		}
		switch target {
		case AdvanceOut:
			moves = append(moves, runnerMove{id: id, start: start, final: 0})
		case AdvanceSecond, AdvanceThird, AdvanceHome:
			final := baseNumber(target)
			if final < start {
				return Advancement{}, fmt.Errorf("%w: runner %s cannot move back from %s to %s",
					ErrIllegalAdvancement, id, base, target)
			}
			moves = append(moves, runnerMove{id: id, start: start, final: final})
		default:
			return Advancement{}, fmt.Errorf("%w: unknown override target %q for runner %s",
				ErrIllegalAdvancement, target, id)
		}
	}

	// Reject overrides naming players who are not on base.
	for id := range overrides {
		if before.BaseOf(id) == "" {
			return Advancement{}, fmt.Errorf("%w: override for %s, who is not on base",
				ErrIllegalAdvancement, id)
		}
	}

	// No passing: a trailing runner may not end at or beyond a preceding
	// runner who is still on the bases.
	for i, lead := range moves {
		if lead.final == 0 || lead.final == 4 {
			continue
		}
		for _, trail := range moves[i+1:] {
			if trail.final != 0 && trail.final >= lead.final {
				return Advancement{}, fmt.Errorf("%w: runner %s would pass runner %s",
					ErrIllegalAdvancement, trail.id, lead.id)
			}
		}
	}

	// Materialize the new state.
	var after BaserunnerState
	place := func(id string, num int) error {
		var slot *string
		switch num {
		case 1:
			slot = &after.First
		case 2:
			slot = &after.Second
		case 3:
			slot = &after.Third
		default:
			return nil
		}
		if *slot != "" {
			return fmt.Errorf("%w: %s and %s both end on base %d",
				ErrIllegalAdvancement, *slot, id, num)
		}
		*slot = id
		return nil
	}

	for _, m := range moves {
		switch m.final {
		case 0:
			adv.RunnersOut = append(adv.RunnersOut, m.id)
		case 4:
			// collected below in base order
		default:
			if err := place(m.id, m.final); err != nil {
				return Advancement{}, err
			}
		}
	}

	// Runs in base order (first, second, third), batter last.
	for _, base := range []string{BaseFirst, BaseSecond, BaseThird} {
		id := before.Runner(base)
		if id == "" {
			continue
		}
		for _, m := range moves {
			if m.id == id && m.final == 4 {
				adv.RunsScored = append(adv.RunsScored, id)
			}
		}
	}

	switch adv.BatterBase {
	case BaseHome:
		adv.RunsScored = append(adv.RunsScored, batterID)
	case "":
		// batter is out
	default:
		if err := place(batterID, baseNumber(adv.BatterBase)); err != nil {
			return Advancement{}, err
		}
	}

	adv.After = after
	adv.RBIs, _ = CalculateRBIs(result, before, adv.RunsScored, batterID)
	return adv, nil
}
