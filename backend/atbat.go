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
	"strings"
)

// AtBatData is the raw input for one plate appearance, as dispatched by the
// scorer's client. BaserunnerAdvancement is keyed by base name
// ("first"/"second"/"third"); the orchestrator resolves keys to the
// occupying player before the engine sees them.
type AtBatData struct {
	BatterID              string            `json:"batterId"`
	Result                string            `json:"result"`
	FinalCount            Count             `json:"finalCount"`
	PitchSequence         []string          `json:"pitchSequence,omitempty"`
	BaserunnerAdvancement map[string]string `json:"baserunnerAdvancement,omitempty"`
}

// AtBat is the immutable record of a resolved plate appearance. Corrections
// never patch a field: they produce a wholly new record with every derived
// field recomputed together (see CorrectAtBat).
type AtBat struct {
	ID            string          `json:"id"`
	BatterID      string          `json:"batterId"`
	Result        BattingResult   `json:"result"`
	FinalCount    Count           `json:"finalCount"`
	PitchSequence []string        `json:"pitchSequence,omitempty"`
	Before        BaserunnerState `json:"before"`
	After         BaserunnerState `json:"after"`
	RunsScored    []string        `json:"runsScored"`
	RBIs          int             `json:"rbis"`
	OutsProduced  int             `json:"outsProduced"`

	// RunningErrors lists runners retired or erased on the bases,
	// independent of any fielding error in the result itself.
	RunningErrors []string `json:"runningErrors,omitempty"`

	CreatedAt int64 `json:"createdAt"`
	UpdatedAt int64 `json:"updatedAt"`
}

// Touched returns a copy of the record carrying a fresh update timestamp.
func (ab AtBat) Touched(now int64) AtBat {
	ab.UpdatedAt = now
	return ab
}

// ProcessedAtBatResult is the consolidated output of the at-bat pipeline.
type ProcessedAtBatResult struct {
	FinalBaserunnerState BaserunnerState `json:"finalBaserunnerState"`
	RunsScored           []string        `json:"runsScored"`
	RBIs                 int             `json:"rbis"`
	OutsProduced         int             `json:"outsProduced"`
	RunnersOut           []string        `json:"runnersOut,omitempty"`
	NextBatterID         string          `json:"nextBatterId"`
	ShouldAdvanceInning  bool            `json:"shouldAdvanceInning"`
	ScoreUpdate          *Score          `json:"scoreUpdate,omitempty"`
}

// hasManualOverrides reports whether the scorer supplied a usable override
// map: non-empty with at least one non-blank target.
func hasManualOverrides(overrides map[string]string) bool {
	for _, target := range overrides {
		if strings.TrimSpace(target) != "" {
			return true
		}
	}
	return false
}

// resolveOverrides converts base-name keys into the player ids occupying
// those bases. Overrides addressing an empty base are illegal unless they
// are a no-op.
func resolveOverrides(runners BaserunnerState, overrides map[string]string) (map[string]string, error) {
	resolved := make(map[string]string, len(overrides))
	for base, target := range overrides {
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		id := runners.Runner(base)
		if id == "" {
			if target == AdvanceStay {
				continue
			}
			return nil, fmt.Errorf("%w: override %q for unoccupied base %s",
				ErrIllegalAdvancement, target, base)
		}
		resolved[id] = target
	}
	return resolved, nil
}

// nextBatterID rotates the lineup past the current batter, wrapping to the
// first slot. An unknown or missing current batter defaults to the first
// slot.
func nextBatterID(lineup []Player, current string) string {
	if len(lineup) == 0 {
		return ""
	}
	for i, p := range lineup {
		if p.ID == current {
			return lineup[(i+1)%len(lineup)].ID
		}
	}
	return lineup[0].ID
}

// ProcessAtBat validates raw at-bat input, resolves base advancement
// (automatic, or scorer-directed when a non-blank override map is present),
// and returns the consolidated result. The session transition itself is the
// caller's job; this computes what the transition must apply.
func ProcessAtBat(data AtBatData, runners BaserunnerState, currentOuts int, lineup []Player) (ProcessedAtBatResult, error) {
	if v := ValidateAtBatData(data); !v.IsValid {
		return ProcessedAtBatResult{}, fmt.Errorf("invalid at-bat data: %s", strings.Join(v.Errors, "; "))
	}

	result, err := ParseBattingResult(data.Result)
	if err != nil {
		return ProcessedAtBatResult{}, err
	}

	var adv Advancement
	if hasManualOverrides(data.BaserunnerAdvancement) {
		resolved, err := resolveOverrides(runners, data.BaserunnerAdvancement)
		if err != nil {
			return ProcessedAtBatResult{}, err
		}
		adv, err = ApplyManualOverrides(runners, result, data.BatterID, resolved)
		if err != nil {
			return ProcessedAtBatResult{}, err
		}
	} else {
		adv, err = CalculateStandardAdvancement(runners, result, data.BatterID)
		if err != nil {
			return ProcessedAtBatResult{}, err
		}
	}

	outs := result.OutsProduced()
	return ProcessedAtBatResult{
		FinalBaserunnerState: adv.After,
		RunsScored:           adv.RunsScored,
		RBIs:                 adv.RBIs,
		OutsProduced:         outs,
		RunnersOut:           adv.RunnersOut,
		NextBatterID:         nextBatterID(lineup, data.BatterID),
		ShouldAdvanceInning:  currentOuts+outs >= OutsPerHalfInning,
	}, nil
}

// ProcessAutoCompletedAtBat runs the same pipeline for results produced by
// the count itself (ball four, strike three). Manual overrides do not apply
// here: nothing was in play.
func ProcessAutoCompletedAtBat(result BattingResult, batterID string, runners BaserunnerState, currentOuts int, lineup []Player) (ProcessedAtBatResult, error) {
	if !result.IsWalk() && result != ResultStrikeout {
		return ProcessedAtBatResult{}, fmt.Errorf("%w: %q cannot auto-complete a count", ErrUnknownResult, result)
	}
	if batterID == "" {
		return ProcessedAtBatResult{}, fmt.Errorf("invalid at-bat data: batterId is required")
	}

	adv, err := CalculateStandardAdvancement(runners, result, batterID)
	if err != nil {
		return ProcessedAtBatResult{}, err
	}

	outs := result.OutsProduced()
	return ProcessedAtBatResult{
		FinalBaserunnerState: adv.After,
		RunsScored:           adv.RunsScored,
		RBIs:                 adv.RBIs,
		OutsProduced:         outs,
		NextBatterID:         nextBatterID(lineup, batterID),
		ShouldAdvanceInning:  currentOuts+outs >= OutsPerHalfInning,
	}, nil
}

// BuildAtBat materializes the immutable at-bat record for a processed play.
func BuildAtBat(id string, data AtBatData, before BaserunnerState, res ProcessedAtBatResult, now int64) AtBat {
	return AtBat{
		ID:            id,
		BatterID:      data.BatterID,
		Result:        BattingResult(data.Result),
		FinalCount:    data.FinalCount,
		PitchSequence: data.PitchSequence,
		Before:        before,
		After:         res.FinalBaserunnerState,
		RunsScored:    res.RunsScored,
		RBIs:          res.RBIs,
		OutsProduced:  res.OutsProduced,
		RunningErrors: res.RunnersOut,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// CorrectAtBat replays corrected input against the original pre-play state
// and returns a new record with every derived field recomputed together.
// The record keeps its identity and creation time.
func CorrectAtBat(orig AtBat, data AtBatData, currentOuts int, lineup []Player, now int64) (AtBat, error) {
	res, err := ProcessAtBat(data, orig.Before, currentOuts, lineup)
	if err != nil {
		return AtBat{}, err
	}
	ab := BuildAtBat(orig.ID, data, orig.Before, res, orig.CreatedAt)
	return ab.Touched(now), nil
}
