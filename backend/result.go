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

// ErrUnknownResult indicates a batting result code outside the closed set.
// It is a logic error, not a user-correctable validation failure.
var ErrUnknownResult = errors.New("unknown batting result")

// BattingResult is the outcome of a completed plate appearance.
type BattingResult string

const (
	ResultSingle          BattingResult = "1B"
	ResultDouble          BattingResult = "2B"
	ResultTriple          BattingResult = "3B"
	ResultHomeRun         BattingResult = "HR"
	ResultWalk            BattingResult = "BB"
	ResultIntentionalWalk BattingResult = "IBB"
	ResultStrikeout       BattingResult = "SO"
	ResultGroundOut       BattingResult = "GO"
	ResultAirOut          BattingResult = "AO"
	ResultSacFly          BattingResult = "SF"
	ResultFieldersChoice  BattingResult = "FC"
	ResultError           BattingResult = "E"
	// Triple plays are not modeled; scorers record them as a DP plus a
	// manual runner-out override.
	ResultDoublePlay BattingResult = "DP"
)

type resultTraits struct {
	hit         bool
	out         bool
	reachesBase bool
	outs        int
	totalBases  int
}

var battingResults = map[BattingResult]resultTraits{
	ResultSingle:          {hit: true, reachesBase: true, totalBases: 1},
	ResultDouble:          {hit: true, reachesBase: true, totalBases: 2},
	ResultTriple:          {hit: true, reachesBase: true, totalBases: 3},
	ResultHomeRun:         {hit: true, reachesBase: true, totalBases: 4},
	ResultWalk:            {reachesBase: true},
	ResultIntentionalWalk: {reachesBase: true},
	ResultStrikeout:       {out: true, outs: 1},
	ResultGroundOut:       {out: true, outs: 1},
	ResultAirOut:          {out: true, outs: 1},
	ResultSacFly:          {out: true, outs: 1},
	ResultFieldersChoice:  {reachesBase: true},
	ResultError:           {reachesBase: true},
	ResultDoublePlay:      {out: true, outs: 2},
}

// ParseBattingResult converts a raw code into a BattingResult.
func ParseBattingResult(code string) (BattingResult, error) {
	r := BattingResult(code)
	if !r.Known() {
		return "", fmt.Errorf("%w: %q", ErrUnknownResult, code)
	}
	return r, nil
}

// Known reports whether the code belongs to the closed result set.
func (r BattingResult) Known() bool {
	_, ok := battingResults[r]
	return ok
}

// IsHit reports whether the result is a base hit.
func (r BattingResult) IsHit() bool {
	return battingResults[r].hit
}

// IsOut reports whether the batter is put out by the result.
func (r BattingResult) IsOut() bool {
	return battingResults[r].out
}

// ReachesBase reports whether the batter ends the play on base.
func (r BattingResult) ReachesBase() bool {
	return battingResults[r].reachesBase
}

// OutsProduced returns the number of outs the result itself accounts for.
func (r BattingResult) OutsProduced() int {
	return battingResults[r].outs
}

// TotalBases returns the slugging value of the result (hits only).
func (r BattingResult) TotalBases() int {
	return battingResults[r].totalBases
}

// IsWalk reports whether the result is a base on balls of either kind.
func (r BattingResult) IsWalk() bool {
	return r == ResultWalk || r == ResultIntentionalWalk
}

// CountsAsAtBat reports whether the plate appearance counts as an official
// at-bat for batting statistics. Walks and sacrifice flies do not.
func (r BattingResult) CountsAsAtBat() bool {
	return !r.IsWalk() && r != ResultSacFly
}
