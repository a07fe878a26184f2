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
	"math"
)

// PlayerStatistics holds raw batting counters and the rates derived from
// them. Rates are always recomputed from the counters, never carried
// independently.
type PlayerStatistics struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName,omitempty"`

	AtBats     int `json:"atBats"`
	Hits       int `json:"hits"`
	Singles    int `json:"singles"`
	Doubles    int `json:"doubles"`
	Triples    int `json:"triples"`
	HomeRuns   int `json:"homeRuns"`
	Walks      int `json:"walks"`
	Strikeouts int `json:"strikeouts"`
	SacFlies   int `json:"sacFlies"`
	HitByPitch int `json:"hitByPitch"`
	Runs       int `json:"runs"`
	RBIs       int `json:"rbis"`

	BattingAverage     float64 `json:"battingAverage"`
	OnBasePercentage   float64 `json:"onBasePercentage"`
	SluggingPercentage float64 `json:"sluggingPercentage"`
	OPS                float64 `json:"ops"`
}

// TeamStatistics aggregates raw counters across a roster. Rates come from
// the summed counters, never from averaging individual rates.
type TeamStatistics struct {
	Players int `json:"players"`

	AtBats     int `json:"atBats"`
	Hits       int `json:"hits"`
	Singles    int `json:"singles"`
	Doubles    int `json:"doubles"`
	Triples    int `json:"triples"`
	HomeRuns   int `json:"homeRuns"`
	Walks      int `json:"walks"`
	Strikeouts int `json:"strikeouts"`
	SacFlies   int `json:"sacFlies"`
	HitByPitch int `json:"hitByPitch"`
	Runs       int `json:"runs"`
	RBIs       int `json:"rbis"`

	BattingAverage     float64 `json:"battingAverage"`
	OnBasePercentage   float64 `json:"onBasePercentage"`
	SluggingPercentage float64 `json:"sluggingPercentage"`
	OPS                float64 `json:"ops"`
}

// round3 rounds a rate to the conventional 3 decimal places.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// safeDiv returns n/d, or 0 when the denominator is 0.
func safeDiv(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

// CalculateRBIs determines the RBIs credited to the batter for a play.
//
// Walks drive in a run only with the bases loaded. Runs that score on an
// error are never RBIs. Everything else credits one RBI per run, capped at
// the grand-slam maximum of 4.
func CalculateRBIs(result BattingResult, before BaserunnerState, runsScored []string, batterID string) (int, string) {
	switch {
	case result == ResultError:
		return 0, "no RBI on an error"
	case result.IsWalk():
		if before.IsLoaded() && len(runsScored) > 0 {
			return len(runsScored), "walk with the bases loaded forces in a run"
		}
		return 0, "walk without the bases loaded"
	case len(runsScored) > MaxRBIsPerAtBat:
		return MaxRBIsPerAtBat, fmt.Sprintf("%d runs scored, RBIs capped at %d for %s",
			len(runsScored), MaxRBIsPerAtBat, batterID)
	default:
		return len(runsScored), fmt.Sprintf("%d run(s) batted in by %s", len(runsScored), batterID)
	}
}

// recomputeRates derives BA/OBP/SLG/OPS from the raw counters.
func (p PlayerStatistics) recomputeRates() PlayerStatistics {
	p.BattingAverage = round3(safeDiv(p.Hits, p.AtBats))
	p.OnBasePercentage = round3(safeDiv(p.Hits+p.Walks+p.HitByPitch,
		p.AtBats+p.Walks+p.HitByPitch+p.SacFlies))
	totalBases := p.Singles + 2*p.Doubles + 3*p.Triples + 4*p.HomeRuns
	p.SluggingPercentage = round3(safeDiv(totalBases, p.AtBats))
	p.OPS = round3(p.OnBasePercentage + p.SluggingPercentage)
	return p
}

// UpdatePlayerStatistics folds one completed at-bat into a player's
// statistics and returns the new value. Batting counters apply only when the
// player was the batter; the run counter applies to whoever scored.
func UpdatePlayerStatistics(p PlayerStatistics, ab AtBat) PlayerStatistics {
	if p.PlayerID == ab.BatterID {
		if ab.Result.CountsAsAtBat() {
			p.AtBats++
		}
		if ab.Result.IsHit() {
			p.Hits++
			switch ab.Result {
			case ResultSingle:
				p.Singles++
			case ResultDouble:
				p.Doubles++
			case ResultTriple:
				p.Triples++
			case ResultHomeRun:
				p.HomeRuns++
			}
		}
		if ab.Result.IsWalk() {
			p.Walks++
		}
		if ab.Result == ResultStrikeout {
			p.Strikeouts++
		}
		if ab.Result == ResultSacFly {
			p.SacFlies++
		}
		p.RBIs += ab.RBIs
	}

	for _, id := range ab.RunsScored {
		if id == p.PlayerID {
			p.Runs++
		}
	}

	return p.recomputeRates()
}

// CalculateTeamStatistics sums raw counters across the roster and derives
// team rates from the sums.
func CalculateTeamStatistics(players []PlayerStatistics) TeamStatistics {
	var t TeamStatistics
	t.Players = len(players)
	for _, p := range players {
		t.AtBats += p.AtBats
		t.Hits += p.Hits
		t.Singles += p.Singles
		t.Doubles += p.Doubles
		t.Triples += p.Triples
		t.HomeRuns += p.HomeRuns
		t.Walks += p.Walks
		t.Strikeouts += p.Strikeouts
		t.SacFlies += p.SacFlies
		t.HitByPitch += p.HitByPitch
		t.Runs += p.Runs
		t.RBIs += p.RBIs
	}

	t.BattingAverage = round3(safeDiv(t.Hits, t.AtBats))
	t.OnBasePercentage = round3(safeDiv(t.Hits+t.Walks+t.HitByPitch,
		t.AtBats+t.Walks+t.HitByPitch+t.SacFlies))
	totalBases := t.Singles + 2*t.Doubles + 3*t.Triples + 4*t.HomeRuns
	t.SluggingPercentage = round3(safeDiv(totalBases, t.AtBats))
	t.OPS = round3(t.OnBasePercentage + t.SluggingPercentage)
	return t
}

// ValidateStatistics checks a statistics value for internal consistency.
func ValidateStatistics(p PlayerStatistics) ValidationResult {
	var errs []string

	for name, v := range map[string]int{
		"atBats": p.AtBats, "hits": p.Hits, "singles": p.Singles,
		"doubles": p.Doubles, "triples": p.Triples, "homeRuns": p.HomeRuns,
		"walks": p.Walks, "strikeouts": p.Strikeouts, "sacFlies": p.SacFlies,
		"hitByPitch": p.HitByPitch, "runs": p.Runs, "rbis": p.RBIs,
	} {
		if v < 0 {
			errs = append(errs, fmt.Sprintf("%s is negative: %d", name, v))
		}
	}

	if p.Hits > p.AtBats {
		errs = append(errs, fmt.Sprintf("hits (%d) exceed at-bats (%d)", p.Hits, p.AtBats))
	}
	if sum := p.Singles + p.Doubles + p.Triples + p.HomeRuns; sum != p.Hits {
		errs = append(errs, fmt.Sprintf("hit type counters sum to %d, hits are %d", sum, p.Hits))
	}
	if p.BattingAverage > 1.0 {
		errs = append(errs, fmt.Sprintf("batting average %.3f exceeds 1.000", p.BattingAverage))
	}
	if p.OnBasePercentage > 1.0 {
		errs = append(errs, fmt.Sprintf("on-base percentage %.3f exceeds 1.000", p.OnBasePercentage))
	}
	if p.SluggingPercentage > 4.0 {
		errs = append(errs, fmt.Sprintf("slugging percentage %.3f exceeds 4.000", p.SluggingPercentage))
	}

	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}
