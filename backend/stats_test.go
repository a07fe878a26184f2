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
	"testing"
)

func TestCalculateRBIs(t *testing.T) {
	loaded := BaserunnerState{First: "r1", Second: "r2", Third: "r3"}

	for _, tc := range []struct {
		name   string
		result BattingResult
		before BaserunnerState
		runs   []string
		want   int
	}{
		{"error never credits RBIs", ResultError, loaded, []string{"r3"}, 0},
		{"bases loaded walk", ResultWalk, loaded, []string{"r3"}, 1},
		{"walk with an open base", ResultWalk, BaserunnerState{First: "r1"}, nil, 0},
		{"intentional walk loaded", ResultIntentionalWalk, loaded, []string{"r3"}, 1},
		{"single scoring two", ResultSingle, BaserunnerState{Second: "r2", Third: "r3"}, []string{"r2", "r3"}, 2},
		{"grand slam caps at four", ResultHomeRun, loaded, []string{"r1", "r2", "r3", "bat"}, 4},
		{"sacrifice fly", ResultSacFly, BaserunnerState{Third: "r3"}, []string{"r3"}, 1},
		{"out with nobody scoring", ResultGroundOut, loaded, nil, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, _ := CalculateRBIs(tc.result, tc.before, tc.runs, "bat")
			if got != tc.want {
				t.Errorf("CalculateRBIs = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestUpdatePlayerStatistics(t *testing.T) {
	p := PlayerStatistics{PlayerID: "p1"}

	p = UpdatePlayerStatistics(p, AtBat{BatterID: "p1", Result: ResultSingle})
	p = UpdatePlayerStatistics(p, AtBat{BatterID: "p1", Result: ResultHomeRun, RBIs: 1, RunsScored: []string{"p1"}})
	p = UpdatePlayerStatistics(p, AtBat{BatterID: "p1", Result: ResultWalk})
	p = UpdatePlayerStatistics(p, AtBat{BatterID: "p1", Result: ResultStrikeout})
	p = UpdatePlayerStatistics(p, AtBat{BatterID: "p1", Result: ResultSacFly, RBIs: 1})

	if p.AtBats != 3 {
		t.Errorf("AtBats = %d, want 3 (walk and sac fly excluded)", p.AtBats)
	}
	if p.Hits != 2 || p.Singles != 1 || p.HomeRuns != 1 {
		t.Errorf("hit counters = %d/%d/%d, want 2/1/1", p.Hits, p.Singles, p.HomeRuns)
	}
	if p.Walks != 1 || p.Strikeouts != 1 || p.SacFlies != 1 {
		t.Errorf("walks/strikeouts/sacFlies = %d/%d/%d, want 1/1/1", p.Walks, p.Strikeouts, p.SacFlies)
	}
	if p.Runs != 1 || p.RBIs != 2 {
		t.Errorf("runs/rbis = %d/%d, want 1/2", p.Runs, p.RBIs)
	}

	// 2 hits in 3 at-bats; OBP (2+1)/(3+1+1); SLG (1+4)/3.
	if p.BattingAverage != 0.667 {
		t.Errorf("BattingAverage = %v, want 0.667", p.BattingAverage)
	}
	if p.OnBasePercentage != 0.6 {
		t.Errorf("OnBasePercentage = %v, want 0.6", p.OnBasePercentage)
	}
	if p.SluggingPercentage != 1.667 {
		t.Errorf("SluggingPercentage = %v, want 1.667", p.SluggingPercentage)
	}
	if p.OPS != 2.267 {
		t.Errorf("OPS = %v, want 2.267", p.OPS)
	}
}

func TestUpdatePlayerStatisticsRunnerOnly(t *testing.T) {
	p := PlayerStatistics{PlayerID: "r2"}
	p = UpdatePlayerStatistics(p, AtBat{BatterID: "p1", Result: ResultDouble, RBIs: 1, RunsScored: []string{"r2"}})

	if p.AtBats != 0 || p.Hits != 0 || p.RBIs != 0 {
		t.Errorf("batting counters leaked to a runner: %+v", p)
	}
	if p.Runs != 1 {
		t.Errorf("Runs = %d, want 1", p.Runs)
	}
}

func TestUpdatePlayerStatisticsZeroDenominators(t *testing.T) {
	p := UpdatePlayerStatistics(PlayerStatistics{PlayerID: "p1"}, AtBat{BatterID: "other", Result: ResultSingle})
	if p.BattingAverage != 0 || p.OnBasePercentage != 0 || p.SluggingPercentage != 0 || p.OPS != 0 {
		t.Errorf("rates with zero denominators should be 0, got %+v", p)
	}
}

func TestCalculateTeamStatistics(t *testing.T) {
	players := []PlayerStatistics{
		{PlayerID: "p1", AtBats: 4, Hits: 2, Singles: 1, Doubles: 1, Walks: 1, Runs: 2, RBIs: 1},
		{PlayerID: "p2", AtBats: 3, Hits: 1, HomeRuns: 1, Strikeouts: 2, Runs: 1, RBIs: 2},
		{PlayerID: "p3", AtBats: 3, SacFlies: 1, RBIs: 1},
	}
	got := CalculateTeamStatistics(players)

	if got.Players != 3 || got.AtBats != 10 || got.Hits != 3 || got.Runs != 3 || got.RBIs != 4 {
		t.Errorf("sums wrong: %+v", got)
	}
	// BA 3/10; OBP (3+1)/(10+1+1); SLG (1+2+4)/10.
	if got.BattingAverage != 0.3 {
		t.Errorf("BattingAverage = %v, want 0.3", got.BattingAverage)
	}
	if got.OnBasePercentage != 0.333 {
		t.Errorf("OnBasePercentage = %v, want 0.333", got.OnBasePercentage)
	}
	if got.SluggingPercentage != 0.7 {
		t.Errorf("SluggingPercentage = %v, want 0.7", got.SluggingPercentage)
	}
	if got.OPS != 1.033 {
		t.Errorf("OPS = %v, want 1.033", got.OPS)
	}
}

func TestCalculateTeamStatisticsEmpty(t *testing.T) {
	got := CalculateTeamStatistics(nil)
	if got.Players != 0 || got.BattingAverage != 0 || got.OPS != 0 {
		t.Errorf("empty roster: %+v", got)
	}
}

func TestValidateStatistics(t *testing.T) {
	valid := PlayerStatistics{PlayerID: "p1", AtBats: 4, Hits: 2, Singles: 2}.recomputeRates()
	if res := ValidateStatistics(valid); !res.IsValid {
		t.Errorf("valid statistics rejected: %v", res.Errors)
	}

	for _, tc := range []struct {
		name string
		p    PlayerStatistics
	}{
		{"negative counter", PlayerStatistics{AtBats: -1}},
		{"hits exceed at-bats", PlayerStatistics{AtBats: 1, Hits: 2, Singles: 2}},
		{"hit types do not sum to hits", PlayerStatistics{AtBats: 4, Hits: 2, Singles: 1}},
		{"batting average above one", PlayerStatistics{BattingAverage: 1.5}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if res := ValidateStatistics(tc.p); res.IsValid {
				t.Error("invalid statistics accepted")
			}
		})
	}
}
