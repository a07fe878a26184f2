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

func TestUpdateCount(t *testing.T) {
	for _, tc := range []struct {
		name       string
		count      Count
		pitch      string
		wantCount  Count
		wantResult BattingResult
	}{
		{"first ball", Count{}, PitchTypeBall, Count{Balls: 1}, ""},
		{"ball four walks", Count{Balls: 3}, PitchTypeBall, Count{Balls: 4}, ResultWalk},
		{"first strike", Count{}, PitchTypeStrike, Count{Strikes: 1}, ""},
		{"strike three strikes out", Count{Strikes: 2}, PitchTypeStrike, Count{Strikes: 3}, ResultStrikeout},
		{"foul counts as a strike", Count{}, PitchTypeFoul, Count{Strikes: 1}, ""},
		{"foul with one strike", Count{Strikes: 1}, PitchTypeFoul, Count{Strikes: 2}, ""},
		{"foul with two strikes holds", Count{Balls: 2, Strikes: 2}, PitchTypeFoul, Count{Balls: 2, Strikes: 2}, ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			gotCount, gotResult, err := UpdateCount(tc.count, tc.pitch)
			if err != nil {
				t.Fatalf("UpdateCount: %v", err)
			}
			if gotCount != tc.wantCount {
				t.Errorf("count = %+v, want %+v", gotCount, tc.wantCount)
			}
			if gotResult != tc.wantResult {
				t.Errorf("result = %q, want %q", gotResult, tc.wantResult)
			}
		})
	}

	if _, _, err := UpdateCount(Count{}, "knuckleball"); err == nil {
		t.Error("unknown pitch type accepted")
	}
}

func TestSessionProcessAtBat(t *testing.T) {
	s := NewGameSessionState("p1")
	s.Count = Count{Balls: 2, Strikes: 1}

	next, adv, ended, err := s.ProcessAtBat("p1", ResultSingle)
	if err != nil {
		t.Fatalf("ProcessAtBat: %v", err)
	}
	if ended {
		t.Error("single should not end the half-inning")
	}
	if next.Outs != 0 {
		t.Errorf("Outs = %d, want 0", next.Outs)
	}
	if next.Count != (Count{}) {
		t.Errorf("count not reset: %+v", next.Count)
	}
	if next.Baserunners.First != "p1" {
		t.Errorf("batter not on first: %+v", next.Baserunners)
	}
	if adv.BatterBase != BaseFirst {
		t.Errorf("BatterBase = %q", adv.BatterBase)
	}
}

func TestSessionProcessAtBatThirdOut(t *testing.T) {
	s := NewGameSessionState("p1")
	s.Outs = 2
	s.Baserunners = BaserunnerState{First: "r1", Third: "r3"}

	next, _, ended, err := s.ProcessAtBat("p1", ResultGroundOut)
	if err != nil {
		t.Fatalf("ProcessAtBat: %v", err)
	}
	if !ended {
		t.Error("third out should end the half-inning")
	}
	if next.Outs != 0 {
		t.Errorf("Outs = %d, want 0 after the half-inning ends", next.Outs)
	}
	if !next.Baserunners.IsEmpty() {
		t.Errorf("bases not cleared: %+v", next.Baserunners)
	}
}

func TestSessionProcessAtBatDoublePlay(t *testing.T) {
	s := NewGameSessionState("p1")
	s.Outs = 1
	s.Baserunners = BaserunnerState{First: "r1"}

	_, _, ended, err := s.ProcessAtBat("p1", ResultDoublePlay)
	if err != nil {
		t.Fatalf("ProcessAtBat: %v", err)
	}
	if !ended {
		t.Error("double play with one out should end the half-inning")
	}
}

func TestAdvanceInning(t *testing.T) {
	lineup := testLineup("a1", "a2", "a3")

	top := GameSessionState{Inning: 3, IsTop: true, Outs: 3, Count: Count{Balls: 1}, Baserunners: BaserunnerState{First: "r1"}}
	next, completion := AdvanceInning(top, Score{Home: 1, Away: 2}, lineup)
	if completion.Complete {
		t.Errorf("mid-game transition reported completion: %+v", completion)
	}
	if next.Inning != 3 || next.IsTop {
		t.Errorf("top of 3 should roll to bottom of 3, got inning %d top=%v", next.Inning, next.IsTop)
	}
	if next.Outs != 0 || next.Count != (Count{}) || !next.Baserunners.IsEmpty() {
		t.Errorf("state not reset: %+v", next)
	}
	if next.CurrentBatterID != "a1" {
		t.Errorf("CurrentBatterID = %q, want leadoff a1", next.CurrentBatterID)
	}

	bottom := GameSessionState{Inning: 3, IsTop: false}
	next, _ = AdvanceInning(bottom, Score{}, lineup)
	if next.Inning != 4 || !next.IsTop {
		t.Errorf("bottom of 3 should roll to top of 4, got inning %d top=%v", next.Inning, next.IsTop)
	}
}

func TestAdvanceInningCompletion(t *testing.T) {
	for _, tc := range []struct {
		name       string
		state      GameSessionState
		score      Score
		wantDone   bool
		wantReason string
	}{
		{
			name:     "bottom of the seventh, tied, goes to extras",
			state:    GameSessionState{Inning: 7, IsTop: false},
			score:    Score{Home: 3, Away: 3},
			wantDone: false,
		},
		{
			name:       "bottom of the seventh with a lead ends in regulation",
			state:      GameSessionState{Inning: 7, IsTop: false},
			score:      Score{Home: 5, Away: 3},
			wantDone:   true,
			wantReason: CompletionRegulation,
		},
		{
			name:     "top of the seventh never ends the game",
			state:    GameSessionState{Inning: 7, IsTop: true},
			score:    Score{Home: 5, Away: 3},
			wantDone: false,
		},
		{
			name:       "extra innings end once the tie breaks",
			state:      GameSessionState{Inning: 9, IsTop: false},
			score:      Score{Home: 4, Away: 5},
			wantDone:   true,
			wantReason: CompletionRegulation,
		},
		{
			name:       "ten-run lead after the fifth invokes the mercy rule",
			state:      GameSessionState{Inning: 5, IsTop: false},
			score:      Score{Home: 12, Away: 2},
			wantDone:   true,
			wantReason: CompletionMercyRule,
		},
		{
			name:       "mercy rule applies to the visiting team too",
			state:      GameSessionState{Inning: 5, IsTop: false},
			score:      Score{Home: 0, Away: 10},
			wantDone:   true,
			wantReason: CompletionMercyRule,
		},
		{
			name:     "ten-run lead in the fourth is not yet mercy",
			state:    GameSessionState{Inning: 4, IsTop: false},
			score:    Score{Home: 12, Away: 2},
			wantDone: false,
		},
		{
			name:     "nine-run lead in the fifth is not mercy",
			state:    GameSessionState{Inning: 5, IsTop: false},
			score:    Score{Home: 9, Away: 0},
			wantDone: false,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, completion := AdvanceInning(tc.state, tc.score, nil)
			if completion.Complete != tc.wantDone {
				t.Fatalf("Complete = %v, want %v", completion.Complete, tc.wantDone)
			}
			if completion.Reason != tc.wantReason {
				t.Errorf("Reason = %q, want %q", completion.Reason, tc.wantReason)
			}
		})
	}
}

func TestValidateGameState(t *testing.T) {
	good := GameSessionState{Inning: 1, IsTop: true}
	if res := ValidateGameState(good, &Score{Home: 2, Away: 1}); !res.IsValid {
		t.Errorf("valid state rejected: %v", res.Errors)
	}

	for _, tc := range []struct {
		name  string
		state GameSessionState
		score *Score
	}{
		{"inning zero", GameSessionState{Inning: 0}, nil},
		{"too many outs", GameSessionState{Inning: 1, Outs: 4}, nil},
		{"ball count out of range", GameSessionState{Inning: 1, Count: Count{Balls: 5}}, nil},
		{"strike count out of range", GameSessionState{Inning: 1, Count: Count{Strikes: 4}}, nil},
		{"duplicate baserunner", GameSessionState{Inning: 1, Baserunners: BaserunnerState{First: "x", Second: "x"}}, nil},
		{"negative score", GameSessionState{Inning: 1}, &Score{Home: -1}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if res := ValidateGameState(tc.state, tc.score); res.IsValid {
				t.Error("invalid state accepted")
			}
		})
	}
}
