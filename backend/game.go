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
	"sort"
	"time"
)

// Player represents a player in a lineup or roster.
type Player struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Number string `json:"number,omitempty"`
	Pos    string `json:"pos,omitempty"`
}

// Permissions defines access control for a game.
type Permissions struct {
	Public string            `json:"public"` // "none", "read"
	Users  map[string]string `json:"users"`  // "email": "read"|"write"
}

// Game is the full game document as stored on disk: metadata, lineups, the
// live session state, the score, and the ordered log of resolved at-bats.
type Game struct {
	ID            string      `json:"id"`
	SchemaVersion int         `json:"schemaVersion"`
	Date          string      `json:"date,omitempty"`
	Location      string      `json:"location,omitempty"`
	Event         string      `json:"event,omitempty"`
	Away          string      `json:"away,omitempty"`
	Home          string      `json:"home,omitempty"`
	Status        string      `json:"status"`
	OwnerID       string      `json:"ownerId"`
	Permissions   Permissions `json:"permissions,omitempty"`
	AwayTeamID    string      `json:"awayTeamId,omitempty"`
	HomeTeamID    string      `json:"homeTeamId,omitempty"`

	Lineups    map[string][]Player `json:"lineups,omitempty"` // keyed "away"/"home"
	Session    GameSessionState    `json:"session"`
	Score      Score               `json:"score"`
	LineScore  map[string][]int    `json:"lineScore,omitempty"` // runs per inning
	Completion GameCompletion      `json:"completion"`
	AtBats     []AtBat             `json:"atBats,omitempty"`

	// DeletedAt is the timestamp (Unix Nano) when the game was deleted.
	DeletedAt int64 `json:"deletedAt,omitempty"`

	// LastRaftIndex tracks the index of the last Raft log entry applied to
	// this game. Used for idempotency during log replay.
	LastRaftIndex uint64 `json:"lastRaftIndex,omitempty"`
}

func (g *Game) normalize() {
	if g.SchemaVersion == 0 {
		g.SchemaVersion = CurrentSchemaVersion
	}
	if g.Status == "" {
		g.Status = GameStatusInProgress
	}
	if g.Permissions.Users == nil {
		g.Permissions.Users = make(map[string]string)
	}
	if g.Lineups == nil {
		g.Lineups = make(map[string][]Player)
	}
	if g.LineScore == nil {
		g.LineScore = map[string][]int{TeamAway: {}, TeamHome: {}}
	}
	if g.AtBats == nil {
		g.AtBats = make([]AtBat, 0)
	}
	if g.Session.Inning == 0 {
		g.Session = NewGameSessionState(firstBatter(g.Lineups[TeamAway]))
	}
}

func firstBatter(lineup []Player) string {
	if len(lineup) == 0 {
		return ""
	}
	return lineup[0].ID
}

// BattingTeam returns which team is at bat ("away" in the top half).
func (g *Game) BattingTeam() string {
	if g.Session.IsTop {
		return TeamAway
	}
	return TeamHome
}

// BattingLineup returns the lineup of the team currently at bat.
func (g *Game) BattingLineup() []Player {
	return g.Lineups[g.BattingTeam()]
}

// addRuns credits runs to the batting team in both the total and the line
// score column for the current inning.
func (g *Game) addRuns(n int) {
	if n == 0 {
		return
	}
	team := g.BattingTeam()
	if team == TeamHome {
		g.Score.Home += n
	} else {
		g.Score.Away += n
	}
	col := g.LineScore[team]
	for len(col) < g.Session.Inning {
		col = append(col, 0)
	}
	col[g.Session.Inning-1] += n
	g.LineScore[team] = col
}

// ApplyAtBat runs the full at-bat pipeline against the game document:
// validate, orchestrate, score, advance the session, and append the
// immutable record. The receiver is mutated; callers own a freshly loaded
// copy and persist it wholesale on success.
func (g *Game) ApplyAtBat(atBatID string, data AtBatData) (*ProcessedAtBatResult, error) {
	if g.Status == GameStatusFinal {
		return nil, fmt.Errorf("game %s is final", g.ID)
	}

	lineup := g.BattingLineup()
	res, err := ProcessAtBat(data, g.Session.Baserunners, g.Session.Outs, lineup)
	if err != nil {
		return nil, err
	}

	g.addRuns(len(res.RunsScored))
	res.ScoreUpdate = &Score{Home: g.Score.Home, Away: g.Score.Away}

	g.AtBats = append(g.AtBats, BuildAtBat(atBatID, data, g.Session.Baserunners, res, time.Now().UnixNano()))

	g.Session.Baserunners = res.FinalBaserunnerState
	g.Session.Outs += res.OutsProduced
	g.Session.Count = Count{}
	g.Session.CurrentBatterID = res.NextBatterID

	if res.ShouldAdvanceInning {
		g.advanceInning()
	}
	return &res, nil
}

// ApplyPitch applies one pitch to the live count. When the pitch completes
// the plate appearance (ball four, strike three), the auto-completed at-bat
// is processed through the same pipeline and its result returned.
func (g *Game) ApplyPitch(pitch string) (*ProcessedAtBatResult, error) {
	if g.Status == GameStatusFinal {
		return nil, fmt.Errorf("game %s is final", g.ID)
	}

	count, completed, err := UpdateCount(g.Session.Count, pitch)
	if err != nil {
		return nil, err
	}
	g.Session.Count = count
	if completed == "" {
		return nil, nil
	}

	batter := g.Session.CurrentBatterID
	lineup := g.BattingLineup()
	if batter == "" {
		batter = firstBatter(lineup)
	}

	res, err := ProcessAutoCompletedAtBat(completed, batter, g.Session.Baserunners, g.Session.Outs, lineup)
	if err != nil {
		return nil, err
	}

	g.addRuns(len(res.RunsScored))
	res.ScoreUpdate = &Score{Home: g.Score.Home, Away: g.Score.Away}

	data := AtBatData{BatterID: batter, Result: string(completed), FinalCount: count}
	g.AtBats = append(g.AtBats, BuildAtBat(NewID(), data, g.Session.Baserunners, res, time.Now().UnixNano()))

	g.Session.Baserunners = res.FinalBaserunnerState
	g.Session.Outs += res.OutsProduced
	g.Session.Count = Count{}
	g.Session.CurrentBatterID = res.NextBatterID

	if res.ShouldAdvanceInning {
		g.advanceInning()
	}
	return &res, nil
}

// CorrectAtBatRecord rewrites a previously recorded at-bat. The corrected
// input is replayed against the original pre-play state so every derived
// field is recomputed together; statistics recompute from the log and pick
// the correction up automatically. The live session and the score are not
// rewound.
func (g *Game) CorrectAtBatRecord(atBatID string, data AtBatData) (*AtBat, error) {
	for i := range g.AtBats {
		if g.AtBats[i].ID != atBatID {
			continue
		}
		lineup := g.lineupOf(data.BatterID)
		fixed, err := CorrectAtBat(g.AtBats[i], data, 0, lineup, time.Now().UnixNano())
		if err != nil {
			return nil, err
		}
		g.AtBats[i] = fixed
		return &g.AtBats[i], nil
	}
	return nil, fmt.Errorf("at-bat %s not found in game %s", atBatID, g.ID)
}

// lineupOf returns the lineup containing the given player, falling back to
// the batting team's lineup.
func (g *Game) lineupOf(playerID string) []Player {
	for _, lineup := range g.Lineups {
		for _, p := range lineup {
			if p.ID == playerID {
				return lineup
			}
		}
	}
	return g.BattingLineup()
}

// UpdateLineup replaces one team's lineup. If the session has no current
// batter yet and the updated team is at bat, the leadoff hitter becomes the
// current batter.
func (g *Game) UpdateLineup(team string, lineup []Player) error {
	if team != TeamAway && team != TeamHome {
		return fmt.Errorf("invalid team %q", team)
	}
	if err := validateLineup(lineup); err != nil {
		return err
	}
	g.Lineups[team] = lineup
	if g.Session.CurrentBatterID == "" && g.BattingTeam() == team {
		g.Session.CurrentBatterID = firstBatter(lineup)
	}
	return nil
}

// advanceInning rotates the session to the next half-inning and finalizes
// the game when the transition completes it.
func (g *Game) advanceInning() {
	// Outs and bases were already cleared by the orchestrator path; the
	// session engine resets them again and reassigns the leadoff batter.
	nextHalfTop := !g.Session.IsTop
	var lineup []Player
	if nextHalfTop {
		lineup = g.Lineups[TeamAway]
	} else {
		lineup = g.Lineups[TeamHome]
	}
	next, completion := AdvanceInning(g.Session, g.Score, lineup)
	g.Session = next
	if completion.Complete {
		g.Completion = completion
		g.Status = GameStatusFinal
	}
}

// PlayerStatistics recomputes batting statistics for every player appearing
// in the at-bat log, sorted by player id for stable output.
func (g *Game) PlayerStatistics() []PlayerStatistics {
	names := make(map[string]string)
	for _, lineup := range g.Lineups {
		for _, p := range lineup {
			names[p.ID] = p.Name
		}
	}

	stats := make(map[string]PlayerStatistics)
	touch := func(id string) PlayerStatistics {
		if s, ok := stats[id]; ok {
			return s
		}
		return PlayerStatistics{PlayerID: id, PlayerName: names[id]}
	}

	for _, ab := range g.AtBats {
		stats[ab.BatterID] = UpdatePlayerStatistics(touch(ab.BatterID), ab)
		for _, id := range ab.RunsScored {
			if id == ab.BatterID {
				continue
			}
			stats[id] = UpdatePlayerStatistics(touch(id), ab)
		}
	}

	ids := make([]string, 0, len(stats))
	for id := range stats {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]PlayerStatistics, 0, len(ids))
	for _, id := range ids {
		out = append(out, stats[id])
	}
	return out
}

// TeamStatisticsFor aggregates batting statistics for one team's lineup.
func (g *Game) TeamStatisticsFor(team string) TeamStatistics {
	members := make(map[string]bool)
	for _, p := range g.Lineups[team] {
		members[p.ID] = true
	}
	var players []PlayerStatistics
	for _, s := range g.PlayerStatistics() {
		if members[s.PlayerID] {
			players = append(players, s)
		}
	}
	return CalculateTeamStatistics(players)
}
