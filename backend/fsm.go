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
	"io"
	"log"
	"sync/atomic"

	"github.com/hashicorp/raft"
)

// FSM implements the raft.FSM interface over the game and team stores.
// Every committed command is applied deterministically on every node; the
// per-document LastRaftIndex makes replay after restart idempotent.
type FSM struct {
	gs *GameStore
	ts *TeamStore
	hm *HubManager

	lastAppliedIndex atomic.Uint64
}

// NewFSM creates a new FSM.
func NewFSM(gs *GameStore, ts *TeamStore, hm *HubManager) *FSM {
	return &FSM{gs: gs, ts: ts, hm: hm}
}

// LastAppliedIndex returns the index of the last applied log entry.
func (f *FSM) LastAppliedIndex() uint64 {
	return f.lastAppliedIndex.Load()
}

// FlushAll persists all dirty in-memory state to disk.
func (f *FSM) FlushAll() error {
	return f.gs.FlushAll()
}

// Apply applies a committed Raft log entry to the stores. It returns the
// *ProcessedAtBatResult for scoring commands (so the proposing node can
// answer its HTTP request), or an error.
func (f *FSM) Apply(l *raft.Log) interface{} {
	defer f.lastAppliedIndex.Store(l.Index)

	var cmd RaftCommand
	if err := json.Unmarshal(l.Data, &cmd); err != nil {
		return fmt.Errorf("fsm: failed to unmarshal command: %w", err)
	}

	switch cmd.Type {
	case CmdSaveGame:
		if cmd.GameData == nil {
			return fmt.Errorf("fsm: SAVE_GAME without game data")
		}
		var g Game
		if err := json.Unmarshal(*cmd.GameData, &g); err != nil {
			return fmt.Errorf("fsm: bad game data: %w", err)
		}
		g.normalize()
		if existing, err := f.gs.LoadGame(g.ID); err == nil && !cmd.Force && existing.LastRaftIndex >= l.Index {
			return nil
		}
		g.LastRaftIndex = l.Index
		if err := f.gs.SaveGameInMemory(&g, false); err != nil {
			return err
		}
		return nil

	case CmdDeleteGame:
		return f.gs.DeleteGame(cmd.ID)

	case CmdApplyAtBat:
		if cmd.AtBat == nil {
			return fmt.Errorf("fsm: APPLY_AT_BAT without payload")
		}
		g, err := f.gs.LoadGame(cmd.ID)
		if err != nil {
			return fmt.Errorf("fsm: game %s: %w", cmd.ID, err)
		}
		if g.LastRaftIndex >= l.Index {
			return nil // already applied during replay
		}
		res, err := g.ApplyAtBat(cmd.AtBat.ID, cmd.AtBat.AtBat)
		if err != nil {
			return err
		}
		g.LastRaftIndex = l.Index
		if err := f.gs.SaveGameInMemory(g, false); err != nil {
			return err
		}
		f.hm.NotifyAtBat(g, res)
		return res

	case CmdApplyPitch:
		if cmd.Pitch == nil {
			return fmt.Errorf("fsm: APPLY_PITCH without payload")
		}
		g, err := f.gs.LoadGame(cmd.ID)
		if err != nil {
			return fmt.Errorf("fsm: game %s: %w", cmd.ID, err)
		}
		if g.LastRaftIndex >= l.Index {
			return nil
		}
		res, err := g.ApplyPitch(cmd.Pitch.Type)
		if err != nil {
			return err
		}
		g.LastRaftIndex = l.Index
		if err := f.gs.SaveGameInMemory(g, false); err != nil {
			return err
		}
		if res == nil {
			// Pitch did not complete the at-bat; return the new count.
			f.hm.NotifyCount(g)
			return &g.Session.Count
		}
		f.hm.NotifyAtBat(g, res)
		return res

	case CmdCorrectAtBat:
		if cmd.AtBat == nil {
			return fmt.Errorf("fsm: CORRECT_AT_BAT without payload")
		}
		g, err := f.gs.LoadGame(cmd.ID)
		if err != nil {
			return fmt.Errorf("fsm: game %s: %w", cmd.ID, err)
		}
		if g.LastRaftIndex >= l.Index {
			return nil
		}
		ab, err := g.CorrectAtBatRecord(cmd.AtBat.ID, cmd.AtBat.AtBat)
		if err != nil {
			return err
		}
		g.LastRaftIndex = l.Index
		if err := f.gs.SaveGameInMemory(g, false); err != nil {
			return err
		}
		return ab

	case CmdUpdateLineup:
		if cmd.Lineup == nil {
			return fmt.Errorf("fsm: UPDATE_LINEUP without payload")
		}
		g, err := f.gs.LoadGame(cmd.ID)
		if err != nil {
			return fmt.Errorf("fsm: game %s: %w", cmd.ID, err)
		}
		if g.LastRaftIndex >= l.Index {
			return nil
		}
		if err := g.UpdateLineup(cmd.Lineup.Team, cmd.Lineup.Lineup); err != nil {
			return err
		}
		g.LastRaftIndex = l.Index
		return f.gs.SaveGameInMemory(g, false)

	case CmdSaveTeam:
		if cmd.TeamData == nil {
			return fmt.Errorf("fsm: SAVE_TEAM without team data")
		}
		var t Team
		if err := json.Unmarshal(*cmd.TeamData, &t); err != nil {
			return fmt.Errorf("fsm: bad team data: %w", err)
		}
		t.normalize()
		if existing, err := f.ts.LoadTeam(t.ID); err == nil && !cmd.Force && existing.LastRaftIndex >= l.Index {
			return nil
		}
		t.LastRaftIndex = l.Index
		return f.ts.SaveTeam(&t)

	case CmdDeleteTeam:
		return f.ts.DeleteTeam(cmd.ID)
	}

	return fmt.Errorf("fsm: unknown command type %q", cmd.Type)
}

// fsmSnapshotDoc is the serialized form of the full store state.
type fsmSnapshotDoc struct {
	Games []*Game `json:"games"`
	Teams []*Team `json:"teams"`
}

// Snapshot captures all games and teams for log compaction.
func (f *FSM) Snapshot() (raft.FSMSnapshot, error) {
	if err := f.gs.FlushAll(); err != nil {
		return nil, err
	}

	var doc fsmSnapshotDoc
	for g, err := range f.gs.ListAllGames() {
		if err != nil {
			return nil, err
		}
		doc.Games = append(doc.Games, g)
	}
	for t, err := range f.ts.ListAllTeams() {
		if err != nil {
			return nil, err
		}
		doc.Teams = append(doc.Teams, t)
	}

	data, err := json.Marshal(&doc)
	if err != nil {
		return nil, err
	}
	return &fsmSnapshot{data: data}, nil
}

// Restore replaces the store state from a snapshot stream.
func (f *FSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()

	var doc fsmSnapshotDoc
	if err := json.NewDecoder(rc).Decode(&doc); err != nil {
		return fmt.Errorf("fsm: failed to decode snapshot: %w", err)
	}

	for _, g := range doc.Games {
		g.normalize()
		if err := f.gs.SaveGame(g); err != nil {
			return fmt.Errorf("fsm: restore game %s: %w", g.ID, err)
		}
	}
	for _, t := range doc.Teams {
		t.normalize()
		if err := f.ts.SaveTeam(t); err != nil {
			return fmt.Errorf("fsm: restore team %s: %w", t.ID, err)
		}
	}

	log.Printf("FSM restored from snapshot: %d games, %d teams", len(doc.Games), len(doc.Teams))
	return nil
}

type fsmSnapshot struct {
	data []byte
}

func (s *fsmSnapshot) Persist(sink raft.SnapshotSink) error {
	if _, err := sink.Write(s.data); err != nil {
		sink.Cancel()
		return err
	}
	return sink.Close()
}

func (s *fsmSnapshot) Release() {}
