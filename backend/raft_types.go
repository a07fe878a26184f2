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
)

// CommandType represents the type of operation to perform on the FSM.
type CommandType string

const (
	CmdSaveGame     CommandType = "SAVE_GAME"
	CmdDeleteGame   CommandType = "DELETE_GAME"
	CmdApplyAtBat   CommandType = "APPLY_AT_BAT"
	CmdApplyPitch   CommandType = "APPLY_PITCH"
	CmdCorrectAtBat CommandType = "CORRECT_AT_BAT"
	CmdUpdateLineup CommandType = "UPDATE_LINEUP"
	CmdSaveTeam     CommandType = "SAVE_TEAM"
	CmdDeleteTeam   CommandType = "DELETE_TEAM"
)

// RaftCommand is a unified structure for all Raft log entries.
type RaftCommand struct {
	Type     CommandType          `json:"type"`
	ID       string               `json:"id,omitempty"` // game or team id
	GameData *json.RawMessage     `json:"gameData,omitempty"`
	TeamData *json.RawMessage     `json:"teamData,omitempty"`
	AtBat    *AtBatPayload        `json:"atBat,omitempty"`
	Pitch    *PitchPayload        `json:"pitch,omitempty"`
	Lineup   *LineupUpdatePayload `json:"lineup,omitempty"`

	// Force bypasses the per-document idempotency check, used when
	// re-ingesting pre-raft data into a fresh log.
	Force bool `json:"force,omitempty"`
}
