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

// Schema Versions
const (
	SchemaVersionV1 = 1

	CurrentSchemaVersion = SchemaVersionV1
	CurrentAppVersion    = "0.1.0"
)

// Pitch Types
const (
	PitchTypeBall   = "ball"
	PitchTypeStrike = "strike"
	PitchTypeFoul   = "foul"
)

// Bases
const (
	BaseFirst  = "first"
	BaseSecond = "second"
	BaseThird  = "third"
	BaseHome   = "home"
)

// Manual advancement targets for runners already on base.
const (
	AdvanceStay   = "stay"
	AdvanceSecond = "second"
	AdvanceThird  = "third"
	AdvanceHome   = "home"
	AdvanceOut    = "out"
)

// Teams
const (
	TeamAway = "away"
	TeamHome = "home"
)

// Game Statuses
const (
	GameStatusInProgress = "in-progress"
	GameStatusFinal      = "final"
	GameStatusDeleted    = "deleted"
)

// Game completion reasons.
const (
	CompletionRegulation = "regulation"
	CompletionMercyRule  = "mercy-rule"
)

// Game rules.
const (
	RegulationInnings = 7
	MercyRuleInning   = 5
	MercyRuleRunDiff  = 10
	BallsPerWalk      = 4
	StrikesPerOut     = 3
	OutsPerHalfInning = 3
	MaxRBIsPerAtBat   = 4
)
