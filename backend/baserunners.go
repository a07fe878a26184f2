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

import "fmt"

// BaserunnerState captures base occupancy by player id. The empty string
// means the base is unoccupied. It is a value type: transitions always
// produce a new state, never edit one in place.
type BaserunnerState struct {
	First  string `json:"first,omitempty"`
	Second string `json:"second,omitempty"`
	Third  string `json:"third,omitempty"`
}

// Runner returns the occupant of the named base, or "".
func (s BaserunnerState) Runner(base string) string {
	switch base {
	case BaseFirst:
		return s.First
	case BaseSecond:
		return s.Second
	case BaseThird:
		return s.Third
	}
	return ""
}

// Occupied reports whether the named base has a runner.
func (s BaserunnerState) Occupied(base string) bool {
	return s.Runner(base) != ""
}

// IsEmpty reports whether no base is occupied.
func (s BaserunnerState) IsEmpty() bool {
	return s.First == "" && s.Second == "" && s.Third == ""
}

// IsLoaded reports whether all three bases are occupied.
func (s BaserunnerState) IsLoaded() bool {
	return s.First != "" && s.Second != "" && s.Third != ""
}

// Runners returns the occupying player ids in base order (first, second,
// third), skipping empty bases.
func (s BaserunnerState) Runners() []string {
	ids := make([]string, 0, 3)
	for _, id := range []string{s.First, s.Second, s.Third} {
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// BaseOf returns the base occupied by the player, or "".
func (s BaserunnerState) BaseOf(playerID string) string {
	if playerID == "" {
		return ""
	}
	switch playerID {
	case s.First:
		return BaseFirst
	case s.Second:
		return BaseSecond
	case s.Third:
		return BaseThird
	}
	return ""
}

// LeadRunnerBase returns the occupied base closest to home, or "".
func (s BaserunnerState) LeadRunnerBase() string {
	switch {
	case s.Third != "":
		return BaseThird
	case s.Second != "":
		return BaseSecond
	case s.First != "":
		return BaseFirst
	}
	return ""
}

// Validate checks the single-occupancy invariant: a player id appears in at
// most one slot.
func (s BaserunnerState) Validate() error {
	seen := make(map[string]string, 3)
	for _, base := range []string{BaseFirst, BaseSecond, BaseThird} {
		id := s.Runner(base)
		if id == "" {
			continue
		}
		if prev, ok := seen[id]; ok {
			return fmt.Errorf("player %s occupies both %s and %s", id, prev, base)
		}
		seen[id] = base
	}
	return nil
}

// baseNumber maps a base name to its ordinal (first=1 .. home=4).
func baseNumber(base string) int {
	switch base {
	case BaseFirst:
		return 1
	case BaseSecond:
		return 2
	case BaseThird:
		return 3
	case BaseHome:
		return 4
	}
	return 0
}
