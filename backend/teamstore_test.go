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
	"os"
	"testing"

	"github.com/c2FmZQ/storage"
)

func newTestTeamStore(t *testing.T) *TeamStore {
	t.Helper()
	tmpDir := t.TempDir()
	return NewTeamStore(tmpDir, storage.New(tmpDir, nil))
}

func TestTeamStoreSaveLoad(t *testing.T) {
	ts := newTestTeamStore(t)

	team := &Team{
		ID:      "team-1",
		Name:    "Thunder",
		OwnerID: "owner@example.com",
		Roster:  testLineup("p1", "p2"),
	}
	if err := ts.SaveTeam(team); err != nil {
		t.Fatalf("SaveTeam: %v", err)
	}

	loaded, err := ts.LoadTeam("team-1")
	if err != nil {
		t.Fatalf("LoadTeam: %v", err)
	}
	if loaded.Name != "Thunder" || len(loaded.Roster) != 2 {
		t.Errorf("loaded = %+v", loaded)
	}
	if loaded.SchemaVersion != CurrentSchemaVersion {
		t.Errorf("SchemaVersion = %d", loaded.SchemaVersion)
	}
	if loaded.Roles.Admins == nil || loaded.Roles.Scorekeepers == nil || loaded.Roles.Spectators == nil {
		t.Errorf("roles not normalized: %+v", loaded.Roles)
	}

	if _, err := ts.LoadTeam("missing"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing team: err = %v, want os.ErrNotExist", err)
	}
}

func TestTeamStoreDeleteLeavesTombstone(t *testing.T) {
	ts := newTestTeamStore(t)

	team := &Team{ID: "team-1", Name: "Thunder", OwnerID: "owner@example.com"}
	if err := ts.SaveTeam(team); err != nil {
		t.Fatalf("SaveTeam: %v", err)
	}
	if err := ts.DeleteTeam("team-1"); err != nil {
		t.Fatalf("DeleteTeam: %v", err)
	}

	loaded, err := ts.LoadTeam("team-1")
	if err != nil {
		t.Fatalf("LoadTeam after delete: %v", err)
	}
	if loaded.Status != GameStatusDeleted || loaded.DeletedAt == 0 {
		t.Errorf("tombstone = %+v", loaded)
	}
	if loaded.Name != "" {
		t.Errorf("tombstone kept the name: %q", loaded.Name)
	}
	if loaded.OwnerID != "owner@example.com" {
		t.Errorf("tombstone lost the owner: %q", loaded.OwnerID)
	}

	if err := ts.DeleteTeam("missing"); err != nil {
		t.Errorf("DeleteTeam(missing): %v", err)
	}
}

func TestTeamStorePurge(t *testing.T) {
	ts := newTestTeamStore(t)

	team := &Team{ID: "team-1"}
	if err := ts.SaveTeam(team); err != nil {
		t.Fatalf("SaveTeam: %v", err)
	}
	if err := ts.PurgeTeam("team-1"); err != nil {
		t.Fatalf("PurgeTeam: %v", err)
	}
	if _, err := ts.LoadTeam("team-1"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("purged team still loads: err = %v", err)
	}
}

func TestTeamStoreListAllTeams(t *testing.T) {
	ts := newTestTeamStore(t)

	want := map[string]bool{"t1": false, "t2": false, "t3": false}
	for id := range want {
		if err := ts.SaveTeam(&Team{ID: id, Name: "Team " + id}); err != nil {
			t.Fatalf("SaveTeam(%s): %v", id, err)
		}
	}

	for team, err := range ts.ListAllTeams() {
		if err != nil {
			t.Fatalf("ListAllTeams: %v", err)
		}
		seen, ok := want[team.ID]
		if !ok {
			t.Errorf("unexpected team %q", team.ID)
			continue
		}
		if seen {
			t.Errorf("team %q listed twice", team.ID)
		}
		want[team.ID] = true
	}
	for id, seen := range want {
		if !seen {
			t.Errorf("team %q missing from listing", id)
		}
	}
}

func TestTeamTouched(t *testing.T) {
	team := Team{ID: "t1", UpdatedAt: 100}
	touched := team.Touched(200)
	if touched.UpdatedAt != 200 {
		t.Errorf("UpdatedAt = %d, want 200", touched.UpdatedAt)
	}
	if team.UpdatedAt != 100 {
		t.Error("Touched mutated the receiver")
	}
}
