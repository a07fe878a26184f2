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
	"path/filepath"
	"testing"

	"github.com/c2FmZQ/storage"
)

func newTestGameStore(t *testing.T) *GameStore {
	t.Helper()
	tmpDir := t.TempDir()
	return NewGameStore(tmpDir, storage.New(tmpDir, nil))
}

func TestGameStoreSaveLoad(t *testing.T) {
	gs := newTestGameStore(t)

	g := testGame()
	g.ID = "game-1"
	if err := gs.SaveGame(g); err != nil {
		t.Fatalf("SaveGame: %v", err)
	}

	loaded, err := gs.LoadGame("game-1")
	if err != nil {
		t.Fatalf("LoadGame: %v", err)
	}
	if loaded.ID != "game-1" || loaded.Away != "Thunder" || loaded.Home != "Lightning" {
		t.Errorf("loaded = %+v", loaded)
	}
	if loaded.Status != GameStatusInProgress {
		t.Errorf("Status = %q", loaded.Status)
	}

	if _, err := gs.LoadGame("missing"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing game: err = %v, want os.ErrNotExist", err)
	}
}

func TestGameStoreCacheServesUnflushedSaves(t *testing.T) {
	gs := newTestGameStore(t)

	g := testGame()
	g.ID = "game-1"
	if err := gs.SaveGameInMemory(g, false); err != nil {
		t.Fatalf("SaveGameInMemory: %v", err)
	}

	// Not on disk yet, but loadable from cache.
	if _, err := os.Stat(filepath.Join(gs.DataDir, gameFilename("game-1"))); !os.IsNotExist(err) {
		t.Errorf("game file should not exist before flush: %v", err)
	}
	loaded, err := gs.LoadGame("game-1")
	if err != nil {
		t.Fatalf("LoadGame from cache: %v", err)
	}
	if loaded.ID != "game-1" {
		t.Errorf("loaded = %+v", loaded)
	}

	if err := gs.Flush("game-1"); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if _, err := os.Stat(filepath.Join(gs.DataDir, gameFilename("game-1"))); err != nil {
		t.Errorf("game file missing after flush: %v", err)
	}

	// A second flush is a no-op.
	if err := gs.Flush("game-1"); err != nil {
		t.Errorf("second Flush: %v", err)
	}
}

func TestGameStoreFlushAll(t *testing.T) {
	gs := newTestGameStore(t)

	for _, id := range []string{"g1", "g2", "g3"} {
		g := testGame()
		g.ID = id
		if err := gs.SaveGameInMemory(g, false); err != nil {
			t.Fatalf("SaveGameInMemory(%s): %v", id, err)
		}
	}
	if err := gs.FlushAll(); err != nil {
		t.Fatalf("FlushAll: %v", err)
	}
	for _, id := range []string{"g1", "g2", "g3"} {
		if _, err := os.Stat(filepath.Join(gs.DataDir, gameFilename(id))); err != nil {
			t.Errorf("game %s missing after FlushAll: %v", id, err)
		}
	}
}

func TestGameStoreDeleteLeavesTombstone(t *testing.T) {
	gs := newTestGameStore(t)

	g := testGame()
	g.ID = "game-1"
	g.OwnerID = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
	if err := gs.SaveGame(g); err != nil {
		t.Fatalf("SaveGame: %v", err)
	}
	if err := gs.DeleteGame("game-1"); err != nil {
		t.Fatalf("DeleteGame: %v", err)
	}

	loaded, err := gs.LoadGame("game-1")
	if err != nil {
		t.Fatalf("LoadGame after delete: %v", err)
	}
	if loaded.Status != GameStatusDeleted || loaded.DeletedAt == 0 {
		t.Errorf("tombstone = %+v", loaded)
	}
	if loaded.OwnerID != g.OwnerID {
		t.Errorf("tombstone lost the owner: %q", loaded.OwnerID)
	}
	if len(loaded.AtBats) != 0 {
		t.Errorf("tombstone kept at-bat data: %d records", len(loaded.AtBats))
	}

	// Deleting a game that does not exist is not an error.
	if err := gs.DeleteGame("missing"); err != nil {
		t.Errorf("DeleteGame(missing): %v", err)
	}
}

func TestGameStorePurge(t *testing.T) {
	gs := newTestGameStore(t)

	g := testGame()
	g.ID = "game-1"
	if err := gs.SaveGame(g); err != nil {
		t.Fatalf("SaveGame: %v", err)
	}
	if err := gs.PurgeGame("game-1"); err != nil {
		t.Fatalf("PurgeGame: %v", err)
	}
	if _, err := gs.LoadGame("game-1"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("purged game still loads: err = %v", err)
	}
}

func TestGameStoreListAllGameMetadata(t *testing.T) {
	gs := newTestGameStore(t)

	ids := map[string]bool{"g1": false, "g2": false}
	for id := range ids {
		g := testGame()
		g.ID = id
		if err := gs.SaveGame(g); err != nil {
			t.Fatalf("SaveGame(%s): %v", id, err)
		}
	}
	// An unflushed game must appear too.
	g := testGame()
	g.ID = "g3"
	if err := gs.SaveGameInMemory(g, false); err != nil {
		t.Fatalf("SaveGameInMemory: %v", err)
	}
	ids["g3"] = false

	for meta, err := range gs.ListAllGameMetadata() {
		if err != nil {
			t.Fatalf("ListAllGameMetadata: %v", err)
		}
		seen, ok := ids[meta.ID]
		if !ok {
			t.Errorf("unexpected game %q in listing", meta.ID)
			continue
		}
		if seen {
			t.Errorf("game %q listed twice", meta.ID)
		}
		ids[meta.ID] = true
		if meta.Away != "Thunder" {
			t.Errorf("metadata for %q incomplete: %+v", meta.ID, meta)
		}
	}
	for id, seen := range ids {
		if !seen {
			t.Errorf("game %q missing from listing", id)
		}
	}
}

func TestGameStoreListAllGames(t *testing.T) {
	gs := newTestGameStore(t)

	g := testGame()
	g.ID = "g1"
	if err := gs.SaveGame(g); err != nil {
		t.Fatalf("SaveGame: %v", err)
	}

	var count int
	for g, err := range gs.ListAllGames() {
		if err != nil {
			t.Fatalf("ListAllGames: %v", err)
		}
		count++
		if g.ID != "g1" {
			t.Errorf("unexpected game %q", g.ID)
		}
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}
