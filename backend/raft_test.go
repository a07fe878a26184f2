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
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/c2FmZQ/storage"
)

func TestRaftSingleNode(t *testing.T) {
	dataDir := t.TempDir()
	raftBind := "127.0.0.1:50801"

	s := storage.New(dataDir, nil)
	gStore := NewGameStore(dataDir, s)
	tStore := NewTeamStore(dataDir, s)

	rmChan := make(chan *RaftManager, 1)
	opts := Options{
		DataDir:          dataDir,
		GameStore:        gStore,
		TeamStore:        tStore,
		Storage:          s,
		UseMockAuth:      true,
		RaftEnabled:      true,
		RaftBind:         raftBind,
		RaftAdvertise:    raftBind,
		ClusterAddr:      "127.0.0.1:0",
		ClusterAdvertise: "127.0.0.1:0",
		RaftSecret:       "test-secret",
		RaftBootstrap:    true,
		RaftManagerChan:  rmChan,
	}

	_, handler := NewServerHandler(opts)
	server := httptest.NewServer(handler)
	defer server.Close()

	var rm *RaftManager
	select {
	case rm = <-rmChan:
	case <-time.After(5 * time.Second):
		t.Fatal("RaftManager not initialized")
	}
	defer rm.Shutdown()

	deadline := time.After(10 * time.Second)
	for !rm.IsLeader() {
		select {
		case <-deadline:
			t.Fatal("timeout waiting for leader election")
		case <-time.After(100 * time.Millisecond):
		}
	}

	post := func(path string, body any) *http.Response {
		t.Helper()
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		req, err := http.NewRequest(http.MethodPost, server.URL+path, bytes.NewReader(data))
		if err != nil {
			t.Fatal(err)
		}
		req.Header.Set("X-Mock-User", "scorer@example.com")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		return resp
	}

	gameId := "10000000-0000-0000-0000-000000000001"
	resp := post("/api/create-game", GameStartPayload{
		ID:   gameId,
		Away: "Thunder",
		Home: "Lightning",
		Lineups: map[string][]Player{
			TeamAway: testLineup(testAway1, testAway2),
		},
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create-game status = %d", resp.StatusCode)
	}

	// The create went through the Raft log and the FSM applied it.
	g, err := gStore.LoadGame(gameId)
	if err != nil {
		t.Fatalf("LoadGame after create: %v", err)
	}
	if g.OwnerID != "scorer@example.com" || g.LastRaftIndex == 0 {
		t.Errorf("applied game = owner %q, raft index %d", g.OwnerID, g.LastRaftIndex)
	}

	resp = post("/api/at-bat", map[string]any{
		"gameId": gameId,
		"atBat": AtBatPayload{
			ID:    "20000000-0000-0000-0000-000000000001",
			AtBat: AtBatData{BatterID: testAway1, Result: "HR"},
		},
	})
	var state gameStateResponse
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("decode at-bat response: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("at-bat status = %d", resp.StatusCode)
	}
	if state.Score.Away != 1 {
		t.Errorf("score = %+v, want away 1", state.Score)
	}

	g, err = gStore.LoadGame(gameId)
	if err != nil {
		t.Fatalf("LoadGame after at-bat: %v", err)
	}
	if len(g.AtBats) != 1 || g.Score.Away != 1 {
		t.Errorf("applied at-bat: score %+v, %d records", g.Score, len(g.AtBats))
	}
}

func TestRaftWaitForSync(t *testing.T) {
	rm := &RaftManager{}
	if err := rm.WaitForSync(10 * time.Millisecond); err != nil {
		t.Errorf("WaitForSync without Raft should be a no-op, got %v", err)
	}
	if rm.IsLeader() {
		t.Error("IsLeader without Raft should be false")
	}
}
