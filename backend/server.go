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
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/c2FmZQ/storage"
	"github.com/c2FmZQ/storage/crypto"
)

func generateETag(data []byte) string {
	return fmt.Sprintf("\"%x\"", sha256.Sum256(data))
}

func parsePagination(r *http.Request) (int, int) {
	limit := 50
	offset := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil {
			limit = val
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if val, err := strconv.Atoi(o); err == nil {
			offset = val
		}
	}
	if limit < 1 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Options represent server options.
type Options struct {
	Addr        string
	DataDir     string
	UseMockAuth bool
	Debug       bool
	GameStore   *GameStore
	TeamStore   *TeamStore
	Storage     *storage.Storage
	MasterKey   crypto.MasterKey
	Listener    net.Listener

	// Raft Options
	RaftEnabled           bool
	RaftBind              string
	RaftAdvertise         string
	RaftSecret            string
	RaftJoin              string // Address of an existing node to join
	RaftBootstrap         bool
	ClusterAddr           string
	ClusterAdvertise      string
	RaftManager           *RaftManager      // Allow injecting a pre-configured RaftManager
	RaftManagerChan       chan *RaftManager // For testing: receive the created RaftManager
	UseProductionTimeouts bool

	// Auth Options
	AuthCookieName string
	AuthJWKSURL    string
}

// Server represents the running server instance.
type Server struct {
	httpServer *http.Server
	raftMgr    *RaftManager
	gameStore  *GameStore
}

// Shutdown gracefully shuts down the server, the Raft node, and flushes any
// dirty game state to disk.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []string

	if s.raftMgr != nil {
		if err := s.raftMgr.Shutdown(); err != nil {
			errs = append(errs, fmt.Sprintf("raft: %v", err))
		}
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Sprintf("http: %v", err))
	}
	if s.gameStore != nil {
		if err := s.gameStore.FlushAll(); err != nil {
			errs = append(errs, fmt.Sprintf("flush: %v", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %s", strings.Join(errs, ", "))
	}
	return nil
}

// StartServer starts the web server and registers the API handlers.
func StartServer(opts Options) (*Server, error) {
	srv, handler := NewServerHandler(opts)

	if srv.raftMgr != nil {
		// Wait for Raft to replay the log before serving requests so we
		// never answer with stale data right after a restart.
		if err := srv.raftMgr.WaitForSync(30 * time.Second); err != nil {
			log.Printf("Warning: Raft sync timed out: %v", err)
		}
	}

	httpServer := &http.Server{
		Addr:    opts.Addr,
		Handler: handler,
	}

	go func() {
		var err error
		if opts.Listener != nil {
			log.Printf("Starting HTTP server on provided listener %s...", opts.Listener.Addr())
			err = httpServer.Serve(opts.Listener)
		} else {
			log.Printf("Server starting on %s...", opts.Addr)
			err = httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, net.ErrClosed) && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	return &Server{
		httpServer: httpServer,
		raftMgr:    srv.raftMgr,
		gameStore:  srv.gs,
	}, nil
}

// apiServer holds the wired stores and the replication layer behind the
// HTTP handlers.
type apiServer struct {
	opts    Options
	gs      *GameStore
	ts      *TeamStore
	hm      *HubManager
	raftMgr *RaftManager

	// gameLocks serializes standalone read-modify-write cycles per game.
	// With Raft enabled the log already serializes mutations.
	gameLocks sync.Map
}

func (s *apiServer) lockGame(gameId string) func() {
	v, _ := s.gameLocks.LoadOrStore(gameId, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// apply runs a mutation command, through the Raft log when replication is
// enabled, directly against the stores otherwise. Both paths produce the
// same command-specific result.
func (s *apiServer) apply(cmd RaftCommand) (any, error) {
	if s.raftMgr != nil {
		_, resp, err := s.raftMgr.Propose(cmd)
		return resp, err
	}

	switch cmd.Type {
	case CmdSaveGame:
		var g Game
		if err := json.Unmarshal(*cmd.GameData, &g); err != nil {
			return nil, err
		}
		g.normalize()
		return nil, s.gs.SaveGame(&g)

	case CmdDeleteGame:
		return nil, s.gs.DeleteGame(cmd.ID)

	case CmdApplyAtBat:
		unlock := s.lockGame(cmd.ID)
		defer unlock()
		g, err := s.gs.LoadGame(cmd.ID)
		if err != nil {
			return nil, err
		}
		res, err := g.ApplyAtBat(cmd.AtBat.ID, cmd.AtBat.AtBat)
		if err != nil {
			return nil, err
		}
		if err := s.gs.SaveGame(g); err != nil {
			return nil, err
		}
		s.hm.NotifyAtBat(g, res)
		return res, nil

	case CmdApplyPitch:
		unlock := s.lockGame(cmd.ID)
		defer unlock()
		g, err := s.gs.LoadGame(cmd.ID)
		if err != nil {
			return nil, err
		}
		res, err := g.ApplyPitch(cmd.Pitch.Type)
		if err != nil {
			return nil, err
		}
		if err := s.gs.SaveGame(g); err != nil {
			return nil, err
		}
		if res == nil {
			s.hm.NotifyCount(g)
			return &g.Session.Count, nil
		}
		s.hm.NotifyAtBat(g, res)
		return res, nil

	case CmdCorrectAtBat:
		unlock := s.lockGame(cmd.ID)
		defer unlock()
		g, err := s.gs.LoadGame(cmd.ID)
		if err != nil {
			return nil, err
		}
		ab, err := g.CorrectAtBatRecord(cmd.AtBat.ID, cmd.AtBat.AtBat)
		if err != nil {
			return nil, err
		}
		return ab, s.gs.SaveGame(g)

	case CmdUpdateLineup:
		unlock := s.lockGame(cmd.ID)
		defer unlock()
		g, err := s.gs.LoadGame(cmd.ID)
		if err != nil {
			return nil, err
		}
		if err := g.UpdateLineup(cmd.Lineup.Team, cmd.Lineup.Lineup); err != nil {
			return nil, err
		}
		return nil, s.gs.SaveGame(g)

	case CmdSaveTeam:
		var t Team
		if err := json.Unmarshal(*cmd.TeamData, &t); err != nil {
			return nil, err
		}
		t.normalize()
		return nil, s.ts.SaveTeam(&t)

	case CmdDeleteTeam:
		return nil, s.ts.DeleteTeam(cmd.ID)
	}
	return nil, fmt.Errorf("unknown command type %q", cmd.Type)
}

func writeCommandError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotLeader):
		http.Error(w, "Service Unavailable: not the cluster leader", http.StatusServiceUnavailable)
	case errors.Is(err, os.ErrNotExist):
		http.Error(w, "Not Found", http.StatusNotFound)
	case errors.Is(err, ErrUnknownResult), errors.Is(err, ErrIllegalAdvancement):
		http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
	default:
		log.Printf("Command error: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// gameStateResponse is attached to mutation responses so the scorer's UI
// always has the authoritative session after a play.
type gameStateResponse struct {
	Result     *ProcessedAtBatResult `json:"result,omitempty"`
	Count      *Count                `json:"count,omitempty"`
	Session    GameSessionState      `json:"session"`
	Score      Score                 `json:"score"`
	Status     string                `json:"status"`
	Completion GameCompletion        `json:"completion"`
}

func (s *apiServer) stateResponse(gameId string, res *ProcessedAtBatResult, count *Count) (*gameStateResponse, error) {
	g, err := s.gs.LoadGame(gameId)
	if err != nil {
		return nil, err
	}
	return &gameStateResponse{
		Result:     res,
		Count:      count,
		Session:    g.Session,
		Score:      g.Score,
		Status:     g.Status,
		Completion: g.Completion,
	}, nil
}

// gameForAccess builds the minimal game document used for access checks
// from a metadata sidecar, so listing never loads full at-bat logs.
func gameForAccess(md GameMetadata) *Game {
	return &Game{
		ID:          md.ID,
		OwnerID:     md.OwnerID,
		Permissions: md.Permissions,
		AwayTeamID:  md.AwayTeamID,
		HomeTeamID:  md.HomeTeamID,
	}
}

// GameSummary is one row of a game listing.
type GameSummary struct {
	ID      string `json:"id"`
	Date    string `json:"date,omitempty"`
	Away    string `json:"away,omitempty"`
	Home    string `json:"home,omitempty"`
	Status  string `json:"status"`
	Score   Score  `json:"score"`
	OwnerID string `json:"ownerId"`
}

// NewServerHandler creates and configures the HTTP handler for the server.
func NewServerHandler(opts Options) (*apiServer, http.Handler) {
	if opts.DataDir == "" {
		opts.DataDir = "data"
	}
	if opts.Storage == nil {
		opts.Storage = storage.New(opts.DataDir, nil)
	}

	store := opts.GameStore
	if store == nil {
		store = NewGameStore(opts.DataDir, opts.Storage)
	}
	tStore := opts.TeamStore
	if tStore == nil {
		tStore = NewTeamStore(opts.DataDir, opts.Storage)
	}

	hm := NewHubManager()

	var raftMgr *RaftManager
	if opts.RaftEnabled {
		if opts.RaftManager != nil {
			raftMgr = opts.RaftManager
		} else {
			raftDataDir := filepath.Join(opts.DataDir, "raft")
			if err := os.MkdirAll(raftDataDir, 0755); err != nil {
				log.Fatalf("Failed to create Raft data directory: %v", err)
			}
			fsm := NewFSM(store, tStore, hm)
			raftMgr = NewRaftManager(raftDataDir, opts.RaftBind, opts.RaftAdvertise,
				opts.ClusterAdvertise, opts.ClusterAddr, opts.RaftJoin, opts.RaftSecret, fsm)
			raftMgr.UseProductionTimeouts = opts.UseProductionTimeouts
			if err := raftMgr.Start(opts.RaftBootstrap); err != nil {
				log.Fatalf("Failed to start Raft: %v", err)
			}
		}
		if opts.RaftManagerChan != nil {
			go func() { opts.RaftManagerChan <- raftMgr }()
		}
	}

	srv := &apiServer{
		opts:    opts,
		gs:      store,
		ts:      tStore,
		hm:      hm,
		raftMgr: raftMgr,
	}

	mux := http.NewServeMux()

	// Cluster membership endpoints, secured by the shared cluster secret.
	mux.HandleFunc("/api/cluster/status", func(w http.ResponseWriter, r *http.Request) {
		if raftMgr == nil {
			http.Error(w, "Raft is not enabled on this node", http.StatusNotImplemented)
			return
		}
		raftMgr.handleStatus(w, r)
	})
	mux.HandleFunc("/api/cluster/join", func(w http.ResponseWriter, r *http.Request) {
		if raftMgr == nil {
			http.Error(w, "Raft is not enabled on this node", http.StatusBadRequest)
			return
		}
		raftMgr.handleJoin(w, r)
	})
	mux.HandleFunc("/api/cluster/remove", func(w http.ResponseWriter, r *http.Request) {
		if raftMgr == nil {
			http.Error(w, "Raft is not enabled on this node", http.StatusBadRequest)
			return
		}
		raftMgr.handleRemove(w, r)
	})

	mux.HandleFunc("/api/me", func(w http.ResponseWriter, r *http.Request) {
		userId := getUserID(r)
		writeJSON(w, map[string]any{
			"id":            userId,
			"authenticated": userId != "" && isValidEmail(userId),
		})
	})

	mux.HandleFunc("/api/create-game", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
			return
		}
		userId := getUserID(r)
		if userId == "" || !isValidEmail(userId) {
			http.Error(w, "Forbidden: Invalid User ID", http.StatusForbidden)
			return
		}

		body, err := readBody(w, r, 1048576)
		if err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		if err := validateGameStart(body); err != nil {
			http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
			return
		}
		var payload GameStartPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			http.Error(w, "Bad Request: Malformed JSON", http.StatusBadRequest)
			return
		}

		gameId := payload.ID
		if gameId == "" {
			gameId = NewID()
		} else if !isValidUUID(gameId) {
			http.Error(w, "Bad Request: gameId is invalid", http.StatusBadRequest)
			return
		}
		if _, err := store.LoadGame(gameId); err == nil {
			http.Error(w, "Conflict: game already exists", http.StatusConflict)
			return
		}

		g := Game{
			ID:         gameId,
			Date:       payload.Date,
			Location:   payload.Location,
			Event:      payload.Event,
			Away:       payload.Away,
			Home:       payload.Home,
			AwayTeamID: payload.AwayTeamID,
			HomeTeamID: payload.HomeTeamID,
			Lineups:    payload.Lineups,
			OwnerID:    userId,
		}
		g.normalize()

		data, err := json.Marshal(g)
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		raw := json.RawMessage(data)
		if _, err := srv.apply(RaftCommand{Type: CmdSaveGame, ID: gameId, GameData: &raw}); err != nil {
			writeCommandError(w, err)
			return
		}
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, g)
	})

	mux.HandleFunc("/api/load/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		userId := getUserID(r)

		gameId := strings.TrimPrefix(r.URL.Path, "/api/load/")
		if gameId == "" || !isValidUUID(gameId) {
			http.Error(w, "Bad Request: gameId is missing or invalid", http.StatusBadRequest)
			return
		}

		g, err := store.LoadGame(gameId)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				http.Error(w, "Not Found: Game not found", http.StatusNotFound)
			} else {
				log.Printf("Error loading game %s: %v", gameId, err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
			return
		}
		if GetGameAccess(userId, g, tStore) < AccessRead {
			http.Error(w, "Forbidden: You do not have access to this game", http.StatusForbidden)
			return
		}

		data, err := json.Marshal(g)
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		etag := generateETag(data)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	mux.HandleFunc("/api/list-games", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
			return
		}
		userId := getUserID(r)
		if userId == "" || !isValidEmail(userId) {
			http.Error(w, "Forbidden: Invalid User ID", http.StatusForbidden)
			return
		}

		var summaries []GameSummary
		for md, err := range store.ListAllGameMetadata() {
			if err != nil {
				log.Printf("Error listing games: %v", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			if md.DeletedAt != 0 {
				continue
			}
			if GetGameAccess(userId, gameForAccess(md), tStore) < AccessRead {
				continue
			}
			summaries = append(summaries, GameSummary{
				ID:      md.ID,
				Date:    md.Date,
				Away:    md.Away,
				Home:    md.Home,
				Status:  md.Status,
				Score:   md.Score,
				OwnerID: md.OwnerID,
			})
		}

		// Newest first, id as tie-breaker for stable pages.
		sort.Slice(summaries, func(i, j int) bool {
			if summaries[i].Date != summaries[j].Date {
				return summaries[i].Date > summaries[j].Date
			}
			return summaries[i].ID < summaries[j].ID
		})

		limit, offset := parsePagination(r)
		total := len(summaries)
		var page []GameSummary
		if offset < total {
			end := offset + limit
			if end > total {
				end = total
			}
			page = summaries[offset:end]
		}
		if page == nil {
			page = make([]GameSummary, 0)
		}

		respData := struct {
			Data []GameSummary `json:"data"`
			Meta struct {
				Total  int `json:"total"`
				Offset int `json:"offset"`
				Limit  int `json:"limit"`
			} `json:"meta"`
		}{Data: page}
		respData.Meta.Total = total
		respData.Meta.Offset = offset
		respData.Meta.Limit = limit

		response, err := json.Marshal(respData)
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		etag := generateETag(response)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
		w.Header().Set("Content-Type", "application/json")
		w.Write(response)
	})

	mux.HandleFunc("/api/delete-game", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
			return
		}
		userId := getUserID(r)
		if userId == "" || !isValidEmail(userId) {
			http.Error(w, "Forbidden: Invalid User ID", http.StatusForbidden)
			return
		}

		var data struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1048576)).Decode(&data); err != nil {
			http.Error(w, "Bad Request: Malformed JSON", http.StatusBadRequest)
			return
		}
		gameId := data.ID
		if gameId == "" || !isValidUUID(gameId) {
			http.Error(w, "Bad Request: gameId is missing or invalid", http.StatusBadRequest)
			return
		}

		if g, err := store.LoadGame(gameId); err == nil {
			if GetGameAccess(userId, g, tStore) < AccessAdmin {
				http.Error(w, "Forbidden: Only the owner can delete this game", http.StatusForbidden)
				return
			}
		}

		if _, err := srv.apply(RaftCommand{Type: CmdDeleteGame, ID: gameId}); err != nil {
			writeCommandError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "Game %s deleted successfully", gameId)
	})

	mux.HandleFunc("/api/pitch", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			GameID string          `json:"gameId"`
			Pitch  json.RawMessage `json:"pitch"`
		}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1048576)).Decode(&req); err != nil {
			http.Error(w, "Bad Request: Malformed JSON", http.StatusBadRequest)
			return
		}
		if !srv.checkWriteAccess(w, r, req.GameID) {
			return
		}
		if err := validatePitch(req.Pitch); err != nil {
			http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
			return
		}
		var pitch PitchPayload
		if err := json.Unmarshal(req.Pitch, &pitch); err != nil {
			http.Error(w, "Bad Request: Malformed JSON", http.StatusBadRequest)
			return
		}

		resp, err := srv.apply(RaftCommand{Type: CmdApplyPitch, ID: req.GameID, Pitch: &pitch})
		if err != nil {
			writeCommandError(w, err)
			return
		}

		var res *ProcessedAtBatResult
		var count *Count
		switch v := resp.(type) {
		case *ProcessedAtBatResult:
			res = v
		case *Count:
			count = v
		}
		state, err := srv.stateResponse(req.GameID, res, count)
		if err != nil {
			writeCommandError(w, err)
			return
		}
		writeJSON(w, state)
	})

	mux.HandleFunc("/api/at-bat", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			GameID string          `json:"gameId"`
			AtBat  json.RawMessage `json:"atBat"`
		}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1048576)).Decode(&req); err != nil {
			http.Error(w, "Bad Request: Malformed JSON", http.StatusBadRequest)
			return
		}
		if !srv.checkWriteAccess(w, r, req.GameID) {
			return
		}
		if err := validateAtBat(req.AtBat); err != nil {
			http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
			return
		}
		var payload AtBatPayload
		if err := json.Unmarshal(req.AtBat, &payload); err != nil {
			http.Error(w, "Bad Request: Malformed JSON", http.StatusBadRequest)
			return
		}

		resp, err := srv.apply(RaftCommand{Type: CmdApplyAtBat, ID: req.GameID, AtBat: &payload})
		if err != nil {
			writeCommandError(w, err)
			return
		}
		res, _ := resp.(*ProcessedAtBatResult)
		state, err := srv.stateResponse(req.GameID, res, nil)
		if err != nil {
			writeCommandError(w, err)
			return
		}
		writeJSON(w, state)
	})

	mux.HandleFunc("/api/correct-at-bat", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			GameID string          `json:"gameId"`
			AtBat  json.RawMessage `json:"atBat"`
		}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1048576)).Decode(&req); err != nil {
			http.Error(w, "Bad Request: Malformed JSON", http.StatusBadRequest)
			return
		}
		if !srv.checkWriteAccess(w, r, req.GameID) {
			return
		}
		if err := validateAtBat(req.AtBat); err != nil {
			http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
			return
		}
		var payload AtBatPayload
		if err := json.Unmarshal(req.AtBat, &payload); err != nil {
			http.Error(w, "Bad Request: Malformed JSON", http.StatusBadRequest)
			return
		}

		resp, err := srv.apply(RaftCommand{Type: CmdCorrectAtBat, ID: req.GameID, AtBat: &payload})
		if err != nil {
			writeCommandError(w, err)
			return
		}
		writeJSON(w, resp)
	})

	mux.HandleFunc("/api/lineup", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			GameID string          `json:"gameId"`
			Lineup json.RawMessage `json:"lineup"`
		}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1048576)).Decode(&req); err != nil {
			http.Error(w, "Bad Request: Malformed JSON", http.StatusBadRequest)
			return
		}
		if !srv.checkWriteAccess(w, r, req.GameID) {
			return
		}
		if err := validateLineupUpdate(req.Lineup); err != nil {
			http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
			return
		}
		var payload LineupUpdatePayload
		if err := json.Unmarshal(req.Lineup, &payload); err != nil {
			http.Error(w, "Bad Request: Malformed JSON", http.StatusBadRequest)
			return
		}

		if _, err := srv.apply(RaftCommand{Type: CmdUpdateLineup, ID: req.GameID, Lineup: &payload}); err != nil {
			writeCommandError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/api/stats/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		userId := getUserID(r)

		gameId := strings.TrimPrefix(r.URL.Path, "/api/stats/")
		if gameId == "" || !isValidUUID(gameId) {
			http.Error(w, "Bad Request: gameId is missing or invalid", http.StatusBadRequest)
			return
		}
		g, err := store.LoadGame(gameId)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				http.Error(w, "Not Found: Game not found", http.StatusNotFound)
			} else {
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
			return
		}
		if GetGameAccess(userId, g, tStore) < AccessRead {
			http.Error(w, "Forbidden: You do not have access to this game", http.StatusForbidden)
			return
		}

		if team := r.URL.Query().Get("team"); team != "" {
			if team != TeamAway && team != TeamHome {
				http.Error(w, "Bad Request: invalid team", http.StatusBadRequest)
				return
			}
			writeJSON(w, g.TeamStatisticsFor(team))
			return
		}
		writeJSON(w, g.PlayerStatistics())
	})

	mux.HandleFunc("/api/validate/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		userId := getUserID(r)

		gameId := strings.TrimPrefix(r.URL.Path, "/api/validate/")
		if gameId == "" || !isValidUUID(gameId) {
			http.Error(w, "Bad Request: gameId is missing or invalid", http.StatusBadRequest)
			return
		}
		g, err := store.LoadGame(gameId)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				http.Error(w, "Not Found: Game not found", http.StatusNotFound)
			} else {
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
			return
		}
		if GetGameAccess(userId, g, tStore) < AccessRead {
			http.Error(w, "Forbidden: You do not have access to this game", http.StatusForbidden)
			return
		}

		resp := struct {
			GameState  ValidationResult            `json:"gameState"`
			Statistics map[string]ValidationResult `json:"statistics"`
		}{
			GameState:  ValidateGameState(g.Session, &g.Score),
			Statistics: make(map[string]ValidationResult),
		}
		for _, p := range g.PlayerStatistics() {
			if v := ValidateStatistics(p); !v.IsValid {
				resp.Statistics[p.PlayerID] = v
			}
		}
		writeJSON(w, resp)
	})

	mux.HandleFunc("/api/save-team", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
			return
		}
		userId := getUserID(r)
		if userId == "" || !isValidEmail(userId) {
			http.Error(w, "Forbidden: Invalid User ID", http.StatusForbidden)
			return
		}

		var t Team
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1048576)).Decode(&t); err != nil {
			http.Error(w, "Bad Request: Malformed JSON", http.StatusBadRequest)
			return
		}
		if t.ID == "" {
			t.ID = NewID()
		} else if !isValidUUID(t.ID) {
			http.Error(w, "Bad Request: teamId is invalid", http.StatusBadRequest)
			return
		}

		existing, err := tStore.LoadTeam(t.ID)
		if err == nil {
			if GetTeamAccess(userId, existing) < AccessWrite {
				http.Error(w, "Forbidden: You do not have permission to manage this team", http.StatusForbidden)
				return
			}
			t.OwnerID = existing.OwnerID
		} else if errors.Is(err, os.ErrNotExist) {
			t.OwnerID = userId
		} else {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		t.SchemaVersion = CurrentSchemaVersion
		t = t.Touched(time.Now().UnixNano())

		data, err := json.Marshal(t)
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		raw := json.RawMessage(data)
		if _, err := srv.apply(RaftCommand{Type: CmdSaveTeam, ID: t.ID, TeamData: &raw}); err != nil {
			writeCommandError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
		writeJSON(w, t)
	})

	mux.HandleFunc("/api/load-team/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		userId := getUserID(r)

		teamId := strings.TrimPrefix(r.URL.Path, "/api/load-team/")
		if teamId == "" || !isValidUUID(teamId) {
			http.Error(w, "Bad Request: teamId is missing or invalid", http.StatusBadRequest)
			return
		}
		t, err := tStore.LoadTeam(teamId)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				http.Error(w, "Not Found: Team not found", http.StatusNotFound)
			} else {
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
			return
		}
		if GetTeamAccess(userId, t) < AccessRead {
			http.Error(w, "Forbidden: You do not have access to this team", http.StatusForbidden)
			return
		}

		data, err := json.Marshal(t)
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		etag := generateETag(data)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	mux.HandleFunc("/api/list-teams", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
			return
		}
		userId := getUserID(r)
		if userId == "" || !isValidEmail(userId) {
			http.Error(w, "Forbidden: Invalid User ID", http.StatusForbidden)
			return
		}

		teams := make([]*Team, 0)
		for t, err := range tStore.ListAllTeams() {
			if err != nil {
				log.Printf("Error listing teams: %v", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			if t.DeletedAt != 0 {
				continue
			}
			if GetTeamAccess(userId, t) < AccessRead {
				continue
			}
			teams = append(teams, t)
		}
		sort.Slice(teams, func(i, j int) bool { return teams[i].Name < teams[j].Name })
		writeJSON(w, teams)
	})

	mux.HandleFunc("/api/delete-team", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
			return
		}
		userId := getUserID(r)
		if userId == "" || !isValidEmail(userId) {
			http.Error(w, "Forbidden: Invalid User ID", http.StatusForbidden)
			return
		}

		var data struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1048576)).Decode(&data); err != nil {
			http.Error(w, "Bad Request: Malformed JSON", http.StatusBadRequest)
			return
		}
		if data.ID == "" || !isValidUUID(data.ID) {
			http.Error(w, "Bad Request: teamId is missing or invalid", http.StatusBadRequest)
			return
		}

		if existing, err := tStore.LoadTeam(data.ID); err == nil {
			if GetTeamAccess(userId, existing) < AccessAdmin {
				http.Error(w, "Forbidden: You do not have permission to delete this team", http.StatusForbidden)
				return
			}
		}

		if _, err := srv.apply(RaftCommand{Type: CmdDeleteTeam, ID: data.ID}); err != nil {
			writeCommandError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "Team %s deleted successfully", data.ID)
	})

	mux.HandleFunc("/api/ws", func(w http.ResponseWriter, r *http.Request) {
		gameId := r.URL.Query().Get("gameId")
		if gameId == "" || !isValidUUID(gameId) {
			http.Error(w, "Bad Request: gameId is missing or invalid", http.StatusBadRequest)
			return
		}
		ServeWS(hm, store, tStore, w, r, gameId)
	})

	handler := http.Handler(mux)
	if opts.UseMockAuth {
		handler = mockAuthMiddleware(opts, handler)
	} else {
		handler = jwtAuthMiddleware(opts, handler)
	}
	handler = loggingMiddleware(handler)
	handler = securityMiddleware(handler)

	return srv, handler
}

// checkWriteAccess verifies the caller can score the given game, writing
// the error response itself when not.
func (s *apiServer) checkWriteAccess(w http.ResponseWriter, r *http.Request, gameId string) bool {
	if gameId == "" || !isValidUUID(gameId) {
		http.Error(w, "Bad Request: gameId is missing or invalid", http.StatusBadRequest)
		return false
	}
	userId := getUserID(r)
	if userId == "" || !isValidEmail(userId) {
		http.Error(w, "Forbidden: Invalid User ID", http.StatusForbidden)
		return false
	}
	g, err := s.gs.LoadGame(gameId)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.Error(w, "Not Found: Game not found", http.StatusNotFound)
		} else {
			log.Printf("Error loading game %s: %v", gameId, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
		return false
	}
	if GetGameAccess(userId, g, s.ts) < AccessWrite {
		http.Error(w, "Forbidden: You do not have write access to this game", http.StatusForbidden)
		return false
	}
	return true
}

func readBody(w http.ResponseWriter, r *http.Request, limit int64) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit)).Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// securityMiddleware adds HTTP security headers to responses.
func securityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs the method and URL path of every incoming HTTP request.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("Received request: %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
