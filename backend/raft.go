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
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"
)

// ErrNotLeader is returned when a write is proposed on a follower node.
var ErrNotLeader = errors.New("not leader")

// RaftManager runs the replicated log for a cluster of scorebook nodes.
// All game and team mutations flow through Propose so every node applies
// them in the same order.
type RaftManager struct {
	DataDir          string
	Bind             string
	Advertise        string
	ClusterAddr      string
	ClusterAdvertise string
	JoinAddr         string
	Secret           string
	NodeID           string
	Bootstrap        bool

	// UseProductionTimeouts selects WAN-friendly election timeouts.
	// Tests leave it false for fast leader election.
	UseProductionTimeouts bool

	LogOutput io.Writer

	FSM  *FSM
	Raft *raft.Raft

	logStore       raft.LogStore
	stableStore    raft.StableStore
	internalServer *http.Server

	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

// NewRaftManager creates a RaftManager. Start must be called before use.
func NewRaftManager(dataDir, bind, advertise, clusterAdvertise, clusterAddr, joinAddr, secret string, fsm *FSM) *RaftManager {
	return &RaftManager{
		DataDir:          dataDir,
		Bind:             bind,
		Advertise:        advertise,
		ClusterAddr:      clusterAddr,
		ClusterAdvertise: clusterAdvertise,
		JoinAddr:         joinAddr,
		Secret:           secret,
		FSM:              fsm,
		LogOutput:        os.Stderr,
		shutdownCh:       make(chan struct{}),
	}
}

// loadOrGenerateNodeID reads the persistent node identity, creating one on
// first start. The ID must survive restarts so the cluster configuration
// keeps pointing at the same server.
func (rm *RaftManager) loadOrGenerateNodeID() error {
	path := filepath.Join(rm.DataDir, "node-id")
	if b, err := os.ReadFile(path); err == nil {
		rm.NodeID = strings.TrimSpace(string(b))
		if rm.NodeID != "" {
			return nil
		}
	}
	rm.NodeID = uuid.NewString()
	return os.WriteFile(path, []byte(rm.NodeID+"\n"), 0600)
}

// Start opens the stores, builds the transport, and starts the Raft node.
// When bootstrap is true the node forms a single-server cluster and ingests
// any data already on disk into the log.
func (rm *RaftManager) Start(bootstrap bool) error {
	rm.Bootstrap = bootstrap

	if err := os.MkdirAll(rm.DataDir, 0755); err != nil {
		return err
	}
	if err := rm.loadOrGenerateNodeID(); err != nil {
		return fmt.Errorf("failed to load node id: %v", err)
	}
	log.Printf("NodeID: %s", rm.NodeID)

	config := raft.DefaultConfig()
	config.LocalID = raft.ServerID(rm.NodeID)
	if rm.UseProductionTimeouts {
		// Optimized for WAN / high latency / low idle traffic.
		config.HeartbeatTimeout = 5 * time.Second
		config.ElectionTimeout = 20 * time.Second
		config.LeaderLeaseTimeout = 5 * time.Second
	} else {
		config.HeartbeatTimeout = 1000 * time.Millisecond
		config.ElectionTimeout = 1000 * time.Millisecond
		config.LeaderLeaseTimeout = 500 * time.Millisecond
	}
	config.CommitTimeout = 500 * time.Millisecond
	config.SnapshotInterval = 120 * time.Second
	config.SnapshotThreshold = 20480
	config.MaxAppendEntries = 200
	config.LogLevel = "INFO"
	if rm.LogOutput != nil {
		config.LogOutput = rm.LogOutput
	}

	advertise := rm.Advertise
	if advertise == "" {
		advertise = rm.Bind
	}
	addr, err := net.ResolveTCPAddr("tcp", advertise)
	if err != nil {
		return fmt.Errorf("failed to resolve advertise addr %s: %v", advertise, err)
	}
	transport, err := raft.NewTCPTransport(rm.Bind, addr, 3, 10*time.Second, rm.LogOutput)
	if err != nil {
		return fmt.Errorf("failed to create transport: %v", err)
	}

	logStore, err := raftboltdb.NewBoltStore(filepath.Join(rm.DataDir, "raft-log.bolt"))
	if err != nil {
		return err
	}
	rm.logStore = logStore
	stableStore, err := raftboltdb.NewBoltStore(filepath.Join(rm.DataDir, "raft-stable.bolt"))
	if err != nil {
		return err
	}
	rm.stableStore = stableStore

	snapshotStore, err := raft.NewFileSnapshotStore(rm.DataDir, 1, rm.LogOutput)
	if err != nil {
		return err
	}

	r, err := raft.NewRaft(config, rm.FSM, logStore, stableStore, snapshotStore, transport)
	if err != nil {
		return err
	}
	rm.Raft = r

	if bootstrap {
		log.Printf("Bootstrapping Raft cluster with NodeID: %s", rm.NodeID)
		configuration := raft.Configuration{
			Servers: []raft.Server{
				{
					ID:      config.LocalID,
					Address: transport.LocalAddr(),
				},
			},
		}
		f := r.BootstrapCluster(configuration)
		if err := f.Error(); err != nil {
			log.Printf("Bootstrap error (might be already bootstrapped): %v", err)
		}
		go rm.ingestExistingData()
	}

	if rm.ClusterAddr != "" {
		if err := rm.startClusterAPI(); err != nil {
			return err
		}
	}
	if rm.JoinAddr != "" {
		go rm.registerWithCluster()
	}

	return nil
}

// ingestExistingData re-proposes any games and teams already on disk so a
// standalone node's data survives the migration into a cluster.
func (rm *RaftManager) ingestExistingData() {
	for {
		if rm.Raft.State() == raft.Leader {
			break
		}
		select {
		case <-rm.shutdownCh:
			return
		case <-time.After(100 * time.Millisecond):
		}
	}

	log.Printf("Ingesting existing data into Raft log...")
	gs, ts := rm.FSM.gs, rm.FSM.ts

	for g, err := range gs.ListAllGames() {
		if err != nil {
			log.Printf("Failed to list games for ingestion: %v", err)
			break
		}
		// Reset LastRaftIndex on disk so the FSM accepts the new log entry.
		g.LastRaftIndex = 0
		if err := gs.SaveGame(g); err != nil {
			log.Printf("Failed to reset index for game %s: %v", g.ID, err)
		}

		data, _ := json.Marshal(g)
		raw := json.RawMessage(data)
		cmd := RaftCommand{
			Type:     CmdSaveGame,
			ID:       g.ID,
			GameData: &raw,
			Force:    true,
		}
		if _, _, err := rm.Propose(cmd); err != nil {
			log.Printf("Failed to ingest game %s: %v", g.ID, err)
		}
	}

	for t, err := range ts.ListAllTeams() {
		if err != nil {
			log.Printf("Failed to list teams for ingestion: %v", err)
			break
		}
		t.LastRaftIndex = 0
		if err := ts.SaveTeam(t); err != nil {
			log.Printf("Failed to reset index for team %s: %v", t.ID, err)
		}

		data, _ := json.Marshal(t)
		raw := json.RawMessage(data)
		cmd := RaftCommand{
			Type:     CmdSaveTeam,
			ID:       t.ID,
			TeamData: &raw,
			Force:    true,
		}
		if _, _, err := rm.Propose(cmd); err != nil {
			log.Printf("Failed to ingest team %s: %v", t.ID, err)
		}
	}
	log.Printf("Ingestion complete.")
}

// startClusterAPI serves the join/remove/status endpoints used by other
// nodes. Requests must carry the shared cluster secret.
func (rm *RaftManager) startClusterAPI() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/cluster/status", rm.handleStatus)
	mux.HandleFunc("/api/cluster/join", rm.handleJoin)
	mux.HandleFunc("/api/cluster/remove", rm.handleRemove)

	ln, err := net.Listen("tcp", rm.ClusterAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on cluster addr %s: %v", rm.ClusterAddr, err)
	}

	// Update ClusterAdvertise if we bound to a random port.
	if strings.HasSuffix(rm.ClusterAdvertise, ":0") {
		_, port, _ := net.SplitHostPort(ln.Addr().String())
		host, _, _ := net.SplitHostPort(rm.ClusterAdvertise)
		rm.ClusterAdvertise = net.JoinHostPort(host, port)
	}

	server := &http.Server{Handler: mux}
	rm.internalServer = server

	go func() {
		log.Printf("Starting Cluster API on %s...", ln.Addr())
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("Cluster API error: %v", err)
		}
	}()
	return nil
}

// registerWithCluster asks an existing node to add us, retrying until a
// leader accepts the join or the manager shuts down.
func (rm *RaftManager) registerWithCluster() {
	client := &http.Client{Timeout: 5 * time.Second}
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-rm.shutdownCh:
			return
		case <-ticker.C:
		}

		// Already part of a cluster with a known leader.
		if addr, _ := rm.Raft.LeaderWithID(); addr != "" {
			return
		}

		target := rm.JoinAddr
		if !strings.HasPrefix(target, "http") {
			target = "http://" + target
		}

		raftAddr := rm.Advertise
		if raftAddr == "" {
			raftAddr = rm.Bind
		}
		payload := map[string]any{
			"nodeId":        rm.NodeID,
			"raftAddr":      raftAddr,
			"httpAddr":      rm.ClusterAdvertise,
			"schemaVersion": CurrentSchemaVersion,
		}
		data, _ := json.Marshal(payload)

		req, err := http.NewRequest(http.MethodPost, target+"/api/cluster/join", bytes.NewReader(data))
		if err != nil {
			log.Printf("Failed to create join request: %v", err)
			return
		}
		req.Header.Set("X-Raft-Secret", rm.Secret)
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			log.Printf("Failed to contact node at %s: %v", target, err)
			continue
		}
		resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			log.Printf("Successfully registered with node at %s", target)
			return
		}
		log.Printf("Registration failed: HTTP %d", resp.StatusCode)
	}
}

// IsLeader reports whether this node is the current Raft leader.
func (rm *RaftManager) IsLeader() bool {
	return rm.Raft != nil && rm.Raft.State() == raft.Leader
}

// WaitForSync blocks until the FSM has applied all entries currently in the
// log. This prevents serving stale data right after a restart while the log
// is being replayed.
func (rm *RaftManager) WaitForSync(timeout time.Duration) error {
	if rm.Raft == nil {
		return nil
	}
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			return fmt.Errorf("timeout waiting for Raft sync (applied: %d, last: %d)", rm.Raft.AppliedIndex(), rm.Raft.LastIndex())
		case <-ticker.C:
			if rm.Raft.AppliedIndex() >= rm.Raft.LastIndex() {
				return nil
			}
		}
	}
}

// Propose submits a command to the cluster and returns the log index along
// with whatever the FSM returned for it.
func (rm *RaftManager) Propose(cmd RaftCommand) (uint64, any, error) {
	if rm.Raft.State() != raft.Leader {
		return 0, nil, ErrNotLeader
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return 0, nil, err
	}

	f := rm.Raft.Apply(data, 5*time.Second)
	if err := f.Error(); err != nil {
		return 0, nil, err
	}

	// f.Response() returns what FSM.Apply returned: nil, an error, or a
	// command-specific result like *ProcessedAtBatResult.
	resp := f.Response()
	if err, ok := resp.(error); ok {
		return f.Index(), nil, err
	}
	return f.Index(), resp, nil
}

// Join adds a node to the cluster. Leader only.
func (rm *RaftManager) Join(nodeID, raftAddr string, nonVoter bool) error {
	if rm.Raft.State() != raft.Leader {
		return ErrNotLeader
	}
	log.Printf("Received join request for remote node %s at %s (nonVoter: %v)", nodeID, raftAddr, nonVoter)

	var f raft.IndexFuture
	if nonVoter {
		f = rm.Raft.AddNonvoter(raft.ServerID(nodeID), raft.ServerAddress(raftAddr), 0, 0)
	} else {
		f = rm.Raft.AddVoter(raft.ServerID(nodeID), raft.ServerAddress(raftAddr), 0, 0)
	}
	if err := f.Error(); err != nil {
		return err
	}
	log.Printf("Node %s joined successfully", nodeID)
	return nil
}

// Leave removes a node from the cluster. Leader only.
func (rm *RaftManager) Leave(nodeID string) error {
	if rm.Raft.State() != raft.Leader {
		return ErrNotLeader
	}
	log.Printf("Received leave request for node %s", nodeID)

	if err := rm.Raft.RemoveServer(raft.ServerID(nodeID), 0, 0).Error(); err != nil {
		return err
	}
	log.Printf("Node %s removed successfully", nodeID)
	return nil
}

func (rm *RaftManager) checkSecret(w http.ResponseWriter, r *http.Request) bool {
	secret := r.Header.Get("X-Raft-Secret")
	if rm.Secret == "" || secret != rm.Secret {
		http.Error(w, "Forbidden: Invalid Cluster Secret", http.StatusForbidden)
		return false
	}
	return true
}

func (rm *RaftManager) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Invalid method", http.StatusMethodNotAllowed)
		return
	}
	if !rm.checkSecret(w, r) {
		return
	}

	leaderAddr, leaderID := rm.Raft.LeaderWithID()
	status := map[string]any{
		"nodeId":        rm.NodeID,
		"state":         rm.Raft.State().String(),
		"leaderId":      string(leaderID),
		"leaderAddr":    string(leaderAddr),
		"appliedIndex":  rm.Raft.AppliedIndex(),
		"lastIndex":     rm.Raft.LastIndex(),
		"schemaVersion": CurrentSchemaVersion,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

func (rm *RaftManager) handleJoin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Invalid method", http.StatusMethodNotAllowed)
		return
	}
	if !rm.checkSecret(w, r) {
		return
	}
	if rm.Raft.State() != raft.Leader {
		http.Error(w, "Not leader", http.StatusServiceUnavailable)
		return
	}

	var data struct {
		NodeID   string `json:"nodeId"`
		RaftAddr string `json:"raftAddr"`
		HttpAddr string `json:"httpAddr"`
		NonVoter bool   `json:"nonVoter"`
	}
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if data.NodeID == "" || data.RaftAddr == "" {
		http.Error(w, "Missing required fields: nodeId and raftAddr are required", http.StatusBadRequest)
		return
	}
	if _, _, err := net.SplitHostPort(data.RaftAddr); err != nil {
		http.Error(w, "Invalid RaftAddr: must be host:port", http.StatusBadRequest)
		return
	}

	if err := rm.Join(data.NodeID, data.RaftAddr, data.NonVoter); err != nil {
		http.Error(w, fmt.Sprintf("Failed to join: %v", err), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "Node %s joined cluster", data.NodeID)
}

func (rm *RaftManager) handleRemove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Invalid method", http.StatusMethodNotAllowed)
		return
	}
	if !rm.checkSecret(w, r) {
		return
	}
	if rm.Raft.State() != raft.Leader {
		http.Error(w, "Not leader", http.StatusServiceUnavailable)
		return
	}

	var data struct {
		NodeID string `json:"nodeId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil || data.NodeID == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if err := rm.Leave(data.NodeID); err != nil {
		http.Error(w, fmt.Sprintf("Failed to remove: %v", err), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "Node %s removed from cluster", data.NodeID)
}

// Shutdown stops the Raft node, transferring leadership first when possible.
func (rm *RaftManager) Shutdown() error {
	rm.shutdownOnce.Do(func() {
		close(rm.shutdownCh)
	})

	if rm.internalServer != nil {
		rm.internalServer.Close()
	}
	if rm.Raft == nil {
		rm.closeStores()
		return nil
	}

	if rm.Raft.State() == raft.Leader {
		log.Printf("Attempting leadership transfer before shutdown...")
		f := rm.Raft.LeadershipTransfer()

		done := make(chan error, 1)
		go func() { done <- f.Error() }()

		select {
		case err := <-done:
			if err != nil {
				log.Printf("Leadership transfer failed (continuing): %v", err)
			}
		case <-time.After(5 * time.Second):
			log.Printf("Leadership transfer timed out (continuing).")
		}
	}

	raftErr := rm.Raft.Shutdown().Error()
	rm.closeStores()
	return raftErr
}

func (rm *RaftManager) closeStores() {
	if c, ok := rm.logStore.(io.Closer); ok {
		c.Close()
	}
	rm.logStore = nil
	if c, ok := rm.stableStore.(io.Closer); ok {
		c.Close()
	}
	rm.stableStore = nil
}
