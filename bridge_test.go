package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// fakeStore is an in-memory stand-in for the remote document store that
// records every reputation patch it receives
type fakeStore struct {
	mu                sync.Mutex
	experiments       map[string]map[string]interface{}
	reputations       map[string]int
	reputationPatches map[string][]int
	submitCount       int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		experiments:       make(map[string]map[string]interface{}),
		reputations:       make(map[string]int),
		reputationPatches: make(map[string][]int),
	}
}

func (f *fakeStore) seedExperiment(id string, fields map[string]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.experiments[id] = fields
}

func (f *fakeStore) experimentDoc(id string) map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.experiments[id]
}

func (f *fakeStore) patchesFor(id string) []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.reputationPatches[id]...)
}

func (f *fakeStore) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		switch {
		case r.Method == "POST" && r.URL.Path == "/api/v1/experiments":
			var doc storeDocument
			if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
				t.Errorf("failed to decode submitted document: %v", err)
			}
			f.submitCount++
			id := fmt.Sprintf("exp-%d", f.submitCount)
			f.experiments[id] = doc.Fields
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(storeDocument{ID: id})

		case r.Method == "GET" && strings.HasPrefix(r.URL.Path, "/api/v1/experiments/"):
			id := strings.TrimPrefix(r.URL.Path, "/api/v1/experiments/")
			fields, ok := f.experiments[id]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				json.NewEncoder(w).Encode(StoreError{Detail: "document not found"})
				return
			}
			json.NewEncoder(w).Encode(storeDocument{ID: id, Fields: fields})

		case r.Method == "PATCH" && strings.HasPrefix(r.URL.Path, "/api/v1/experiments/"):
			id := strings.TrimPrefix(r.URL.Path, "/api/v1/experiments/")
			var update map[string]interface{}
			if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
				t.Errorf("failed to decode experiment patch: %v", err)
			}
			for key, value := range update {
				f.experiments[id][key] = value
			}
			w.Write([]byte(`{}`))

		case r.Method == "GET" && strings.HasPrefix(r.URL.Path, "/api/v1/users/"):
			id := strings.TrimPrefix(r.URL.Path, "/api/v1/users/")
			json.NewEncoder(w).Encode(storeDocument{
				ID:     id,
				Fields: map[string]interface{}{"reputation": f.reputations[id]},
			})

		case r.Method == "PATCH" && strings.HasPrefix(r.URL.Path, "/api/v1/users/"):
			id := strings.TrimPrefix(r.URL.Path, "/api/v1/users/")
			var update map[string]interface{}
			if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
				t.Errorf("failed to decode user patch: %v", err)
			}
			value := int(update["reputation"].(float64))
			f.reputations[id] = value
			f.reputationPatches[id] = append(f.reputationPatches[id], value)
			w.Write([]byte(`{}`))

		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func newTestBridge(t *testing.T, storeURL string) *LaserBridge {
	t.Helper()
	config := &Config{
		StoreURL:       storeURL,
		PredictURL:     "http://127.0.0.1:1",
		DBFile:         filepath.Join(t.TempDir(), "bridge_test.db"),
		WebPort:        DefaultWebPort,
		StoreTimeout:   5,
		PredictTimeout: 1,
	}
	bridge, err := NewLaserBridge(config)
	if err != nil {
		t.Fatalf("NewLaserBridge failed: %v", err)
	}
	t.Cleanup(func() { bridge.Close() })
	return bridge
}

func TestBridgeSubmitExperiment(t *testing.T) {
	fake := newFakeStore()
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	bridge := newTestBridge(t, server.URL)

	model := ExperimentModel{
		UserID:            "user-1",
		MachineBrand:      "xTool D1 Pro",
		LaserPower:        20.0,
		MaterialType:      "Ahşap",
		MaterialThickness: 5.0,
		Processes: map[string]ProcessParams{
			ProcessCutting: {Power: 80.0, Speed: 230.0, Passes: 1},
		},
	}

	id, err := bridge.SubmitExperiment(model)
	if err != nil {
		t.Fatalf("SubmitExperiment failed: %v", err)
	}
	if id != "exp-1" {
		t.Errorf("id = %q, want exp-1", id)
	}

	// Unset fields get their defaults before the document is created
	fields := fake.experimentDoc(id)
	if fields["verificationStatus"] != StatusPending {
		t.Errorf("verificationStatus = %v, want %s", fields["verificationStatus"], StatusPending)
	}
	if fields["dataSource"] != DataSourceUserData {
		t.Errorf("dataSource = %v, want %s", fields["dataSource"], DataSourceUserData)
	}

	// The submitter earns the submission delta exactly once
	patches := fake.patchesFor("user-1")
	if len(patches) != 1 || patches[0] != ReputationSubmit {
		t.Errorf("reputation patches = %v, want [%d]", patches, ReputationSubmit)
	}

	records, err := bridge.GetSubmissionLog(10)
	if err != nil {
		t.Fatalf("GetSubmissionLog failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("submission log has %d records, want 1", len(records))
	}
	if records[0].ExperimentID != id || records[0].MaterialType != "Ahşap" {
		t.Errorf("submission record = %+v", records[0])
	}
}

func TestBridgeSubmitExperimentValidation(t *testing.T) {
	bridge := newTestBridge(t, "http://127.0.0.1:1")

	tests := []struct {
		name  string
		model ExperimentModel
	}{
		{"No processes", ExperimentModel{MaterialType: "MDF"}},
		{"Invalid process params", ExperimentModel{
			MaterialType: "MDF",
			Processes:    map[string]ProcessParams{ProcessCutting: {Power: 0, Speed: 230.0, Passes: 1}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := bridge.SubmitExperiment(tt.model); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestBridgeVoteExperimentReputationOnPromotion(t *testing.T) {
	fake := newFakeStore()
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	fields := experimentFields("MDF", 3.0, 1700000000)
	fields["userId"] = "author"
	fields["verificationStatus"] = StatusPending
	fields["approveCount"] = VerifyThreshold - 1
	fields["rejectCount"] = 0
	fake.seedExperiment("exp-9", fields)

	bridge := newTestBridge(t, server.URL)

	model, err := bridge.VoteExperiment("exp-9", "voter-1", true)
	if err != nil {
		t.Fatalf("VoteExperiment failed: %v", err)
	}

	if model.VerificationStatus != StatusVerified {
		t.Errorf("VerificationStatus = %q, want %q", model.VerificationStatus, StatusVerified)
	}

	voterPatches := fake.patchesFor("voter-1")
	if len(voterPatches) != 1 || voterPatches[0] != ReputationVoteCast {
		t.Errorf("voter patches = %v, want [%d]", voterPatches, ReputationVoteCast)
	}

	// The submitter reward fires on the vote that crosses the threshold
	authorPatches := fake.patchesFor("author")
	if len(authorPatches) != 1 || authorPatches[0] != ReputationApproved {
		t.Errorf("author patches = %v, want [%d]", authorPatches, ReputationApproved)
	}

	votes, err := bridge.GetVoteLog(10)
	if err != nil {
		t.Fatalf("GetVoteLog failed: %v", err)
	}
	if len(votes) != 1 {
		t.Fatalf("vote log has %d records, want 1", len(votes))
	}
	if votes[0].ExperimentID != "exp-9" || votes[0].VoterID != "voter-1" || !votes[0].Approve {
		t.Errorf("vote record = %+v", votes[0])
	}
}

func TestBridgeVoteExperimentNoSubmitterDeltaBelowThreshold(t *testing.T) {
	fake := newFakeStore()
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	fields := experimentFields("MDF", 3.0, 1700000000)
	fields["userId"] = "author"
	fields["verificationStatus"] = StatusPending
	fields["approveCount"] = 0
	fields["rejectCount"] = 0
	fake.seedExperiment("exp-10", fields)

	bridge := newTestBridge(t, server.URL)

	model, err := bridge.VoteExperiment("exp-10", "voter-1", true)
	if err != nil {
		t.Fatalf("VoteExperiment failed: %v", err)
	}

	if model.VerificationStatus != StatusPending {
		t.Errorf("VerificationStatus = %q, want %q", model.VerificationStatus, StatusPending)
	}
	if patches := fake.patchesFor("author"); len(patches) != 0 {
		t.Errorf("author received patches %v before the threshold", patches)
	}
	if patches := fake.patchesFor("voter-1"); len(patches) != 1 {
		t.Errorf("voter patches = %v, want one entry", patches)
	}
}

// UpdateConfig swaps the client pointers while handlers and the sync loop
// read them, so all reads must go through the locked accessors.
func TestUpdateConfigConcurrentWithClientReads(t *testing.T) {
	bridge := &LaserBridge{
		store:     NewStoreClient(DefaultStoreURL, 1, "", ""),
		predictor: NewPredictionClient(DefaultPredictURL, 1),
	}
	config := &Config{
		StoreURL:       "http://localhost:9999",
		PredictURL:     "http://localhost:9998",
		StoreTimeout:   1,
		PredictTimeout: 1,
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				bridge.UpdateConfig(config)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if bridge.storeClient() == nil || bridge.predictClient() == nil {
					t.Error("client accessor returned nil")
					return
				}
				bridge.LastSyncError()
			}
		}()
	}
	wg.Wait()
}
