package main

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// LaserBridge connects the mobile app to the remote document store and the
// prediction service, and keeps the local configuration and action logs
type LaserBridge struct {
	config        *Config
	store         *StoreClient
	predictor     *PredictionClient
	db            *sql.DB
	lastVerified  int // verified experiment count seen by the previous sync
	lastSyncError string
	mutex         sync.RWMutex
}

// SubmissionRecord is a log entry for an experiment submitted through this
// bridge. The remote store owns the document; this is an audit trail only.
type SubmissionRecord struct {
	ID           int       `json:"id"`
	ExperimentID string    `json:"experiment_id"`
	UserID       string    `json:"user_id"`
	MaterialType string    `json:"material_type"`
	MachineBrand string    `json:"machine_brand"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// VoteRecord is a log entry for a vote brokered through this bridge
type VoteRecord struct {
	ID           int       `json:"id"`
	ExperimentID string    `json:"experiment_id"`
	VoterID      string    `json:"voter_id"`
	Approve      bool      `json:"approve"`
	VotedAt      time.Time `json:"voted_at"`
}

// CommunityStatus is the snapshot broadcast to connected clients
type CommunityStatus struct {
	Statistics    *StoreStatistics `json:"statistics"`
	NewVerified   int              `json:"new_verified"`
	StoreOnline   bool             `json:"store_online"`
	PredictOnline bool             `json:"predict_online"`
	LastSyncError string           `json:"last_sync_error,omitempty"`
	Timestamp     time.Time        `json:"timestamp"`
}

// NewLaserBridge creates a new LaserBridge instance
func NewLaserBridge(config *Config) (*LaserBridge, error) {
	bridge := &LaserBridge{
		config:    config,
		store:     NewStoreClient(DefaultStoreURL, StoreTimeout, "", ""),
		predictor: NewPredictionClient(DefaultPredictURL, PredictTimeout),
	}

	if err := bridge.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if config != nil {
		bridge.store = NewStoreClient(config.StoreURL, config.StoreTimeout, config.StoreUsername, config.StorePassword)
		bridge.predictor = NewPredictionClient(config.PredictURL, config.PredictTimeout)
	}

	return bridge, nil
}

// initDatabase initializes the SQLite database
func (b *LaserBridge) initDatabase() error {
	dbFile := DefaultDBFileName
	if b.config != nil {
		dbFile = b.config.DBFile
	}

	db, err := sql.Open("sqlite3", dbFile)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	b.db = db

	createTables := []string{
		`CREATE TABLE IF NOT EXISTS configuration (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			description TEXT,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS submission_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			experiment_id TEXT NOT NULL,
			user_id TEXT,
			material_type TEXT,
			machine_brand TEXT,
			submitted_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS vote_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			experiment_id TEXT NOT NULL,
			voter_id TEXT,
			approve INTEGER NOT NULL,
			voted_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, query := range createTables {
		if _, err := b.db.Exec(query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	if err := b.initializeDefaultConfig(); err != nil {
		return fmt.Errorf("failed to initialize default configuration: %w", err)
	}

	return nil
}

// initializeDefaultConfig sets up default configuration values
func (b *LaserBridge) initializeDefaultConfig() error {
	defaultConfigs := map[string]string{
		ConfigKeyStoreURL:       DefaultStoreURL,
		ConfigKeyPredictURL:     DefaultPredictURL,
		ConfigKeySyncInterval:   fmt.Sprintf("%d", DefaultSyncInterval),
		ConfigKeyWebPort:        DefaultWebPort,
		ConfigKeyStoreTimeout:   fmt.Sprintf("%d", StoreTimeout),
		ConfigKeyPredictTimeout: fmt.Sprintf("%d", PredictTimeout),
	}

	// Only seed defaults on a fresh installation
	var totalCount int
	err := b.db.QueryRow("SELECT COUNT(*) FROM configuration").Scan(&totalCount)
	if err != nil {
		return fmt.Errorf("failed to check config existence: %w", err)
	}

	if totalCount == 0 {
		for key, value := range defaultConfigs {
			_, err := b.db.Exec(
				"INSERT INTO configuration (key, value, description) VALUES (?, ?, ?)",
				key, value, getConfigDescription(key),
			)
			if err != nil {
				return fmt.Errorf("failed to insert default config %s: %w", key, err)
			}
		}
	}

	return nil
}

// getConfigDescription returns a description for a configuration key
func getConfigDescription(key string) string {
	descriptions := map[string]string{
		ConfigKeyStoreURL:       "URL of the community document store",
		ConfigKeyPredictURL:     "URL of the prediction service",
		ConfigKeySyncInterval:   "Community sync interval in seconds",
		ConfigKeyWebPort:        "Port for the bridge API",
		ConfigKeyStoreTimeout:   "Document store request timeout in seconds",
		ConfigKeyPredictTimeout: "Prediction service request timeout in seconds",
	}
	if desc, exists := descriptions[key]; exists {
		return desc
	}
	return "Configuration value"
}

// GetConfigValue gets a configuration value from the database
func (b *LaserBridge) GetConfigValue(key string) (string, error) {
	var value string
	err := b.db.QueryRow("SELECT value FROM configuration WHERE key = ?", key).Scan(&value)
	if err != nil {
		return "", fmt.Errorf("failed to get config value for %s: %w", key, err)
	}
	return value, nil
}

// SetConfigValue sets a configuration value in the database
func (b *LaserBridge) SetConfigValue(key, value string) error {
	_, err := b.db.Exec(
		"INSERT OR REPLACE INTO configuration (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set config value for %s: %w", key, err)
	}
	return nil
}

// GetAllConfig gets all configuration values
func (b *LaserBridge) GetAllConfig() (map[string]string, error) {
	rows, err := b.db.Query("SELECT key, value FROM configuration")
	if err != nil {
		return nil, fmt.Errorf("failed to get all config: %w", err)
	}
	defer rows.Close()

	config := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan config row: %w", err)
		}
		config[key] = value
	}

	return config, nil
}

// ReloadConfig reloads the configuration from the database
func (b *LaserBridge) ReloadConfig() error {
	config, err := LoadConfig(b)
	if err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}
	return b.UpdateConfig(config)
}

// UpdateConfig updates the bridge configuration and rebuilds the clients
func (b *LaserBridge) UpdateConfig(config *Config) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.config = config
	b.store = NewStoreClient(config.StoreURL, config.StoreTimeout, config.StoreUsername, config.StorePassword)
	b.predictor = NewPredictionClient(config.PredictURL, config.PredictTimeout)

	return nil
}

// storeClient returns the current store client. UpdateConfig swaps the
// client pointers at runtime, so every reader must go through here.
func (b *LaserBridge) storeClient() *StoreClient {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return b.store
}

// predictClient returns the current prediction client
func (b *LaserBridge) predictClient() *PredictionClient {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return b.predictor
}

// LastSyncError returns the error from the most recent sync cycle, or the
// empty string when the last cycle succeeded
func (b *LaserBridge) LastSyncError() string {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return b.lastSyncError
}

// SubmitExperiment validates a submission, creates the document in the store
// and applies the submitter's reputation delta
func (b *LaserBridge) SubmitExperiment(model ExperimentModel) (string, error) {
	if len(model.Processes) == 0 {
		return "", fmt.Errorf("experiment must include at least one process")
	}
	for name, params := range model.Processes {
		if _, err := NewProcessParams(params.Power, params.Speed, params.Passes); err != nil {
			return "", fmt.Errorf("invalid parameters for process %s: %w", name, err)
		}
	}

	if model.VerificationStatus == "" {
		model.VerificationStatus = StatusPending
	}
	if model.DataSource == "" {
		model.DataSource = DataSourceUserData
	}
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}

	store := b.storeClient()

	id, err := store.SubmitExperiment(model)
	if err != nil {
		return "", fmt.Errorf("failed to submit experiment: %w", err)
	}

	if err := b.logSubmission(id, model); err != nil {
		log.Printf("Error logging submission %s: %v", id, err)
	}

	if model.UserID != "" {
		if err := store.AdjustReputation(model.UserID, ReputationSubmit); err != nil {
			log.Printf("Warning: Failed to adjust reputation for user %s: %v", model.UserID, err)
		}
	}

	log.Printf("Submitted experiment %s (%s, %s %.1fmm)", id, model.MachineBrand, model.MaterialType, model.MaterialThickness)
	return id, nil
}

// VoteExperiment records a vote, applies reputation deltas and logs the action
func (b *LaserBridge) VoteExperiment(experimentID, voterID string, approve bool) (*ExperimentModel, error) {
	store := b.storeClient()

	model, err := store.VoteExperiment(experimentID, approve)
	if err != nil {
		return nil, err
	}

	if err := b.logVote(experimentID, voterID, approve); err != nil {
		log.Printf("Error logging vote on %s: %v", experimentID, err)
	}

	if voterID != "" {
		if err := store.AdjustReputation(voterID, ReputationVoteCast); err != nil {
			log.Printf("Warning: Failed to adjust reputation for voter %s: %v", voterID, err)
		}
	}

	// The submitter gains or loses reputation when this vote flips the status
	if model.UserID != "" {
		switch model.VerificationStatus {
		case StatusVerified:
			if model.NetApprovals() == VerifyThreshold {
				if err := store.AdjustReputation(model.UserID, ReputationApproved); err != nil {
					log.Printf("Warning: Failed to reward submitter %s: %v", model.UserID, err)
				}
			}
		case StatusRejected:
			if model.NetApprovals() == RejectThreshold {
				if err := store.AdjustReputation(model.UserID, ReputationRejected); err != nil {
					log.Printf("Warning: Failed to penalize submitter %s: %v", model.UserID, err)
				}
			}
		}
	}

	return model, nil
}

// logSubmission records a submission in the local audit trail
func (b *LaserBridge) logSubmission(experimentID string, model ExperimentModel) error {
	_, err := b.db.Exec(
		"INSERT INTO submission_log (experiment_id, user_id, material_type, machine_brand, submitted_at) VALUES (?, ?, ?, ?, ?)",
		experimentID, model.UserID, model.MaterialType, model.MachineBrand, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to log submission: %w", err)
	}
	return nil
}

// logVote records a vote in the local audit trail
func (b *LaserBridge) logVote(experimentID, voterID string, approve bool) error {
	_, err := b.db.Exec(
		"INSERT INTO vote_log (experiment_id, voter_id, approve, voted_at) VALUES (?, ?, ?, ?)",
		experimentID, voterID, approve, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to log vote: %w", err)
	}
	return nil
}

// GetSubmissionLog returns recent submissions brokered by this bridge
func (b *LaserBridge) GetSubmissionLog(limit int) ([]SubmissionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := b.db.Query(
		"SELECT id, experiment_id, user_id, material_type, machine_brand, submitted_at FROM submission_log ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query submission log: %w", err)
	}
	defer rows.Close()

	var records []SubmissionRecord
	for rows.Next() {
		var rec SubmissionRecord
		if err := rows.Scan(&rec.ID, &rec.ExperimentID, &rec.UserID, &rec.MaterialType, &rec.MachineBrand, &rec.SubmittedAt); err != nil {
			return nil, fmt.Errorf("failed to scan submission row: %w", err)
		}
		records = append(records, rec)
	}

	return records, nil
}

// GetVoteLog returns recent votes brokered by this bridge
func (b *LaserBridge) GetVoteLog(limit int) ([]VoteRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := b.db.Query(
		"SELECT id, experiment_id, voter_id, approve, voted_at FROM vote_log ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query vote log: %w", err)
	}
	defer rows.Close()

	var records []VoteRecord
	for rows.Next() {
		var rec VoteRecord
		if err := rows.Scan(&rec.ID, &rec.ExperimentID, &rec.VoterID, &rec.Approve, &rec.VotedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vote row: %w", err)
		}
		records = append(records, rec)
	}

	return records, nil
}

// SyncCommunityData polls the store for collection statistics, tracks how
// many experiments were verified since the previous cycle and returns the
// snapshot for broadcasting
func (b *LaserBridge) SyncCommunityData() *CommunityStatus {
	status := &CommunityStatus{Timestamp: time.Now()}

	stats, err := b.storeClient().GetStatistics()
	if err != nil {
		log.Printf("Warning: Failed to sync community data: %v", err)
		b.mutex.Lock()
		b.lastSyncError = err.Error()
		b.mutex.Unlock()
		status.Statistics = &StoreStatistics{Available: false}
		status.LastSyncError = err.Error()
		return status
	}

	b.mutex.Lock()
	if b.lastVerified > 0 && stats.VerifiedExperiments > b.lastVerified {
		status.NewVerified = stats.VerifiedExperiments - b.lastVerified
	}
	b.lastVerified = stats.VerifiedExperiments
	b.lastSyncError = ""
	b.mutex.Unlock()

	status.Statistics = stats
	status.StoreOnline = true
	status.PredictOnline = b.predictClient().TestConnection() == nil

	if status.NewVerified > 0 {
		log.Printf("Community sync: %d newly verified experiments (total %d)",
			status.NewVerified, stats.VerifiedExperiments)
	}

	return status
}

// Close closes the database connection
func (b *LaserBridge) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}
