package main

// Verification statuses for community experiments
const (
	StatusPending  = "pending"
	StatusVerified = "verified"
	StatusRejected = "rejected"
)

// Data source tags on predictions and experiments
const (
	DataSourceStatic   = "static_algorithm"
	DataSourceUserData = "user_data"
	DataSourceHybrid   = "hybrid"
)

// Process types supported by the prediction boundary
const (
	ProcessCutting   = "cutting"
	ProcessEngraving = "engraving"
	ProcessScoring   = "scoring"
)

// Default configuration values
const (
	DefaultStoreURL     = "http://localhost:8090"
	DefaultPredictURL   = "http://localhost:8000"
	DefaultWebPort      = "5000"
	DefaultSyncInterval = 60
	DefaultDBFileName   = "laserbridge.db"
)

// Database configuration keys
const (
	ConfigKeyStoreURL       = "store_url"
	ConfigKeyPredictURL     = "predict_url"
	ConfigKeySyncInterval   = "sync_interval"
	ConfigKeyWebPort        = "web_port"
	ConfigKeyStoreTimeout   = "store_timeout"
	ConfigKeyPredictTimeout = "predict_timeout"
)

// HTTP timeouts
const (
	StoreTimeout   = 10 // seconds
	PredictTimeout = 20 // seconds, model inference can be slow on cold start
)

// Reputation deltas applied through the store
const (
	ReputationSubmit   = 5
	ReputationVoteCast = 1
	ReputationApproved = 2
	ReputationRejected = -1
)

// Vote thresholds for verification status changes
const (
	VerifyThreshold = 5  // net approvals to promote to verified
	RejectThreshold = -3 // net approvals to demote to rejected
)
