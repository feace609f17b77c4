package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	StoreURL       string
	StoreUsername  string
	StorePassword  string
	PredictURL     string
	SyncInterval   time.Duration
	DBFile         string
	WebPort        string
	StoreTimeout   int
	PredictTimeout int
}

// LoadConfig loads configuration from the database
func LoadConfig(bridge *LaserBridge) (*Config, error) {
	configValues, err := bridge.GetAllConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config from database: %w", err)
	}

	syncInterval := DefaultSyncInterval
	if intervalStr, exists := configValues[ConfigKeySyncInterval]; exists {
		if parsed, err := strconv.Atoi(intervalStr); err == nil {
			syncInterval = parsed
		}
	}

	storeTimeout := StoreTimeout
	if timeoutStr, exists := configValues[ConfigKeyStoreTimeout]; exists {
		if parsed, err := strconv.Atoi(timeoutStr); err == nil {
			storeTimeout = parsed
		}
	}

	predictTimeout := PredictTimeout
	if timeoutStr, exists := configValues[ConfigKeyPredictTimeout]; exists {
		if parsed, err := strconv.Atoi(timeoutStr); err == nil {
			predictTimeout = parsed
		}
	}

	storeURL := configValues[ConfigKeyStoreURL]
	if storeURL == "" {
		storeURL = DefaultStoreURL
	}
	predictURL := configValues[ConfigKeyPredictURL]
	if predictURL == "" {
		predictURL = DefaultPredictURL
	}
	webPort := configValues[ConfigKeyWebPort]
	if webPort == "" {
		webPort = DefaultWebPort
	}

	config := &Config{
		StoreURL:       storeURL,
		StoreUsername:  os.Getenv("LASERBRIDGE_STORE_USER"),
		StorePassword:  os.Getenv("LASERBRIDGE_STORE_PASSWORD"),
		PredictURL:     predictURL,
		SyncInterval:   time.Duration(syncInterval) * time.Second,
		DBFile:         getDBFilePath(),
		WebPort:        webPort,
		StoreTimeout:   storeTimeout,
		PredictTimeout: predictTimeout,
	}

	return config, nil
}

// getDBFilePath returns the database file path, checking environment variable first
func getDBFilePath() string {
	if dbPath := os.Getenv("LASERBRIDGE_DB_PATH"); dbPath != "" {
		return filepath.Join(dbPath, DefaultDBFileName)
	}
	return DefaultDBFileName
}
