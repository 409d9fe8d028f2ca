package config

import "time"

// Application constants
const (
	AppName   = "rfm"
	EnvPrefix = "RFM"

	// Input
	DefaultSheetName   = "Year 2010-2011"
	DefaultInputFormat = "auto"

	// Output
	DefaultOutputDir     = "output"
	DefaultLoyalFile     = "RFM_Loyal_Customers_ID_2010-2011.csv"
	DefaultTargetSegment = "Loyal Customers"
	LoyalColumnName      = "LoyalCustomersID"

	// Analysis
	ReferenceDateLayout       = "2006-01-02"
	DefaultCancellationMarker = "C"
	DefaultQuantiles          = 5
	DefaultFenceMultiplier    = 1.5
	DefaultLowerPercentile    = 0.01
	DefaultUpperPercentile    = 0.99

	// Overview
	DefaultTopN = 5

	// Logging
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
	DefaultLogOutput = "console"
	DefaultLogFile   = "logs/rfm.log"

	// Server
	DefaultServerPort      = 8080
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultRateLimit       = 50.0
	DefaultRateBurst       = 100
)

// ConfigFileEnv names the environment variable pointing at a YAML config file
const ConfigFileEnv = "RFM_CONFIG"
