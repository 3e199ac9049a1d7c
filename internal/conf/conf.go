package conf

import "google.golang.org/protobuf/types/known/durationpb"

// Bootstrap is the top-level configuration for the ContentGuard service.
// The struct shapes mirror the former protobuf config schema so downstream
// code keeps the familiar *durationpb.Duration accessors.
type Bootstrap struct {
	Server     *Server
	Data       *Data
	CMS        *CMS
	Resilience *Resilience
	Recovery   *Recovery
	Auth       *Auth
	Log        *Log
}

// Server holds transport server configuration.
type Server struct {
	Http *Server_HTTP
}

// Server_HTTP holds HTTP server configuration.
type Server_HTTP struct {
	Network string
	Addr    string
	Timeout *durationpb.Duration
}

// Data holds data layer configuration.
type Data struct {
	Database *Data_Database
	Redis    *Data_Redis
}

// Data_Database holds MySQL configuration for the deletion audit store.
type Data_Database struct {
	Driver string
	Source string
}

// Data_Redis holds Redis configuration for the offline queue and content cache.
type Data_Redis struct {
	Network      string
	Addr         string
	ReadTimeout  *durationpb.Duration
	WriteTimeout *durationpb.Duration
}

// CMS holds the headless CMS (Sanity) API configuration.
type CMS struct {
	ProjectID  string
	Dataset    string
	APIVersion string
	Token      string // write token, injected via SANITY_TOKEN
	BaseURL    string // override for tests; empty means the hosted API
	ProxyURL   string // optional socks5/http proxy for outbound calls
	UseCDN     bool
	Timeout    *durationpb.Duration
}

// Resilience holds default retry and circuit breaker tuning.
// Named breakers may further override these in the registry.
type Resilience struct {
	Retry   *Resilience_Retry
	Breaker *Resilience_Breaker
}

// Resilience_Retry holds retry executor defaults.
type Resilience_Retry struct {
	MaxRetries        int32
	InitialDelay      *durationpb.Duration
	BackoffMultiplier float64
	MaxDelay          *durationpb.Duration
}

// Resilience_Breaker holds circuit breaker defaults.
type Resilience_Breaker struct {
	FailureThreshold int32
	RecoveryTimeout  *durationpb.Duration
	SuccessThreshold int32
}

// Recovery holds batch recovery driver configuration.
type Recovery struct {
	BatchSize         int32
	BatchPause        *durationpb.Duration
	GraceDelay        *durationpb.Duration
	HistoryMaxAge     *durationpb.Duration
	HistoryMaxEntries int32
}

// Auth holds admin API authentication configuration.
type Auth struct {
	AdminToken string
}

// Log holds logging configuration.
type Log struct {
	Level      string
	Format     string
	Env        string
	OutputFile string
}
