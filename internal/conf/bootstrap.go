// Package conf provides configuration management using Viper.
// It supports loading configuration from YAML files and environment variables,
// with CLI flag overrides.
package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"google.golang.org/protobuf/types/known/durationpb"
)

// NewBootstrap creates and initializes a Bootstrap configuration.
// It loads configuration from the specified config file path, applies defaults,
// and allows overrides from environment variables prefixed with CONTENTGUARD_.
//
// Configuration priority: CLI flags > Environment variables > Config file > Defaults
//
// Required environment variables:
//   - MYSQL_DSN or CONTENTGUARD_DATA_DATABASE_SOURCE: MySQL connection string
//   - SANITY_TOKEN or CONTENTGUARD_CMS_TOKEN: CMS write token
//   - ADMIN_TOKEN or CONTENTGUARD_AUTH_ADMIN_TOKEN: admin API token
func NewBootstrap(configPath string) (*Bootstrap, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("CONTENTGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Allow conventional environment variable names for required secrets.
	_ = v.BindEnv("data.database.source", "MYSQL_DSN", "CONTENTGUARD_DATA_DATABASE_SOURCE")
	_ = v.BindEnv("data.redis.addr", "CONTENTGUARD_DATA_REDIS_ADDR")
	_ = v.BindEnv("cms.token", "SANITY_TOKEN", "CONTENTGUARD_CMS_TOKEN")
	_ = v.BindEnv("cms.project_id", "SANITY_PROJECT_ID", "CONTENTGUARD_CMS_PROJECT_ID")
	_ = v.BindEnv("auth.admin_token", "ADMIN_TOKEN", "CONTENTGUARD_AUTH_ADMIN_TOKEN")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	bc := &Bootstrap{
		Server: &Server{
			Http: &Server_HTTP{
				Network: v.GetString("server.http.network"),
				Addr:    v.GetString("server.http.addr"),
				Timeout: durationpb.New(v.GetDuration("server.http.timeout")),
			},
		},
		Data: &Data{
			Database: &Data_Database{
				Driver: v.GetString("data.database.driver"),
				Source: v.GetString("data.database.source"),
			},
			Redis: &Data_Redis{
				Network:      v.GetString("data.redis.network"),
				Addr:         v.GetString("data.redis.addr"),
				ReadTimeout:  durationpb.New(v.GetDuration("data.redis.read_timeout")),
				WriteTimeout: durationpb.New(v.GetDuration("data.redis.write_timeout")),
			},
		},
		CMS: &CMS{
			ProjectID:  v.GetString("cms.project_id"),
			Dataset:    v.GetString("cms.dataset"),
			APIVersion: v.GetString("cms.api_version"),
			Token:      v.GetString("cms.token"),
			BaseURL:    v.GetString("cms.base_url"),
			ProxyURL:   v.GetString("cms.proxy_url"),
			UseCDN:     v.GetBool("cms.use_cdn"),
			Timeout:    durationpb.New(v.GetDuration("cms.timeout")),
		},
		Resilience: &Resilience{
			Retry: &Resilience_Retry{
				MaxRetries:        v.GetInt32("resilience.retry.max_retries"),
				InitialDelay:      durationpb.New(v.GetDuration("resilience.retry.initial_delay")),
				BackoffMultiplier: v.GetFloat64("resilience.retry.backoff_multiplier"),
				MaxDelay:          durationpb.New(v.GetDuration("resilience.retry.max_delay")),
			},
			Breaker: &Resilience_Breaker{
				FailureThreshold: v.GetInt32("resilience.breaker.failure_threshold"),
				RecoveryTimeout:  durationpb.New(v.GetDuration("resilience.breaker.recovery_timeout")),
				SuccessThreshold: v.GetInt32("resilience.breaker.success_threshold"),
			},
		},
		Recovery: &Recovery{
			BatchSize:         v.GetInt32("recovery.batch_size"),
			BatchPause:        durationpb.New(v.GetDuration("recovery.batch_pause")),
			GraceDelay:        durationpb.New(v.GetDuration("recovery.grace_delay")),
			HistoryMaxAge:     durationpb.New(v.GetDuration("recovery.history_max_age")),
			HistoryMaxEntries: v.GetInt32("recovery.history_max_entries"),
		},
		Auth: &Auth{
			AdminToken: v.GetString("auth.admin_token"),
		},
		Log: &Log{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Env:        v.GetString("log.env"),
			OutputFile: v.GetString("log.output_file"),
		},
	}

	if err := Validate(bc); err != nil {
		return nil, err
	}

	return bc, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.http.network", "tcp")
	v.SetDefault("server.http.addr", ":8080")
	v.SetDefault("server.http.timeout", 10*time.Minute)

	// Data defaults
	v.SetDefault("data.database.driver", "mysql")
	// Note: data.database.source (MYSQL_DSN) is required from environment

	v.SetDefault("data.redis.network", "tcp")
	v.SetDefault("data.redis.addr", "127.0.0.1:6379")
	v.SetDefault("data.redis.read_timeout", 200*time.Millisecond)
	v.SetDefault("data.redis.write_timeout", 200*time.Millisecond)

	// CMS defaults
	v.SetDefault("cms.dataset", "production")
	v.SetDefault("cms.api_version", "2024-01-01")
	v.SetDefault("cms.use_cdn", false)
	v.SetDefault("cms.timeout", 15*time.Second)
	// Note: cms.project_id and cms.token are required from environment

	// Resilience defaults (per-breaker overrides live in the registry)
	v.SetDefault("resilience.retry.max_retries", 3)
	v.SetDefault("resilience.retry.initial_delay", 1*time.Second)
	v.SetDefault("resilience.retry.backoff_multiplier", 2.0)
	v.SetDefault("resilience.retry.max_delay", 10*time.Second)
	v.SetDefault("resilience.breaker.failure_threshold", 5)
	v.SetDefault("resilience.breaker.recovery_timeout", 60*time.Second)
	v.SetDefault("resilience.breaker.success_threshold", 2)

	// Recovery driver defaults
	v.SetDefault("recovery.batch_size", 5)
	v.SetDefault("recovery.batch_pause", 1*time.Second)
	v.SetDefault("recovery.grace_delay", 30*time.Second)
	v.SetDefault("recovery.history_max_age", 7*24*time.Hour)
	v.SetDefault("recovery.history_max_entries", 100)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that all required configuration fields are present and valid.
// It returns an error listing all missing required fields.
func Validate(bc *Bootstrap) error {
	var missingFields []string

	if bc.Data == nil || bc.Data.Database == nil || bc.Data.Database.Source == "" {
		missingFields = append(missingFields, "data.database.source (MYSQL_DSN)")
	}

	if bc.CMS == nil || bc.CMS.ProjectID == "" {
		missingFields = append(missingFields, "cms.project_id (SANITY_PROJECT_ID)")
	}

	if bc.CMS == nil || bc.CMS.Token == "" {
		missingFields = append(missingFields, "cms.token (SANITY_TOKEN)")
	}

	if bc.Auth == nil || bc.Auth.AdminToken == "" {
		missingFields = append(missingFields, "auth.admin_token (ADMIN_TOKEN)")
	}

	if len(missingFields) > 0 {
		return fmt.Errorf("missing required configuration fields: %s", strings.Join(missingFields, ", "))
	}

	return nil
}
