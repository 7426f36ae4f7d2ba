package config

import (
	"fmt"
	"net/url"
	"os"
	"sync"
)

// ServerlessConfig holds serverless-specific configuration
type ServerlessConfig struct {
	IsLambda     bool
	FunctionName string
	Region       string
	Stage        string
}

var (
	serverlessConfig *ServerlessConfig
	serverlessOnce   sync.Once
)

// GetServerlessConfig returns the serverless configuration
func GetServerlessConfig() *ServerlessConfig {
	serverlessOnce.Do(func() {
		serverlessConfig = &ServerlessConfig{
			IsLambda:     isRunningInLambda(),
			FunctionName: os.Getenv("AWS_LAMBDA_FUNCTION_NAME"),
			Region:       os.Getenv("AWS_REGION"),
			Stage:        GetEnv("STAGE", "dev"),
		}
	})
	return serverlessConfig
}

// isRunningInLambda detects if the application is running in AWS Lambda
func isRunningInLambda() bool {
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}

// IsServerlessMode returns true if running in serverless mode
func IsServerlessMode() bool {
	return GetServerlessConfig().IsLambda
}

// GetDeploymentMode returns the current deployment mode
func GetDeploymentMode() string {
	if IsServerlessMode() {
		return "serverless"
	}
	return "server"
}

// AdaptConfigForServerless switches local adapters to their AWS counterparts
func AdaptConfigForServerless(config *Config, sc *ServerlessConfig) *Config {
	if !sc.IsLambda {
		return config
	}

	if config.Database.IsSQLite() {
		if os.Getenv("RDS_ENDPOINT") != "" {
			config.Database.Driver = "pgx"
			config.Database.DSN = buildRDSConnectionString()
			config.Database.MaxOpenConns = 2
			config.Database.MaxIdleConns = 2
		} else {
			// EFS-mounted SQLite
			config.Database.DSN = "/mnt/efs/profiles.db"
		}
	}
	// Schema changes run from cmd/migrate, never from a request path.
	config.Database.AutoMigrate = false

	if config.Storage.Type == "local" {
		config.Storage.Type = "s3"
		if config.Storage.S3Bucket == "" {
			config.Storage.S3Bucket = GetEnv("S3_BUCKET", "profiles-images")
		}
	}
	if config.Storage.S3Region == "" {
		config.Storage.S3Region = config.AWS.Region
	}

	if config.Queue.Type == "memory" && config.Queue.QueueURL != "" {
		config.Queue.Type = "sqs"
	}

	if config.Mail.Type == "log" {
		config.Mail.Type = "ses"
	}

	if sc.Region != "" {
		config.AWS.Region = sc.Region
	}

	return config
}

// buildRDSConnectionString constructs a Postgres URL from environment variables
func buildRDSConnectionString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(os.Getenv("RDS_USERNAME"), os.Getenv("RDS_PASSWORD")),
		Host:     fmt.Sprintf("%s:%s", os.Getenv("RDS_ENDPOINT"), GetEnv("RDS_PORT", "5432")),
		Path:     GetEnv("RDS_DB_NAME", "profiles"),
		RawQuery: "sslmode=require",
	}
	return u.String()
}

// GetOptimizedConfig returns configuration optimized for the current deployment mode
func GetOptimizedConfig() (*Config, error) {
	config, err := Load()
	if err != nil {
		return nil, err
	}

	config = AdaptConfigForServerless(config, GetServerlessConfig())

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}
