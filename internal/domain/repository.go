package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
type Repository interface {
	// Patient operations
	SavePatient(ctx context.Context, p *Patient) error
	GetPatient(ctx context.Context, patientID string) (*Patient, error)

	// Metric record operations. ListMetricRecords returns a patient's
	// records in chronological order, oldest first.
	SaveMetricRecord(ctx context.Context, rec *MetricRecord) error
	ListMetricRecords(ctx context.Context, patientID string) ([]*MetricRecord, error)
	GetLatestMetricRecord(ctx context.Context, patientID string) (*MetricRecord, error)

	// Assessment results
	SaveAssessment(ctx context.Context, a *Assessment) error
	GetAssessment(ctx context.Context, assessmentID string) (*Assessment, error)

	// Rule table operations. Rows come back in table order.
	SaveRule(ctx context.Context, position int, r *Rule) error
	ListRules(ctx context.Context) ([]Rule, error)
	SaveAdviceRule(ctx context.Context, position int, r *AdviceRule) error
	ListAdviceRules(ctx context.Context) ([]AdviceRule, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string `mapstructure:"driver"`

	// SQLite specific
	SQLitePath string `mapstructure:"sqlitePath"`

	// PostgreSQL specific
	PostgresHost     string `mapstructure:"postgresHost"`
	PostgresPort     int    `mapstructure:"postgresPort"`
	PostgresUser     string `mapstructure:"postgresUser"`
	PostgresPassword string `mapstructure:"postgresPassword"`
	PostgresDB       string `mapstructure:"postgresDb"`
	PostgresSSLMode  string `mapstructure:"postgresSslMode"`

	// Connection pool settings
	MaxOpenConns    int           `mapstructure:"maxOpenConns"`
	MaxIdleConns    int           `mapstructure:"maxIdleConns"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"`
}
