package health

import "context"

// DBPinger checks cache backend availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// ArchivePinger checks clip manifest availability.
type ArchivePinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
