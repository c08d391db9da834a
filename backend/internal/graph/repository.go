// Package graph projects the built knowledge graph into Neo4j as :Entity
// nodes joined by :RELATED relationships, and queries it back.
package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	apperrors "knowledge-weaver/backend/pkg/errors"
	"knowledge-weaver/backend/pkg/logger"
)

// Repository handles all Neo4j database operations
type Repository struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// NewRepository creates a new graph repository
func NewRepository(driver neo4j.DriverWithContext) *Repository {
	return &Repository{
		driver: driver,
		logger: logger.Named("graph"),
	}
}

// Connect opens a driver and verifies the server answers
func Connect(ctx context.Context, uri, user, password string) (neo4j.DriverWithContext, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, apperrors.NewGraphConnectionFailed(uri, err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, apperrors.NewGraphConnectionFailed(uri, err)
	}
	return driver, nil
}

// Close closes the Neo4j driver connection
func (r *Repository) Close() error {
	return r.driver.Close(context.Background())
}

// ============================================================================
// Schema
// ============================================================================

var schemaStatements = []string{
	`CREATE CONSTRAINT entity_id IF NOT EXISTS FOR (e:Entity) REQUIRE e.id IS UNIQUE`,
	`CREATE INDEX entity_type IF NOT EXISTS FOR (e:Entity) ON (e.type)`,
	`CREATE INDEX entity_name IF NOT EXISTS FOR (e:Entity) ON (e.name)`,
}

// EnsureSchema creates the constraint and indexes the projection relies on
func (r *Repository) EnsureSchema(ctx context.Context) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	for _, stmt := range schemaStatements {
		if _, err := session.Run(ctx, stmt, nil); err != nil {
			return apperrors.NewGraphQueryFailed(stmt, err)
		}
	}

	r.logger.Info("Graph schema ensured", zap.Int("statements", len(schemaStatements)))
	return nil
}

// ============================================================================
// Entity Operations
// ============================================================================

// EntityCounts returns the number of projected entities per node type
func (r *Repository) EntityCounts(ctx context.Context) (map[string]int64, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := `
		MATCH (e:Entity)
		RETURN e.type AS type, count(e) AS count
		ORDER BY type
	`

	result, err := session.Run(ctx, query, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count entities: %w", err)
	}

	counts := make(map[string]int64)
	for result.Next(ctx) {
		record := result.Record()
		counts[value[string](record, "type")] = value[int64](record, "count")
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to read entity counts: %w", err)
	}
	return counts, nil
}

// DeleteEntity removes an entity and its relationships. It reports whether
// the entity existed.
func (r *Repository) DeleteEntity(ctx context.Context, id string) (bool, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	query := `
		MATCH (e:Entity {id: $id})
		DETACH DELETE e
	`

	result, err := session.Run(ctx, query, map[string]interface{}{"id": id})
	if err != nil {
		return false, fmt.Errorf("failed to delete entity: %w", err)
	}
	summary, err := result.Consume(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to delete entity: %w", err)
	}

	deleted := summary.Counters().NodesDeleted() > 0
	if deleted {
		r.logger.Info("Entity deleted", zap.String("id", id))
	}
	return deleted, nil
}
