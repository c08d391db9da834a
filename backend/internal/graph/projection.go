package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"knowledge-weaver/backend/internal/knowledge"
	"knowledge-weaver/backend/internal/notes"
	apperrors "knowledge-weaver/backend/pkg/errors"
)

// ============================================================================
// Projection
// ============================================================================

// nodeParams flattens graph nodes into property maps Neo4j can store
func nodeParams(g *knowledge.Graph) ([]map[string]interface{}, []string) {
	params := make([]map[string]interface{}, 0, len(g.Nodes))
	ids := make([]string, 0, len(g.Nodes))

	for _, n := range g.Nodes {
		props := map[string]interface{}{
			"id":          n.ID,
			"type":        string(n.Type),
			"name":        n.Name,
			"connections": int64(n.Connections),
		}
		switch d := n.Data.(type) {
		case notes.Note:
			props["content"] = d.Content
			props["timestamp"] = d.Timestamp
			props["categories"] = d.Categories
			props["url"] = d.Metadata.URL
		case *knowledge.CategoryData:
			props["definition"] = d.Definition
		case *knowledge.DomainData:
			props["noteCount"] = int64(d.NoteCount)
		case *knowledge.URLData:
			props["url"] = d.URL
			props["title"] = d.Title
			props["summary"] = d.Summary
		}
		params = append(params, props)
		ids = append(ids, n.ID)
	}
	return params, ids
}

func edgeParams(g *knowledge.Graph) []map[string]interface{} {
	params := make([]map[string]interface{}, 0, len(g.Edges))
	for _, e := range g.Edges {
		types := []string{string(e.Type)}
		if len(e.Types) > 0 {
			types = types[:0]
			for _, t := range e.Types {
				types = append(types, string(t))
			}
		}
		params = append(params, map[string]interface{}{
			"source":   e.Source,
			"target":   e.Target,
			"type":     string(e.Type),
			"types":    types,
			"strength": e.Strength,
		})
	}
	return params
}

// SyncGraph replaces the projection with g: entities are merged by id,
// entities absent from g are removed, and every RELATED edge is rewritten.
func (r *Repository) SyncGraph(ctx context.Context, g *knowledge.Graph) (SyncResult, error) {
	start := time.Now()
	nodes, ids := nodeParams(g)
	edges := edgeParams(g)

	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	removed, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		mergeQuery := `
			UNWIND $nodes AS n
			MERGE (e:Entity {id: n.id})
			SET e += n
		`
		if _, err := tx.Run(ctx, mergeQuery, map[string]interface{}{"nodes": nodes}); err != nil {
			return nil, apperrors.NewGraphQueryFailed("merge entities", err)
		}

		pruneQuery := `
			MATCH (e:Entity)
			WHERE NOT e.id IN $ids
			DETACH DELETE e
		`
		result, err := tx.Run(ctx, pruneQuery, map[string]interface{}{"ids": ids})
		if err != nil {
			return nil, apperrors.NewGraphQueryFailed("prune entities", err)
		}
		summary, err := result.Consume(ctx)
		if err != nil {
			return nil, apperrors.NewGraphQueryFailed("prune entities", err)
		}

		if _, err := tx.Run(ctx, `MATCH (:Entity)-[rel:RELATED]->(:Entity) DELETE rel`, nil); err != nil {
			return nil, apperrors.NewGraphQueryFailed("clear relationships", err)
		}

		edgeQuery := `
			UNWIND $edges AS rel
			MATCH (a:Entity {id: rel.source})
			MATCH (b:Entity {id: rel.target})
			CREATE (a)-[:RELATED {type: rel.type, types: rel.types, strength: rel.strength}]->(b)
		`
		if _, err := tx.Run(ctx, edgeQuery, map[string]interface{}{"edges": edges}); err != nil {
			return nil, apperrors.NewGraphQueryFailed("create relationships", err)
		}

		return int64(summary.Counters().NodesDeleted()), nil
	})
	if err != nil {
		return SyncResult{}, fmt.Errorf("failed to sync graph: %w", err)
	}

	res := SyncResult{Nodes: len(nodes), Edges: len(edges), Removed: removed.(int64)}
	r.logger.Info("Graph synced",
		zap.Int("nodes", res.Nodes),
		zap.Int("edges", res.Edges),
		zap.Int64("removed", res.Removed),
		zap.Duration("duration", time.Since(start)),
	)
	return res, nil
}

// ============================================================================
// Queries
// ============================================================================

// RelatedNotes ranks notes connected to noteID. A direct edge contributes
// its strength; a shared hub (category, domain, page) contributes the weaker
// of the two edges through it.
func (r *Repository) RelatedNotes(ctx context.Context, noteID string, limit int) ([]RelatedEntity, error) {
	if limit <= 0 {
		limit = 10
	}

	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := `
		MATCH (n:Entity {id: $id})
		CALL {
			WITH n
			MATCH (n)-[r:RELATED]-(m:Entity {type: 'note'})
			RETURN m, r.strength AS s, r.type AS via
			UNION ALL
			WITH n
			MATCH (n)-[r1:RELATED]-(h:Entity)-[r2:RELATED]-(m:Entity {type: 'note'})
			WHERE h.type <> 'note' AND m <> n
			RETURN m,
				CASE WHEN r1.strength < r2.strength THEN r1.strength ELSE r2.strength END AS s,
				h.id AS via
		}
		WITH m, sum(s) AS score, collect(DISTINCT via) AS via
		RETURN m.id AS id, m.name AS name, m.timestamp AS timestamp, score, via
		ORDER BY score DESC, timestamp DESC
		LIMIT $limit
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"id":    noteID,
		"limit": int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query related notes: %w", err)
	}

	var related []RelatedEntity
	for result.Next(ctx) {
		related = append(related, relatedEntityFrom(result.Record()))
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to read related notes: %w", err)
	}
	return related, nil
}
