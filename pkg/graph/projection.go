package graph

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Projection mirrors relations into the graph database as
// (:Content)-[:REFERS_TO]->(:Entity) for neighborhood queries. The relational
// store stays the source of truth; every method is a no-op on a nil receiver
// so the service runs without a graph database configured.
type Projection struct {
	client *Client
	logger ectologger.Logger
}

// NewProjection creates a new graph projection service
func NewProjection(client *Client, logger ectologger.Logger) *Projection {
	return &Projection{
		client: client,
		logger: logger,
	}
}

// UpsertEntity creates or updates an entity node.
func (p *Projection) UpsertEntity(ctx context.Context, entity *models.ReferenceEntity) error {
	if p == nil || p.client == nil {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "graph.Projection.UpsertEntity")
	defer span.End()

	cypher := `
		MERGE (e:Entity {id: $id, owner_scope_id: $owner_scope_id})
		SET e.name = $name, e.category = $category
	`

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, cypher, map[string]any{
			"id":             entity.ID,
			"owner_scope_id": entity.OwnerScopeID,
			"name":           entity.Name,
			"category":       string(entity.Category),
		})
	})
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"entity_id": entity.ID}).Error("Failed to upsert entity node")
		return err
	}
	return nil
}

// UpsertRelation creates the content node if needed and links it to the
// entity node. Idempotent via MERGE.
func (p *Projection) UpsertRelation(ctx context.Context, ownerScopeID, contentID, entityID string) error {
	if p == nil || p.client == nil {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "graph.Projection.UpsertRelation")
	defer span.End()

	cypher := `
		MERGE (c:Content {id: $content_id, owner_scope_id: $owner_scope_id})
		MERGE (e:Entity {id: $entity_id, owner_scope_id: $owner_scope_id})
		MERGE (c)-[:REFERS_TO]->(e)
	`

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, cypher, map[string]any{
			"content_id":     contentID,
			"entity_id":      entityID,
			"owner_scope_id": ownerScopeID,
		})
	})
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"content_id": contentID,
			"entity_id":  entityID,
		}).Error("Failed to upsert relation edge")
		return err
	}
	return nil
}

// MergeEntities rewires every edge from the merged entity nodes onto the
// survivor, then removes the merged nodes.
func (p *Projection) MergeEntities(ctx context.Context, ownerScopeID, survivorID string, mergedIDs []string) error {
	if p == nil || p.client == nil || len(mergedIDs) == 0 {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "graph.Projection.MergeEntities")
	defer span.End()

	cypher := `
		MATCH (loser:Entity {owner_scope_id: $owner_scope_id})
		WHERE loser.id IN $merged_ids
		MERGE (survivor:Entity {id: $survivor_id, owner_scope_id: $owner_scope_id})
		WITH loser, survivor
		OPTIONAL MATCH (c:Content)-[r:REFERS_TO]->(loser)
		FOREACH (_ IN CASE WHEN c IS NULL THEN [] ELSE [1] END |
			MERGE (c)-[:REFERS_TO]->(survivor)
		)
		DETACH DELETE loser
	`

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, cypher, map[string]any{
			"owner_scope_id": ownerScopeID,
			"survivor_id":    survivorID,
			"merged_ids":     mergedIDs,
		})
	})
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"survivor_id":  survivorID,
			"merged_count": len(mergedIDs),
		}).Error("Failed to merge entity nodes")
		return err
	}
	return nil
}

// DeleteEntity removes an entity node and its edges.
func (p *Projection) DeleteEntity(ctx context.Context, ownerScopeID, entityID string) error {
	if p == nil || p.client == nil {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "graph.Projection.DeleteEntity")
	defer span.End()

	cypher := `
		MATCH (e:Entity {id: $id, owner_scope_id: $owner_scope_id})
		DETACH DELETE e
	`

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, cypher, map[string]any{
			"id":             entityID,
			"owner_scope_id": ownerScopeID,
		})
	})
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"entity_id": entityID}).Error("Failed to delete entity node")
		return err
	}
	return nil
}

// Neighborhood returns the content ids linked to an entity in the graph.
func (p *Projection) Neighborhood(ctx context.Context, ownerScopeID, entityID string) ([]string, error) {
	if p == nil || p.client == nil {
		return nil, nil
	}
	ctx, span := tracing.StartSpan(ctx, "graph.Projection.Neighborhood")
	defer span.End()

	cypher := `
		MATCH (c:Content)-[:REFERS_TO]->(e:Entity {id: $id, owner_scope_id: $owner_scope_id})
		RETURN c.id AS content_id
		ORDER BY content_id
	`

	res, err := p.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"id":             entityID,
			"owner_scope_id": ownerScopeID,
		})
		if err != nil {
			return nil, err
		}

		var ids []string
		for result.Next(ctx) {
			if v, ok := result.Record().Get("content_id"); ok {
				if id, ok := v.(string); ok {
					ids = append(ids, id)
				}
			}
		}
		return ids, result.Err()
	})
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"entity_id": entityID}).Error("Failed to query entity neighborhood")
		return nil, err
	}

	ids, _ := res.([]string)
	return ids, nil
}
