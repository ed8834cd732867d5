package merging

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

// fakeStore is an in-memory EntityStore + RelationStore for engine tests.
type fakeStore struct {
	mu        sync.Mutex
	entities  map[string]models.ReferenceEntity
	relations map[string]models.Relation // keyed content_id|entity_id

	failCreate bool
	failDelete bool
}

func newFakeStore(entities []models.ReferenceEntity, relations []models.Relation) *fakeStore {
	s := &fakeStore{
		entities:  make(map[string]models.ReferenceEntity),
		relations: make(map[string]models.Relation),
	}
	for _, e := range entities {
		s.entities[e.ID] = e
	}
	for _, r := range relations {
		s.relations[relKey(r.ContentID, r.EntityID)] = r
	}
	return s
}

func relKey(contentID, entityID string) string {
	return contentID + "|" + entityID
}

func (s *fakeStore) ListByOwnerScope(_ context.Context, ownerScopeID string) ([]models.ReferenceEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ReferenceEntity
	for _, e := range s.entities {
		if e.OwnerScopeID == ownerScopeID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) Delete(_ context.Context, _, entityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDelete {
		return errors.New("delete failed")
	}
	delete(s.entities, entityID)
	return nil
}

func (s *fakeStore) ListByEntity(_ context.Context, _, entityID string) ([]models.Relation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Relation
	for _, r := range s.relations {
		if r.EntityID == entityID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContentID < out[j].ContentID })
	return out, nil
}

func (s *fakeStore) Exists(_ context.Context, _, contentID, entityID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.relations[relKey(contentID, entityID)]
	return ok, nil
}

func (s *fakeStore) Create(_ context.Context, ownerScopeID, contentID, entityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate {
		return errors.New("create failed")
	}
	key := relKey(contentID, entityID)
	if _, ok := s.relations[key]; ok {
		return nil
	}
	s.relations[key] = models.Relation{
		ID:           fmt.Sprintf("r-%d", len(s.relations)+1),
		OwnerScopeID: ownerScopeID,
		ContentID:    contentID,
		EntityID:     entityID,
		CreatedAt:    time.Now(),
	}
	return nil
}

func (s *fakeStore) DeleteByEntity(_ context.Context, _, entityID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDelete {
		return 0, errors.New("delete failed")
	}
	var deleted int64
	for key, r := range s.relations {
		if r.EntityID == entityID {
			delete(s.relations, key)
			deleted++
		}
	}
	return deleted, nil
}

func (s *fakeStore) contentIDsFor(entityID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, r := range s.relations {
		if r.EntityID == entityID {
			out = append(out, r.ContentID)
		}
	}
	sort.Strings(out)
	return out
}

func testEngine(store *fakeStore) *Engine {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewEngine(logger, store, store, DefaultConfig())
}

func mergeFixture() *fakeStore {
	created := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	return newFakeStore(
		[]models.ReferenceEntity{
			{
				ID: "id1", OwnerScopeID: "scope-1",
				Name: "Sushiro Shibuya", NormalizedNameKey: "sushiroshibuya",
				CreatedAt: created,
			},
			{
				ID: "id2", OwnerScopeID: "scope-1",
				Name: "SUSHIRO SHIBUYA", NormalizedNameKey: "sushiroshibuya",
				ExternalLinks: models.StringList{"https://example.com/sushiro"},
				CreatedAt:     created.Add(time.Hour),
			},
		},
		[]models.Relation{
			{ID: "r1", OwnerScopeID: "scope-1", ContentID: "c1", EntityID: "id1"},
			{ID: "r2", OwnerScopeID: "scope-1", ContentID: "c2", EntityID: "id1"},
			{ID: "r3", OwnerScopeID: "scope-1", ContentID: "c3", EntityID: "id2"},
		},
	)
}

func TestRunPass_MergesDuplicateGroup(t *testing.T) {
	store := mergeFixture()
	engine := testEngine(store)

	report, err := engine.RunPass(context.Background(), "scope-1", false)
	require.NoError(t, err)

	assert.Equal(t, 1, report.GroupCount)
	require.Len(t, report.Plans, 1)
	assert.Empty(t, report.Failed)

	plan := report.Plans[0]
	// id2 has a link (10) + 1 relation = 11, id1 has 2 relations = 2
	assert.Equal(t, "id2", plan.SurvivorID)
	assert.Equal(t, []string{"id1"}, plan.MergedIDs)
	assert.Equal(t, 2, plan.MigratedRelationCount)
	assert.Equal(t, models.MergeStateFinalized, plan.State)

	_, loserRemains := store.entities["id1"]
	assert.False(t, loserRemains)
	assert.Equal(t, []string{"c1", "c2", "c3"}, store.contentIDsFor("id2"))
	assert.Empty(t, store.contentIDsFor("id1"))
}

func TestRunPass_SecondRunIsIdempotent(t *testing.T) {
	store := mergeFixture()
	engine := testEngine(store)

	_, err := engine.RunPass(context.Background(), "scope-1", false)
	require.NoError(t, err)

	report, err := engine.RunPass(context.Background(), "scope-1", false)
	require.NoError(t, err)

	assert.Equal(t, 0, report.GroupCount)
	assert.Empty(t, report.Plans)
	assert.Equal(t, []string{"c1", "c2", "c3"}, store.contentIDsFor("id2"))
}

func TestMergeGroup_SharedContentNotDuplicated(t *testing.T) {
	created := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	store := newFakeStore(
		[]models.ReferenceEntity{
			{ID: "id1", OwnerScopeID: "scope-1", Name: "Afuri", NormalizedNameKey: "afuri", CreatedAt: created},
			{
				ID: "id2", OwnerScopeID: "scope-1", Name: "AFURI", NormalizedNameKey: "afuri",
				Phone: strPtr("+81-3-0000-0000"), CreatedAt: created,
			},
		},
		[]models.Relation{
			// c1 already linked to both; only c2 needs migrating
			{ID: "r1", OwnerScopeID: "scope-1", ContentID: "c1", EntityID: "id1"},
			{ID: "r2", OwnerScopeID: "scope-1", ContentID: "c1", EntityID: "id2"},
			{ID: "r3", OwnerScopeID: "scope-1", ContentID: "c2", EntityID: "id1"},
		},
	)
	engine := testEngine(store)

	report, err := engine.RunPass(context.Background(), "scope-1", false)
	require.NoError(t, err)
	require.Len(t, report.Plans, 1)

	plan := report.Plans[0]
	assert.Equal(t, "id2", plan.SurvivorID)
	assert.Equal(t, 1, plan.MigratedRelationCount)
	assert.Equal(t, []string{"c1", "c2"}, store.contentIDsFor("id2"))
}

func TestMergeGroup_AbortLeavesGroupUntouched(t *testing.T) {
	store := mergeFixture()
	store.failCreate = true
	engine := testEngine(store)

	report, err := engine.RunPass(context.Background(), "scope-1", false)
	require.NoError(t, err)

	require.Len(t, report.Failed, 1)
	require.Len(t, report.Plans, 1)
	assert.Equal(t, models.MergeStateAborted, report.Plans[0].State)

	// nothing deleted: both entities and all original relations intact
	assert.Len(t, store.entities, 2)
	assert.Equal(t, []string{"c1", "c2"}, store.contentIDsFor("id1"))
	assert.Equal(t, []string{"c3"}, store.contentIDsFor("id2"))

	// clearing the fault makes the retry succeed from scratch
	store.failCreate = false
	retry, err := engine.RunPass(context.Background(), "scope-1", false)
	require.NoError(t, err)
	require.Len(t, retry.Plans, 1)
	assert.Equal(t, models.MergeStateFinalized, retry.Plans[0].State)
	assert.Equal(t, []string{"c1", "c2", "c3"}, store.contentIDsFor("id2"))
}

func TestMergeGroup_DryRunWritesNothing(t *testing.T) {
	store := mergeFixture()
	engine := testEngine(store)

	report, err := engine.RunPass(context.Background(), "scope-1", true)
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	require.Len(t, report.Plans, 1)
	plan := report.Plans[0]
	assert.Equal(t, models.MergeStatePlanned, plan.State)
	assert.Equal(t, "id2", plan.SurvivorID)
	assert.Equal(t, 2, plan.MigratedRelationCount)

	assert.Len(t, store.entities, 2)
	assert.Len(t, store.relations, 3)
}

func TestSelectSurvivor_TieBreaksByCreatedAtThenID(t *testing.T) {
	created := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		members  []models.ReferenceEntity
		expected string
	}{
		{
			name: "equal score earliest created wins",
			members: []models.ReferenceEntity{
				{ID: "id1", OwnerScopeID: "scope-1", Name: "Nagi", NormalizedNameKey: "nagi", CreatedAt: created.Add(time.Hour)},
				{ID: "id2", OwnerScopeID: "scope-1", Name: "Nagi", NormalizedNameKey: "nagi", CreatedAt: created},
			},
			expected: "id2",
		},
		{
			name: "full tie smallest id wins",
			members: []models.ReferenceEntity{
				{ID: "id9", OwnerScopeID: "scope-1", Name: "Nagi", NormalizedNameKey: "nagi", CreatedAt: created},
				{ID: "id2", OwnerScopeID: "scope-1", Name: "Nagi", NormalizedNameKey: "nagi", CreatedAt: created},
			},
			expected: "id2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore(tt.members, nil)
			engine := testEngine(store)

			report, err := engine.RunPass(context.Background(), "scope-1", false)
			require.NoError(t, err)
			require.Len(t, report.Plans, 1)
			assert.Equal(t, tt.expected, report.Plans[0].SurvivorID)
		})
	}
}

func TestRunPass_MergesIndependentGroups(t *testing.T) {
	created := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	store := newFakeStore(
		[]models.ReferenceEntity{
			{ID: "a1", OwnerScopeID: "scope-1", Name: "Afuri", NormalizedNameKey: "afuri", CreatedAt: created},
			{ID: "a2", OwnerScopeID: "scope-1", Name: "Afuri", NormalizedNameKey: "afuri", CreatedAt: created.Add(time.Hour)},
			{ID: "z1", OwnerScopeID: "scope-1", Name: "Zauo", NormalizedNameKey: "zauo", CreatedAt: created},
			{ID: "z2", OwnerScopeID: "scope-1", Name: "Zauo", NormalizedNameKey: "zauo", CreatedAt: created.Add(time.Hour)},
		},
		nil,
	)
	engine := testEngine(store)

	report, err := engine.RunPass(context.Background(), "scope-1", false)
	require.NoError(t, err)

	assert.Equal(t, 2, report.GroupCount)
	assert.Len(t, report.Plans, 2)
	assert.Empty(t, report.Failed)
	assert.Len(t, store.entities, 2)
}
