package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"pdf-rag/internal/vectorindex"
)

var (
	errNotEmbedded = errors.New("chunks must be embedded before indexing")

	// ErrNotNormalized is returned for vectors chromem would silently
	// rescale, which would break the Euclidean ordering.
	ErrNotNormalized = errors.New("chromem index requires unit-length vectors")
)

const unitTolerance = 1e-3

// VectorDBManager exposes an in-memory chromem collection as a row
// addressed index. Row i is stored under document ID "i".
//
// chromem ranks by cosine similarity and normalizes whatever it is given.
// For unit vectors the squared Euclidean distance is 2 - 2*similarity, so
// Add and Search only accept unit-length vectors.
type VectorDBManager struct {
	mu             sync.RWMutex
	db             *chromem.DB
	collection     *chromem.Collection
	collectionName string
}

// NewVectorDBManager initializes the database and its collection.
func NewVectorDBManager(collectionName string) (*VectorDBManager, error) {
	m := &VectorDBManager{
		db:             chromem.NewDB(),
		collectionName: collectionName,
	}
	if _, err := m.getOrCreateCollection(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *VectorDBManager) getOrCreateCollection() (*chromem.Collection, error) {
	c, err := m.db.GetOrCreateCollection(m.collectionName, nil, refuseEmbedding)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}
	m.collection = c
	return c, nil
}

func refuseEmbedding(context.Context, string) ([]float32, error) {
	return nil, errNotEmbedded
}

// Add appends vectors as rows Count()..Count()+len(vectors)-1.
func (m *VectorDBManager) Add(ctx context.Context, vectors ...[]float32) error {
	if len(vectors) == 0 {
		return nil
	}

	for i, vec := range vectors {
		if err := checkUnit(vec); err != nil {
			return fmt.Errorf("vector %d: %w", i, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.collection.Count()
	docs := make([]chromem.Document, len(vectors))
	for i, vec := range vectors {
		row := next + i
		docs[i] = chromem.Document{
			ID:        strconv.Itoa(row),
			Metadata:  map[string]string{"row": strconv.Itoa(row)},
			Embedding: append([]float32(nil), vec...),
		}
	}

	if err := m.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

// Search caps k at the collection size; chromem rejects larger requests.
func (m *VectorDBManager) Search(ctx context.Context, query []float32, k int) ([]vectorindex.Neighbor, error) {
	if err := checkUnit(query); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	count := m.collection.Count()
	if k > count {
		k = count
	}
	if k <= 0 {
		return nil, nil
	}

	results, err := m.collection.QueryEmbedding(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	hits := make([]vectorindex.Neighbor, 0, len(results))
	for _, r := range results {
		row, err := strconv.Atoi(r.ID)
		if err != nil {
			log.Warn().Str("id", r.ID).Msg("Skipping document with non-numeric id")
			continue
		}
		hits = append(hits, vectorindex.Neighbor{Row: row, Distance: 2 - 2*r.Similarity})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	return hits, nil
}

func checkUnit(vec []float32) error {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if norm := math.Sqrt(sum); math.Abs(norm-1) > unitTolerance {
		return fmt.Errorf("%w: norm %.4f", ErrNotNormalized, norm)
	}
	return nil
}

func (m *VectorDBManager) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collection.Count(), nil
}

// Reset drops the collection and recreates it empty.
func (m *VectorDBManager) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.db.DeleteCollection(m.collectionName); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	_, err := m.getOrCreateCollection()
	return err
}
