package schema

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/schoolgrid/schoolgrid-engine/pkg/database"
)

const sampleRowLimit = 10

// SampleSet holds up to ten example rows per major table, used to
// ground the generation prompt in real values.
type SampleSet map[string][]map[string]any

type sampleCache struct {
	tenantID  string
	samples   SampleSet
	fetchedAt time.Time
}

// SampleProvider fetches example rows with a TTL cache. The cache is a
// single atomic slot: concurrent re-population races are harmless
// because re-fetching is idempotent and last writer wins.
type SampleProvider struct {
	db     *database.DB
	ttl    time.Duration
	cache  atomic.Pointer[sampleCache]
	logger *zap.Logger
}

// NewSampleProvider creates a provider over the school-records pool.
func NewSampleProvider(db *database.DB, ttl time.Duration, logger *zap.Logger) *SampleProvider {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SampleProvider{
		db:     db,
		ttl:    ttl,
		logger: logger.Named("samples"),
	}
}

// SampleRows returns example rows for the tenant, refreshing the cache
// when stale. Failures degrade to an empty set; the prompt is weaker
// without examples but generation still works.
func (p *SampleProvider) SampleRows(ctx context.Context, tenantID string) SampleSet {
	if cached := p.cache.Load(); cached != nil &&
		cached.tenantID == tenantID &&
		time.Since(cached.fetchedAt) < p.ttl {
		return cached.samples
	}

	samples := make(SampleSet, len(MajorTables))
	for _, table := range MajorTables {
		rows, err := p.fetchTable(ctx, table, tenantID)
		if err != nil {
			p.logger.Warn("sample fetch failed",
				zap.String("table", table),
				zap.Error(err))
			continue
		}
		samples[table] = rows
	}

	p.cache.Store(&sampleCache{
		tenantID:  tenantID,
		samples:   samples,
		fetchedAt: time.Now(),
	})
	return samples
}

func (p *SampleProvider) fetchTable(ctx context.Context, table, tenantID string) ([]map[string]any, error) {
	// Table names come from the fixed MajorTables list, never from
	// user input.
	query := fmt.Sprintf("SELECT * FROM %s WHERE school_id = $1 LIMIT %d", table, sampleRowLimit)
	if table == "schools" {
		query = fmt.Sprintf("SELECT * FROM schools WHERE id = $1 LIMIT %d", sampleRowLimit)
	}

	rows, err := p.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = string(fd.Name)
	}

	out := make([]map[string]any, 0, sampleRowLimit)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			rowMap[col] = values[i]
		}
		out = append(out, rowMap)
	}
	return out, rows.Err()
}
