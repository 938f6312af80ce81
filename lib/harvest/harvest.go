package harvest

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sort"
	"time"

	"github.com/crmvault/crmvault/lib/lockmgr"
	"github.com/crmvault/crmvault/lib/records"
	"github.com/crmvault/crmvault/lib/vault"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/oklog/ulid/v2"
)

var Logger = logger.GetLogger("harvest")

// --------------------------------------------------------------------------
// Source
// --------------------------------------------------------------------------

// Source yields harvested records page by page.
type Source interface {
	// Entity names the collection this source feeds.
	Entity() records.EntityType

	// NextPage returns the next page of records. It returns more=false once
	// the source is drained; the final page may be empty.
	NextPage(ctx context.Context) (page []records.Record, more bool, err error)
}

// --------------------------------------------------------------------------
// Batch
// --------------------------------------------------------------------------

// Batch is the result of draining one source.
type Batch struct {
	ID      string            // ULID of this harvest run
	Entity  records.EntityType
	Records []records.Record
}

// Walker drains sources into batches.
type Walker struct {
	clock lockmgr.Clock
	rng   *rand.Rand
}

// NewWalker creates a Walker. A nil clock means wall-clock time.
func NewWalker(clock lockmgr.Clock) *Walker {
	if clock == nil {
		clock = lockmgr.SystemClock{}
	}
	return &Walker{
		clock: clock,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Walk drains src into a single Batch. Records arriving without an
// ExtractedAt are stamped with the walk time; records arriving without an id
// get a content-derived one via DeriveID. The context cancels between pages.
func (w *Walker) Walk(ctx context.Context, src Source) (Batch, error) {
	batch := Batch{
		ID:     ulid.MustNew(ulid.Timestamp(w.clock.Now()), w.rng).String(),
		Entity: src.Entity(),
	}

	now := w.clock.Now().UnixMilli()
	for page := 0; ; page++ {
		if err := ctx.Err(); err != nil {
			return batch, fmt.Errorf("harvest %s aborted after %d pages: %w", batch.ID, page, err)
		}

		recs, more, err := src.NextPage(ctx)
		if err != nil {
			return batch, fmt.Errorf("harvest %s page %d: %w", batch.ID, page, err)
		}

		for _, r := range recs {
			if r.ExtractedAt == 0 {
				r.ExtractedAt = now
			}
			if r.ID == "" {
				r.ID = DeriveID(batch.Entity, r)
			}
			batch.Records = append(batch.Records, r)
		}

		if !more {
			break
		}
	}

	Logger.Infof("harvest %s collected %d %s records", batch.ID, len(batch.Records), batch.Entity)
	return batch, nil
}

// Ingest walks src and merges the batch into v. It returns the batch and the
// number of net-new records.
func (w *Walker) Ingest(ctx context.Context, v vault.IVault, src Source) (Batch, int, error) {
	batch, err := w.Walk(ctx, src)
	if err != nil {
		return batch, 0, err
	}
	inserted, err := v.InsertWithDedup(batch.Entity, batch.Records)
	if err != nil {
		return batch, 0, fmt.Errorf("harvest %s: %w", batch.ID, err)
	}
	return batch, inserted, nil
}

// --------------------------------------------------------------------------
// Derived IDs
// --------------------------------------------------------------------------

// DeriveID computes a stable id for a record that arrived without one. The
// id hashes the entity type and the record's opaque fields in sorted key
// order, so the same exported row always maps to the same id and replays
// deduplicate instead of piling up.
func DeriveID(entity records.EntityType, r records.Record) string {
	h := fnv.New64a()
	h.Write([]byte(entity))
	h.Write([]byte{0})

	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write(r.Fields[k])
		h.Write([]byte{0})
	}

	return fmt.Sprintf("%s-%016x", entity, h.Sum64())
}
