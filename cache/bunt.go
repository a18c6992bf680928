// Package cache memoizes payroll breakdowns in a buntdb key/value store.
//
// Entries are keyed by subject and period and carry the fingerprint of the
// inputs they were computed from. A lookup with a different fingerprint is a
// miss, so edits to shifts or config never serve stale pay.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/buntdb"
	"github.com/warp/wage-engine/generic"
	"github.com/warp/wage-engine/payroll"
)

const keyPrefix = "payroll:"

type entry struct {
	Fingerprint string            `json:"fingerprint"`
	Breakdown   payroll.Breakdown `json:"breakdown"`
}

// Bunt implements payroll.Cache on top of buntdb.
type Bunt struct {
	db *buntdb.DB
}

// Open opens a cache file, or an in-memory cache for ":memory:".
func Open(path string) (*Bunt, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	return &Bunt{db: db}, nil
}

func New(db *buntdb.DB) *Bunt {
	return &Bunt{db: db}
}

func (b *Bunt) Close() error {
	return b.db.Close()
}

func key(subjectID generic.SubjectID, period generic.Period) string {
	return keyPrefix + string(subjectID) + ":" + period.Key()
}

func (b *Bunt) Get(_ context.Context, subjectID generic.SubjectID, period generic.Period, fingerprint string) (payroll.Breakdown, error) {
	var e entry
	err := b.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(key(subjectID, period))
		if err != nil {
			return err
		}
		return json.Unmarshal([]byte(v), &e)
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return payroll.Breakdown{}, generic.ErrCacheMiss
	} else if err != nil {
		return payroll.Breakdown{}, err
	}
	if e.Fingerprint != fingerprint {
		return payroll.Breakdown{}, generic.ErrCacheMiss
	}
	return e.Breakdown, nil
}

func (b *Bunt) Put(_ context.Context, breakdown payroll.Breakdown, fingerprint string) error {
	bs, err := json.Marshal(entry{Fingerprint: fingerprint, Breakdown: breakdown})
	if err != nil {
		return err
	}
	return b.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(key(breakdown.SubjectID, breakdown.Period), string(bs), nil)
		return err
	})
}

// Invalidate drops every cached period of a subject.
func (b *Bunt) Invalidate(_ context.Context, subjectID generic.SubjectID) error {
	prefix := keyPrefix + string(subjectID) + ":"
	return b.db.Update(func(tx *buntdb.Tx) error {
		var keys []string
		err := tx.AscendKeys(prefix+"*", func(k, _ string) bool {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
			return true
		})
		if err != nil {
			return err
		}
		for _, k := range keys {
			if _, err := tx.Delete(k); err != nil && !errors.Is(err, buntdb.ErrNotFound) {
				return err
			}
		}
		return nil
	})
}

// Purge drops every cached breakdown. Holiday edits are not part of the
// fingerprint, so callers purge when the calendar changes.
func (b *Bunt) Purge(_ context.Context) error {
	return b.db.Update(func(tx *buntdb.Tx) error {
		return tx.DeleteAll()
	})
}

// Len returns the number of cached breakdowns.
func (b *Bunt) Len() (int, error) {
	var n int
	err := b.db.View(func(tx *buntdb.Tx) error {
		var err error
		n, err = tx.Len()
		return err
	})
	return n, err
}
