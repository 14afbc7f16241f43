package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/formtree/internal/ir"
)

// Save writes a record and returns its reference. Records without an id get
// a fresh one. Saving an unchanged payload is a no-op.
func (s *Store) Save(ctx context.Context, e ir.Entity) (ir.RecordRef, error) {
	ref := e.Ref
	if ref.Type == "" {
		return ir.RecordRef{}, fmt.Errorf("save record: missing type")
	}
	if !ref.Identified() {
		ref.ID = s.gen.Generate()
	}

	data, err := marshalObject(e.Data)
	if err != nil {
		return ir.RecordRef{}, fmt.Errorf("save record %s: %w", ref, err)
	}
	hash, err := ir.RecordHash(ref.Type, e.Data)
	if err != nil {
		return ir.RecordRef{}, fmt.Errorf("save record %s: %w", ref, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (type, id, data, content_hash)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(type, id) DO UPDATE SET
			data = excluded.data,
			content_hash = excluded.content_hash,
			revision = records.revision + 1
		WHERE records.content_hash != excluded.content_hash
	`, ref.Type, ref.ID, data, hash)
	if err != nil {
		return ir.RecordRef{}, fmt.Errorf("save record %s: %w", ref, err)
	}
	return ref, nil
}

// Load returns a record's data. Missing records yield ErrNotFound.
func (s *Store) Load(ctx context.Context, ref ir.RecordRef) (ir.Object, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `
		SELECT data FROM records WHERE type = ? AND id = ?
	`, ref.Type, ref.ID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load record %s: %w", ref, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load record %s: %w", ref, err)
	}
	obj, err := unmarshalObject(data)
	if err != nil {
		return nil, fmt.Errorf("load record %s: %w", ref, err)
	}
	return obj, nil
}

// Revision returns how many distinct payloads a record has had.
func (s *Store) Revision(ctx context.Context, ref ir.RecordRef) (int64, error) {
	var rev int64
	err := s.db.QueryRowContext(ctx, `
		SELECT revision FROM records WHERE type = ? AND id = ?
	`, ref.Type, ref.ID).Scan(&rev)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("record %s: %w", ref, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("record %s: %w", ref, err)
	}
	return rev, nil
}
