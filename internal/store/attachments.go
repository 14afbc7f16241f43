package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/formtree/internal/ir"
)

// CreatePending registers an upload that is not attached to a record yet.
// It stands in for the upload endpoint, which hands out the ids forms submit.
func (s *Store) CreatePending(ctx context.Context, name string) (ir.Attachment, error) {
	a := ir.Attachment{ID: s.gen.Generate(), Name: name, Properties: ir.Object{}}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attachments (id, name) VALUES (?, ?)
	`, a.ID, a.Name)
	if err != nil {
		return ir.Attachment{}, fmt.Errorf("create attachment: %w", err)
	}
	return a, nil
}

// Attach moves ids into the bucket (owner, collection), appending them after
// the attachments already there. Ids already in the bucket keep their place.
func (s *Store) Attach(ctx context.Context, ids []string, owner ir.RecordRef, collection string) error {
	if !owner.Identified() {
		return fmt.Errorf("attach to %s: owner has no id", owner)
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var next int64
		err := tx.QueryRowContext(ctx, `
			SELECT COALESCE(MAX(position) + 1, 0) FROM attachments
			WHERE owner_type = ? AND owner_id = ? AND collection = ?
		`, owner.Type, owner.ID, collection).Scan(&next)
		if err != nil {
			return fmt.Errorf("attach: %w", err)
		}

		for _, id := range ids {
			res, err := tx.ExecContext(ctx, `
				UPDATE attachments
				SET owner_type = ?, owner_id = ?, collection = ?, position = ?
				WHERE id = ? AND NOT (owner_type = ? AND owner_id = ? AND collection = ?)
			`, owner.Type, owner.ID, collection, next, id, owner.Type, owner.ID, collection)
			if err != nil {
				return fmt.Errorf("attach %s: %w", id, err)
			}
			if n, _ := res.RowsAffected(); n == 1 {
				next++
				continue
			}
			if err := exists(ctx, tx, id); err != nil {
				return fmt.Errorf("attach %s: %w", id, err)
			}
		}
		return nil
	})
}

// SetOrder puts the listed attachments first, in the given order, followed by
// the rest of the bucket in its current order. Ids outside the bucket are
// ignored.
func (s *Store) SetOrder(ctx context.Context, owner ir.RecordRef, collection string, ids []string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := listBucket(ctx, tx, owner, collection)
		if err != nil {
			return fmt.Errorf("set order: %w", err)
		}
		rank := func(a ir.Attachment) int {
			if i := slices.Index(ids, a.ID); i >= 0 {
				return i
			}
			return len(ids)
		}
		slices.SortStableFunc(current, func(a, b ir.Attachment) int {
			return rank(a) - rank(b)
		})
		for pos, a := range current {
			if _, err := tx.ExecContext(ctx, `
				UPDATE attachments SET position = ? WHERE id = ?
			`, pos, a.ID); err != nil {
				return fmt.Errorf("set order %s: %w", a.ID, err)
			}
		}
		return nil
	})
}

// SetProperties merges props into an attachment's properties.
func (s *Store) SetProperties(ctx context.Context, id string, props ir.Object) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var raw string
		err := tx.QueryRowContext(ctx, `SELECT properties FROM attachments WHERE id = ?`, id).Scan(&raw)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("set properties %s: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("set properties %s: %w", id, err)
		}

		merged, err := unmarshalObject(raw)
		if err != nil {
			return fmt.Errorf("set properties %s: %w", id, err)
		}
		for k, v := range props {
			merged[k] = ir.CloneValue(v)
		}
		text, err := marshalObject(merged)
		if err != nil {
			return fmt.Errorf("set properties %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE attachments SET properties = ? WHERE id = ?
		`, text, id); err != nil {
			return fmt.Errorf("set properties %s: %w", id, err)
		}
		return nil
	})
}

// DeleteWhere deletes ids from the bucket (owner, collection), or every
// attachment in it when ids is empty.
func (s *Store) DeleteWhere(ctx context.Context, owner ir.RecordRef, collection string, ids []string) error {
	query := `DELETE FROM attachments WHERE owner_type = ? AND owner_id = ? AND collection = ?`
	args := []any{owner.Type, owner.ID, collection}
	if len(ids) > 0 {
		query += ` AND id IN (?` + strings.Repeat(", ?", len(ids)-1) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete from %s %s: %w", owner, collection, err)
	}
	return nil
}

// List returns the attachments of the bucket (owner, collection).
// Results are ordered by position, then id.
func (s *Store) List(ctx context.Context, owner ir.RecordRef, collection string) ([]ir.Attachment, error) {
	list, err := listBucket(ctx, s.db, owner, collection)
	if err != nil {
		return nil, fmt.Errorf("list %s %s: %w", owner, collection, err)
	}
	return list, nil
}

// Get returns one attachment by id.
func (s *Store) Get(ctx context.Context, id string) (ir.Attachment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, owner_type, owner_id, collection, position, properties
		FROM attachments WHERE id = ?
	`, id)
	a, err := scanAttachment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Attachment{}, fmt.Errorf("attachment %s: %w", id, ErrNotFound)
	}
	return a, err
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func exists(ctx context.Context, q querier, id string) error {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM attachments WHERE id = ?`, id).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func listBucket(ctx context.Context, q querier, owner ir.RecordRef, collection string) ([]ir.Attachment, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, owner_type, owner_id, collection, position, properties
		FROM attachments
		WHERE owner_type = ? AND owner_id = ? AND collection = ?
		ORDER BY position ASC, id COLLATE BINARY ASC
	`, owner.Type, owner.ID, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []ir.Attachment{}
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAttachment(row scanner) (ir.Attachment, error) {
	var (
		a     ir.Attachment
		props string
	)
	if err := row.Scan(&a.ID, &a.Name, &a.Owner.Type, &a.Owner.ID, &a.Collection, &a.Position, &props); err != nil {
		return ir.Attachment{}, err
	}
	obj, err := unmarshalObject(props)
	if err != nil {
		return ir.Attachment{}, err
	}
	a.Properties = obj
	return a, nil
}
