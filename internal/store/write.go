package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/rmod/internal/ir"
)

// WriteBundle stores b and its sources in a single transaction.
//
// Writing the same bundle twice is a no-op. Writing a different bundle
// under an existing ID returns a *ConflictError. Sources are inserted with
// ON CONFLICT(hash) DO NOTHING, so shared files are stored once.
func (s *Store) WriteBundle(ctx context.Context, b *ir.Bundle) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("write bundle: %w", err)
	}
	hash, err := b.Hash()
	if err != nil {
		return fmt.Errorf("write bundle: %w", err)
	}
	entries, err := ir.MarshalCanonical(b.Entries)
	if err != nil {
		return fmt.Errorf("write bundle: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write bundle: begin: %w", err)
	}
	defer tx.Rollback()

	var stored string
	err = tx.QueryRowContext(ctx, `SELECT hash FROM bundles WHERE id = ?`, b.ID).Scan(&stored)
	switch {
	case err == nil:
		if stored != hash {
			return &ConflictError{ID: b.ID, StoredHash: stored, IncomingHash: hash}
		}
		return nil
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("write bundle: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO bundles (id, version, entries, hash, op_count)
		VALUES (?, ?, ?, ?, ?)
	`, b.ID, b.Version, string(entries), hash, len(b.Ops)); err != nil {
		return fmt.Errorf("write bundle: %w", err)
	}

	for i, op := range b.Ops {
		if err := writeOp(ctx, tx, b.ID, op); err != nil {
			return fmt.Errorf("write bundle: op %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write bundle: commit: %w", err)
	}
	return nil
}

func writeOp(ctx context.Context, tx *sql.Tx, bundleID string, op ir.Op) error {
	var sourceHash sql.NullString
	if op.Kind == ir.OpDef || op.Kind == ir.OpRun {
		h := ir.SourceHash(op.Source)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sources (hash, content) VALUES (?, ?)
			ON CONFLICT(hash) DO NOTHING
		`, h, op.Source); err != nil {
			return err
		}
		sourceHash = sql.NullString{String: h, Valid: true}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO ops
		(bundle_id, seq, kind, path, name, version, alias, target, source_hash, object, wait, file)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		bundleID,
		op.Seq,
		string(op.Kind),
		op.Path,
		op.Name,
		op.Version,
		op.Alias,
		op.Target,
		sourceHash,
		op.Object,
		op.Wait,
		op.File,
	)
	return err
}

// DeleteBundle removes a bundle and its ops. Sources are kept; PruneSources
// removes those no longer referenced.
func (s *Store) DeleteBundle(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bundles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete bundle: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete bundle: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete bundle %s: %w", id, ErrNotFound)
	}
	return nil
}

// PruneSources deletes sources no op references and returns how many were
// removed.
func (s *Store) PruneSources(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM sources
		WHERE hash NOT IN (SELECT source_hash FROM ops WHERE source_hash IS NOT NULL)
	`)
	if err != nil {
		return 0, fmt.Errorf("prune sources: %w", err)
	}
	return res.RowsAffected()
}
