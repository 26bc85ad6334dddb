package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/roach88/rmod/internal/ir"
)

// Summary describes a stored bundle without its ops.
type Summary struct {
	ID      string   `json:"id" yaml:"id"`
	Version string   `json:"version" yaml:"version"`
	Entries []string `json:"entries" yaml:"entries"`
	Hash    string   `json:"hash" yaml:"hash"`
	Ops     int      `json:"ops" yaml:"ops"`
}

// ReadBundle loads the bundle stored under id, ops ordered by seq.
// Returns an error wrapping ErrNotFound for unknown IDs and an
// *IntegrityError if the content does not match the recorded hash.
func (s *Store) ReadBundle(ctx context.Context, id string) (*ir.Bundle, error) {
	sum, err := s.readSummary(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT o.seq, o.kind, o.path, o.name, o.version, o.alias, o.target,
		       s.content, o.object, o.wait, o.file
		FROM ops o
		LEFT JOIN sources s ON s.hash = o.source_hash
		WHERE o.bundle_id = ?
		ORDER BY o.seq ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query ops: %w", err)
	}
	defer rows.Close()

	b := ir.NewBundle(sum.ID)
	b.Version = sum.Version
	b.Entries = sum.Entries
	for rows.Next() {
		op, err := scanOp(rows)
		if err != nil {
			return nil, err
		}
		b.Ops = append(b.Ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ops: %w", err)
	}

	computed, err := b.Hash()
	if err != nil {
		return nil, err
	}
	if computed != sum.Hash {
		return nil, &IntegrityError{ID: id, Recorded: sum.Hash, Computed: computed}
	}
	return b, nil
}

func scanOp(rows *sql.Rows) (ir.Op, error) {
	var (
		op     ir.Op
		kind   string
		source sql.NullString
	)
	if err := rows.Scan(
		&op.Seq,
		&kind,
		&op.Path,
		&op.Name,
		&op.Version,
		&op.Alias,
		&op.Target,
		&source,
		&op.Object,
		&op.Wait,
		&op.File,
	); err != nil {
		return ir.Op{}, fmt.Errorf("scan op: %w", err)
	}
	op.Kind = ir.OpKind(kind)
	op.Source = source.String
	return op, nil
}

func (s *Store) readSummary(ctx context.Context, id string) (Summary, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, version, entries, hash, op_count FROM bundles WHERE id = ?
	`, id)
	sum, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Summary{}, fmt.Errorf("read bundle %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Summary{}, fmt.Errorf("read bundle %s: %w", id, err)
	}
	return sum, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(row scanner) (Summary, error) {
	var (
		sum     Summary
		entries string
	)
	if err := row.Scan(&sum.ID, &sum.Version, &entries, &sum.Hash, &sum.Ops); err != nil {
		return Summary{}, err
	}
	sum.Entries = []string{}
	gjson.Parse(entries).ForEach(func(_, value gjson.Result) bool {
		sum.Entries = append(sum.Entries, value.String())
		return true
	})
	return sum, nil
}

// ListBundles returns every stored bundle in insertion order.
//
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) ListBundles(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, version, entries, hash, op_count FROM bundles ORDER BY rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query bundles: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bundle: %w", err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bundles: %w", err)
	}
	return out, nil
}

// Latest returns the most recently written bundle.
func (s *Store) Latest(ctx context.Context) (*ir.Bundle, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM bundles ORDER BY rowid DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("latest bundle: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("latest bundle: %w", err)
	}
	return s.ReadBundle(ctx, id)
}
