package storage

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// LoadSnapshot returns the path→digest map recorded for serial and variant.
// A device never installed to yields an empty map.
func (s *Store) LoadSnapshot(ctx context.Context, serial, variant string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, digest FROM `+snapshotTable+` WHERE device_serial = ? AND variant = ?`,
		strings.TrimSpace(serial), strings.TrimSpace(variant))
	if err != nil {
		return nil, errors.Wrap(err, "storage: query snapshot failed")
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var path, digest string
		if err := rows.Scan(&path, &digest); err != nil {
			return nil, errors.Wrap(err, "storage: scan snapshot failed")
		}
		out[path] = digest
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "storage: iterate snapshot failed")
	}
	return out, nil
}

// SaveSnapshot replaces the snapshot of serial and variant with digests.
func (s *Store) SaveSnapshot(ctx context.Context, serial, variant string, digests map[string]string) (err error) {
	serial, variant = strings.TrimSpace(serial), strings.TrimSpace(variant)
	if serial == "" {
		return errors.New("storage: snapshot serial is empty")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "storage: begin snapshot tx failed")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`DELETE FROM `+snapshotTable+` WHERE device_serial = ? AND variant = ?`, serial, variant); err != nil {
		return errors.Wrap(err, "storage: clear snapshot failed")
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO `+snapshotTable+` (device_serial, variant, path, digest, updated_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "storage: prepare snapshot insert failed")
	}
	defer stmt.Close()

	now := s.now().Unix()
	for path, digest := range digests {
		if _, err = stmt.ExecContext(ctx, serial, variant, path, digest, now); err != nil {
			return errors.Wrapf(err, "storage: insert snapshot row %s failed", path)
		}
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "storage: commit snapshot failed")
	}
	return nil
}
