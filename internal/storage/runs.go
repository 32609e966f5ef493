package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/httprunner/InstallAgent/internal/installer"
)

// InstallRun is one row of the install log.
type InstallRun struct {
	ID               int64
	DeviceSerial     string
	Project          string
	Variant          string
	Package          string
	Mode             string
	State            string
	Artifacts        []string
	DeclaredVersion  string
	InstalledVersion string
	ErrorMessage     string
	StartedAt        time.Time
	FinishedAt       time.Time
}

// RecordInstall appends outcome to the install log. It implements installer.Recorder.
func (s *Store) RecordInstall(ctx context.Context, outcome installer.Outcome) error {
	artifacts, err := json.Marshal(outcome.Artifacts.Paths())
	if err != nil {
		return errors.Wrap(err, "storage: marshal artifacts failed")
	}
	var installed string
	if outcome.Mismatch != nil {
		installed = outcome.Mismatch.Installed
	}
	var errMsg string
	if outcome.Err != nil {
		errMsg = outcome.Err.Error()
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO `+installRunTable+` (
			device_serial, project, variant, package, mode, state, artifacts,
			declared_version, installed_version, error_message, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		outcome.Serial(),
		outcome.Request.Project,
		outcome.Request.Variant,
		outcome.Request.Package,
		string(outcome.Mode),
		string(outcome.State),
		string(artifacts),
		outcome.Request.DeclaredVersion,
		installed,
		errMsg,
		outcome.StartedAt.UnixMilli(),
		outcome.FinishedAt.UnixMilli(),
	)
	if err != nil {
		return errors.Wrap(err, "storage: insert install run failed")
	}
	return nil
}

// RecentInstalls returns up to limit runs for serial, newest first.
func (s *Store) RecentInstalls(ctx context.Context, serial string, limit int) ([]InstallRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, device_serial, project, variant, package, mode, state, artifacts,
			declared_version, installed_version, error_message, started_at, finished_at
		FROM `+installRunTable+` WHERE device_serial = ? ORDER BY id DESC LIMIT ?`, serial, limit)
	if err != nil {
		return nil, errors.Wrap(err, "storage: query install runs failed")
	}
	defer rows.Close()

	var runs []InstallRun
	for rows.Next() {
		var (
			run                              InstallRun
			project, variant, pkg, artifacts sql.NullString
			declared, installed, errMsg      sql.NullString
			startedAt, finishedAt            sql.NullInt64
		)
		if err := rows.Scan(&run.ID, &run.DeviceSerial, &project, &variant, &pkg, &run.Mode, &run.State, &artifacts,
			&declared, &installed, &errMsg, &startedAt, &finishedAt); err != nil {
			return nil, errors.Wrap(err, "storage: scan install run failed")
		}
		run.Project, run.Variant, run.Package = project.String, variant.String, pkg.String
		run.DeclaredVersion, run.InstalledVersion, run.ErrorMessage = declared.String, installed.String, errMsg.String
		if artifacts.String != "" {
			if err := json.Unmarshal([]byte(artifacts.String), &run.Artifacts); err != nil {
				return nil, errors.Wrapf(err, "storage: decode artifacts of run %d failed", run.ID)
			}
		}
		if startedAt.Valid {
			run.StartedAt = time.UnixMilli(startedAt.Int64)
		}
		if finishedAt.Valid {
			run.FinishedAt = time.UnixMilli(finishedAt.Int64)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "storage: iterate install runs failed")
	}
	return runs, nil
}
