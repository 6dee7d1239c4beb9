package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	ErrRunNotFound  = errors.New("run not found")
	ErrAmbiguousRun = errors.New("run id prefix is ambiguous")
)

const runColumns = `id, config_path, host, remote_root, local_root, status, started_at, finished_at,
	create_dirs, fetches, deletes, failed, bytes, error`

// RecordRun stores a run and its actions in one transaction.
func (d *DB) RecordRun(ctx context.Context, run Run, actions []RunAction) (err error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sync_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.ConfigPath, run.Host, run.RemoteRoot, run.LocalRoot, string(run.Status),
		run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(),
		run.CreateDirs, run.Fetches, run.Deletes, run.Failed, run.Bytes, run.Error)
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sync_run_actions (run_id, seq, action_type, path, kind, status, bytes, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for i, a := range actions {
		_, err := stmt.ExecContext(ctx, run.ID, i, a.Type, a.Path, a.Kind, a.Status, a.Bytes, a.Error)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent runs first.
func (d *DB) ListRuns(ctx context.Context, limit int) (runs []Run, err error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM sync_runs ORDER BY started_at DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// GetRun looks a run up by id or by a unique id prefix.
func (d *DB) GetRun(ctx context.Context, id string) (*Run, error) {
	if id == "" {
		return nil, ErrRunNotFound
	}
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM sync_runs WHERE id = ? OR substr(id, 1, ?) = ? ORDER BY id LIMIT 2
	`, id, len(id), id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var found []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		if run.ID == id {
			return &run, nil
		}
		found = append(found, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
		return &found[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousRun, id)
	}
}

// ListRunActions returns the actions of a run in plan order.
func (d *DB) ListRunActions(ctx context.Context, runID string) (actions []RunAction, err error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT run_id, seq, action_type, path, kind, status, bytes, error
		FROM sync_run_actions WHERE run_id = ? ORDER BY seq
	`, runID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for rows.Next() {
		var a RunAction
		var errText sql.NullString
		if err := rows.Scan(&a.RunID, &a.Seq, &a.Type, &a.Path, &a.Kind, &a.Status, &a.Bytes, &errText); err != nil {
			return nil, err
		}
		a.Error = errText.String
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return actions, nil
}

func scanRun(scanner interface {
	Scan(dest ...interface{}) error
}) (Run, error) {
	var run Run
	var status string
	var started, finished int64
	var errText sql.NullString
	err := scanner.Scan(&run.ID, &run.ConfigPath, &run.Host, &run.RemoteRoot, &run.LocalRoot, &status, &started, &finished,
		&run.CreateDirs, &run.Fetches, &run.Deletes, &run.Failed, &run.Bytes, &errText)
	if err != nil {
		return Run{}, err
	}
	run.Status = RunStatus(status)
	run.StartedAt = time.UnixMilli(started)
	run.FinishedAt = time.UnixMilli(finished)
	run.Error = errText.String
	return run, nil
}
