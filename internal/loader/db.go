package loader

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver

	"github.com/flowmon-io/flowmon/internal/flow"
)

func defaultOpen(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

// loadDB runs the parameterized run-history query for the requested day.
// The connection lives for exactly one query; it is opened here and closed
// before returning, success or failure. Filter values are always bound
// parameters.
func (l *Loader) loadDB(ctx context.Context, opts Options) (*flow.Dataset, error) {
	dbCfg := &l.cfg.Database

	db, err := l.openDB(dbCfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	queryCtx, cancel := context.WithTimeout(ctx, dbCfg.QueryTimeout())
	defer cancel()

	day := dayOf(opts.Day)
	args := []any{day, day.Add(24 * time.Hour)}

	// Table name comes from configuration, not request input.
	query := fmt.Sprintf(`
		SELECT flow_name, project, owner, trigger_type, status, start_time, end_time
		FROM %s
		WHERE start_time >= $1 AND start_time < $2`, dbCfg.Table)

	if opts.Project != "" {
		args = append(args, opts.Project)
		query += fmt.Sprintf(" AND project = $%d", len(args))
	}
	if opts.Status != "" {
		args = append(args, string(opts.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY start_time"

	l.logger.Debug("querying run history", "table", dbCfg.Table, "day", day.Format("2006-01-02"))

	rows, err := db.QueryContext(queryCtx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("run history query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ds := newDataset(flow.SourceDB, dbCfg.Name, day)
	for rows.Next() {
		var (
			name, project, owner, trigger, status sql.NullString
			start, end                            sql.NullTime
		)
		if err := rows.Scan(&name, &project, &owner, &trigger, &status, &start, &end); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		l.ingest(ds, rawRowFromDB(name, project, owner, trigger, status, start, end), opts)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run rows: %w", err)
	}

	return ds, nil
}

// rawRowFromDB converts scanned nullable columns into the untyped row shape
// the validator consumes, so database and CSV rows follow one path.
func rawRowFromDB(name, project, owner, trigger, status sql.NullString, start, end sql.NullTime) flow.RawRow {
	row := flow.RawRow{
		"flow_name":    name.String,
		"project":      project.String,
		"owner":        owner.String,
		"trigger_type": trigger.String,
		"status":       status.String,
	}
	if start.Valid {
		row["start_time"] = start.Time.UTC().Format(time.RFC3339Nano)
	}
	if end.Valid {
		row["end_time"] = end.Time.UTC().Format(time.RFC3339Nano)
	}
	return row
}
