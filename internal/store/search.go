package store

import (
	"fmt"
	"strings"

	"github.com/hflor/livedex/internal/query"
)

// DefaultSearchLimit bounds result pages when the caller does not ask for a
// specific limit
const DefaultSearchLimit = 50

// SearchOptions control pagination and deleted-project visibility
type SearchOptions struct {
	Limit          int
	Offset         int
	IncludeDeleted bool
}

// SearchResult is one ranked match
type SearchResult struct {
	Project *Project
	Rank    float64 // bm25 score, lower is better; 0 for filter-only queries
}

const qualifiedProjectColumns = `p.id, p.path, p.name, p.tempo, p.sig_numerator,
	p.sig_denominator, p.length_bars, p.duration_secs, p.key_name, p.scale_name,
	p.creator, p.notes, p.active, p.size_bytes, p.mtime_unix, p.first_seen_at,
	p.last_scanned_at`

// Search executes a parsed query against the relational store and the
// full-text index, returning one page of ranked matches plus the total
// match count.
//
// Ranking: exact name matches first, then full-text relevance (bm25), ties
// broken by most recently scanned. Filter-only queries order by most
// recently scanned.
func (s *Store) Search(expr *query.Expr, opts SearchOptions) ([]*SearchResult, int, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultSearchLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}

	sq := expr.Translate()

	conds := make([]string, 0, len(sq.Where)+1)
	if !opts.IncludeDeleted {
		conds = append(conds, "p.active = 1")
	}
	conds = append(conds, sq.Where...)

	var (
		selectStmt string
		countStmt  string
		args       []any
		countArgs  []any
	)

	if sq.Match != "" {
		from := "FROM project_fts JOIN projects p ON p.id = project_fts.project_id"
		conds = append([]string{"project_fts MATCH ?"}, conds...)
		where := "WHERE " + strings.Join(conds, " AND ")

		selectStmt = fmt.Sprintf(`
			SELECT %s, bm25(project_fts) AS rank,
				CASE WHEN p.name = ? COLLATE NOCASE THEN 1 ELSE 0 END AS exact
			%s %s
			ORDER BY exact DESC, rank ASC, p.last_scanned_at DESC
			LIMIT ? OFFSET ?
		`, qualifiedProjectColumns, from, where)
		countStmt = fmt.Sprintf("SELECT COUNT(*) %s %s", from, where)

		args = append(args, expr.FreeText(), sq.Match)
		args = append(args, sq.Args...)
		countArgs = append(countArgs, sq.Match)
		countArgs = append(countArgs, sq.Args...)
	} else {
		from := "FROM projects p"
		where := ""
		if len(conds) > 0 {
			where = "WHERE " + strings.Join(conds, " AND ")
		}

		selectStmt = fmt.Sprintf(`
			SELECT %s, 0.0 AS rank, 0 AS exact
			%s %s
			ORDER BY p.last_scanned_at DESC
			LIMIT ? OFFSET ?
		`, qualifiedProjectColumns, from, where)
		countStmt = fmt.Sprintf("SELECT COUNT(*) %s %s", from, where)

		args = append(args, sq.Args...)
		countArgs = append(countArgs, sq.Args...)
	}

	var total int
	if err := s.db.QueryRow(countStmt, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count matches: %w", err)
	}

	args = append(args, opts.Limit, opts.Offset)
	rows, err := s.db.Query(selectStmt, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search query failed: %w", err)
	}
	defer rows.Close()

	var out []*SearchResult
	for rows.Next() {
		r := &SearchResult{Project: &Project{}}
		p := r.Project
		var active, exact int
		if err := rows.Scan(
			&p.ID, &p.Path, &p.Name, &p.Tempo, &p.SigNumerator, &p.SigDenominator,
			&p.LengthBars, &p.DurationSecs, &p.Key, &p.Scale, &p.Creator, &p.Notes,
			&active, &p.SizeBytes, &p.MtimeUnix, &p.FirstSeenAt, &p.LastScannedAt,
			&r.Rank, &exact,
		); err != nil {
			return nil, 0, err
		}
		p.Active = active == 1
		out = append(out, r)
	}
	return out, total, rows.Err()
}
