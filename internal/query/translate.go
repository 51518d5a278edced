package query

import (
	"strings"
)

// BPMTolerance is the fixed fuzziness for bpm: filters. A query for
// bpm:128 matches tempos in [127.5, 128.5].
const BPMTolerance = 0.5

// SQLQuery is the storage-level form of a parsed query: WHERE fragments
// against the projects table (aliased p) plus an optional FTS5 match
// expression. Keeping the translation here means new operators only ever
// touch this file and the parser.
type SQLQuery struct {
	Where []string
	Args  []any
	Match string // FTS5 match expression, "" when the query has no free text
}

// Translate converts the expression tree into storage query terms
func (e *Expr) Translate() *SQLQuery {
	q := &SQLQuery{}

	for _, f := range e.Filters {
		switch f.Field {
		case FieldPlugin:
			q.Where = append(q.Where, `EXISTS (
				SELECT 1 FROM project_plugins pp
				JOIN plugins pl ON pl.id = pp.plugin_id
				WHERE pp.project_id = p.id AND pl.name LIKE '%' || ? || '%'
			)`)
			q.Args = append(q.Args, f.Text)
		case FieldSamples:
			q.Where = append(q.Where, `EXISTS (
				SELECT 1 FROM project_samples ps
				JOIN samples s ON s.id = ps.sample_id
				WHERE ps.project_id = p.id AND s.name LIKE '%' || ? || '%'
			)`)
			q.Args = append(q.Args, f.Text)
		case FieldBPM:
			q.Where = append(q.Where, "ABS(p.tempo - ?) <= ?")
			q.Args = append(q.Args, f.Number, BPMTolerance)
		case FieldKey:
			key, scale := splitKey(f.Text)
			q.Where = append(q.Where, "p.key_name = ? COLLATE NOCASE")
			q.Args = append(q.Args, key)
			if scale != "" {
				q.Where = append(q.Where, "p.scale_name = ? COLLATE NOCASE")
				q.Args = append(q.Args, scale)
			}
		case FieldTag:
			q.Where = append(q.Where, `EXISTS (
				SELECT 1 FROM project_tags pt
				JOIN tags t ON t.id = pt.tag_id
				WHERE pt.project_id = p.id AND t.name = ? COLLATE NOCASE
			)`)
			q.Args = append(q.Args, f.Text)
		case FieldMissing:
			// Unknown presence counts as missing for query purposes; the
			// aggregate statistics keep unknown as its own bucket
			cond := `(EXISTS (
				SELECT 1 FROM project_samples ps
				JOIN samples s ON s.id = ps.sample_id
				WHERE ps.project_id = p.id AND (s.present = 0 OR s.present IS NULL)
			) OR EXISTS (
				SELECT 1 FROM project_plugins pp
				JOIN plugins pl ON pl.id = pp.plugin_id
				WHERE pp.project_id = p.id AND (pl.installed = 0 OR pl.installed IS NULL)
			))`
			if !f.Bool {
				cond = "NOT " + cond
			}
			q.Where = append(q.Where, cond)
		}
	}

	q.Match = matchExpression(e.Text)

	return q
}

// splitKey splits a key filter value into tonic and scale: "A" yields just
// the tonic, "A-minor" and quoted "A minor" yield tonic "A" scale "minor"
func splitKey(value string) (key, scale string) {
	value = strings.TrimSpace(value)
	for _, sep := range []string{"-", " "} {
		if i := strings.Index(value, sep); i > 0 {
			return value[:i], strings.TrimSpace(value[i+1:])
		}
	}
	return value, ""
}

// matchExpression builds an FTS5 match string from free-text terms: each
// term is quoted (so query syntax characters are inert) and prefix-matched,
// terms combine with implicit AND
func matchExpression(terms []string) string {
	if len(terms) == 0 {
		return ""
	}

	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ReplaceAll(t, `"`, "")
		if t == "" {
			continue
		}
		parts = append(parts, `"`+t+`"*`)
	}
	return strings.Join(parts, " ")
}
