package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"unicode"

	"xppkb/internal/symbols"
)

// RankedSymbol is a symbol with its FTS5 relevance. Lower Rank is better,
// as bm25 reports it.
type RankedSymbol struct {
	Symbol symbols.Symbol
	Rank   float64
}

// RankedLookup runs a full-text query over name, parent, signature, tags,
// and pattern type. Every query term matches as a prefix; rows matching
// more terms rank higher. Ties are broken by name then id so results are
// deterministic.
func (db *DB) RankedLookup(ctx context.Context, query string, kinds []symbols.Kind, limit int) ([]RankedSymbol, error) {
	ftsQuery := buildFTSQuery(query)
	if ftsQuery == "" {
		return nil, nil
	}

	sqlQuery := "SELECT " + prefixColumns("s.") + `, bm25(symbols_fts, 10.0, 2.0, 1.0, 3.0, 2.0) AS rank
		FROM symbols_fts
		JOIN symbols s ON s.id = symbols_fts.rowid
		WHERE symbols_fts MATCH ?`
	args := []any{ftsQuery}
	sqlQuery, args = appendKindFilter(sqlQuery, args, "s.kind", kinds)
	sqlQuery += " ORDER BY rank, s.name COLLATE NOCASE, s.id LIMIT ?"
	args = append(args, sqlLimit(limit))

	rows, err := db.conn.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("ranked lookup failed: %w", classify(err))
	}
	defer rows.Close()

	var out []RankedSymbol
	for rows.Next() {
		var r RankedSymbol
		s, err := scanSymbol(rows, &r.Rank)
		if err != nil {
			return nil, err
		}
		r.Symbol = s
		out = append(out, r)
	}
	return out, classify(rows.Err())
}

// buildFTSQuery turns free text into an FTS5 expression: each alphanumeric
// term becomes a quoted prefix match and terms are OR-ed.
func buildFTSQuery(query string) string {
	terms := strings.FieldsFunc(query, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		parts = append(parts, `"`+escapeFTS5Query(t)+`"*`)
	}
	return strings.Join(parts, " OR ")
}

// escapeFTS5Query escapes characters that are special inside an FTS5 string.
func escapeFTS5Query(query string) string {
	return strings.ReplaceAll(query, `"`, `""`)
}

func prefixColumns(prefix string) string {
	cols := strings.Split(symbolColumns, ",")
	for i, c := range cols {
		cols[i] = prefix + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

// IntegrityCheck verifies that the FTS projection matches the symbols table.
func (db *DB) IntegrityCheck(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, "INSERT INTO symbols_fts(symbols_fts, rank) VALUES('integrity-check', 1)")
	if err != nil {
		return fmt.Errorf("fts integrity check failed: %w", classify(err))
	}
	return nil
}

// RebuildFTS regenerates the projection from the symbols table.
func (db *DB) RebuildFTS(ctx context.Context) error {
	return db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO symbols_fts(symbols_fts) VALUES('rebuild')")
		return err
	})
}

// EnsureFTS checks the projection and rebuilds it when the check fails.
// It reports whether a rebuild was needed.
func (db *DB) EnsureFTS(ctx context.Context) (bool, error) {
	err := db.IntegrityCheck(ctx)
	if err == nil {
		return false, nil
	}
	db.logger.Warn("Search index out of step with symbols, rebuilding", "error", err.Error())

	if err := db.RebuildFTS(ctx); err != nil {
		return true, fmt.Errorf("failed to rebuild fts index: %w", classify(err))
	}
	return true, db.IntegrityCheck(ctx)
}
