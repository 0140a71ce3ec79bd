package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"xppkb/internal/symbols"
)

const symbolColumns = `id, name, kind, parent, signature, source_location, model,
	tags, used_types, method_calls, related_methods, extends,
	api_usage_patterns, typical_usages, usage_frequency, complexity,
	pattern_type, source_snippet`

const insertSymbolSQL = `
	INSERT INTO symbols (name, kind, parent, signature, source_location, model,
		tags, used_types, method_calls, related_methods, extends,
		api_usage_patterns, typical_usages, usage_frequency, complexity,
		pattern_type, source_snippet)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// SymbolWriter inserts symbols inside an open store transaction.
type SymbolWriter interface {
	Write(ctx context.Context, s *symbols.Symbol) error
}

type txWriter struct {
	stmt  *sql.Stmt
	count int
}

func (w *txWriter) Write(ctx context.Context, s *symbols.Symbol) error {
	if err := s.Validate(); err != nil {
		return err
	}
	// Peer lookups match on the stored column, so classes always carry one.
	if s.Kind == symbols.KindClass && s.PatternType == "" {
		s.PatternType = symbols.InferPatternType(s.Name)
	}
	args, err := symbolArgs(s)
	if err != nil {
		return err
	}
	res, err := w.stmt.ExecContext(ctx, args...)
	if err != nil {
		return fmt.Errorf("failed to insert symbol %s: %w", s.QualifiedName(), classify(err))
	}
	if id, err := res.LastInsertId(); err == nil {
		s.ID = id
	}
	w.count++
	return nil
}

func newTxWriter(ctx context.Context, tx *sql.Tx) (*txWriter, error) {
	stmt, err := tx.PrepareContext(ctx, insertSymbolSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", classify(err))
	}
	return &txWriter{stmt: stmt}, nil
}

// AddSymbol inserts one symbol and sets its ID.
func (db *DB) AddSymbol(ctx context.Context, s *symbols.Symbol) error {
	return db.WithTx(ctx, func(tx *sql.Tx) error {
		w, err := newTxWriter(ctx, tx)
		if err != nil {
			return err
		}
		defer w.stmt.Close()
		return w.Write(ctx, s)
	})
}

// AddSymbols inserts all symbols in one transaction. Nothing is written if
// any symbol is rejected.
func (db *DB) AddSymbols(ctx context.Context, syms []symbols.Symbol) error {
	if len(syms) == 0 {
		return nil
	}
	return db.WithTx(ctx, func(tx *sql.Tx) error {
		w, err := newTxWriter(ctx, tx)
		if err != nil {
			return err
		}
		defer w.stmt.Close()
		for i := range syms {
			if err := w.Write(ctx, &syms[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceModels clears the given models and lets fn insert their new
// content, all in one transaction. An empty models list clears the whole
// store. If fn fails, the previous content stays visible.
func (db *DB) ReplaceModels(ctx context.Context, models []string, fn func(SymbolWriter) error) (int, error) {
	var written int
	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := clearModels(ctx, tx, models); err != nil {
			return err
		}
		w, err := newTxWriter(ctx, tx)
		if err != nil {
			return err
		}
		defer w.stmt.Close()
		if err := fn(w); err != nil {
			return err
		}
		written = w.count
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// Clear removes every symbol of model, or all symbols when model is empty.
func (db *DB) Clear(ctx context.Context, model string) error {
	var models []string
	if model != "" {
		models = []string{model}
	}
	return db.WithTx(ctx, func(tx *sql.Tx) error {
		return clearModels(ctx, tx, models)
	})
}

func clearModels(ctx context.Context, tx *sql.Tx, models []string) error {
	if len(models) == 0 {
		_, err := tx.ExecContext(ctx, "DELETE FROM symbols")
		if err != nil {
			return fmt.Errorf("failed to clear symbols: %w", classify(err))
		}
		return nil
	}
	for _, m := range models {
		if _, err := tx.ExecContext(ctx, "DELETE FROM symbols WHERE model = ?", m); err != nil {
			return fmt.Errorf("failed to clear model %s: %w", m, classify(err))
		}
	}
	return nil
}

// GetByName returns the first symbol named name (case-insensitive), in
// insertion order. kind may be empty. Returns nil when nothing matches.
func (db *DB) GetByName(ctx context.Context, name string, kind symbols.Kind) (*symbols.Symbol, error) {
	syms, err := db.ExactLookup(ctx, name, kindList(kind), 1)
	if err != nil || len(syms) == 0 {
		return nil, err
	}
	return &syms[0], nil
}

// GetChildren returns the members of parent ordered by name. kind may be
// empty to return methods and fields alike.
func (db *DB) GetChildren(ctx context.Context, parent string, kind symbols.Kind) ([]symbols.Symbol, error) {
	query := "SELECT " + symbolColumns + " FROM symbols WHERE parent = ? COLLATE NOCASE"
	args := []any{parent}
	if kind != "" {
		query += " AND kind = ?"
		args = append(args, string(kind))
	}
	query += " ORDER BY name COLLATE NOCASE, id"
	return db.querySymbols(ctx, query, args...)
}

// MethodsOf returns the methods declared on a class.
func (db *DB) MethodsOf(ctx context.Context, class string) ([]symbols.Symbol, error) {
	return db.GetChildren(ctx, class, symbols.KindMethod)
}

// ExactLookup returns symbols whose name equals name case-insensitively,
// ordered by insertion then name.
func (db *DB) ExactLookup(ctx context.Context, name string, kinds []symbols.Kind, limit int) ([]symbols.Symbol, error) {
	query := "SELECT " + symbolColumns + " FROM symbols WHERE name = ? COLLATE NOCASE"
	args := []any{name}
	query, args = appendKindFilter(query, args, "kind", kinds)
	query += " ORDER BY id, name LIMIT ?"
	args = append(args, sqlLimit(limit))
	return db.querySymbols(ctx, query, args...)
}

// PrefixLookup returns symbols whose name starts with prefix
// case-insensitively, in lexical order.
func (db *DB) PrefixLookup(ctx context.Context, prefix string, kinds []symbols.Kind, limit int) ([]symbols.Symbol, error) {
	query := "SELECT " + symbolColumns + ` FROM symbols WHERE name LIKE ? ESCAPE '\'`
	args := []any{escapeLike(prefix) + "%"}
	query, args = appendKindFilter(query, args, "kind", kinds)
	query += " ORDER BY name COLLATE NOCASE, id LIMIT ?"
	args = append(args, sqlLimit(limit))
	return db.querySymbols(ctx, query, args...)
}

// FindByPatternType returns symbols of kind whose pattern type equals
// patternType, in insertion order.
func (db *DB) FindByPatternType(ctx context.Context, patternType string, kind symbols.Kind, limit int) ([]symbols.Symbol, error) {
	query := "SELECT " + symbolColumns + " FROM symbols WHERE pattern_type = ? COLLATE NOCASE"
	args := []any{patternType}
	query, args = appendKindFilter(query, args, "kind", kindList(kind))
	query += " ORDER BY id LIMIT ?"
	args = append(args, sqlLimit(limit))
	return db.querySymbols(ctx, query, args...)
}

// FindReferencing returns symbols whose used types, method calls, usage
// patterns, or typical usages mention name. The match is textual; callers
// refine it.
func (db *DB) FindReferencing(ctx context.Context, name string, limit int) ([]symbols.Symbol, error) {
	pattern := "%" + escapeLike(name) + "%"
	query := "SELECT " + symbolColumns + ` FROM symbols
		WHERE used_types LIKE ? ESCAPE '\'
			OR method_calls LIKE ? ESCAPE '\'
			OR api_usage_patterns LIKE ? ESCAPE '\'
			OR typical_usages LIKE ? ESCAPE '\'
		ORDER BY id LIMIT ?`
	return db.querySymbols(ctx, query, pattern, pattern, pattern, pattern, sqlLimit(limit))
}

// ForEach streams every symbol in insertion order. Returning an error from
// fn stops the iteration and returns that error.
func (db *DB) ForEach(ctx context.Context, fn func(symbols.Symbol) error) error {
	rows, err := db.conn.QueryContext(ctx, "SELECT "+symbolColumns+" FROM symbols ORDER BY id")
	if err != nil {
		return classify(err)
	}
	defer rows.Close()

	for rows.Next() {
		s, err := scanSymbol(rows)
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
	}
	return classify(rows.Err())
}

// All returns every symbol in insertion order.
func (db *DB) All(ctx context.Context) ([]symbols.Symbol, error) {
	var out []symbols.Symbol
	err := db.ForEach(ctx, func(s symbols.Symbol) error {
		out = append(out, s)
		return nil
	})
	return out, err
}

func (db *DB) querySymbols(ctx context.Context, query string, args ...any) ([]symbols.Symbol, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var out []symbols.Symbol
	for rows.Next() {
		s, err := scanSymbol(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, classify(rows.Err())
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanSymbol reads one row selected with symbolColumns, plus any extra
// destinations the query appends.
func scanSymbol(r rowScanner, extra ...any) (symbols.Symbol, error) {
	var (
		s                                         symbols.Symbol
		kind                                      string
		tags, usedTypes, methodCalls, relatedMeth string
		apiUsage, typical                         string
	)
	dest := []any{
		&s.ID, &s.Name, &kind, &s.Parent, &s.Signature, &s.SourceLocation, &s.Model,
		&tags, &usedTypes, &methodCalls, &relatedMeth, &s.Extends,
		&apiUsage, &typical, &s.UsageFrequency, &s.Complexity,
		&s.PatternType, &s.SourceSnippet,
	}
	if err := r.Scan(append(dest, extra...)...); err != nil {
		return s, fmt.Errorf("failed to scan symbol: %w", classify(err))
	}

	s.Kind = symbols.Kind(kind)
	s.Tags = symbols.SplitList(tags)
	s.UsedTypes = symbols.SplitList(usedTypes)
	s.MethodCalls = symbols.SplitList(methodCalls)
	s.RelatedMethods = symbols.SplitList(relatedMeth)
	if apiUsage != "" {
		if err := json.Unmarshal([]byte(apiUsage), &s.APIUsagePatterns); err != nil {
			return s, fmt.Errorf("symbol %d has invalid api usage patterns: %w", s.ID, err)
		}
	}
	if typical != "" {
		if err := json.Unmarshal([]byte(typical), &s.TypicalUsages); err != nil {
			return s, fmt.Errorf("symbol %d has invalid typical usages: %w", s.ID, err)
		}
	}
	return s, nil
}

func symbolArgs(s *symbols.Symbol) ([]any, error) {
	apiUsage, err := marshalOptional(len(s.APIUsagePatterns) > 0, s.APIUsagePatterns)
	if err != nil {
		return nil, err
	}
	typical, err := marshalOptional(len(s.TypicalUsages) > 0, s.TypicalUsages)
	if err != nil {
		return nil, err
	}
	return []any{
		s.Name, string(s.Kind), s.Parent, s.Signature, s.SourceLocation, s.Model,
		symbols.JoinList(s.Tags), symbols.JoinList(s.UsedTypes),
		symbols.JoinList(s.MethodCalls), symbols.JoinList(s.RelatedMethods), s.Extends,
		apiUsage, typical, s.UsageFrequency, s.Complexity,
		s.PatternType, s.SourceSnippet,
	}, nil
}

func marshalOptional(present bool, v any) (string, error) {
	if !present {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode symbol attribute: %w", err)
	}
	return string(b), nil
}

func kindList(kind symbols.Kind) []symbols.Kind {
	if kind == "" {
		return nil
	}
	return []symbols.Kind{kind}
}

func appendKindFilter(query string, args []any, column string, kinds []symbols.Kind) (string, []any) {
	if len(kinds) == 0 {
		return query, args
	}
	placeholders := make([]string, len(kinds))
	for i, k := range kinds {
		placeholders[i] = "?"
		args = append(args, string(k))
	}
	return query + " AND " + column + " IN (" + strings.Join(placeholders, ", ") + ")", args
}

// sqlLimit maps non-positive limits to SQLite's "no limit".
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
