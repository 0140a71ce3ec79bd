package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"xppkb/internal/symbols"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := OpenPath(filepath.Join(t.TempDir(), "xppkb.db"), 0, logger)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})
	return db
}

func sampleSymbols() []symbols.Symbol {
	return []symbols.Symbol{
		{Name: "CustHelper", Kind: symbols.KindClass, Model: "ApplicationSuite", PatternType: "Helper", Tags: []string{"Helper"}},
		{Name: "validate", Kind: symbols.KindMethod, Parent: "CustHelper", Model: "ApplicationSuite", Signature: "public boolean validate()"},
		{Name: "find", Kind: symbols.KindMethod, Parent: "CustHelper", Model: "ApplicationSuite", Signature: "public static CustHelper find()"},
		{Name: "CustTable", Kind: symbols.KindTable, Model: "ApplicationSuite"},
		{Name: "AccountNum", Kind: symbols.KindField, Parent: "CustTable", Model: "ApplicationSuite"},
		{Name: "VendHelper", Kind: symbols.KindClass, Model: "ApplicationSuite", PatternType: "Helper"},
		{Name: "ContosoCustHelper", Kind: symbols.KindClass, Model: "ContosoExt", PatternType: "Helper"},
	}
}

func names(syms []symbols.Symbol) []string {
	out := make([]string, len(syms))
	for i, s := range syms {
		out[i] = s.Name
	}
	return out
}

func TestDatabaseInitialization(t *testing.T) {
	db := setupTestDB(t)

	if _, err := os.Stat(db.Path()); err != nil {
		t.Fatalf("Database file was not created at %s", db.Path())
	}

	version, err := db.getSchemaVersion()
	if err != nil {
		t.Fatalf("Failed to get schema version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("Expected schema version %d, got %d", currentSchemaVersion, version)
	}
	if db.Recovered() {
		t.Error("fresh store should not report recovery")
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xppkb.db")
	ctx := context.Background()

	db, err := OpenPath(path, 0, nil)
	if err != nil {
		t.Fatalf("OpenPath() error: %v", err)
	}
	if err := db.AddSymbols(ctx, sampleSymbols()); err != nil {
		t.Fatalf("AddSymbols() error: %v", err)
	}
	db.Close()

	db, err = OpenPath(path, 0, nil)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer db.Close()

	st, err := db.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if st.Total != len(sampleSymbols()) {
		t.Errorf("Total = %d, want %d", st.Total, len(sampleSymbols()))
	}
}

func TestCorruptStoreIsRecreated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xppkb.db")
	garbage := []byte(strings.Repeat("this is not a sqlite database. ", 200))
	if err := os.WriteFile(path, garbage, 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path+"-wal", []byte("junk"), 0644); err != nil {
		t.Fatal(err)
	}

	db, err := OpenPath(path, 0, nil)
	if err != nil {
		t.Fatalf("OpenPath() error: %v", err)
	}
	defer db.Close()

	if !db.Recovered() {
		t.Error("expected Recovered() after corrupt file")
	}
	ctx := context.Background()
	if err := db.AddSymbols(ctx, sampleSymbols()); err != nil {
		t.Fatalf("recreated store rejects writes: %v", err)
	}
	got, err := db.GetByName(ctx, "CustHelper", "")
	if err != nil || got == nil {
		t.Fatalf("GetByName() = %v, %v", got, err)
	}
}

func TestIsCorrupt(t *testing.T) {
	if IsCorrupt(nil) {
		t.Error("nil is not corrupt")
	}
	if !IsCorrupt(errors.New("file is not a database (26)")) {
		t.Error("NOTADB message should be corrupt")
	}
	if IsCorrupt(errors.New("database is locked")) {
		t.Error("busy is not corrupt")
	}
}

func TestAddSymbolsRejectsInvalid(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	batch := sampleSymbols()
	batch = append(batch, symbols.Symbol{Name: "orphan", Kind: symbols.KindMethod})

	if err := db.AddSymbols(ctx, batch); err == nil {
		t.Fatal("expected validation error")
	}
	all, err := db.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Errorf("failed batch left %d symbols behind", len(all))
	}
}

func TestAddSymbolSetsID(t *testing.T) {
	db := setupTestDB(t)
	s := symbols.Symbol{Name: "NoYes", Kind: symbols.KindEnum, Model: "ApplicationPlatform"}
	if err := db.AddSymbol(context.Background(), &s); err != nil {
		t.Fatalf("AddSymbol() error: %v", err)
	}
	if s.ID == 0 {
		t.Error("AddSymbol should set ID")
	}
}

func TestGetByName(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	dup := sampleSymbols()
	dup = append(dup, symbols.Symbol{Name: "CustHelper", Kind: symbols.KindClass, Model: "ContosoExt"})
	if err := db.AddSymbols(ctx, dup); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetByName(ctx, "custhelper", "")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Model != "ApplicationSuite" {
		t.Errorf("GetByName() should return the first inserted duplicate, got %+v", got)
	}

	got, err = db.GetByName(ctx, "find", symbols.KindClass)
	if err != nil || got != nil {
		t.Errorf("kind filter ignored: %+v, %v", got, err)
	}

	got, err = db.GetByName(ctx, "Missing", "")
	if err != nil || got != nil {
		t.Errorf("GetByName(missing) = %+v, %v", got, err)
	}
}

func TestGetChildren(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	if err := db.AddSymbols(ctx, sampleSymbols()); err != nil {
		t.Fatal(err)
	}

	methods, err := db.MethodsOf(ctx, "CUSTHELPER")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"find", "validate"}; !reflect.DeepEqual(names(methods), want) {
		t.Errorf("MethodsOf() = %v, want %v", names(methods), want)
	}

	fields, err := db.GetChildren(ctx, "CustTable", symbols.KindField)
	if err != nil {
		t.Fatal(err)
	}
	if len(fields) != 1 || fields[0].Name != "AccountNum" {
		t.Errorf("GetChildren(CustTable) = %v", names(fields))
	}
}

func TestPrefixLookup(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	syms := append(sampleSymbols(),
		symbols.Symbol{Name: "Cust_Extension", Kind: symbols.KindClass, Model: "ContosoExt"},
	)
	if err := db.AddSymbols(ctx, syms); err != nil {
		t.Fatal(err)
	}

	got, err := db.PrefixLookup(ctx, "cust", nil, 10)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"Cust_Extension", "CustHelper", "CustTable"}; !reflect.DeepEqual(names(got), want) {
		t.Errorf("PrefixLookup(cust) = %v, want %v", names(got), want)
	}

	got, err = db.PrefixLookup(ctx, "Cust_", nil, 10)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"Cust_Extension"}; !reflect.DeepEqual(names(got), want) {
		t.Errorf("underscore must match literally, got %v", names(got))
	}

	got, err = db.PrefixLookup(ctx, "cust", []symbols.Kind{symbols.KindTable}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"CustTable"}; !reflect.DeepEqual(names(got), want) {
		t.Errorf("kind filter: got %v", names(got))
	}
}

func TestRankedLookup(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	if err := db.AddSymbols(ctx, sampleSymbols()); err != nil {
		t.Fatal(err)
	}

	got, err := db.RankedLookup(ctx, "CustHelper", nil, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) == 0 || got[0].Symbol.Name != "CustHelper" {
		t.Fatalf("expected CustHelper first, got %+v", got)
	}

	methods, err := db.RankedLookup(ctx, "CustHelper", []symbols.Kind{symbols.KindMethod}, 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range methods {
		if r.Symbol.Kind != symbols.KindMethod {
			t.Errorf("kind filter leaked %s", r.Symbol.Kind)
		}
	}
	if len(methods) != 2 {
		t.Errorf("expected the two CustHelper methods, got %d", len(methods))
	}

	again, err := db.RankedLookup(ctx, "CustHelper", nil, 10)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, again) {
		t.Error("identical queries returned different results")
	}

	empty, err := db.RankedLookup(ctx, "  ** ", nil, 10)
	if err != nil || len(empty) != 0 {
		t.Errorf("punctuation-only query = %v, %v", empty, err)
	}
}

func TestFTSConsistency(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	if err := db.AddSymbols(ctx, sampleSymbols()); err != nil {
		t.Fatal(err)
	}

	if err := db.Clear(ctx, "ContosoExt"); err != nil {
		t.Fatal(err)
	}
	got, err := db.RankedLookup(ctx, "ContosoCustHelper", nil, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("deleted symbol still searchable: %+v", got)
	}
	if err := db.IntegrityCheck(ctx); err != nil {
		t.Errorf("IntegrityCheck() error: %v", err)
	}

	all, err := db.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range all {
		hits, err := db.RankedLookup(ctx, s.Name, []symbols.Kind{s.Kind}, 0)
		if err != nil {
			t.Fatal(err)
		}
		found := false
		for _, h := range hits {
			if h.Symbol.ID == s.ID {
				found = true
			}
		}
		if !found {
			t.Errorf("symbol %s missing from FTS projection", s.QualifiedName())
		}
	}
}

func TestReplaceModels(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	if err := db.AddSymbols(ctx, sampleSymbols()); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("parser exploded")
	_, err := db.ReplaceModels(ctx, []string{"ApplicationSuite"}, func(w SymbolWriter) error {
		s := symbols.Symbol{Name: "NewClass", Kind: symbols.KindClass, Model: "ApplicationSuite"}
		if err := w.Write(ctx, &s); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("ReplaceModels() error = %v, want %v", err, boom)
	}

	got, _ := db.GetByName(ctx, "CustHelper", "")
	if got == nil {
		t.Error("failed reindex removed old content")
	}
	if got, _ := db.GetByName(ctx, "NewClass", ""); got != nil {
		t.Error("failed reindex leaked new content")
	}

	n, err := db.ReplaceModels(ctx, []string{"ApplicationSuite"}, func(w SymbolWriter) error {
		s := symbols.Symbol{Name: "NewClass", Kind: symbols.KindClass, Model: "ApplicationSuite"}
		return w.Write(ctx, &s)
	})
	if err != nil || n != 1 {
		t.Fatalf("ReplaceModels() = %d, %v", n, err)
	}
	st, err := db.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.ByModel["ApplicationSuite"] != 1 || st.ByModel["ContosoExt"] != 1 {
		t.Errorf("ByModel = %v", st.ByModel)
	}
}

func TestAttributesRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	in := symbols.Symbol{
		Name:           "post",
		Kind:           symbols.KindMethod,
		Parent:         "SalesInvoiceService",
		Model:          "ApplicationSuite",
		Tags:           []string{"Service", "Posting"},
		UsedTypes:      []string{"CustTable", "LedgerJournalTable"},
		MethodCalls:    []string{"find", "insert"},
		RelatedMethods: []string{"validate"},
		Extends:        "SysOperationServiceBase",
		APIUsagePatterns: []symbols.APIUsage{{
			API:            "LedgerJournalCheckPost",
			Initialization: []string{"LedgerJournalCheckPost::newLedgerJournalTable(journal, NoYes::Yes)"},
			Calls:          []string{"runOperation"},
		}},
		TypicalUsages:  []string{"SalesInvoiceService::construct().post();"},
		UsageFrequency: 12,
		Complexity:     7,
		PatternType:    "Service",
		SourceSnippet:  "public void post()",
	}
	if err := db.AddSymbol(ctx, &in); err != nil {
		t.Fatal(err)
	}

	out, err := db.GetByName(ctx, "post", symbols.KindMethod)
	if err != nil || out == nil {
		t.Fatalf("GetByName() = %v, %v", out, err)
	}
	if !reflect.DeepEqual(*out, in) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", *out, in)
	}
}

func TestFindReferencing(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	syms := []symbols.Symbol{
		{Name: "A", Kind: symbols.KindClass, UsedTypes: []string{"DimensionAttribute"}},
		{Name: "B", Kind: symbols.KindClass, UsedTypes: []string{"CustTable"}},
	}
	if err := db.AddSymbols(ctx, syms); err != nil {
		t.Fatal(err)
	}
	got, err := db.FindReferencing(ctx, "DimensionAttribute", 10)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"A"}; !reflect.DeepEqual(names(got), want) {
		t.Errorf("FindReferencing() = %v, want %v", names(got), want)
	}
}

func TestIndexRuns(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if run, err := db.LatestIndexRun(ctx); err != nil || run != nil {
		t.Fatalf("LatestIndexRun() on empty store = %v, %v", run, err)
	}

	start := time.Now().Add(-time.Minute)
	runs := []IndexRun{
		{RunID: "first", StartedAt: start, FinishedAt: start.Add(time.Second), Status: RunCompleted, Files: 3},
		{RunID: "second", StartedAt: start, FinishedAt: start.Add(2 * time.Second), Status: RunFailed, Error: "boom", Models: []string{"ApplicationSuite", "ContosoExt"}},
	}
	for _, r := range runs {
		if err := db.RecordIndexRun(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	latest, err := db.LatestIndexRun(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if latest.RunID != "second" || latest.Status != RunFailed {
		t.Errorf("LatestIndexRun() = %+v", latest)
	}
	if !reflect.DeepEqual(latest.Models, []string{"ApplicationSuite", "ContosoExt"}) {
		t.Errorf("Models = %v", latest.Models)
	}
}

func TestCacheEntries(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.CacheSet(ctx, "xppkb:search:all:20:cust", []byte("v1"), "short", time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := db.CacheSet(ctx, "xppkb:search:all:20:vend", []byte("v2"), "short", -time.Second); err != nil {
		t.Fatal(err)
	}
	if err := db.CacheSet(ctx, "xppkb:symbol:all:0:custtable", []byte("v3"), "long", time.Minute); err != nil {
		t.Fatal(err)
	}

	v, ok, err := db.CacheGet(ctx, "xppkb:search:all:20:cust")
	if err != nil || !ok || string(v) != "v1" {
		t.Errorf("CacheGet() = %q, %v, %v", v, ok, err)
	}
	if _, ok, _ := db.CacheGet(ctx, "xppkb:search:all:20:vend"); ok {
		t.Error("expired entry returned")
	}

	keys, err := db.CacheKeys(ctx, "xppkb:search:", 100)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"xppkb:search:all:20:cust"}; !reflect.DeepEqual(keys, want) {
		t.Errorf("CacheKeys() = %v, want %v", keys, want)
	}

	if _, err := db.CacheClear(ctx, ""); err != nil {
		t.Fatal(err)
	}
	keys, _ = db.CacheKeys(ctx, "", 100)
	if len(keys) != 0 {
		t.Errorf("CacheClear left %v", keys)
	}
}

func TestCachePurgeExpired(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.CacheSet(ctx, "xppkb:search:all:20:cust", []byte("v1"), "short", time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := db.CacheSet(ctx, "xppkb:search:all:20:vend", []byte("v2"), "short", -time.Second); err != nil {
		t.Fatal(err)
	}
	if err := db.CacheSet(ctx, "other:key", []byte("v3"), "long", -time.Second); err != nil {
		t.Fatal(err)
	}

	n, err := db.CachePurgeExpired(ctx)
	if err != nil {
		t.Fatalf("CachePurgeExpired() error: %v", err)
	}
	if n != 2 {
		t.Errorf("purged %d entries, want 2", n)
	}
	if _, ok, _ := db.CacheGet(ctx, "xppkb:search:all:20:cust"); !ok {
		t.Error("live entry purged")
	}
	if n, _ := db.CachePurgeExpired(ctx); n != 0 {
		t.Errorf("second purge removed %d entries", n)
	}
}

func TestEnsureFTS(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	if err := db.AddSymbols(ctx, sampleSymbols()); err != nil {
		t.Fatal(err)
	}

	rebuilt, err := db.EnsureFTS(ctx)
	if err != nil || rebuilt {
		t.Fatalf("EnsureFTS() on a healthy store = %v, %v", rebuilt, err)
	}

	// Empty the projection behind the triggers' back.
	if _, err := db.conn.ExecContext(ctx, "INSERT INTO symbols_fts(symbols_fts) VALUES('delete-all')"); err != nil {
		t.Fatal(err)
	}
	if err := db.IntegrityCheck(ctx); err == nil {
		t.Fatal("IntegrityCheck() passed on an emptied projection")
	}

	rebuilt, err = db.EnsureFTS(ctx)
	if err != nil {
		t.Fatalf("EnsureFTS() error: %v", err)
	}
	if !rebuilt {
		t.Error("EnsureFTS() did not report the rebuild")
	}
	got, err := db.RankedLookup(ctx, "ContosoCustHelper", nil, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) == 0 {
		t.Error("symbol not searchable after rebuild")
	}
}
