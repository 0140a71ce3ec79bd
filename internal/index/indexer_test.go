package index

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"xppkb/internal/cache"
	"xppkb/internal/errors"
	"xppkb/internal/fuzzy"
	"xppkb/internal/metadata"
	"xppkb/internal/modules"
	"xppkb/internal/storage"
	"xppkb/internal/symbols"
)

var fixtureFiles = map[string]string{
	"ApplicationSuite/AxClass/CustHelper.xml": `<AxClass>
	<Name>CustHelper</Name>
	<SourceCode>
		<Declaration><![CDATA[
class CustHelper
{
}
]]></Declaration>
		<Methods>
			<Method>
				<Name>find</Name>
				<Source><![CDATA[
    public static CustHelper find()
    {
        return new CustHelper();
    }
]]></Source>
			</Method>
			<Method>
				<Name>validate</Name>
				<Source><![CDATA[
    public boolean validate()
    {
        return true;
    }
]]></Source>
			</Method>
		</Methods>
	</SourceCode>
</AxClass>`,
	"ApplicationSuite/AxClass/Broken.xml": `<AxClass><Name>Broken`,
	"ApplicationSuite/AxTable/CustTable.xml": `<AxTable xmlns:i="http://www.w3.org/2001/XMLSchema-instance">
	<Name>CustTable</Name>
	<Fields>
		<AxTableField xmlns="" i:type="AxTableFieldString">
			<Name>AccountNum</Name>
			<ExtendedDataType>CustAccount</ExtendedDataType>
		</AxTableField>
	</Fields>
</AxTable>`,
	"ApplicationSuite/AxEnum/NoYes.xml": `<AxEnum>
	<Name>NoYes</Name>
	<EnumValues>
		<AxEnumValue><Name>No</Name></AxEnumValue>
		<AxEnumValue><Name>Yes</Name><Value>1</Value></AxEnumValue>
	</EnumValues>
</AxEnum>`,
	"ApplicationSuite/Descriptor/ApplicationSuite.xml": `<AxModelInfo><Name>ApplicationSuite</Name></AxModelInfo>`,
	"ContosoExt/AxClass/ContosoCustHelper.xml": `<AxClass>
	<Name>ContosoCustHelper</Name>
	<SourceCode>
		<Declaration><![CDATA[
class ContosoCustHelper
{
}
]]></Declaration>
		<Methods>
			<Method>
				<Name>check</Name>
				<Source><![CDATA[
    public boolean check()
    {
        CustHelper helper = CustHelper::find();
        return helper.validate();
    }
]]></Source>
			</Method>
		</Methods>
	</SourceCode>
</AxClass>`,
}

const fixtureSymbols = 8

func writeFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range fixtureFiles {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func fixtureModels() []modules.Model {
	return []modules.Model{
		{Name: "ApplicationSuite", Layer: modules.LayerStandard, Path: "ApplicationSuite"},
		{Name: "ContosoExt", Layer: modules.LayerCustom, Path: "ContosoExt"},
	}
}

func openStore(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.OpenPath(filepath.Join(t.TempDir(), "xppkb.db"), 0, nil)
	if err != nil {
		t.Fatalf("OpenPath() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func total(t *testing.T, db *storage.DB) int {
	t.Helper()
	st, err := db.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return st.Total
}

func TestBulkIndex(t *testing.T) {
	root := writeFixture(t)
	db := openStore(t)
	graph := &fuzzy.Shared{}
	ix := New(db, nil, nil, graph, nil)
	ctx := context.Background()

	res, err := ix.BulkIndex(ctx, root, fixtureModels())
	if err != nil {
		t.Fatalf("BulkIndex() error: %v", err)
	}
	if res.Files != 5 {
		t.Errorf("Files = %d, want 5", res.Files)
	}
	if res.ParseFailures != 1 || len(res.Failures) != 1 || !strings.HasSuffix(res.Failures[0].Path, "Broken.xml") {
		t.Errorf("ParseFailures = %d, Failures = %+v", res.ParseFailures, res.Failures)
	}
	if res.Symbols != fixtureSymbols || total(t, db) != fixtureSymbols {
		t.Errorf("Symbols = %d, stored = %d, want %d", res.Symbols, total(t, db), fixtureSymbols)
	}

	helper, err := db.GetByName(ctx, "CustHelper", symbols.KindClass)
	if err != nil || helper == nil {
		t.Fatalf("CustHelper not stored: %v", err)
	}
	if helper.UsageFrequency == 0 {
		t.Error("CustHelper should be counted as used")
	}

	run, err := db.LatestIndexRun(ctx)
	if err != nil || run == nil {
		t.Fatalf("LatestIndexRun() = %v, %v", run, err)
	}
	if run.RunID != res.RunID || run.Status != storage.RunCompleted || run.ParseFailures != 1 {
		t.Errorf("recorded run = %+v", run)
	}

	if graph.Load().Popularity("CustHelper") == 0 {
		t.Error("term graph was not rebuilt")
	}
}

func TestBulkIndexIdempotent(t *testing.T) {
	root := writeFixture(t)
	db := openStore(t)
	ix := New(db, nil, nil, nil, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := ix.BulkIndex(ctx, root, fixtureModels()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if got := total(t, db); got != fixtureSymbols {
			t.Errorf("run %d: stored %d symbols, want %d", i, got, fixtureSymbols)
		}
	}
}

func TestBulkIndexSingleModelKeepsOthers(t *testing.T) {
	root := writeFixture(t)
	db := openStore(t)
	ix := New(db, nil, nil, nil, nil)
	ctx := context.Background()

	if _, err := ix.BulkIndex(ctx, root, fixtureModels()); err != nil {
		t.Fatal(err)
	}
	if _, err := ix.BulkIndex(ctx, root, fixtureModels()[1:]); err != nil {
		t.Fatal(err)
	}
	st, err := db.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.ByModel["ApplicationSuite"] != 6 || st.ByModel["ContosoExt"] != 2 {
		t.Errorf("ByModel = %v", st.ByModel)
	}
}

// orphanParser appends a member without a parent after the file named
// failOn, which the store rejects mid-transaction.
type orphanParser struct {
	inner  metadata.Parser
	failOn string
}

func (p orphanParser) ParseFile(path, model string) ([]symbols.Symbol, error) {
	syms, err := p.inner.ParseFile(path, model)
	if err == nil && strings.Contains(path, p.failOn) {
		syms = append(syms, symbols.Symbol{Name: "orphan", Kind: symbols.KindMethod, Model: model})
	}
	return syms, err
}

func TestBulkIndexAtomicOnFailure(t *testing.T) {
	root := writeFixture(t)
	db := openStore(t)
	ctx := context.Background()

	if _, err := New(db, nil, nil, nil, nil).BulkIndex(ctx, root, fixtureModels()); err != nil {
		t.Fatal(err)
	}

	bad := New(db, orphanParser{inner: metadata.NewXMLParser(), failOn: "NoYes"}, nil, nil, nil)
	if _, err := bad.BulkIndex(ctx, root, fixtureModels()); err == nil {
		t.Fatal("expected BulkIndex to fail")
	}

	if got := total(t, db); got != fixtureSymbols {
		t.Errorf("stored %d symbols after failed run, want previous %d", got, fixtureSymbols)
	}
	if s, _ := db.GetByName(ctx, "CustHelper", symbols.KindClass); s == nil {
		t.Error("previous content lost after failed run")
	}
	run, err := db.LatestIndexRun(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if run == nil || run.Status != storage.RunFailed || run.Error == "" {
		t.Errorf("failed run not recorded: %+v", run)
	}
}

func TestBulkIndexCancelled(t *testing.T) {
	root := writeFixture(t)
	db := openStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(db, nil, nil, nil, nil).BulkIndex(ctx, root, fixtureModels()); err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if got := total(t, db); got != 0 {
		t.Errorf("stored %d symbols after cancelled run", got)
	}
}

func TestBulkIndexInvalidArguments(t *testing.T) {
	db := openStore(t)
	ix := New(db, nil, nil, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		root   string
		models []modules.Model
	}{
		{"no models", t.TempDir(), nil},
		{"missing root", filepath.Join(t.TempDir(), "missing"), fixtureModels()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ix.BulkIndex(ctx, tt.root, tt.models)
			if !errors.Is(err, errors.InvalidArgument) {
				t.Errorf("error = %v, want INVALID_ARGUMENT", err)
			}
		})
	}
}

func TestBulkIndexInvalidatesCache(t *testing.T) {
	root := writeFixture(t)
	db := openStore(t)
	layer := cache.NewLayer(cache.NewLocal(db), cache.DefaultConfig(), nil)
	ctx := context.Background()

	key := cache.NewKey("search", cache.AllFilter, 10, "cust")
	layer.Set(ctx, key, []string{"stale"}, cache.Short)
	var before []string
	if !layer.Get(ctx, key, &before) {
		t.Fatal("entry not cached")
	}

	if _, err := New(db, nil, layer, nil, nil).BulkIndex(ctx, root, fixtureModels()); err != nil {
		t.Fatal(err)
	}
	var after []string
	if layer.Get(ctx, key, &after) {
		t.Errorf("cache still holds %v after reindex", after)
	}
}

func TestAssignUsageFrequency(t *testing.T) {
	syms := []symbols.Symbol{
		{Name: "CustTable", Kind: symbols.KindTable},
		{Name: "find", Kind: symbols.KindMethod, Parent: "CustTable"},
		{Name: "A", Kind: symbols.KindClass, UsedTypes: []string{"custtable"}},
		{Name: "run", Kind: symbols.KindMethod, Parent: "A", UsedTypes: []string{"CustTable"}, MethodCalls: []string{"find"}},
		{Name: "B", Kind: symbols.KindClass, Extends: "A"},
	}
	assignUsageFrequency(syms)

	want := []int{2, 1, 1, 0, 0}
	for i, s := range syms {
		if s.UsageFrequency != want[i] {
			t.Errorf("%s UsageFrequency = %d, want %d", s.QualifiedName(), s.UsageFrequency, want[i])
		}
	}
}

func TestCheckFreshness(t *testing.T) {
	root := writeFixture(t)
	db := openStore(t)
	ctx := context.Background()

	res, err := CheckFreshness(ctx, nil, root, fixtureModels())
	if err != nil || res.Fresh {
		t.Fatalf("no run: %+v, %v", res, err)
	}

	if _, err := New(db, nil, nil, nil, nil).BulkIndex(ctx, root, fixtureModels()); err != nil {
		t.Fatal(err)
	}
	last, err := db.LatestIndexRun(ctx)
	if err != nil {
		t.Fatal(err)
	}

	res, err = CheckFreshness(ctx, last, root, fixtureModels())
	if err != nil || !res.Fresh || res.LastRunID != last.RunID {
		t.Errorf("after run: %+v, %v", res, err)
	}

	future := time.Now().Add(time.Hour)
	changed := filepath.Join(root, "ContosoExt", "AxClass", "ContosoCustHelper.xml")
	if err := os.Chtimes(changed, future, future); err != nil {
		t.Fatal(err)
	}
	res, err = CheckFreshness(ctx, last, root, fixtureModels())
	if err != nil || res.Fresh || res.ChangedFiles != 1 {
		t.Errorf("after change: %+v, %v", res, err)
	}
}

func TestHumanDuration(t *testing.T) {
	tests := map[time.Duration]string{
		10 * time.Second: "just now",
		time.Minute:      "1 minute",
		5 * time.Minute:  "5 minutes",
		time.Hour:        "1 hour",
		3 * time.Hour:    "3 hours",
		24 * time.Hour:   "1 day",
		72 * time.Hour:   "3 days",
	}
	for d, want := range tests {
		if got := humanDuration(d); got != want {
			t.Errorf("humanDuration(%v) = %q, want %q", d, got, want)
		}
	}
}
