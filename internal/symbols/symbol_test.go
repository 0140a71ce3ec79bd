package symbols

import (
	"reflect"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		sym     Symbol
		wantErr bool
	}{
		{"class", Symbol{Name: "CustHelper", Kind: KindClass}, false},
		{"method", Symbol{Name: "validate", Kind: KindMethod, Parent: "CustHelper"}, false},
		{"field", Symbol{Name: "AccountNum", Kind: KindField, Parent: "CustTable"}, false},
		{"missing name", Symbol{Kind: KindClass}, true},
		{"unknown kind", Symbol{Name: "X", Kind: "macro"}, true},
		{"class with parent", Symbol{Name: "Inner", Kind: KindClass, Parent: "Outer"}, true},
		{"enum with parent", Symbol{Name: "NoYes", Kind: KindEnum, Parent: "X"}, true},
		{"method without parent", Symbol{Name: "run", Kind: KindMethod}, true},
		{"field without parent", Symbol{Name: "RecId", Kind: KindField, Parent: "  "}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sym.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseKinds(t *testing.T) {
	kinds, err := ParseKinds("Class, method,,TABLE")
	if err != nil {
		t.Fatalf("ParseKinds() error: %v", err)
	}
	want := []Kind{KindClass, KindMethod, KindTable}
	if !reflect.DeepEqual(kinds, want) {
		t.Errorf("ParseKinds() = %v, want %v", kinds, want)
	}

	if _, err := ParseKinds("class,macro"); err == nil {
		t.Error("expected error for unknown kind")
	}
	if kinds, err := ParseKinds(""); err != nil || kinds != nil {
		t.Errorf("ParseKinds(\"\") = %v, %v", kinds, err)
	}
}

func TestKindsKey(t *testing.T) {
	if got := KindsKey(nil); got != "all" {
		t.Errorf("KindsKey(nil) = %q, want all", got)
	}
	if got := KindsKey([]Kind{KindTable, KindClass, KindTable}); got != "class,table" {
		t.Errorf("KindsKey() = %q, want class,table", got)
	}
}

func TestChildKind(t *testing.T) {
	if k, ok := KindClass.ChildKind(); !ok || k != KindMethod {
		t.Errorf("class child = %v, %v", k, ok)
	}
	if k, ok := KindTable.ChildKind(); !ok || k != KindField {
		t.Errorf("table child = %v, %v", k, ok)
	}
	if _, ok := KindEnum.ChildKind(); ok {
		t.Error("enum should own no members")
	}
}

func TestSplitJoinList(t *testing.T) {
	if got := SplitList(" CustTable, ,DimensionAttribute "); !reflect.DeepEqual(got, []string{"CustTable", "DimensionAttribute"}) {
		t.Errorf("SplitList() = %v", got)
	}
	if SplitList("") != nil {
		t.Error("SplitList(\"\") should be nil")
	}
	if got := JoinList([]string{"a", "b"}); got != "a,b" {
		t.Errorf("JoinList() = %q", got)
	}
}

func TestReferences(t *testing.T) {
	s := Symbol{
		Name:           "post",
		Kind:           KindMethod,
		Parent:         "SalesInvoiceService",
		UsedTypes:      []string{"CustTable", "custtable", "LedgerJournal"},
		MethodCalls:    []string{"find", ""},
		RelatedMethods: []string{"validate"},
		Extends:        "SysOperationServiceBase",
	}
	want := []string{"CustTable", "LedgerJournal", "find", "validate", "SalesInvoiceService", "SysOperationServiceBase"}
	if got := s.References(); !reflect.DeepEqual(got, want) {
		t.Errorf("References() = %v, want %v", got, want)
	}
}

func TestQualifiedNameAndDedupKey(t *testing.T) {
	m := Symbol{Name: "find", Kind: KindMethod, Parent: "CustTable", Model: "ApplicationSuite"}
	if m.QualifiedName() != "CustTable.find" {
		t.Errorf("QualifiedName() = %q", m.QualifiedName())
	}
	other := m
	other.Model = "ContosoExt"
	if m.DedupKey() != other.DedupKey() {
		t.Error("DedupKey should ignore the model")
	}
}

func TestInferPatternType(t *testing.T) {
	tests := map[string]string{
		"CustHelper":              "Helper",
		"SalesInvoiceService":     "Service",
		"LedgerJournalController": "Controller",
		"CustAgingReportDP":       "DataProvider",
		"CustAgingReportContract": "DataContract",
		"SalesLineEventHandler":   "EventHandler",
		"CustTable_Extension":     "Extension",
		"CustTable":               "",
		"Helper":                  "",
		"InventDimFormatter":      "Formatter",
	}
	for name, want := range tests {
		if got := InferPatternType(name); got != want {
			t.Errorf("InferPatternType(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestInferTags(t *testing.T) {
	got := InferTags("CustHelperTest", "")
	if !reflect.DeepEqual(got, []string{"Test"}) {
		t.Errorf("InferTags() = %v", got)
	}
	got = InferTags("SalesTable_Extension", "Extension")
	if !reflect.DeepEqual(got, []string{"Extension"}) {
		t.Errorf("InferTags() = %v", got)
	}
	s := Symbol{Tags: got}
	if !s.HasTag("extension") {
		t.Error("HasTag should be case-insensitive")
	}
}
