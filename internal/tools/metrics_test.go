package tools

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCallsAreCounted(t *testing.T) {
	s := newTestService(t, nil)
	ctx := context.Background()

	okBefore := testutil.ToFloat64(toolCalls.WithLabelValues(ToolGetSymbol, "OK"))
	invalidBefore := testutil.ToFloat64(toolCalls.WithLabelValues(ToolGetSymbol, "INVALID_ARGUMENT"))

	s.GetSymbol(ctx, GetSymbolParams{Name: "CustTable"})
	s.GetSymbol(ctx, GetSymbolParams{Name: "CustTabel"})
	s.GetSymbol(ctx, GetSymbolParams{})

	if got := testutil.ToFloat64(toolCalls.WithLabelValues(ToolGetSymbol, "OK")) - okBefore; got != 2 {
		t.Errorf("OK calls = %v, want 2 (not found is not an error)", got)
	}
	if got := testutil.ToFloat64(toolCalls.WithLabelValues(ToolGetSymbol, "INVALID_ARGUMENT")) - invalidBefore; got != 1 {
		t.Errorf("INVALID_ARGUMENT calls = %v, want 1", got)
	}
}
