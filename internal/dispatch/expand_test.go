package dispatch

import (
	"os"
	"strings"
	"testing"

	"github.com/jorge-barreto/docgen/internal/sharedstate"
)

func TestExpandVars_Simple(t *testing.T) {
	vars := map[string]string{"FOLDER": "/src/app"}
	if got := ExpandVars("document $FOLDER", vars, nil); got != "document /src/app" {
		t.Fatalf("got %q", got)
	}
}

func TestExpandVars_Brace(t *testing.T) {
	vars := map[string]string{"RUN_ID": "r1"}
	if got := ExpandVars("${RUN_ID}_suffix", vars, nil); got != "r1_suffix" {
		t.Fatalf("got %q", got)
	}
}

func TestExpandVars_EnvFallback(t *testing.T) {
	os.Setenv("DOCGEN_TEST_VAR_XYZ", "from-env")
	defer os.Unsetenv("DOCGEN_TEST_VAR_XYZ")

	if got := ExpandVars("$DOCGEN_TEST_VAR_XYZ", map[string]string{}, nil); got != "from-env" {
		t.Fatalf("got %q", got)
	}
}

func TestExpandVars_MissingEmpty(t *testing.T) {
	os.Unsetenv("TOTALLY_UNKNOWN_VAR_12345")
	if got := ExpandVars("$TOTALLY_UNKNOWN_VAR_12345", map[string]string{}, nil); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestExpandVars_State(t *testing.T) {
	st := sharedstate.New()
	st.Set("language", "go")
	st.Set("entry_points", []string{"cmd/app/main.go"})

	got := ExpandVars("lang=$STATE_language eps=${STATE_entry_points} none=[$STATE_missing]", nil, st)
	if !strings.HasPrefix(got, "lang=go eps=[") {
		t.Fatalf("got %q", got)
	}
	if !strings.Contains(got, `"cmd/app/main.go"`) || !strings.HasSuffix(got, "none=[]") {
		t.Fatalf("got %q", got)
	}
}

func TestExpandVars_StateTruncated(t *testing.T) {
	st := sharedstate.New()
	st.Set("big", map[string]string{"x": strings.Repeat("a", maxStateExpansion)})
	got := ExpandVars("$STATE_big", nil, st)
	if !strings.HasSuffix(got, "... (truncated)") {
		t.Fatal("expected truncation marker")
	}
}
