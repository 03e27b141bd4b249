package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/plesql/plesql/internal/ast"
	"github.com/plesql/plesql/internal/errs"
)

func TestNormalizeAccentColor(t *testing.T) {
	tests := map[string]string{
		"39":      "39",
		"  244 ":  "244",
		"#7AA2F7": "#7aa2f7",
		"#abc":    "#aabbcc",
		"":        "",
		"none":    "",
		"off":     "",
		"default": "",
		"256":     "",
		"-1":      "",
		"#zzzzzz": "",
		"#abcd":   "",
		"blue":    "",
	}
	for in, want := range tests {
		got, ok := normalizeAccentColor(in)
		if got != want || ok != (want != "") {
			t.Errorf("normalizeAccentColor(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
}

func TestConfigureTheme(t *testing.T) {
	prevAccent, prevBold, prevColor := Accent, AccentBold, accentColor
	t.Cleanup(func() { Accent, AccentBold, accentColor = prevAccent, prevBold, prevColor })

	ConfigureTheme("#fff")
	if c, ok := AccentColor(); !ok || c != "#ffffff" {
		t.Fatalf("AccentColor = %q, %v", c, ok)
	}
	if !AccentBold.GetBold() {
		t.Error("AccentBold lost bold")
	}

	ConfigureTheme("off")
	if _, ok := AccentColor(); ok {
		t.Fatal("accent should be disabled")
	}
	if !AccentBold.GetBold() {
		t.Error("AccentBold should stay bold without an accent")
	}
}

func TestSeverityStyleCoversEverySeverity(t *testing.T) {
	for _, sev := range []ast.Severity{ast.SeverityDebug, ast.SeverityInfo, ast.SeverityWarn, ast.SeverityError} {
		if _, ok := severityStyles[sev]; !ok {
			t.Errorf("no style for %s", sev)
		}
	}
	if !SeverityStyle(ast.SeverityError).GetBold() {
		t.Error("ERROR lines should be bold")
	}
}

func TestLanguageError(t *testing.T) {
	e := &errs.Error{Kind: errs.KindDivisionByZero, Message: "division by zero", Line: 4, Column: 7}
	got := LanguageError(e)
	for _, want := range []string{SymbolError, "DivisionByZero", "division by zero", "(line 4, column 7)"} {
		if !strings.Contains(got, want) {
			t.Errorf("LanguageError missing %q: %q", want, got)
		}
	}

	noPos := LanguageError(&errs.Error{Kind: errs.KindUser, Message: "boom"})
	if strings.Contains(noPos, "line") {
		t.Errorf("unexpected position in %q", noPos)
	}
}

func TestCountAndElapsed(t *testing.T) {
	if got := Count(1, "row", "rows"); got != "(1 row)" {
		t.Errorf("Count(1) = %q", got)
	}
	if got := Count(0, "row", "rows"); got != "(0 rows)" {
		t.Errorf("Count(0) = %q", got)
	}
	if got := Elapsed(1500 * time.Microsecond); !strings.Contains(got, "2ms") {
		t.Errorf("Elapsed = %q", got)
	}
	if got := Elapsed(300 * time.Microsecond); !strings.Contains(got, "300µs") {
		t.Errorf("Elapsed = %q", got)
	}
}
