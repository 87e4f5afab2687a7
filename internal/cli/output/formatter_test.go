package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/yndnr/libcat-go/internal/core/domain"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"TABLE", FormatTable, false},
		{"json", FormatJSON, false},
		{" yaml ", FormatYAML, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestNewFormatter(t *testing.T) {
	if _, ok := NewFormatter(FormatJSON, false).(*JSONFormatter); !ok {
		t.Error("expected JSONFormatter")
	}
	if _, ok := NewFormatter(FormatYAML, false).(*YAMLFormatter); !ok {
		t.Error("expected YAMLFormatter")
	}
	tf, ok := NewFormatter("unknown", true).(*TableFormatter)
	if !ok || !tf.Wide {
		t.Errorf("expected wide TableFormatter, got %#v", tf)
	}
}

func TestJSONFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	user := domain.User{ID: 7, Name: "Ada", Email: "ada@example.com", Role: domain.RoleAdmin, Status: domain.AccountActive}
	if err := (&JSONFormatter{}).Format(&buf, user); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{`"id": 7`, `"name": "Ada"`, `"role": "admin"`} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() output missing %s:\n%s", want, out)
		}
	}
}

func TestYAMLFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	books := []domain.Book{
		{ID: 1, Title: "Dune", Author: "Frank Herbert", Status: domain.BookAvailable},
		{ID: 2, Title: "true", Author: "Anon", Status: domain.BookBorrowed},
	}
	if err := (&YAMLFormatter{}).Format(&buf, books); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	want := `- id: 1
  title: Dune
  author: Frank Herbert
  status: available
- id: 2
  title: "true"
  author: Anon
  status: borrowed
`
	if buf.String() != want {
		t.Errorf("Format() =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestYAMLFormatter_Map(t *testing.T) {
	var buf bytes.Buffer
	if err := (&YAMLFormatter{}).Format(&buf, map[string]int{"borrowed": 3, "available": 7}); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if got := buf.String(); got != "available: 7\nborrowed: 3\n" {
		t.Errorf("Format() = %q", got)
	}
}

func TestPrinter(t *testing.T) {
	var out, errOut bytes.Buffer
	p := NewPrinter(&out, &errOut, FormatTable, false, false)

	if err := p.Print([]domain.Book{{ID: 1, Title: "Dune", Author: "Frank Herbert", Status: domain.BookAvailable}}); err != nil {
		t.Fatalf("Print() error = %v", err)
	}
	p.Success("Login successful!")
	p.Failure("Login failed")
	p.Navigation("/dashboard")

	if !strings.Contains(out.String(), "Dune") {
		t.Errorf("Out = %q", out.String())
	}
	want := "✓ Login successful!\n✗ Login failed\n→ /dashboard\n"
	if errOut.String() != want {
		t.Errorf("Err = %q, want %q", errOut.String(), want)
	}
	if p.Machine() {
		t.Error("table printer should not be machine output")
	}
}

func TestPrinter_Quiet(t *testing.T) {
	var out, errOut bytes.Buffer
	p := NewPrinter(&out, &errOut, FormatJSON, false, true)

	p.Success("hidden")
	p.Navigation("/auth")
	p.Failure("shown")

	if errOut.String() != "✗ shown\n" {
		t.Errorf("Err = %q", errOut.String())
	}
	if !p.Machine() {
		t.Error("json printer should be machine output")
	}
}
