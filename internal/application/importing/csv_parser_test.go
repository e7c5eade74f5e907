package importing_test

import (
	"errors"
	"strings"
	"testing"

	app "github.com/mohammadpnp/crm-import/internal/application/importing"
)

func TestParseCSV(t *testing.T) {
	t.Parallel()

	input := "\xEF\xBB\xBFFirst , Last,Email\n" +
		"John,Doe,john@example.com\n" +
		"\n" +
		",,\n" +
		"\"Smith, Jr\",Ann\n" +
		"# trailing instructions are ignored\n"

	parsed, err := app.ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := strings.Join(parsed.Headers, "|"); got != "First|Last|Email" {
		t.Fatalf("unexpected headers: %s", got)
	}
	if len(parsed.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(parsed.Rows))
	}
	if parsed.Rows[0]["Email"] != "john@example.com" {
		t.Fatalf("unexpected email: %q", parsed.Rows[0]["Email"])
	}
	if parsed.Rows[1]["First"] != "Smith, Jr" {
		t.Fatalf("unexpected quoted value: %q", parsed.Rows[1]["First"])
	}
	if v, ok := parsed.Rows[1]["Email"]; !ok || v != "" {
		t.Fatalf("expected short row to be padded, got %q (present=%v)", v, ok)
	}
}

func TestParseCSVInvalid(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"empty":            "",
		"duplicate header": "Name,Name\nA,B\n",
		"blank header":     "Name,,City\n",
		"bad quoting":      "Name\n\"unterminated\n",
	}
	for name, input := range cases {
		_, err := app.ParseCSV(strings.NewReader(input))
		if !errors.Is(err, app.ErrInvalidCSV) {
			t.Fatalf("%s: expected ErrInvalidCSV, got %v", name, err)
		}
	}
}
