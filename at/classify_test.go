package at_test

import (
	"errors"
	"testing"

	"github.com/atline-io/atline/at"
)

func TestParseFinalError(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		match bool
		code  int
		text  string
	}{
		{
			name:  "Plain ERROR",
			line:  "ERROR",
			match: true,
			code:  at.NoCode,
		},
		{
			name:  "NO CARRIER",
			line:  "NO CARRIER",
			match: true,
			code:  at.NoCode,
		},
		{
			name:  "CME error with numeric code",
			line:  "+CME ERROR: 10",
			match: true,
			code:  10,
		},
		{
			name:  "CMS error with numeric code",
			line:  "+CMS ERROR: 331",
			match: true,
			code:  331,
		},
		{
			name:  "CME error with textual description",
			line:  "+CME ERROR: SIM not inserted",
			match: true,
			code:  at.NoCode,
			text:  "SIM not inserted",
		},
		{
			name:  "Information line is not a final error",
			line:  "+CSQ: 15,99",
			match: false,
		},
		{
			name:  "OK is not an error",
			line:  "OK",
			match: false,
		},
		{
			name:  "URC resembling nothing",
			line:  "+CMTI: \"SM\",1",
			match: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, ok := at.ParseFinalError(tt.line)
			if ok != tt.match {
				t.Fatalf("ParseFinalError(%q) match = %v, want %v", tt.line, ok, tt.match)
			}
			if !tt.match {
				return
			}
			if f.Kind != at.KindError {
				t.Errorf("expected KindError, got %v", f.Kind)
			}
			if f.Code != tt.code {
				t.Errorf("expected code %d, got %d", tt.code, f.Code)
			}
			if f.Text != tt.text {
				t.Errorf("expected text %q, got %q", tt.text, f.Text)
			}
		})
	}
}

func TestFinalError(t *testing.T) {
	t.Run("CME error carries its value", func(t *testing.T) {
		f, _ := at.ParseFinalError("+CME ERROR: 10")
		err := at.FinalError(f)
		var cme at.CMEError
		if !errors.As(err, &cme) {
			t.Fatalf("expected CMEError, got %T", err)
		}
		if cme != "10" {
			t.Errorf("expected value 10, got %q", cme)
		}
	})

	t.Run("CMS error carries its text", func(t *testing.T) {
		f, _ := at.ParseFinalError("+CMS ERROR: invalid PDU mode parameter")
		err := at.FinalError(f)
		var cms at.CMSError
		if !errors.As(err, &cms) {
			t.Fatalf("expected CMSError, got %T", err)
		}
		if cms != "invalid PDU mode parameter" {
			t.Errorf("unexpected value: %q", cms)
		}
	})

	t.Run("Plain error is a ResultError", func(t *testing.T) {
		f, _ := at.ParseFinalError("ERROR")
		err := at.FinalError(f)
		var re at.ResultError
		if !errors.As(err, &re) {
			t.Fatalf("expected ResultError, got %T", err)
		}
		if re != "ERROR" {
			t.Errorf("unexpected value: %q", re)
		}
	})
}

func TestIsURCShaped(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"+UUSORD: 3,16", true},
		{"+CMTI: \"SM\",1", true},
		{"RING", true},
		{"OK", false},
		{"ATI", false},
		{"+CSQ", false}, // no colon
		{"Quectel", false},
	}
	for _, tt := range tests {
		if got := at.IsURCShaped(tt.line); got != tt.want {
			t.Errorf("IsURCShaped(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestIdent(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"+CSQ: 15,99", "+CSQ"},
		{"+CPIN?", "+CPIN"},
		{"+CFUN=4,0", "+CFUN"},
		{"ATI", "ATI"},
	}
	for _, tt := range tests {
		if got := at.Ident(tt.line); got != tt.want {
			t.Errorf("Ident(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}

	if !at.MatchesIdent("+CSQ: 15,99", "+CSQ") {
		t.Error("expected +CSQ info line to match ident +CSQ")
	}
	if at.MatchesIdent("+CMTI: \"SM\",1", "+CSQ") {
		t.Error("did not expect +CMTI line to match ident +CSQ")
	}
	if at.MatchesIdent("+CSQ: 15,99", "") {
		t.Error("empty ident must match nothing")
	}
}
