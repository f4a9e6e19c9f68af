package accounts

import "testing"

func TestParse_Valid(t *testing.T) {
	raw := `[{"username":"alice","password":"p1"},{"username":"bob","password":"p2"}]`

	accts, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(accts) != 2 {
		t.Fatalf("got %d accounts, want 2", len(accts))
	}

	// Input order is preserved.
	if accts[0].Username != "alice" || accts[1].Username != "bob" {
		t.Errorf("order not preserved: %+v", accts)
	}
	if accts[0].Password != "p1" {
		t.Errorf("password not decoded: %+v", accts[0])
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"malformed json", `[{"username":"a"`},
		{"not an array", `{"username":"a","password":"b"}`},
		{"json null", `null`},
		{"json bool", `true`},
		{"json string", `"[]"`},
		{"missing username", `[{"password":"b"}]`},
		{"missing password", `[{"username":"a"}]`},
		{"blank username", `[{"username":"","password":"b"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.raw); err == nil {
				t.Errorf("Parse(%q) succeeded, want error", tt.raw)
			}
		})
	}
}

func TestParse_EmptyArray(t *testing.T) {
	accts, err := Parse(`[]`)
	if err != nil {
		t.Fatalf("Parse([]) failed: %v", err)
	}
	if len(accts) != 0 {
		t.Errorf("got %d accounts, want 0", len(accts))
	}
}
