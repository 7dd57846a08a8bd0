package airtable

import "testing"

func TestParseEquals(t *testing.T) {
	tests := []struct {
		formula   string
		wantField string
		wantValue string
		wantErr   bool
	}{
		{Equals("code", "abc"), "code", "abc", false},
		{Equals("code", "it's"), "code", "it's", false},
		{Equals("code", `back\slash`), "code", `back\slash`, false},
		{"{name} = 'x'", "name", "x", false},
		{"AND({a}='1',{b}='2')", "", "", true},
		{"{code}=abc", "", "", true},
		{"{code}='a'b'", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.formula, func(t *testing.T) {
			field, value, err := ParseEquals(tt.formula)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseEquals() error = %v, wantErr %v", err, tt.wantErr)
			}
			if field != tt.wantField || value != tt.wantValue {
				t.Errorf("ParseEquals() = (%q, %q), want (%q, %q)", field, value, tt.wantField, tt.wantValue)
			}
		})
	}
}
