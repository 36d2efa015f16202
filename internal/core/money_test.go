package core

import "testing"

func TestParseAmountToCents(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    int64
		wantErr bool
	}{
		{name: "dot separator", in: "12.34", want: 1234},
		{name: "comma separator", in: "12,34", want: 1234},
		{name: "integer", in: "12", want: 1200},
		{name: "negative", in: "-12.34", want: -1234},
		{name: "explicit plus", in: "+0.50", want: 50},
		{name: "zero", in: "0", want: 0},
		{name: "third decimal rounds down", in: "12.344", want: 1234},
		{name: "third decimal rounds up", in: "12.346", want: 1235},
		{name: "negative rounds away from zero", in: "-12.346", want: -1235},
		{name: "leading dot", in: ".99", want: 99},
		{name: "empty", in: "", wantErr: true},
		{name: "bare sign", in: "-", wantErr: true},
		{name: "letters", in: "abc", wantErr: true},
		{name: "two separators", in: "1.2.3", wantErr: true},
		{name: "overflow", in: "92233720368547759", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmountToCents(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAmountToCents(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseAmountToCents(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestMoneyArithmetic(t *testing.T) {
	m := Money{Cents: 1500}
	if got := m.Add(Money{Cents: -500}); got.Cents != 1000 {
		t.Errorf("Add() = %d, want 1000", got.Cents)
	}
	if got := m.Neg(); got.Cents != -1500 {
		t.Errorf("Neg() = %d, want -1500", got.Cents)
	}
	if !(Money{}).IsZero() {
		t.Error("IsZero() = false for zero amount")
	}
	if got := m.Units(); got != 15.0 {
		t.Errorf("Units() = %v, want 15.0", got)
	}
}
