package amount

import (
	"errors"
	"math/big"
	"testing"
)

func TestToBaseUnits(t *testing.T) {
	tests := []struct {
		name    string
		decimal string
		want    string
		wantErr bool
	}{
		{"1 VQR", "1", "1000000000000000000", false},
		{"1.5 VQR", "1.5", "1500000000000000000", false},
		{"0.1 VQR", "0.1", "100000000000000000", false},
		{"smallest unit", "0.000000000000000001", "1", false},
		{"zero", "0", "0", false},
		{"leading dot", ".5", "500000000000000000", false},
		{"trailing dot", "1.", "1000000000000000000", false},
		{"max bounty range", "1000000", "1000000000000000000000000", false},
		{"whitespace", "  2.25  ", "2250000000000000000", false},
		{"empty", "", "", true},
		{"negative", "-1", "", true},
		{"plus sign", "+1", "", true},
		{"two dots", "1.2.3", "", true},
		{"letters", "abc", "", true},
		{"hex-ish", "0x10", "", true},
		{"19 fractional digits", "0.0000000000000000001", "", true},
		{"lone dot", ".", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToBaseUnits(tt.decimal)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ToBaseUnits(%q) error = %v, wantErr %v", tt.decimal, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Errorf("ToBaseUnits(%q) error = %v, want ErrInvalidAmount", tt.decimal, err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ToBaseUnits(%q) = %v, want %v", tt.decimal, got, tt.want)
			}
		})
	}
}

func TestToDecimal(t *testing.T) {
	tests := []struct {
		name      string
		baseUnits string
		want      string
		wantErr   bool
	}{
		{"1 VQR", "1000000000000000000", "1", false},
		{"1.5 VQR", "1500000000000000000", "1.5", false},
		{"smallest unit", "1", "0.000000000000000001", false},
		{"zero", "0", "0", false},
		{"trailing zeros trimmed", "1500000000000000000", "1.5", false},
		{"above uint64", "99999999999999999999999999", "99999999.999999999999999999", false},
		{"empty", "", "", true},
		{"negative", "-5", "", true},
		{"not a number", "12a", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToDecimal(tt.baseUnits)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ToDecimal(%q) error = %v, wantErr %v", tt.baseUnits, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ToDecimal(%q) = %v, want %v", tt.baseUnits, got, tt.want)
			}
		})
	}
}

// 往返性质：toDecimal(toBaseUnits(d)) == normalize(d)
func TestRoundTrip(t *testing.T) {
	tests := []struct {
		decimal string
		want    string // 规范化结果
	}{
		{"1", "1"},
		{"1.0", "1"},
		{"1.50", "1.5"},
		{"0.1", "0.1"},
		{"0.000000000000000001", "0.000000000000000001"},
		{"123456.789", "123456.789"},
		{"1000000", "1000000"},
		{"0.0", "0"},
		{"00.500", "0.5"},
	}

	for _, tt := range tests {
		base, err := ToBaseUnits(tt.decimal)
		if err != nil {
			t.Fatalf("ToBaseUnits(%q) error = %v", tt.decimal, err)
		}
		got, err := ToDecimal(base)
		if err != nil {
			t.Fatalf("ToDecimal(%q) error = %v", base, err)
		}
		if got != tt.want {
			t.Errorf("round trip %q → %q → %q, want %q", tt.decimal, base, got, tt.want)
		}
	}
}

// 精度：接近和超过 2^53 基础单位不得出现浮点损失
func TestExactnessAbove2p53(t *testing.T) {
	// 9.007199254740993 VQR 的基础单位是 2^53+1 附近无法用float64表示的值
	got, err := ToBaseUnits("9.007199254740992985")
	if err != nil {
		t.Fatalf("ToBaseUnits error = %v", err)
	}
	if got != "9007199254740992985" {
		t.Errorf("ToBaseUnits = %v, want 9007199254740992985", got)
	}
}

func TestAmountArithmetic(t *testing.T) {
	a, _ := Parse("1.5")
	b, _ := Parse("0.5")

	sum := a.Add(b)
	if sum.Decimal() != "2" {
		t.Errorf("Add() = %v, want 2", sum.Decimal())
	}
	if a.Cmp(b) != 1 || b.Cmp(a) != -1 || a.Cmp(a) != 0 {
		t.Errorf("Cmp() ordering broken")
	}
	if !Zero().IsZero() {
		t.Errorf("Zero().IsZero() = false")
	}
}

func TestFromBigInt(t *testing.T) {
	large := new(big.Int)
	large.SetString("999999999999999999999999", 10)

	amt, err := FromBigInt(large)
	if err != nil {
		t.Fatalf("FromBigInt error = %v", err)
	}
	if amt.BaseUnits() != "999999999999999999999999" {
		t.Errorf("BaseUnits() = %v", amt.BaseUnits())
	}

	if _, err := FromBigInt(big.NewInt(-1)); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("FromBigInt(-1) error = %v, want ErrInvalidAmount", err)
	}
	if _, err := FromBigInt(nil); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("FromBigInt(nil) error = %v, want ErrInvalidAmount", err)
	}
}
