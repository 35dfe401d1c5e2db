package session

import (
	"errors"
	"strings"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

func TestNewMnemonic(t *testing.T) {
	tests := []struct {
		name     string
		strength MnemonicStrength
		words    int
		wantErr  bool
	}{
		{"12词", Mnemonic12Words, 12, false},
		{"24词", Mnemonic24Words, 24, false},
		{"非法强度", MnemonicStrength(100), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mnemonic, err := NewMnemonic(tt.strength)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewMnemonic: %v", err)
			}
			if got := len(strings.Fields(mnemonic)); got != tt.words {
				t.Fatalf("word count = %d, want %d", got, tt.words)
			}
			if !ValidateMnemonic(mnemonic) {
				t.Fatalf("generated mnemonic failed validation: %s", mnemonic)
			}
		})
	}
}

func TestKeyFromMnemonic(t *testing.T) {
	mnemonic, err := NewMnemonic(Mnemonic12Words)
	if err != nil {
		t.Fatalf("NewMnemonic: %v", err)
	}

	key1, err := KeyFromMnemonic(mnemonic, "")
	if err != nil {
		t.Fatalf("KeyFromMnemonic: %v", err)
	}

	// 同一助记词必须派生出同一账户
	key2, err := KeyFromMnemonic(mnemonic, "")
	if err != nil {
		t.Fatalf("KeyFromMnemonic (repeat): %v", err)
	}
	addr1 := ethcrypto.PubkeyToAddress(key1.PublicKey)
	addr2 := ethcrypto.PubkeyToAddress(key2.PublicKey)
	if addr1 != addr2 {
		t.Fatalf("derivation not deterministic: %s vs %s", addr1.Hex(), addr2.Hex())
	}

	// 多余空白与大小写不影响派生结果
	messy := "  " + strings.ToUpper(strings.Join(strings.Fields(mnemonic), "   ")) + " "
	key3, err := KeyFromMnemonic(messy, "")
	if err != nil {
		t.Fatalf("KeyFromMnemonic (messy): %v", err)
	}
	if ethcrypto.PubkeyToAddress(key3.PublicKey) != addr1 {
		t.Fatal("normalization changed derived account")
	}

	// BIP39口令改变派生结果
	key4, err := KeyFromMnemonic(mnemonic, "extra")
	if err != nil {
		t.Fatalf("KeyFromMnemonic (passphrase): %v", err)
	}
	if ethcrypto.PubkeyToAddress(key4.PublicKey) == addr1 {
		t.Fatal("passphrase did not change derived account")
	}
}

func TestKeyFromMnemonicInvalid(t *testing.T) {
	for _, mnemonic := range []string{
		"",
		"not a valid mnemonic at all",
		"legal winner thank year wave sausage worth useful legal winner thank",
	} {
		if _, err := KeyFromMnemonic(mnemonic, ""); !errors.Is(err, ErrInvalidMnemonic) {
			t.Errorf("mnemonic %q: err = %v, want ErrInvalidMnemonic", mnemonic, err)
		}
	}
}
