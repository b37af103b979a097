package crypto_test

import (
	"bytes"
	"crypto/aes"
	"testing"

	"whisper/internal/crypto"
)

func TestCBC_RoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x11}, 32)
	iv := bytes.Repeat([]byte{0x22}, aes.BlockSize)

	for _, n := range []int{0, 1, 15, 16, 17, 100} {
		pt := bytes.Repeat([]byte{'a'}, n)
		ct, err := crypto.EncryptCBC(key, iv, pt)
		if err != nil {
			t.Fatalf("EncryptCBC(%d): %v", n, err)
		}
		if len(ct)%aes.BlockSize != 0 || len(ct) <= n {
			t.Fatalf("ciphertext length %d for %d byte input", len(ct), n)
		}
		got, err := crypto.DecryptCBC(key, iv, ct)
		if err != nil {
			t.Fatalf("DecryptCBC(%d): %v", n, err)
		}
		if !bytes.Equal(got, pt) {
			t.Fatalf("round trip mismatch for %d bytes", n)
		}
	}
}

func TestCBC_TamperedPaddingFails(t *testing.T) {
	key := bytes.Repeat([]byte{0x11}, 32)
	iv := bytes.Repeat([]byte{0x22}, aes.BlockSize)
	ct, err := crypto.EncryptCBC(key, iv, []byte("hello"))
	if err != nil {
		t.Fatalf("EncryptCBC: %v", err)
	}
	badIV := bytes.Clone(iv)
	badIV[aes.BlockSize-1] ^= 0xff
	if _, err := crypto.DecryptCBC(key, badIV, ct); err == nil {
		t.Fatal("expected padding error after tampering")
	}
	if _, err := crypto.DecryptCBC(key, iv, ct[:5]); err == nil {
		t.Fatal("expected length error")
	}
}

func TestDH_Agrees(t *testing.T) {
	a, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	b, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	ab, err := crypto.DH(a.Priv, b.Pub)
	if err != nil {
		t.Fatalf("DH: %v", err)
	}
	ba, err := crypto.DH(b.Priv, a.Pub)
	if err != nil {
		t.Fatalf("DH: %v", err)
	}
	if ab != ba {
		t.Fatal("shared secrets differ")
	}
}

func TestSignVerify(t *testing.T) {
	id, err := crypto.GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}
	sig := crypto.SignEd25519(id.EdPriv, []byte("msg"))
	if !crypto.VerifyEd25519(id.EdPub, []byte("msg"), sig) {
		t.Fatal("valid signature rejected")
	}
	if crypto.VerifyEd25519(id.EdPub, []byte("other"), sig) {
		t.Fatal("signature accepted for different message")
	}
	if crypto.VerifyEd25519(id.EdPub, []byte("msg"), nil) {
		t.Fatal("empty signature accepted")
	}
}
