package identity

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
)

func TestPublisherIDDerivationStable(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	id1 := kp.PublisherID()
	id2 := PublisherIDFromPublicKey(kp.PublicKey)
	if id1 != id2 {
		t.Fatalf("PublisherID mismatch")
	}

	parsed, err := ParsePublisherID(id1.String())
	if err != nil {
		t.Fatalf("ParsePublisherID: %v", err)
	}
	if parsed != id1 {
		t.Fatalf("ParsePublisherID mismatch")
	}
	if len(id1.Short()) != 8 {
		t.Fatalf("unexpected short id %q", id1.Short())
	}
	if _, err := ParsePublisherID("abcd"); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestSignVerify(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	msg := []byte("bundle root")
	sig := kp.Sign(msg)
	if !Verify(kp.PublicKey, msg, sig) {
		t.Fatalf("signature verification failed")
	}
	if Verify(kp.PublicKey, []byte("tampered"), sig) {
		t.Fatalf("expected verification to fail for tampered message")
	}

	kp2, _ := GenerateKeyPair()
	if Verify(kp2.PublicKey, msg, sig) {
		t.Fatalf("expected verification to fail with different public key")
	}
	if Verify(kp.PublicKey[:10], msg, sig) {
		t.Fatalf("expected verification to fail with truncated key")
	}
}

func TestKeyFileRoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	path := filepath.Join(t.TempDir(), "publisher.key")
	if err := SaveKeyFile(path, kp); err != nil {
		t.Fatalf("SaveKeyFile: %v", err)
	}
	back, err := LoadKeyFile(path)
	if err != nil {
		t.Fatalf("LoadKeyFile: %v", err)
	}
	if !bytes.Equal(back.PublicKey, kp.PublicKey) || back.PublisherID() != kp.PublisherID() {
		t.Fatalf("loaded key differs from saved key")
	}
}

func TestKeyPairFromSeedInvalid(t *testing.T) {
	if _, err := KeyPairFromSeed([]byte("short")); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}
