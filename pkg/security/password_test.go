package security_test

import (
	"strings"
	"testing"

	"github.com/angelmondragon/cafe-backend/pkg/config"
	"github.com/angelmondragon/cafe-backend/pkg/security"
)

var testCfg = config.PasswordConfig{
	ArgonMemoryKB:    32768,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := security.HashPassword("flat-white-42", testCfg)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=32768,t=1,p=1$") {
		t.Fatalf("unexpected hash layout %q", hash)
	}

	if ok, err := security.VerifyPassword("flat-white-42", hash); err != nil || !ok {
		t.Fatalf("expected match, ok=%v err=%v", ok, err)
	}
	if ok, err := security.VerifyPassword("flat-white-43", hash); err != nil || ok {
		t.Fatalf("expected mismatch without error, ok=%v err=%v", ok, err)
	}
}

func TestHashPasswordSaltsEachCall(t *testing.T) {
	first, _ := security.HashPassword("same", testCfg)
	second, _ := security.HashPassword("same", testCfg)
	if first == second {
		t.Fatal("expected distinct salts")
	}
	if _, err := security.HashPassword("", testCfg); err == nil {
		t.Fatal("expected empty password to be rejected")
	}
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	cases := []string{
		"not-a-hash",
		"$bcrypt$v=19$m=8,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=18$m=8,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=8,t=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=8,t=1,p=1$!!$a2V5",
	}
	for _, encoded := range cases {
		if _, err := security.VerifyPassword("x", encoded); err != security.ErrInvalidHash {
			t.Fatalf("%q: expected ErrInvalidHash, got %v", encoded, err)
		}
	}
}

func TestNeedsRehash(t *testing.T) {
	hash, err := security.HashPassword("mocha", testCfg)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if security.NeedsRehash(hash, testCfg) {
		t.Fatal("hash built from the same config should be current")
	}

	stronger := testCfg
	stronger.ArgonTime = 3
	if !security.NeedsRehash(hash, stronger) {
		t.Fatal("expected rehash when time cost rises")
	}
	if !security.NeedsRehash("garbage", testCfg) {
		t.Fatal("malformed hashes always need a rehash")
	}
}
