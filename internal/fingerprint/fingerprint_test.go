package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"testing"
)

func TestKey_Deterministic(t *testing.T) {
	a := Key("AAPL", "2024-05-01", 10, "Tech", 252)
	for i := 0; i < 5; i++ {
		if b := Key("AAPL", "2024-05-01", 10, "Tech", 252); b != a {
			t.Fatalf("call %d: expected %s, got %s", i, a, b)
		}
	}
	if len(a) != 32 {
		t.Errorf("expected 32 hex chars, got %d", len(a))
	}
}

func TestKey_CanonicalContent(t *testing.T) {
	sum := md5.Sum([]byte("AAPL-2024-05-01-10-Tech-252"))
	want := hex.EncodeToString(sum[:])
	if got := Key("AAPL", "2024-05-01", 10, "Tech", 252); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
	sum = md5.Sum([]byte("MSFT-2023-11-02-12.5-Software-30"))
	want = hex.EncodeToString(sum[:])
	if got := Key("MSFT", "2023-11-02", 12.5, "Software", 30); got != want {
		t.Errorf("fractional percent: expected %s, got %s", want, got)
	}
}

func TestKey_FieldSensitivity(t *testing.T) {
	base := Key("AAPL", "2024-05-01", 10, "Tech", 252)
	variants := map[string]string{
		"ticker":  Key("MSFT", "2024-05-01", 10, "Tech", 252),
		"date":    Key("AAPL", "2024-05-02", 10, "Tech", 252),
		"percent": Key("AAPL", "2024-05-01", 10.5, "Tech", 252),
		"sector":  Key("AAPL", "2024-05-01", 10, "Energy", 252),
		"length":  Key("AAPL", "2024-05-01", 10, "Tech", 253),
	}
	for field, v := range variants {
		if v == base {
			t.Errorf("changing %s should change the key", field)
		}
	}
}
