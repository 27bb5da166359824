package password

import "testing"

// BenchmarkLoginPaths compares a real verify with the dummy burn spent on unknown
// emails; the two should cost the same.
func BenchmarkLoginPaths(b *testing.B) {
	cfg := DefaultConfig()
	const pw = "correct horse battery staple"

	known, err := cfg.Hash(pw)
	if err != nil {
		b.Fatalf("hash: %v", err)
	}
	dummy, err := cfg.DummyHash()
	if err != nil {
		b.Fatalf("dummy hash: %v", err)
	}

	b.Run("known_email", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if ok, err := cfg.Verify(known, pw); err != nil || !ok {
				b.Fatalf("verify: ok=%v err=%v", ok, err)
			}
		}
	})
	b.Run("unknown_email", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if _, err := cfg.Verify(dummy, pw); err != nil {
				b.Fatalf("dummy verify: %v", err)
			}
		}
	})
}
