package sql

import "testing"

func TestScreenStringLiterals(t *testing.T) {
	hits := ScreenStringLiterals("SELECT * FROM users WHERE name = '1'' OR ''1''=''1' AND city = 'Oslo'")
	for _, hit := range hits {
		if hit.Literal == "Oslo" {
			t.Errorf("benign literal flagged: %+v", hit)
		}
		if hit.Fingerprint == "" {
			t.Errorf("hit without fingerprint: %+v", hit)
		}
	}
}

func TestScreenStringLiteralsClean(t *testing.T) {
	if hits := ScreenStringLiterals("SELECT id FROM orders WHERE status = 'shipped'"); len(hits) != 0 {
		t.Errorf("clean query produced hits: %+v", hits)
	}
}

func TestScreenStringLiteralsNoLiterals(t *testing.T) {
	if hits := ScreenStringLiterals("SELECT id FROM orders"); hits != nil {
		t.Errorf("expected nil, got %+v", hits)
	}
}
