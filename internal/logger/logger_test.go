package logger

import "testing"

func TestSanitizeKVs_RedactsSecretKeys(t *testing.T) {
	out := sanitizeKVs([]interface{}{
		"user_id", "u1",
		"api_key", "sk-live",
		"Authorization", "Bearer abc",
		"note", "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxIn0.sig",
		"dangling",
	})

	if out[1] != "u1" {
		t.Errorf("expected user_id untouched, got %v", out[1])
	}
	if out[3] != "[REDACTED]" {
		t.Errorf("expected api_key redacted, got %v", out[3])
	}
	if out[5] != "[REDACTED]" {
		t.Errorf("expected authorization redacted, got %v", out[5])
	}
	if out[7] != "[REDACTED]" {
		t.Errorf("expected JWT-looking value redacted, got %v", out[7])
	}
	if len(out) != 9 || out[8] != "dangling" {
		t.Errorf("expected trailing key preserved, got %v", out)
	}
}

func TestSanitizeKVs_KeepsTokenCounts(t *testing.T) {
	out := sanitizeKVs([]interface{}{
		"prompt_tokens", 123,
		"completion_tokens", 45,
		"context_tokens", 900,
		"original_tokens", 1200,
		"tokens", 7,
		"refresh_token", "r-abc",
		"access-token", "a-abc",
		"openai_api_key", "sk-live",
		"jwt_secret", "s3cret",
	})

	for i, want := range []interface{}{123, 45, 900, 1200, 7} {
		if got := out[2*i+1]; got != want {
			t.Errorf("%v: expected %v, got %v", out[2*i], want, got)
		}
	}
	for i := 5; i < 9; i++ {
		if got := out[2*i+1]; got != "[REDACTED]" {
			t.Errorf("%v: expected redaction, got %v", out[2*i], got)
		}
	}
}
