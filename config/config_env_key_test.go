package config

import "testing"

func TestCanonicalizeEnvKey_UsesExistingCamelCaseKeys(t *testing.T) {
	existing := map[string]any{
		"supabase": map[string]any{
			"anonKey":       "public-key",
			"avatarsBucket": "avatars",
		},
		"captcha": map[string]any{
			"siteKey":   "",
			"verifyUrl": "",
		},
		"auth": map[string]any{
			"minPasswordLength": 8,
		},
	}

	tests := []struct {
		envKey string
		want   string
	}{
		{envKey: "SUPABASE_ANONKEY", want: "supabase.anonKey"},
		{envKey: "SUPABASE_AVATARSBUCKET", want: "supabase.avatarsBucket"},
		{envKey: "CAPTCHA_SITEKEY", want: "captcha.siteKey"},
		{envKey: "AUTH_MINPASSWORDLENGTH", want: "auth.minPasswordLength"},
		{envKey: "NEW_FEATURE_FLAG", want: "new.feature.flag"},
	}

	for _, tt := range tests {
		t.Run(tt.envKey, func(t *testing.T) {
			if got := canonicalizeEnvKey(tt.envKey, existing); got != tt.want {
				t.Fatalf("canonicalizeEnvKey(%q) = %q, want %q", tt.envKey, got, tt.want)
			}
		})
	}
}
