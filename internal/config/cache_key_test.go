package config

import "testing"

func TestCacheKeyFormats(t *testing.T) {
	cases := []struct {
		name string
		got  string
		want string
	}{
		{"candidate session", CacheKey.CandidateSessionKey(42), "login:42"},
		{"attempt start", CacheKey.AttemptStartKey(42, "a1b2"), "candidate:42:assessment:a1b2:attempt_start"},
		{"attempt answers", CacheKey.AttemptAnswersKey(42, "a1b2"), "candidate:42:assessment:a1b2:answers"},
		{"assessment form", CacheKey.AssessmentFormKey("a1b2"), "assessment:a1b2:form"},
		{"assessment duration", CacheKey.AssessmentDurationKey("a1b2"), "assessment:a1b2:duration"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Fatalf("key = %q, want %q", tc.got, tc.want)
			}
		})
	}
}
