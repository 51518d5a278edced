package util

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"locked", errors.New("database is locked"), true},
		{"busy", errors.New("database is busy (5)"), true},
		{"timeout", errors.New("write timed out"), true},
		{"constraint", errors.New("UNIQUE constraint failed: tags.name"), false},
		{"not found", errors.New("no such table: projects"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryableError(tt.err); got != tt.want {
				t.Errorf("IsRetryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetryWithBackoffRecoversFromContention(t *testing.T) {
	attempts := 0
	result, err := RetryWithBackoff(CommitRetryConfig(), func() (string, error) {
		attempts++
		if attempts == 1 {
			return "", errors.New("database is locked")
		}
		return "committed", nil
	}, "test-commit")

	if err != nil {
		t.Fatalf("expected success on retry, got %v", err)
	}
	if result != "committed" {
		t.Errorf("result = %q, want %q", result, "committed")
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestRetryWithBackoffGivesUpAfterMaxAttempts(t *testing.T) {
	attempts := 0
	_, err := RetryWithBackoff(CommitRetryConfig(), func() (int, error) {
		attempts++
		return 0, errors.New("database is locked")
	}, "test-commit")

	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2 (one retry)", attempts)
	}
}

func TestRetryWithBackoffStopsOnNonRetryable(t *testing.T) {
	attempts := 0
	_, err := RetryWithBackoff(DefaultRetryConfig(), func() (int, error) {
		attempts++
		return 0, fmt.Errorf("UNIQUE constraint failed")
	}, "test-insert")

	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("non-retryable error retried %d times", attempts)
	}
}
