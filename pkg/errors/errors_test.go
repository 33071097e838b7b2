package errors

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidSource, "missing folder: %s", "/tmp/nope")

	if err.Code != ErrCodeInvalidSource {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidSource)
	}

	if err.Message != "missing folder: /tmp/nope" {
		t.Errorf("Message = %v, want %v", err.Message, "missing folder: /tmp/nope")
	}

	expected := "INVALID_SOURCE: missing folder: /tmp/nope"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := Wrap(ErrCodeArchive, cause, "extract repo.zip")

	if err.Code != ErrCodeArchive {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeArchive)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	unwrapped := errors.Unwrap(err)
	if unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodeCloneTimeout, "clone exceeded 5m"),
			code:     ErrCodeCloneTimeout,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeClone, "exit status 128"),
			code:     ErrCodeCloneTimeout,
			expected: false,
		},
		{
			name:     "plain error",
			err:      errors.New("plain"),
			code:     ErrCodeInternal,
			expected: false,
		},
		{
			name:     "wrapped in fmt errors",
			err:      Wrap(ErrCodeInvalidTarget, errors.New("EACCES"), "parent not writable"),
			code:     ErrCodeInvalidTarget,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestWarning(t *testing.T) {
	if !Warning(New(ErrCodeManagerMissing, "pip not found")) {
		t.Error("DEP_MANAGER_MISSING should be a warning")
	}
	if !Warning(New(ErrCodeInstallFailed, "npm install exited 1")) {
		t.Error("DEP_INSTALL_FAILED should be a warning")
	}
	if Warning(New(ErrCodeClone, "exit status 128")) {
		t.Error("CLONE_ERROR should not be a warning")
	}
	if Warning(errors.New("plain")) {
		t.Error("plain errors should not be warnings")
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(New(ErrCodeInternal, "boom")); got != ErrCodeInternal {
		t.Errorf("GetCode() = %v, want %v", got, ErrCodeInternal)
	}
	if got := GetCode(errors.New("plain")); got != "" {
		t.Errorf("GetCode() = %v, want empty", got)
	}
}

func TestUserMessage(t *testing.T) {
	err := New(ErrCodeInvalidTarget, "target parent cannot be created")
	if got := UserMessage(err); got != "target parent cannot be created" {
		t.Errorf("UserMessage() = %v", got)
	}
	plain := errors.New("plain")
	if got := UserMessage(plain); got != "plain" {
		t.Errorf("UserMessage() = %v", got)
	}
}
