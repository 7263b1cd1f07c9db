package utils

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// --- CategorizeError Tests ---

func TestCategorizeError_NilError(t *testing.T) {
	result := CategorizeError(nil)
	if result != "None" {
		t.Errorf("CategorizeError(nil) = %q, want %q", result, "None")
	}
}

func TestCategorizeError_SentinelErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"RobotsDisallowed", ErrRobotsDisallowed, "Policy_Robots"},
		{"RequestCreation", ErrRequestCreation, "Internal_RequestCreation"},
		{"ResponseBodyRead", ErrResponseBodyRead, "Network_BodyRead"},
		{"ConfigValidation", ErrConfigValidation, "Config_Validation"},
		{"ServerHTTPError", ErrServerHTTPError, "HTTP_5xx"},
		{"OtherHTTPError", ErrOtherHTTPError, "HTTP_OtherStatus"},
		{"Database", ErrDatabase, "Database_Other"},
		{"Filesystem", ErrFilesystem, "Filesystem_Other"},
		{"MissingColumn", ErrMissingColumn, "Content_MissingColumn"},
		{"BareNetwork", ErrNetwork, "Network_Other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CategorizeError(tt.err)
			if result != tt.expected {
				t.Errorf("CategorizeError(%v) = %q, want %q", tt.err, result, tt.expected)
			}
		})
	}
}

func TestCategorizeError_WrappedErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "WrappedRobotsDisallowed",
			err:      fmt.Errorf("page 3: %w", ErrRobotsDisallowed),
			expected: "Policy_Robots",
		},
		{
			name:     "DoubleWrappedServerError",
			err:      fmt.Errorf("outer: %w", fmt.Errorf("%w: status 502", ErrServerHTTPError)),
			expected: "HTTP_5xx",
		},
		{
			name:     "NetworkRefused",
			err:      fmt.Errorf("%w: dial tcp 127.0.0.1:1: connect: connection refused", ErrNetwork),
			expected: "Network_ConnectionRefused",
		},
		{
			name:     "NetworkDeadline",
			err:      fmt.Errorf("%w: %w", ErrNetwork, context.DeadlineExceeded),
			expected: "Network_Timeout",
		},
		{
			name:     "FilesystemNotExist",
			err:      fmt.Errorf("%w: %w", ErrFilesystem, os.ErrNotExist),
			expected: "Filesystem_NotExist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CategorizeError(tt.err)
			if result != tt.expected {
				t.Errorf("CategorizeError(%v) = %q, want %q", tt.err, result, tt.expected)
			}
		})
	}
}

func TestCategorizeError_ClientHTTPCodes(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "404",
			err:      fmt.Errorf("%w: status 404 Not Found", ErrClientHTTPError),
			expected: "HTTP_404",
		},
		{
			name:     "403",
			err:      fmt.Errorf("%w: status 403 Forbidden", ErrClientHTTPError),
			expected: "HTTP_403",
		},
		{
			name:     "418",
			err:      fmt.Errorf("%w: status 418 I'm a teapot", ErrClientHTTPError),
			expected: "HTTP_418",
		},
		{
			name:     "429",
			err:      fmt.Errorf("%w: status 429 Too Many Requests", ErrClientHTTPError),
			expected: "HTTP_429",
		},
		{
			name:     "Generic4xx",
			err:      fmt.Errorf("%w: status 400", ErrClientHTTPError),
			expected: "HTTP_4xx",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CategorizeError(tt.err)
			if result != tt.expected {
				t.Errorf("CategorizeError(%v) = %q, want %q", tt.err, result, tt.expected)
			}
		})
	}
}

func TestCategorizeError_ParsingErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "HTMLParsing",
			err:      fmt.Errorf("%w: HTML document unreadable", ErrParsing),
			expected: "Content_ParsingHTML",
		},
		{
			name:     "WorkbookParsing",
			err:      fmt.Errorf("%w: workbook sheet unreadable", ErrParsing),
			expected: "Content_ParsingWorkbook",
		},
		{
			name:     "YAMLParsing",
			err:      fmt.Errorf("%w: YAML metadata", ErrParsing),
			expected: "Content_ParsingYAML",
		},
		{
			name:     "GenericParsing",
			err:      fmt.Errorf("parsing failed: %w", ErrParsing),
			expected: "Content_ParsingOther",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CategorizeError(tt.err)
			if result != tt.expected {
				t.Errorf("CategorizeError(%v) = %q, want %q", tt.err, result, tt.expected)
			}
		})
	}
}

func TestCategorizeError_ContextErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"ContextCanceled", context.Canceled, "System_ContextCanceled"},
		{"ContextDeadlineExceeded", context.DeadlineExceeded, "System_ContextDeadlineExceeded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CategorizeError(tt.err)
			if result != tt.expected {
				t.Errorf("CategorizeError(%v) = %q, want %q", tt.err, result, tt.expected)
			}
		})
	}
}

func TestCategorizeError_NetworkStrings(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"Timeout", errors.New("connection timeout occurred"), "Network_TimeoutGeneric"},
		{"ConnectionRefused", errors.New("connection refused"), "Network_ConnectionRefused"},
		{"DNSLookup", errors.New("no such host"), "Network_DNSLookup"},
		{"TLS", errors.New("tls handshake failed"), "Network_TLS"},
		{"Certificate", errors.New("certificate verify failed"), "Network_TLS"},
		{"ConnectionReset", errors.New("reset by peer"), "Network_ConnectionReset"},
		{"BrokenPipe", errors.New("broken pipe"), "Network_BrokenPipe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CategorizeError(tt.err)
			if result != tt.expected {
				t.Errorf("CategorizeError(%v) = %q, want %q", tt.err, result, tt.expected)
			}
		})
	}
}

func TestCategorizeError_Unknown(t *testing.T) {
	err := errors.New("some completely unknown error")
	result := CategorizeError(err)
	if result != "Unknown" {
		t.Errorf("CategorizeError(%v) = %q, want %q", err, result, "Unknown")
	}
}

// --- Hash Tests ---

func TestCalculateStringSHA256(t *testing.T) {
	// sha256("") is a well-known constant
	const emptyHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := CalculateStringSHA256(""); got != emptyHash {
		t.Errorf("CalculateStringSHA256(\"\") = %q, want %q", got, emptyHash)
	}

	a := CalculateStringSHA256("<ol class=\"grid_view\"></ol>")
	b := CalculateStringSHA256("<ol class=\"grid_view\"></ol>")
	c := CalculateStringSHA256("<ol class=\"grid_view\"><li></li></ol>")
	if a != b {
		t.Error("expected identical input to hash identically")
	}
	if a == c {
		t.Error("expected different input to hash differently")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
}

func TestCalculateFileSHA256(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	content := "<html><body>top250</body></html>"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	got, err := CalculateFileSHA256(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := CalculateStringSHA256(content); got != want {
		t.Errorf("file hash %q != string hash %q", got, want)
	}
}

func TestCalculateFileSHA256_NonExistentFile(t *testing.T) {
	_, err := CalculateFileSHA256(filepath.Join(t.TempDir(), "missing.html"))
	if err == nil {
		t.Error("expected error for missing file")
	}
}
