package application

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestValidateRequired(t *testing.T) {
	tests := []struct {
		name      string
		fieldName string
		value     string
		wantErr   bool
		wantMsg   string
	}{
		{
			name:      "valid value",
			fieldName: "sourceName",
			value:     "disk1.sqlite3",
			wantErr:   false,
		},
		{
			name:      "empty string",
			fieldName: "sourceName",
			value:     "",
			wantErr:   true,
			wantMsg:   "source name is required",
		},
		{
			name:      "whitespace only",
			fieldName: "sessionDBPath",
			value:     "   ",
			wantErr:   true,
			wantMsg:   "session database path is required",
		},
		{
			name:      "unknown field name kept as is",
			fieldName: "other",
			value:     "",
			wantErr:   true,
			wantMsg:   "other is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequired(tt.fieldName, tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRequired() error = %v, wantErr %v", err, tt.wantErr)
			}

			if err != nil {
				var valErr *ValidationError
				if !errors.As(err, &valErr) {
					t.Fatalf("expected ValidationError, got %T", err)
				}
				if valErr.Field != tt.fieldName {
					t.Errorf("expected field %s, got %s", tt.fieldName, valErr.Field)
				}
				if !strings.Contains(err.Error(), tt.wantMsg) {
					t.Errorf("expected message containing %q, got %q", tt.wantMsg, err.Error())
				}
			}
		})
	}
}

func TestValidatePositiveDuration(t *testing.T) {
	tests := []struct {
		name    string
		d       time.Duration
		wantErr bool
	}{
		{name: "positive", d: 4 * time.Second},
		{name: "zero", d: 0, wantErr: true},
		{name: "negative", d: -time.Second, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePositiveDuration("splitBuffer", tt.d)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePositiveDuration() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateFileAndDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "session.sqlite3")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := ValidateFile("sessionDBPath", file); err != nil {
		t.Errorf("ValidateFile(file) = %v", err)
	}
	if err := ValidateFile("sessionDBPath", dir); err == nil {
		t.Error("ValidateFile(dir) should fail")
	}
	if err := ValidateFile("sessionDBPath", filepath.Join(dir, "missing")); err == nil {
		t.Error("ValidateFile(missing) should fail")
	}
	if err := ValidateDir("outputDir", dir); err != nil {
		t.Errorf("ValidateDir(dir) = %v", err)
	}
	if err := ValidateDir("outputDir", file); err == nil {
		t.Error("ValidateDir(file) should fail")
	}
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{name: "source defect", err: &SourceDefectError{Path: "a.pgdf", Reason: "truncated"}, target: ErrSourceDefect},
		{name: "integrity", err: &IntegrityError{Entity: "track", Key: "12", Reason: "duplicate"}, target: ErrIntegrityViolation},
		{name: "transaction", err: &TransactionError{Op: "commit", Err: errors.New("disk full")}, target: ErrTransaction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.target) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.target)
			}
		})
	}
}

func TestTransactionErrorListsOrphans(t *testing.T) {
	err := &TransactionError{Op: "closure check", OrphanTracks: []string{"t1", "t2"}}
	if !strings.Contains(err.Error(), "t1, t2") {
		t.Errorf("error should list orphan tracks, got %q", err.Error())
	}
}

func TestDiagnosticsKeepOrder(t *testing.T) {
	var d Diagnostics
	first := d.Warn(ErrOversizeGroup, "group 7", "duration %s exceeds %s", "20m", "13m20s")
	d.Fail(ErrSourceDefect, "group 8", "no points")
	d.Warn(ErrSourceDefect, "a.pgdf", "missing")

	if first.Message != "duration 20m exceeds 13m20s" {
		t.Errorf("Warn() message = %q", first.Message)
	}
	items := d.Items()
	if len(items) != 3 {
		t.Fatalf("Items() len = %d, want 3", len(items))
	}
	if items[1].Severity != SeverityError {
		t.Errorf("second item severity = %v, want error", items[1].Severity)
	}
}
