package application

import (
	"fmt"
	"sync"
)

// Severity grades a non-fatal diagnostic
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Diagnostic is a non-fatal problem found during a run. Kind is one of the
// package sentinel errors.
type Diagnostic struct {
	Kind     error
	Severity Severity
	Subject  string
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %s: %s: %s", d.Severity, d.Kind, d.Subject, d.Message)
}

// Diagnostics collects diagnostics from concurrent workers.
type Diagnostics struct {
	mu    sync.Mutex
	items []Diagnostic
}

// Add records a diagnostic.
func (d *Diagnostics) Add(diag Diagnostic) {
	d.mu.Lock()
	d.items = append(d.items, diag)
	d.mu.Unlock()
}

// Warn records a warning-level diagnostic.
func (d *Diagnostics) Warn(kind error, subject, format string, args ...any) Diagnostic {
	diag := Diagnostic{Kind: kind, Severity: SeverityWarning, Subject: subject, Message: fmt.Sprintf(format, args...)}
	d.Add(diag)
	return diag
}

// Fail records an error-level diagnostic.
func (d *Diagnostics) Fail(kind error, subject, format string, args ...any) Diagnostic {
	diag := Diagnostic{Kind: kind, Severity: SeverityError, Subject: subject, Message: fmt.Sprintf(format, args...)}
	d.Add(diag)
	return diag
}

// Items returns a copy of the recorded diagnostics in insertion order.
func (d *Diagnostics) Items() []Diagnostic {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Diagnostic, len(d.items))
	copy(out, d.items)
	return out
}
