package ingest

import (
	"path/filepath"
	"strings"
	"time"

	"sealhits/internal/application"
	"sealhits/internal/domain"
)

// Defaults applied when a Request leaves a field zero.
const (
	DefaultSplitBuffer      = 4 * time.Second
	DefaultMaxGroupDuration = 800 * time.Second

	// detectionTolerance bounds the gap between a frame and a point for the
	// frame to count as showing a detection.
	detectionTolerance = 10 * time.Millisecond
)

// Request describes one ingest run.
type Request struct {
	SourceName       string // defaults to the session database basename
	SourceAlias      string // previous source name, used for identity matching
	SessionDBPath    string
	DetectionLogDir  string
	ImageLogDir      string
	OutputDir        string
	MaxGroupDuration time.Duration
	MaxImageDuration time.Duration // defaults to MaxGroupDuration
	SplitBuffer      time.Duration
	SkipImageLogs    bool
	Workers          int
	DryRun           bool
}

// WithDefaults returns r with zero fields set to their defaults.
func (r Request) WithDefaults() Request {
	if r.SourceName == "" && r.SessionDBPath != "" {
		r.SourceName = filepath.Base(r.SessionDBPath)
	}
	if r.MaxGroupDuration == 0 {
		r.MaxGroupDuration = DefaultMaxGroupDuration
	}
	if r.MaxImageDuration == 0 {
		r.MaxImageDuration = r.MaxGroupDuration
	}
	if r.SplitBuffer == 0 {
		r.SplitBuffer = DefaultSplitBuffer
	}
	return r
}

// Validate checks the request after defaults have been applied.
func (r Request) Validate() error {
	if err := application.ValidateRequired("sourceName", r.SourceName); err != nil {
		return err
	}
	if err := application.ValidateRequired("sessionDBPath", r.SessionDBPath); err != nil {
		return err
	}
	if err := application.ValidateRequired("detectionLogDir", r.DetectionLogDir); err != nil {
		return err
	}
	if !r.SkipImageLogs {
		if err := application.ValidateRequired("imageLogDir", r.ImageLogDir); err != nil {
			return err
		}
		if err := application.ValidateRequired("outputDir", r.OutputDir); err != nil {
			return err
		}
	}
	if err := application.ValidatePositiveDuration("maxGroupDuration", r.MaxGroupDuration); err != nil {
		return err
	}
	if err := application.ValidatePositiveDuration("maxImageDuration", r.MaxImageDuration); err != nil {
		return err
	}
	if err := application.ValidatePositiveDuration("splitBuffer", r.SplitBuffer); err != nil {
		return err
	}
	if r.Workers < 0 {
		return &application.ValidationError{Field: "workers", Message: "workers must not be negative"}
	}
	return nil
}

// lookupNames returns the source names under which existing groups are
// searched, the alias first.
func (r Request) lookupNames() []string {
	alias := strings.TrimSpace(r.SourceAlias)
	if alias == "" || alias == r.SourceName {
		return []string{r.SourceName}
	}
	return []string{alias, r.SourceName}
}

// Summary reports the outcome of an ingest or undo run.
type Summary struct {
	Source      string
	Lookup      string
	DryRun      bool
	Model       domain.ModelCounts // entities in the final model
	Created     domain.ModelCounts // entities minted by this run
	Deleted     domain.ModelCounts // entities removed by this run
	Earliest    time.Time
	Latest      time.Time
	Diagnostics []application.Diagnostic
	Elapsed     time.Duration
}
