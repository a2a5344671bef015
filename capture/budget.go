package capture

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// SizeMetric selects how an encoded frame is measured against the byte ceiling.
type SizeMetric string

const (
	// SizeMetricBinary measures the raw JPEG byte length.
	SizeMetricBinary SizeMetric = "binary"
	// SizeMetricDataURL measures the length of the base64 data URL
	// (about 4/3 of the binary size plus the prefix).
	SizeMetricDataURL SizeMetric = "data_url"
)

const (
	DefaultMaxWidth       = 1920
	DefaultMaxHeight      = 1080
	DefaultInitialQuality = 0.6
	DefaultQualityFloor   = 0.2
	DefaultQualityStep    = 0.1
	DefaultTargetBytes    = 200000
)

// Budget bounds the size of an encoded frame. It is fixed at start-up.
type Budget struct {
	MaxWidth       int        `yaml:"max_width" json:"max_width" env:"MAX_WIDTH"`
	MaxHeight      int        `yaml:"max_height" json:"max_height" env:"MAX_HEIGHT"`
	InitialQuality float64    `yaml:"initial_quality" json:"initial_quality" env:"INITIAL_QUALITY"`
	TargetBytes    int        `yaml:"target_bytes" json:"target_bytes" env:"TARGET_BYTES"`
	QualityFloor   float64    `yaml:"quality_floor" json:"quality_floor" env:"QUALITY_FLOOR"`
	QualityStep    float64    `yaml:"quality_step" json:"quality_step" env:"QUALITY_STEP"`
	SizeMetric     SizeMetric `yaml:"size_metric" json:"size_metric" env:"SIZE_METRIC"`
}

// DefaultBudget returns the stock 1920x1080 / 200KB budget.
func DefaultBudget() Budget {
	return Budget{
		MaxWidth:       DefaultMaxWidth,
		MaxHeight:      DefaultMaxHeight,
		InitialQuality: DefaultInitialQuality,
		TargetBytes:    DefaultTargetBytes,
		QualityFloor:   DefaultQualityFloor,
		QualityStep:    DefaultQualityStep,
		SizeMetric:     SizeMetricBinary,
	}
}

// Validate checks that the budget is usable by Encode.
func (b Budget) Validate() error {
	var errs []string
	if b.MaxWidth <= 0 || b.MaxHeight <= 0 {
		errs = append(errs, "max width and height must be positive")
	}
	if b.TargetBytes <= 0 {
		errs = append(errs, "target bytes must be positive")
	}
	if b.InitialQuality <= 0 || b.InitialQuality > 1 {
		errs = append(errs, "initial quality must be in (0,1]")
	}
	if b.QualityFloor <= 0 || b.QualityFloor > b.InitialQuality {
		errs = append(errs, "quality floor must be in (0, initial quality]")
	}
	if b.QualityStep <= 0 || percent(b.QualityStep) < 1 {
		errs = append(errs, "quality step must be at least 0.01")
	}
	switch b.SizeMetric {
	case "", SizeMetricBinary, SizeMetricDataURL:
	default:
		errs = append(errs, fmt.Sprintf("unknown size metric %q", b.SizeMetric))
	}
	if len(errs) > 0 {
		return errors.New("invalid encode budget: " + strings.Join(errs, "; "))
	}
	return nil
}

// MaxIterations is the upper bound on encode attempts for this budget.
func (b Budget) MaxIterations() int {
	span := percent(b.InitialQuality) - percent(b.QualityFloor)
	step := percent(b.QualityStep)
	if step <= 0 || span <= 0 {
		return 1
	}
	return (span+step-1)/step + 1
}

// percent converts a [0,1] quality to whole percent so the quality walk
// lands exactly on the floor.
func percent(q float64) int {
	return int(math.Round(q * 100))
}
