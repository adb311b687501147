package review

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultDepth           = 12
	DefaultPositionTimeout = 10 * time.Second
	DefaultMateThreshold   = 10000
	DefaultMatePenalty     = 1000
	DefaultCriticalCount   = 3
	DefaultWorkers         = 2
)

// Thresholds are inclusive lower bounds of each severity tier in centipawns.
type Thresholds struct {
	Inaccuracy int `yaml:"inaccuracy" json:"inaccuracy"`
	Mistake    int `yaml:"mistake" json:"mistake"`
	Blunder    int `yaml:"blunder" json:"blunder"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{Inaccuracy: 50, Mistake: 150, Blunder: 250}
}

func (t Thresholds) Validate() error {
	if t.Inaccuracy <= 0 {
		return fmt.Errorf("inaccuracy threshold must be positive, got %d", t.Inaccuracy)
	}
	if t.Mistake <= t.Inaccuracy || t.Blunder <= t.Mistake {
		return fmt.Errorf("thresholds must increase strictly: inaccuracy=%d mistake=%d blunder=%d", t.Inaccuracy, t.Mistake, t.Blunder)
	}
	return nil
}

// Settings is the configuration surface of the analyzer.
type Settings struct {
	Depth           int
	PositionTimeout time.Duration
	// MateThreshold is the centipawn magnitude at which a raw score is read as a forced mate.
	MateThreshold int
	// MatePenalty is the loss charged for walking into a forced mate.
	MatePenalty   int
	Thresholds    Thresholds
	CriticalCount int
	Workers       int
}

func DefaultSettings() Settings {
	return Settings{
		Depth:           DefaultDepth,
		PositionTimeout: DefaultPositionTimeout,
		MateThreshold:   DefaultMateThreshold,
		MatePenalty:     DefaultMatePenalty,
		Thresholds:      DefaultThresholds(),
		CriticalCount:   DefaultCriticalCount,
		Workers:         DefaultWorkers,
	}
}

func (s Settings) Validate() error {
	var errs []error
	if s.Depth <= 0 {
		errs = append(errs, fmt.Errorf("depth must be positive, got %d", s.Depth))
	}
	if s.PositionTimeout <= 0 {
		errs = append(errs, fmt.Errorf("position timeout must be positive, got %s", s.PositionTimeout))
	}
	if s.MateThreshold <= 0 {
		errs = append(errs, fmt.Errorf("mate threshold must be positive, got %d", s.MateThreshold))
	}
	if s.MatePenalty <= 0 {
		errs = append(errs, fmt.Errorf("mate penalty must be positive, got %d", s.MatePenalty))
	}
	if s.CriticalCount < 0 {
		errs = append(errs, fmt.Errorf("critical moment count must not be negative, got %d", s.CriticalCount))
	}
	if s.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", s.Workers))
	}
	if err := s.Thresholds.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
