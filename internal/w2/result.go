package w2

import (
	"time"

	"github.com/moneybin/moneybin-w2/constants"
)

// ExtractionResult is one method's attempt at a document.
type ExtractionResult struct {
	Method          constants.Method
	Success         bool
	Data            Candidate
	Error           string
	ConfidenceScore float64

	Pages            int
	Duration         time.Duration
	Warnings         []string
	EngineConfidence float32
}

// Succeeded scores data and wraps it as a successful result.
func Succeeded(method constants.Method, data Candidate) ExtractionResult {
	return ExtractionResult{
		Method:          method,
		Success:         true,
		Data:            data,
		ConfidenceScore: Score(data),
	}
}

// Failed records a method that produced no candidate.
func Failed(method constants.Method, msg string) ExtractionResult {
	return ExtractionResult{Method: method, Error: msg}
}
