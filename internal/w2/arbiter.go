package w2

import (
	"fmt"
	"log/slog"

	"github.com/moneybin/moneybin-w2/constants"
	"github.com/moneybin/moneybin-w2/internal/common"
)

// Policy controls how the Arbiter treats the two extraction results.
type Policy struct {
	RequireDualExtraction bool
	MinConfidenceScore    float64
	AgreementThreshold    float64
	AgreementTolerance    float64
}

// DefaultPolicy is strict: both methods should run and agree.
func DefaultPolicy() Policy {
	return Policy{
		RequireDualExtraction: true,
		MinConfidenceScore:    0.8,
		AgreementThreshold:    0.8,
		AgreementTolerance:    DefaultAgreementTolerance,
	}
}

// State classifies a pair of results by which methods succeeded.
type State string

const (
	BothSucceeded     State = "both_succeeded"
	OnlyTextSucceeded State = "only_text_succeeded"
	OnlyOCRSucceeded  State = "only_ocr_succeeded"
	BothFailed        State = "both_failed"
)

// Reasons carried by ArbitrationError.
const (
	ReasonLowAgreement  = "low_agreement"
	ReasonLowConfidence = "low_confidence"
	ReasonBothFailed    = "both_failed"
)

// Decision is the accepted candidate and how it was chosen.
type Decision struct {
	State      State
	Method     constants.Method
	Candidate  Candidate
	Confidence float64
	Agreement  *float64
}

// ArbitrationError explains why no candidate was accepted.
type ArbitrationError struct {
	State     State
	Reason    string
	Agreement *float64
	Message   string
}

func (e *ArbitrationError) Error() string {
	return e.Message
}

func (e *ArbitrationError) Unwrap() error {
	return common.ErrArbitration
}

// Arbiter decides between the text-layer and OCR results for one document.
type Arbiter struct {
	policy  Policy
	checker AgreementChecker
	logger  *slog.Logger
}

// NewArbiter builds an Arbiter.
func NewArbiter(policy Policy, logger *slog.Logger) *Arbiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Arbiter{
		policy:  policy,
		checker: NewAgreementChecker(policy.AgreementTolerance),
		logger:  logger,
	}
}

// Policy returns the arbiter's policy.
func (a *Arbiter) Policy() Policy {
	return a.policy
}

// Decide picks a candidate. The outcome depends only on the two results and the policy.
func (a *Arbiter) Decide(text, ocr ExtractionResult) (Decision, error) {
	switch {
	case text.Success && ocr.Success:
		return a.decideBoth(text, ocr)
	case text.Success:
		return a.decideSingle(OnlyTextSucceeded, text, ocr)
	case ocr.Success:
		return a.decideSingle(OnlyOCRSucceeded, ocr, text)
	default:
		return Decision{}, &ArbitrationError{
			State:  BothFailed,
			Reason: ReasonBothFailed,
			Message: fmt.Sprintf("both extraction methods failed:\n  text: %s\n  ocr: %s",
				text.Error, ocr.Error),
		}
	}
}

func (a *Arbiter) decideBoth(text, ocr ExtractionResult) (Decision, error) {
	agreement := a.checker.Agreement(text.Data, ocr.Data)
	a.logger.Debug("extraction agreement",
		"agreement", agreement,
		"text_confidence", text.ConfidenceScore,
		"ocr_confidence", ocr.ConfidenceScore)

	if agreement < a.policy.AgreementThreshold && a.policy.RequireDualExtraction {
		return Decision{}, &ArbitrationError{
			State:     BothSucceeded,
			Reason:    ReasonLowAgreement,
			Agreement: &agreement,
			Message: fmt.Sprintf(
				"extraction methods disagree (agreement %.1f%% < %.1f%%, text confidence %.2f, ocr confidence %.2f); refusing to pick one",
				agreement*100, a.policy.AgreementThreshold*100, text.ConfidenceScore, ocr.ConfidenceScore),
		}
	}
	if agreement < a.policy.AgreementThreshold {
		a.logger.Warn("extraction methods disagree, using higher confidence result",
			"agreement", agreement, "threshold", a.policy.AgreementThreshold)
	}

	best := text
	if ocr.ConfidenceScore > text.ConfidenceScore {
		best = ocr
	}
	return Decision{
		State:      BothSucceeded,
		Method:     best.Method,
		Candidate:  best.Data,
		Confidence: best.ConfidenceScore,
		Agreement:  &agreement,
	}, nil
}

func (a *Arbiter) decideSingle(state State, ok, failed ExtractionResult) (Decision, error) {
	if ok.ConfidenceScore < a.policy.MinConfidenceScore {
		return Decision{}, &ArbitrationError{
			State:  state,
			Reason: ReasonLowConfidence,
			Message: fmt.Sprintf("%s extraction confidence too low: %.2f < %.2f (%s failed: %s)",
				ok.Method, ok.ConfidenceScore, a.policy.MinConfidenceScore, failed.Method, failed.Error),
		}
	}
	a.logger.Info("single extraction method accepted",
		"method", ok.Method, "confidence", ok.ConfidenceScore,
		"failed_method", failed.Method, "failed_error", failed.Error)
	return Decision{
		State:      state,
		Method:     ok.Method,
		Candidate:  ok.Data,
		Confidence: ok.ConfidenceScore,
	}, nil
}
