// Package errors provides centralized error definitions and error handling utilities
// for scribe. It defines domain-specific errors for each generation stage,
// sentinel errors for common failure conditions, and classification helpers.
//
// # Error Types
//
//   - ProviderError: a text, image-search or image-generation provider call failed
//   - PlanningError: the architect stage could not produce an outline
//   - WriterError: a writer task failed inside a round
//   - StageError: an auxiliary stage (research, slides, images, review) failed
//   - ParseError: model output could not be decoded into the expected shape
//
// # Usage
//
//	err := errors.NewProviderError("chat completion failed", cause).
//		WithProvider("openai").WithModel("gpt-4o").WithStatusCode(429)
//
//	if errors.IsRetryable(err) { ... }
//
//	var werr *errors.WriterError
//	if errors.As(err, &werr) { ... }
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Iron-Ham/scribe/internal/util"
)

// Re-export standard library functions so callers only import this package.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Provider-related sentinel errors
var (
	// ErrEmptyResponse indicates the provider answered without any content.
	ErrEmptyResponse = New("provider returned an empty response")
	// ErrRateLimited indicates the provider rejected the call for rate reasons.
	ErrRateLimited = New("provider rate limit exceeded")
	// ErrProviderUnavailable indicates a provider is not configured.
	ErrProviderUnavailable = New("provider unavailable")
)

// Generation-related sentinel errors
var (
	// ErrMalformedOutput indicates model output could not be decoded.
	ErrMalformedOutput = New("malformed model output")
	// ErrEmptyOutline indicates the planner produced no writable sections.
	ErrEmptyOutline = New("outline has no sections")
	// ErrRoundFailed indicates a writer round could not complete.
	ErrRoundFailed = New("writer round failed")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// ScribeError is the interface shared by every typed error in this package.
type ScribeError interface {
	error
	Unwrap() error
	Is(target error) bool
	Severity() Severity
	IsRetryable() bool
	IsUserFacing() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *baseError) Unwrap() error { return e.cause }

func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

func (e *baseError) Severity() Severity { return e.severity }
func (e *baseError) IsRetryable() bool  { return e.retryable }
func (e *baseError) IsUserFacing() bool { return e.userFacing }

// format renders "<kind> [k=v, ...]: message: cause".
func (e *baseError) format(kind string, parts []string) string {
	prefix := kind
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", kind, strings.Join(parts, ", "))
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// ProviderError represents a failed call to an external model or image provider.
// Rate limiting and 5xx responses are retryable.
//
// Example:
//
//	err := errors.NewProviderError("chat completion failed", cause).WithStatusCode(429)
//	fmt.Println(err) // "provider error [status=429]: chat completion failed: ..."
type ProviderError struct {
	baseError
	Provider   string
	Model      string
	StatusCode int
}

// NewProviderError creates a new ProviderError.
func NewProviderError(message string, cause error) *ProviderError {
	return &ProviderError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
	}
}

// WithProvider records which provider failed.
func (e *ProviderError) WithProvider(name string) *ProviderError {
	e.Provider = name
	return e
}

// WithModel records the model the call was made against.
func (e *ProviderError) WithModel(model string) *ProviderError {
	e.Model = model
	return e
}

// WithStatusCode records the HTTP status and derives retryability from it.
func (e *ProviderError) WithStatusCode(code int) *ProviderError {
	e.StatusCode = code
	e.retryable = code == 429 || code >= 500
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *ProviderError) WithRetryable(r bool) *ProviderError {
	e.retryable = r
	return e
}

func (e *ProviderError) Error() string {
	var parts []string
	if e.Provider != "" {
		parts = append(parts, "provider="+e.Provider)
	}
	if e.Model != "" {
		parts = append(parts, "model="+e.Model)
	}
	if e.StatusCode != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	return e.format("provider error", parts)
}

// Is matches any *ProviderError, plus ErrRateLimited for 429 responses.
func (e *ProviderError) Is(target error) bool {
	if _, ok := target.(*ProviderError); ok {
		return true
	}
	if target == ErrRateLimited && e.StatusCode == 429 {
		return true
	}
	return e.baseError.Is(target)
}

// PlanningError represents a failure of the outline planning stage.
// Planning failures abort the run.
type PlanningError struct {
	baseError
	Category string
}

// NewPlanningError creates a new PlanningError.
func NewPlanningError(message string, cause error) *PlanningError {
	return &PlanningError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityCritical,
			userFacing: true,
		},
	}
}

// WithCategory records the document category being planned.
func (e *PlanningError) WithCategory(category string) *PlanningError {
	e.Category = category
	return e
}

func (e *PlanningError) Error() string {
	var parts []string
	if e.Category != "" {
		parts = append(parts, "category="+e.Category)
	}
	return e.format("planning error", parts)
}

func (e *PlanningError) Is(target error) bool {
	if _, ok := target.(*PlanningError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// WriterError represents a failed section write.
//
// Example:
//
//	err := errors.NewWriterError("write failed", cause).WithSection("2.1", "Market Analysis").WithRound(1)
type WriterError struct {
	baseError
	SectionID    string
	SectionTitle string
	Round        int
}

// NewWriterError creates a new WriterError.
func NewWriterError(message string, cause error) *WriterError {
	return &WriterError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityCritical,
			userFacing: true,
		},
		Round: -1,
	}
}

// WithSection records which section failed.
func (e *WriterError) WithSection(id, title string) *WriterError {
	e.SectionID = id
	e.SectionTitle = title
	return e
}

// WithRound records the zero-based round the section was dispatched in.
func (e *WriterError) WithRound(round int) *WriterError {
	e.Round = round
	return e
}

func (e *WriterError) Error() string {
	var parts []string
	if e.SectionID != "" {
		parts = append(parts, "section="+e.SectionID)
	}
	if e.Round >= 0 {
		parts = append(parts, fmt.Sprintf("round=%d", e.Round))
	}
	return e.format("writer error", parts)
}

func (e *WriterError) Is(target error) bool {
	if _, ok := target.(*WriterError); ok {
		return true
	}
	if target == ErrRoundFailed {
		return true
	}
	return e.baseError.Is(target)
}

// StageError represents a failure in an auxiliary stage. Soft stage errors are
// logged and the run continues without that stage's output.
type StageError struct {
	baseError
	Stage string
	Soft  bool
}

// NewStageError creates a new StageError. Stage errors are soft by default.
func NewStageError(stage, message string, cause error) *StageError {
	return &StageError{
		baseError: baseError{
			message:  message,
			cause:    cause,
			severity: SeverityWarning,
		},
		Stage: stage,
		Soft:  true,
	}
}

// WithSoft sets whether the run may continue past this error.
func (e *StageError) WithSoft(soft bool) *StageError {
	e.Soft = soft
	if !soft {
		e.severity = SeverityError
	}
	return e
}

func (e *StageError) Error() string {
	var parts []string
	if e.Stage != "" {
		parts = append(parts, "stage="+e.Stage)
	}
	return e.format("stage error", parts)
}

func (e *StageError) Is(target error) bool {
	if _, ok := target.(*StageError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ParseError indicates model output could not be decoded. It always matches
// ErrMalformedOutput.
type ParseError struct {
	baseError
	What    string
	Preview string
}

// maxPreview bounds ParseError.Preview in runes.
const maxPreview = 120

// NewParseError creates a new ParseError. raw is truncated into Preview.
func NewParseError(what, raw string, cause error) *ParseError {
	preview := util.TruncateString(strings.TrimSpace(raw), maxPreview)
	return &ParseError{
		baseError: baseError{
			message:  "could not decode " + what,
			cause:    cause,
			severity: SeverityWarning,
		},
		What:    what,
		Preview: preview,
	}
}

func (e *ParseError) Is(target error) bool {
	if _, ok := target.(*ParseError); ok {
		return true
	}
	if target == ErrMalformedOutput {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable reports whether the error is transient. A typed error that is
// not retryable itself defers to its cause.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var se ScribeError
	if As(err, &se) {
		return se.IsRetryable() || IsRetryable(se.Unwrap())
	}
	return Is(err, ErrTimeout)
}

// IsUserFacing reports whether the error message is safe to show to users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	var se ScribeError
	if As(err, &se) {
		return se.IsUserFacing()
	}
	return false
}

// GetSeverity returns the severity of err, SeverityError for foreign errors.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}
	var se ScribeError
	if As(err, &se) {
		return se.Severity()
	}
	return SeverityError
}

// IsSoft reports whether err came from a stage the run can continue past.
func IsSoft(err error) bool {
	var stageErr *StageError
	return As(err, &stageErr) && stageErr.Soft
}

// UserMessage returns a message suitable for the CLI. Foreign errors other
// than cancellation and deadlines are not shown verbatim.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case IsUserFacing(err):
		return err.Error()
	case Is(err, context.Canceled), Is(err, ErrCanceled):
		return "operation canceled"
	case Is(err, context.DeadlineExceeded), Is(err, ErrTimeout):
		return "operation timed out"
	default:
		return "an internal error occurred"
	}
}
