package exocore

import (
	"errors"
	"fmt"
)

// Sentinel errors for the error taxonomy. Use errors.Is to check for
// a kind without caring about the wrapped detail:
//
//	if errors.Is(err, exocore.ErrAuthorization) { ... }
var (
	// ErrValidation marks a bad-argument, unknown-field, malformed-variable,
	// too-deep-selection, or operation-not-found failure.
	ErrValidation = errors.New("exocore: validation error")

	// ErrAuthorization marks an access predicate that reduced to False at
	// any gate: entity-level, field-level (in an order-by relation), or a
	// mutation precheck.
	ErrAuthorization = errors.New("exocore: authorization error")

	// ErrPrecheck marks a mutation precondition that did not return
	// exactly one row. Surfaces to callers as ErrAuthorization (§4.5).
	ErrPrecheck = errors.New("exocore: precheck error")

	// ErrNonUniqueResult marks JSON aggregation producing more than one
	// row where exactly one was expected.
	ErrNonUniqueResult = errors.New("exocore: non-unique result")
)

// ValidationError is returned by the operation validator and the
// computed-field post-processor for any of the reasons below.
type ValidationError struct {
	// Reason is one of: MalformedDocument, OperationNotFound,
	// VariableNotFound, MalformedVariable, SelectionSetTooDeep,
	// FragmentNotFound, UnsupportedComputedFieldSubsystem.
	Reason string
	Detail string
}

// Error returns the error string.
func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("exocore: %s", e.Reason)
	}
	return fmt.Sprintf("exocore: %s: %s", e.Reason, e.Detail)
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError returns a new ValidationError with the given reason.
func NewValidationError(reason, detail string) *ValidationError {
	return &ValidationError{Reason: reason, Detail: detail}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	if err == nil {
		return false
	}
	var e *ValidationError
	return errors.As(err, &e) || errors.Is(err, ErrValidation)
}

// AuthorizationError marks a request rejected by the access solver.
type AuthorizationError struct {
	// Entity is the entity whose access predicate reduced to False, if known.
	Entity string
	// Field is the specific field that triggered the rejection, for
	// order-by-relation access failures.
	Field string
	// Precheck is true when this rejection originates from a mutation
	// precheck step returning something other than exactly one row.
	Precheck bool
}

// Error returns the error string.
func (e *AuthorizationError) Error() string {
	switch {
	case e.Precheck:
		return "exocore: authorization denied: precheck failed"
	case e.Field != "":
		return fmt.Sprintf("exocore: authorization denied: field %q of entity %q", e.Field, e.Entity)
	case e.Entity != "":
		return fmt.Sprintf("exocore: authorization denied: entity %q", e.Entity)
	default:
		return "exocore: authorization denied"
	}
}

// Is reports whether target is ErrAuthorization, or ErrPrecheck when this
// error originated from a precheck step.
func (e *AuthorizationError) Is(target error) bool {
	if target == ErrAuthorization {
		return true
	}
	return e.Precheck && target == ErrPrecheck
}

// NewAuthorizationError returns a new AuthorizationError for an entity-level denial.
func NewAuthorizationError(entity string) *AuthorizationError {
	return &AuthorizationError{Entity: entity}
}

// NewFieldAuthorizationError returns a new AuthorizationError for an
// order-by traversal into a field whose access predicate did not reduce
// unconditionally to True.
func NewFieldAuthorizationError(entity, field string) *AuthorizationError {
	return &AuthorizationError{Entity: entity, Field: field}
}

// NewPrecheckError returns an AuthorizationError for a failed mutation precheck.
func NewPrecheckError(entity string) *AuthorizationError {
	return &AuthorizationError{Entity: entity, Precheck: true}
}

// IsAuthorization reports whether err is (or wraps) an AuthorizationError.
func IsAuthorization(err error) bool {
	if err == nil {
		return false
	}
	var e *AuthorizationError
	return errors.As(err, &e) || errors.Is(err, ErrAuthorization)
}

// PostgresError wraps a non-retryable database error with the diagnostic
// context callers need: SQLSTATE, and, where the driver exposes them,
// the offending relation, column, and constraint.
type PostgresError struct {
	SQLState   string
	Relation   string
	Column     string
	Constraint string
	Err        error
}

// Error returns the error string.
func (e *PostgresError) Error() string {
	msg := fmt.Sprintf("exocore: postgres error (sqlstate=%s", e.SQLState)
	if e.Relation != "" {
		msg += fmt.Sprintf(", relation=%s", e.Relation)
	}
	if e.Column != "" {
		msg += fmt.Sprintf(", column=%s", e.Column)
	}
	if e.Constraint != "" {
		msg += fmt.Sprintf(", constraint=%s", e.Constraint)
	}
	return fmt.Sprintf("%s): %v", msg, e.Err)
}

// Unwrap returns the underlying driver error.
func (e *PostgresError) Unwrap() error {
	return e.Err
}

// NewPostgresError wraps a driver error with diagnostic context.
func NewPostgresError(sqlState, relation, column, constraint string, err error) *PostgresError {
	return &PostgresError{SQLState: sqlState, Relation: relation, Column: column, Constraint: constraint, Err: err}
}

// IsPostgres reports whether err is (or wraps) a PostgresError.
func IsPostgres(err error) bool {
	if err == nil {
		return false
	}
	var e *PostgresError
	return errors.As(err, &e)
}

// NonUniqueResultError marks a select expected to produce at most one row
// returning more than one.
type NonUniqueResultError struct {
	Count int
}

// Error returns the error string.
func (e *NonUniqueResultError) Error() string {
	return fmt.Sprintf("exocore: expected at most one result, got %d", e.Count)
}

// Is reports whether target is ErrNonUniqueResult.
func (e *NonUniqueResultError) Is(target error) bool {
	return target == ErrNonUniqueResult
}

// NewNonUniqueResultError returns a new NonUniqueResultError for count rows.
func NewNonUniqueResultError(count int) *NonUniqueResultError {
	return &NonUniqueResultError{Count: count}
}

// IsNonUniqueResult reports whether err is (or wraps) a NonUniqueResultError.
func IsNonUniqueResult(err error) bool {
	if err == nil {
		return false
	}
	var e *NonUniqueResultError
	return errors.As(err, &e) || errors.Is(err, ErrNonUniqueResult)
}

// Wrap attaches diagnostic context to an internal invariant violation
// without inventing a new error type for every call site.
func Wrap(context string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("exocore: %s: %w", context, err)
}
