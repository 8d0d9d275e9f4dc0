package errors

// Convenience constructors for common error patterns

// MissingField reports a payload missing a required field.
func MissingField(field string) *ClassifiedError {
	return NewError(CategoryValidation, "missing field: "+field).
		WithContext("field", field).
		Build()
}

// InvalidState reports a state name outside the session-state enum.
func InvalidState(state string) *ClassifiedError {
	return NewError(CategoryValidation, "invalid state: "+state).
		WithContext("state", state).
		Build()
}

// ValidationFailed reports a generic field validation failure.
func ValidationFailed(field, reason string) *ClassifiedError {
	return NewError(CategoryValidation, "validation failed").
		WithContext("field", field).
		WithContext("reason", reason).
		Build()
}

// MalformedPayload reports an unparseable request body.
func MalformedPayload(cause error) *ClassifiedError {
	return WrapError(cause, CategoryValidation, "invalid json").Build()
}

// Unauthorized reports a missing or mismatched auth token.
func Unauthorized() *ClassifiedError {
	return NewError(CategoryAuth, "unauthorized").Build()
}

// NotFound reports an unknown route or resource.
func NotFound(what string) *ClassifiedError {
	return NewError(CategoryNotFound, "not found").
		WithContext("resource", what).
		Build()
}

// UnknownQueue reports a request against a queue name that does not exist.
func UnknownQueue(name string) *ClassifiedError {
	return NewError(CategoryNotFound, "unknown queue").
		WithContext("queue", name).
		Build()
}

// ForwardingFailed wraps a failure forwarding to the durable event log.
// These are logged and dropped, never surfaced to the original caller.
func ForwardingFailed(cause error) *ClassifiedError {
	return WrapError(cause, CategoryNetwork, "event forwarding failed").
		Warning().
		Build()
}

// ProviderFailed wraps a synthesis or playback failure from a speech provider.
func ProviderFailed(provider string, cause error) *ClassifiedError {
	return WrapError(cause, CategoryProvider, "provider failed").
		WithContext("provider", provider).
		Build()
}

// ConfigNotFound reports a missing configuration file.
func ConfigNotFound(path string) *ClassifiedError {
	return NewError(CategoryConfig, "configuration file not found").
		Fatal().
		WithContext("path", path).
		Build()
}

// InternalError wraps an unexpected internal failure.
func InternalError(message string, cause error) *ClassifiedError {
	return WrapError(cause, CategoryInternal, message).Fatal().Build()
}
