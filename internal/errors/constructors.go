package errors

// Convenience functions for common error patterns

// Config errors

func ConfigNotFound(path string) *PathTimerError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ConfigRequired(field string) *PathTimerError {
	return New(CategoryConfig, SeverityFatal, "required configuration missing").
		WithContext("field", field)
}

func ValidationFailed(field, reason string) *PathTimerError {
	return New(CategoryValidation, SeverityFatal, "validation failed").
		WithContext("field", field).
		WithContext("reason", reason)
}

// Codec errors

func EncodeFailed(cause error) *PathTimerError {
	return Wrap(cause, CategoryCodec, SeverityError, "snapshot encoding failed")
}

func DecodeFailed(cause error) *PathTimerError {
	return Wrap(cause, CategoryCodec, SeverityWarning, "snapshot decoding failed")
}

// Transport errors

func TransportUnavailable(url string, cause error) *PathTimerError {
	return WrapRetryable(cause, CategoryTransport, SeverityFatal, "broker unavailable").
		WithContext("url", url)
}

func PublishFailed(subject string, cause error) *PathTimerError {
	return WrapRetryable(cause, CategoryTransport, SeverityError, "publish failed").
		WithContext("subject", subject)
}

func SubscribeFailed(subject string, cause error) *PathTimerError {
	return Wrap(cause, CategoryTransport, SeverityFatal, "subscribe failed").
		WithContext("subject", subject)
}
