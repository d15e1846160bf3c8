package contracts

// ErrorReporter receives storage and validation failures for out-of-band
// surfacing (user notification, telemetry). Calls are fire-and-forget;
// the manager relies on no return contract.
type ErrorReporter interface {
	HandleStorageError(err error, context string)
	HandleValidationError(err error, context string)
}
