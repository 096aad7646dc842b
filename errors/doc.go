// Package errors provides standardized error handling for membase packages.
//
// # Overview
//
// Errors fall into three classes: Transient (may succeed later), Invalid
// (bad input or misuse of an API) and Fatal (the requested operation can
// never succeed on this value). Classification lets callers decide whether
// to surface, retry or abort without matching on error strings.
//
// # Wrapping
//
// All wrapping follows the format:
//
//	"component.method: action failed: %w"
//
// The classified wrappers attach a class to the chain:
//
//	errors.WrapInvalid(err, "Memory", "CreateIndex", "register index")
//	errors.WrapFatal(errors.ErrSynchronizationUnsupported, "Expiring", "Synchronized", "wrap store")
//
// # Indexing failures
//
// Key mappers are user code and may fail on individual values. A failure for
// one value never aborts a batch. Each failure is recorded as an
// IndexingFailure and the batch returns a single IndexError:
//
//	if _, err := s.AddAll(values); err != nil {
//	    var ie *errors.IndexError
//	    if errors.As(err, &ie) {
//	        for _, f := range ie.Failures {
//	            log.Warn("value not indexed", "index", f.Index, "error", f.Err)
//	        }
//	    }
//	}
//
// Both types match ErrIndexingFailed through errors.Is.
//
// # Sentinels
//
//   - ErrIndexExists, ErrIndexNotFound, ErrIndexingFailed: index management
//   - ErrReadOnly: mutation attempted through an immutable view
//   - ErrSynchronizationUnsupported: the store variant cannot be wrapped
//   - ErrNoIdentity: a value without identity was added
//   - ErrInvalidConfig, ErrMissingConfig, ErrInvalidData: configuration loading
//   - ErrSchedulerClosed, ErrShutdownTimeout: expiration scheduling
package errors
