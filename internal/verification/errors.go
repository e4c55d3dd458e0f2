package verification

import "fmt"

// TransportError reports that the SAT service could not be reached at all:
// connection refused, DNS failure, or the 15 second deadline elapsing. The
// verification outcome is unknown and the caller may try again later.
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("error connecting to SAT service: %v", e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// ServiceError reports a non-2xx HTTP response from SAT. The body is kept
// verbatim so operators can see what the upstream actually said.
type ServiceError struct {
	StatusCode int
	Body       string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("SAT service error: %d - %s", e.StatusCode, e.Body)
}

// ParseError reports a 2xx response whose body was not well-formed XML, which
// means SAT violated its own contract. No partial result accompanies it.
type ParseError struct {
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("error parsing SAT response: %v", e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }
