package syncclient

import "fmt"

// SyncProtocolError is returned when the server answers with a non-2xx
// status. Transport failures (DNS, refused connections, timeouts) are not
// wrapped and propagate as-is from the HTTP client.
type SyncProtocolError struct {
	StatusCode int
	Body       string
}

func (e *SyncProtocolError) Error() string {
	return fmt.Sprintf("sync api error %d: %s", e.StatusCode, e.Body)
}

// IsProtocolError reports whether err is a SyncProtocolError and returns it.
func IsProtocolError(err error) (*SyncProtocolError, bool) {
	perr, ok := err.(*SyncProtocolError)
	return perr, ok
}
