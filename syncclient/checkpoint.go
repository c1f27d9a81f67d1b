package syncclient

// Checkpoint is the opaque sync watermark threaded between download calls.
// Clients must store and replay it verbatim; its internal format belongs to
// the server and may change, so no parsing or arithmetic is exposed.
type Checkpoint string

func (c Checkpoint) String() string {
	return string(c)
}

// IsZero reports whether no checkpoint is held, meaning the next download is
// a full sync from the beginning.
func (c Checkpoint) IsZero() bool {
	return c == ""
}
