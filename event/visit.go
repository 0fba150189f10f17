package event

// Visitor receives payloads from a dispatcher. An error returned from Visit
// is propagated to the caller of the dispatch.
type Visitor interface {
	Visit(p Payload) error
}

// VisitorFunc is an adapter to allow the use of ordinary functions as a
// Visitor.
type VisitorFunc func(p Payload) error

// Visit calls f(p).
func (f VisitorFunc) Visit(p Payload) error {
	return f(p)
}

type errVisitor struct{ err error }

func (v errVisitor) Visit(Payload) error {
	return v.err
}

// ErrVisitor returns a Visitor that always fails with err.
func ErrVisitor(err error) Visitor {
	return errVisitor{err}
}
