package record

//Error is the error type of the record package.
type Error struct {
	message string
	deco    []string
}

func newError(message, caller string) *Error {
	return &Error{message: message, deco: []string{caller}}
}

func (err *Error) Error() string { return "record: " + err.message }

//Decorate adds the caller's name to the error and returns the call trace.
func (err *Error) Decorate(dec string) []string {
	if dec != "" {
		err.deco = append(err.deco, dec)
	}
	return err.deco
}

//Critical returns true. An incomplete record is never written.
func (err *Error) Critical() bool { return true }

func errDecorate(err error, caller string) error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		e.Decorate(caller)
	}
	return err
}
