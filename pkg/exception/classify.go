package exception

// Classify tags err with a sentinel class. Both the class and every error in
// err's chain stay reachable through errors.Is.
func Classify(class, err error) error {
	if err == nil {
		return nil
	}
	return &classified{class: class, err: err}
}

type classified struct {
	class error
	err   error
}

func (c *classified) Error() string {
	return c.class.Error() + ": " + c.err.Error()
}

func (c *classified) Unwrap() []error {
	return []error{c.class, c.err}
}
