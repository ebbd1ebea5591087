package scanner

import "aggregator/pkg/exception"

// PairIter walks a JSON array of two element arrays such as
// [["0.1","2.5"],[0.2,3]] and yields the raw bytes of both elements.
// Quoted elements are returned without their quotes. Nothing is copied.
type PairIter struct {
	payload []byte
	i       int
	n       int
	done    bool
	err     error
}

// NewPairIter starts a walk at payload[start], skipping leading white space.
// The first non space byte must open the outer array.
func NewPairIter(payload []byte, start int) (PairIter, error) {
	start = SkipSpace(payload, start)
	if start >= len(payload) || payload[start] != '[' {
		return PairIter{}, exception.ErrParse
	}
	return PairIter{payload: payload, i: start + 1}, nil
}

// Next returns the next pair. Elements after the second one inside a pair are skipped.
// ok is false once the outer array is closed or the input is malformed; see Err.
func (it *PairIter) Next() (first []byte, second []byte, ok bool) {
	if it.done {
		return nil, nil, false
	}
	p := it.payload
	i := SkipSpace(p, it.i)
	if i >= len(p) {
		return it.fail()
	}
	if p[i] == ']' {
		it.i = i + 1
		it.done = true
		return nil, nil, false
	}
	// pairs after the first must follow a comma, and a comma must be followed by a pair
	if it.n > 0 {
		if p[i] != ',' {
			return it.fail()
		}
		i = SkipSpace(p, i+1)
		if i >= len(p) {
			return it.fail()
		}
	}
	if p[i] != '[' {
		return it.fail()
	}

	first, i, ok = scanScalar(p, i+1)
	if !ok {
		return it.fail()
	}
	i = SkipSpace(p, i)
	if i >= len(p) || p[i] != ',' {
		return it.fail()
	}
	second, i, ok = scanScalar(p, i+1)
	if !ok {
		return it.fail()
	}
	i, ok = skipRest(p, i)
	if !ok {
		return it.fail()
	}
	it.i = i
	it.n++
	return first, second, true
}

// Err returns the error that stopped the walk, if any.
func (it *PairIter) Err() error {
	return it.err
}

// Offset returns the index right after the last consumed byte.
func (it *PairIter) Offset() int {
	return it.i
}

func (it *PairIter) fail() ([]byte, []byte, bool) {
	it.done = true
	it.err = exception.ErrParse
	return nil, nil, false
}

// scanScalar reads a quoted string or a bare token starting at i.
func scanScalar(p []byte, i int) ([]byte, int, bool) {
	i = SkipSpace(p, i)
	if i >= len(p) {
		return nil, i, false
	}
	if p[i] == '"' {
		i++
		start := i
		for i < len(p) && p[i] != '"' {
			i++
		}
		if i >= len(p) {
			return nil, i, false
		}
		return p[start:i], i + 1, true
	}
	start := i
	for i < len(p) && p[i] != ',' && p[i] != ']' && p[i] != '}' && !IsSpace(p[i]) {
		i++
	}
	if i == start {
		return nil, i, false
	}
	return p[start:i], i, true
}

// skipRest consumes any remaining scalars of an inner array and its closing bracket.
func skipRest(p []byte, i int) (int, bool) {
	for {
		i = SkipSpace(p, i)
		if i >= len(p) {
			return i, false
		}
		switch p[i] {
		case ']':
			return i + 1, true
		case ',':
			var ok bool
			if _, i, ok = scanScalar(p, i+1); !ok {
				return i, false
			}
		default:
			return i, false
		}
	}
}
