package scanner

// ScanStringField returns the raw bytes of the string value bound to key.
// The returned slice aliases payload.
func ScanStringField(payload []byte, key []byte) ([]byte, bool) {
	i, ok := ValueIndex(payload, key, 0)
	if !ok || payload[i] != '"' {
		return nil, false
	}
	i++
	start := i
	for i < len(payload) && payload[i] != '"' {
		i++
	}
	if i >= len(payload) {
		return nil, false
	}
	return payload[start:i], true
}

// ValueIndex returns the index of the first byte of the value bound to key,
// searching from the given offset. Occurrences of key that are not followed
// by a colon (e.g. the same text used as a value) are skipped.
func ValueIndex(payload []byte, key []byte, from int) (int, bool) {
	for {
		idx := IndexOfFrom(payload, key, from)
		if idx < 0 {
			return 0, false
		}
		i := SkipSpace(payload, idx+len(key))
		if i >= len(payload) {
			return 0, false
		}
		if payload[i] != ':' {
			from = idx + len(key)
			continue
		}
		i = SkipSpace(payload, i+1)
		if i >= len(payload) {
			return 0, false
		}
		return i, true
	}
}

func IndexOfFrom(payload []byte, key []byte, start int) int {
	if len(key) == 0 || start < 0 || len(payload)-start < len(key) {
		return -1
	}
outer:
	for i := start; i <= len(payload)-len(key); i++ {
		for j := range key {
			if payload[i+j] != key[j] {
				continue outer
			}
		}
		return i
	}
	return -1
}

// SkipSpace returns the index of the first non white space byte at or after i.
func SkipSpace(payload []byte, i int) int {
	for i < len(payload) && IsSpace(payload[i]) {
		i++
	}
	return i
}

func IsSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// Equal compares two byte slices without allocating.
func Equal(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
