package http

import "strings"

type Pair struct {
	Key, Value string
}

// EnvHeaders stores request headers under their normalized names (see EnvKey) in the
// order they first appeared. A repeated header replaces the value of the earlier one.
type EnvHeaders struct {
	pairs []Pair
}

// NewEnvHeaders returns an instance with pre-allocated space for n headers
func NewEnvHeaders(n int) EnvHeaders {
	return EnvHeaders{
		pairs: make([]Pair, 0, n),
	}
}

// Set stores the value under the key, replacing the previous value if any
func (e *EnvHeaders) Set(key, value string) {
	for i := range e.pairs {
		if e.pairs[i].Key == key {
			e.pairs[i].Value = value
			return
		}
	}

	e.pairs = append(e.pairs, Pair{Key: key, Value: value})
}

// Extend appends the suffix to the value, stored by the key. Returns false if there's no
// such key
func (e *EnvHeaders) Extend(key, suffix string) bool {
	for i := range e.pairs {
		if e.pairs[i].Key == key {
			e.pairs[i].Value += suffix
			return true
		}
	}

	return false
}

// Get returns a value corresponding to the normalized key and a bool, indicating whether
// the key exists
func (e EnvHeaders) Get(key string) (string, bool) {
	for _, pair := range e.pairs {
		if pair.Key == key {
			return pair.Value, true
		}
	}

	return "", false
}

// Value returns the value by the key or an empty string
func (e EnvHeaders) Value(key string) string {
	value, _ := e.Get(key)
	return value
}

// Has indicates, whether there's an entry of the key
func (e EnvHeaders) Has(key string) bool {
	_, found := e.Get(key)
	return found
}

// Delete removes the entry, preserving the order of the rest
func (e *EnvHeaders) Delete(key string) {
	for i := range e.pairs {
		if e.pairs[i].Key == key {
			e.pairs = append(e.pairs[:i], e.pairs[i+1:]...)
			return
		}
	}
}

func (e EnvHeaders) Len() int {
	return len(e.pairs)
}

// Unwrap reveals underlying pairs. Modifying them modifies the headers
func (e EnvHeaders) Unwrap() []Pair {
	return e.pairs
}

// Clear all the entries. However, all the allocated space won't be freed
func (e *EnvHeaders) Clear() {
	e.pairs = e.pairs[:0]
}

// EnvKey normalizes the header name into the form it's stored in EnvHeaders: dashes are
// replaced by underscores, letters are upper-cased and everything except CONTENT_TYPE and
// CONTENT_LENGTH gets the HTTP_ prefix.
func EnvKey(name string) string {
	key := strings.ToUpper(strings.ReplaceAll(name, "-", "_"))

	switch key {
	case "CONTENT_TYPE", "CONTENT_LENGTH":
		return key
	default:
		return "HTTP_" + key
	}
}
