package models

// String methods for string-backed enums.
// toon serialization renders values through fmt.Stringer.

// CategoryKind
func (k CategoryKind) String() string { return string(k) }
