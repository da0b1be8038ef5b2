package convert

import "hash/fnv"

// DerivePort maps a server name to a stable port in [base, base+span).
// The same name always lands on the same port, so regenerating a skill
// keeps its daemon address.
func DerivePort(name string, base, span int) int {
	if span <= 0 {
		span = 1
	}
	h := fnv.New32a()
	h.Write([]byte(name))
	return base + int(h.Sum32()%uint32(span))
}
