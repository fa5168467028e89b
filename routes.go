package pagehandler

// RouteTable maps a request hostname to the set of paths served for that
// host, each resolving to exactly one storage key. It is populated once at
// startup and never mutated afterwards, so concurrent reads need no
// synchronization.
type RouteTable map[string]map[string]string

// Resolve looks up the storage key for a (hostname, path) pair. The second
// return is false when the hostname is unknown or the path is not mapped
// under that hostname.
func (t RouteTable) Resolve(host, path string) (string, bool) {
	paths, ok := t[host]
	if !ok {
		return "", false
	}
	key, ok := paths[path]
	return key, ok
}

// Hosts returns the number of hostnames in the table.
func (t RouteTable) Hosts() int {
	return len(t)
}

// AllowList is the set of request paths open to unauthenticated reads.
// Membership is exact-string only; no prefix or pattern matching.
type AllowList map[string]struct{}

// NewAllowList builds an AllowList from a slice of paths.
func NewAllowList(paths []string) AllowList {
	l := make(AllowList, len(paths))
	for _, p := range paths {
		l[p] = struct{}{}
	}
	return l
}

// Contains reports whether path is a member of the allow list.
func (l AllowList) Contains(path string) bool {
	_, ok := l[path]
	return ok
}
