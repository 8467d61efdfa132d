package hookctx

// Registration maps one instrumented target to its generated hook pair. The
// generated hook module exports an ordered table of these; consumers look an
// entry up by the exact {Package, Function, Receiver} triple.
type Registration struct {
	Package  string
	Function string
	// Receiver is the receiver type when the target is a method, else empty.
	Receiver   string
	BeforeName string
	AfterName  string
	// ModulePath is the source path of the generated hook module.
	ModulePath string
}

// Lookup returns the first registration matching the triple exactly.
func Lookup(table []Registration, pkg, fn, receiver string) (Registration, bool) {
	for _, r := range table {
		if r.Package == pkg && r.Function == fn && r.Receiver == receiver {
			return r, true
		}
	}
	return Registration{}, false
}
