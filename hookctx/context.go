// Package hookctx is the runtime support package imported by generated hook
// modules. A Context carries per-invocation state from a Before hook to its
// matching After hook.
package hookctx

// Context holds the state of one instrumented call. It is created fresh for
// every invocation and owned exclusively by that call's Before/After pair.
type Context struct {
	pkg     string
	fn      string
	payload any
	values  map[string]string
	skip    bool
}

// New creates a Context for a single invocation of the named function.
func New(pkg, fn string) *Context {
	return &Context{
		pkg:    pkg,
		fn:     fn,
		values: make(map[string]string),
	}
}

// PackageName returns the package of the instrumented function.
func (c *Context) PackageName() string {
	return c.pkg
}

// FunctionName returns the name of the instrumented function.
func (c *Context) FunctionName() string {
	return c.fn
}

// SetPayload stores an opaque value for the After hook.
func (c *Context) SetPayload(v any) {
	c.payload = v
}

// Payload returns the value stored by SetPayload, or nil.
func (c *Context) Payload() any {
	return c.payload
}

// Set records a string side-channel value under key.
func (c *Context) Set(key, value string) {
	c.values[key] = value
}

// Get returns the value recorded under key and whether it was present.
func (c *Context) Get(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// SkipOriginal marks the original function body to be skipped for this call.
func (c *Context) SkipOriginal() {
	c.skip = true
}

// Skipped reports whether SkipOriginal was called.
func (c *Context) Skipped() bool {
	return c.skip
}
