package storage

// Option configures one Put.
type Option func(*putOptions)

type putOptions struct {
	key         string
	tenant      string
	prefix      string
	filename    string
	contentType string
	rules       []Rule
}

func collect(opts []Option) *putOptions {
	o := &putOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// objectKey returns the explicit key, or generates one.
func (o *putOptions) objectKey(contentType string) (string, error) {
	if o.key != "" {
		return CleanKey(o.key)
	}
	return generateKey(o.tenant, o.prefix, o.filename, contentType), nil
}

// WithKey stores the object under key instead of a generated one.
func WithKey(key string) Option {
	return func(o *putOptions) { o.key = key }
}

// WithTenant makes the owner the first key segment.
func WithTenant(id string) Option {
	return func(o *putOptions) { o.tenant = id }
}

// WithPrefix adds a segment after the tenant, e.g. "attachments".
func WithPrefix(prefix string) Option {
	return func(o *putOptions) { o.prefix = prefix }
}

// WithFilename keeps a sanitized original name at the end of the generated key.
func WithFilename(name string) Option {
	return func(o *putOptions) { o.filename = name }
}

// WithContentType skips sniffing and stores ct as the object's type.
func WithContentType(ct string) Option {
	return func(o *putOptions) { o.contentType = ct }
}

// WithValidation checks the upload before anything is written.
func WithValidation(rules ...Rule) Option {
	return func(o *putOptions) { o.rules = append(o.rules, rules...) }
}
