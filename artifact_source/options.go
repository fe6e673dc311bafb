package artifact_source

// Options carries the connection settings sources are built with
type Options struct {
	Http *HttpConnection
	Aws  *AwsConnection
	Gcp  *GcpConnection
}

type Option func(*Options)

// WithHttpConnection sets the transport settings for the http(s) source
func WithHttpConnection(c *HttpConnection) Option {
	return func(o *Options) {
		o.Http = c
	}
}

// WithAwsConnection sets the credentials and endpoint used by the s3 source
func WithAwsConnection(c *AwsConnection) Option {
	return func(o *Options) {
		o.Aws = c
	}
}

// WithGcpConnection sets the credentials used by the gs source
func WithGcpConnection(c *GcpConnection) Option {
	return func(o *Options) {
		o.Gcp = c
	}
}

func newOptions(opts ...Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.Http == nil {
		o.Http = &HttpConnection{}
	}
	if o.Aws == nil {
		o.Aws = &AwsConnection{}
	}
	if o.Gcp == nil {
		o.Gcp = &GcpConnection{}
	}
	return o
}
