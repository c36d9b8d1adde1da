package ocr

// Options for a single recognition call.
type Options struct {
	// Model overrides the engine's default model
	Model string

	// LanguageHints are ISO 639 codes, most likely first
	LanguageHints []string

	// DocumentType lets prompt based engines focus on the expected layout
	DocumentType string
}

type Option func(*Options)

func WithModel(model string) Option {
	return func(o *Options) { o.Model = model }
}

func WithLanguageHints(langs ...string) Option {
	return func(o *Options) { o.LanguageHints = langs }
}

func WithDocumentType(docType string) Option {
	return func(o *Options) { o.DocumentType = docType }
}

func DefaultOptions() *Options {
	return &Options{
		LanguageHints: []string{"es"},
	}
}

func ApplyOptions(opts ...Option) *Options {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	return options
}
