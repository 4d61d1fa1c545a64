package ir

// ParseOptions are the reader toggles every format recognizes.
type ParseOptions struct {
	// EmbedResources decodes inline binary payloads (data URIs, container
	// parts) into the document's ResourceMap instead of keeping references.
	EmbedResources bool `yaml:"embed_resources" json:"embed_resources"`
	// PreserveSourceInfo attaches byte-range spans to nodes and records
	// SourceInfo on the document.
	PreserveSourceInfo bool `yaml:"preserve_source_info" json:"preserve_source_info"`
}

// EmitOptions are the writer toggles every format recognizes.
type EmitOptions struct {
	// Pretty enables indentation where the format allows it.
	Pretty bool `yaml:"pretty" json:"pretty"`
	// EmbedResources inlines resource payloads (e.g. as data URIs) instead of
	// writing resource:<id> references.
	EmbedResources bool `yaml:"embed_resources" json:"embed_resources"`
	// UseSourceInfo lets a writer reuse SourceInfo recorded by a reader of
	// the same format.
	UseSourceInfo bool `yaml:"use_source_info" json:"use_source_info"`
}

// Parser reads one or more formats into the IR. Implementations must be safe
// for concurrent use: every call owns the Document it builds.
type Parser interface {
	// Formats lists the format names this parser handles.
	Formats() []string
	// Parse reads input. A hard failure is reported as a *ParseError;
	// everything else yields a document plus warnings.
	Parse(input []byte, opts ParseOptions) (Result[*Document], error)
}

// Emitter writes the IR to one or more formats. Implementations must be safe
// for concurrent use and must not modify doc.
type Emitter interface {
	Formats() []string
	// Emit renders doc. A hard failure is reported as an *EmitError.
	Emit(doc *Document, opts EmitOptions) (Result[[]byte], error)
}

// Transformer rewrites a document into a new one without touching the input.
type Transformer interface {
	Name() string
	Transform(doc *Document) (Result[*Document], error)
}
