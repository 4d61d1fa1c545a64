package ir

import "github.com/rgonek/rescribe/vocab"

// SourceInfo records where a document came from, for better round trips
// through the same format.
type SourceInfo struct {
	// Format is the reader's format name (e.g. "markdown", "html").
	Format string
	// Metadata holds format-specific details a writer of the same format may reuse.
	Metadata Properties
}

// Document is the interchange surface between every reader and every writer.
// It owns its content tree and its resources; nothing in a Document is shared
// with another Document.
type Document struct {
	Content   Node
	Resources ResourceMap
	Metadata  Properties
	Source    *SourceInfo
}

// NewDocument returns an empty document whose root has kind vocab.Document.
func NewDocument() *Document {
	return &Document{Content: New(vocab.Document)}
}

// Embed stores r in the document and returns its fresh id.
func (d *Document) Embed(r Resource) ResourceID {
	return d.Resources.Add(r)
}

// Resource returns the resource stored under id.
func (d *Document) Resource(id ResourceID) (Resource, bool) {
	return d.Resources.Get(id)
}

// ResolveResource finds the resource a node refers to, either through the
// vocab.Resource property or a "resource:<id>" vocab.URL. The id is returned
// even when the resource is missing so callers can report it.
func (d *Document) ResolveResource(n Node) (ResourceID, Resource, bool) {
	id, ok := ReferencedResource(n)
	if !ok {
		return "", Resource{}, false
	}
	r, found := d.Resources.Get(id)
	return id, r, found
}

// ReferencedResource returns the resource id a node refers to, if any.
func ReferencedResource(n Node) (ResourceID, bool) {
	if raw, ok := n.Props.GetString(vocab.Resource); ok && raw != "" {
		return ResourceID(raw), true
	}
	if url, ok := n.Props.GetString(vocab.URL); ok {
		return ParseResourceURL(url)
	}
	return "", false
}

// Clone returns a deep copy of d. Resource payloads are copied as well.
func (d *Document) Clone() *Document {
	out := &Document{
		Content:  d.Content.Clone(),
		Metadata: d.Metadata.Clone(),
	}
	for id, r := range d.Resources.All() {
		r.Data = append([]byte(nil), r.Data...)
		r.Metadata = r.Metadata.Clone()
		out.Resources.Put(id, r)
	}
	if d.Source != nil {
		out.Source = &SourceInfo{Format: d.Source.Format, Metadata: d.Source.Metadata.Clone()}
	}
	return out
}
