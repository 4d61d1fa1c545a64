package ir

import (
	"encoding/hex"
	"fmt"
	"iter"
	"strings"

	"github.com/google/uuid"
	"github.com/vincent-petithory/dataurl"
	"github.com/zeebo/blake3"
)

// ResourceURLScheme prefixes resource references stored in URL properties.
const ResourceURLScheme = "resource:"

// ResourceID is an opaque, document-scoped identifier for an embedded
// resource. Ids are freshly generated; identical bytes embedded twice get two
// different ids.
type ResourceID string

// NewResourceID generates a fresh id.
func NewResourceID() ResourceID {
	return ResourceID("res_" + uuid.NewString())
}

func (id ResourceID) String() string { return string(id) }

// ResourceURL renders id as a "resource:<id>" reference.
func ResourceURL(id ResourceID) string {
	return ResourceURLScheme + string(id)
}

// ParseResourceURL extracts the id from a "resource:<id>" reference.
func ParseResourceURL(ref string) (ResourceID, bool) {
	id, ok := strings.CutPrefix(ref, ResourceURLScheme)
	if !ok || id == "" {
		return "", false
	}
	return ResourceID(id), true
}

// Resource is a binary payload (image, font, attachment) owned by a Document.
type Resource struct {
	// Name is the original file name, if known.
	Name     string
	MIMEType string
	Data     []byte
	Metadata Properties
}

// NewResource returns a resource holding data.
func NewResource(mimeType string, data []byte) Resource {
	return Resource{MIMEType: mimeType, Data: data}
}

// Digest returns the hex BLAKE3 digest of the payload. It identifies content
// for verification only and is never used as a ResourceID.
func (r Resource) Digest() string {
	sum := blake3.Sum256(r.Data)
	return hex.EncodeToString(sum[:])
}

// Size returns the payload length in bytes.
func (r Resource) Size() int { return len(r.Data) }

// DecodeDataURI decodes an RFC 2397 data URI into a resource.
func DecodeDataURI(uri string) (Resource, error) {
	decoded, err := dataurl.DecodeString(uri)
	if err != nil {
		return Resource{}, fmt.Errorf("failed to decode data URI: %w", err)
	}
	return NewResource(decoded.MediaType.ContentType(), decoded.Data), nil
}

// EncodeDataURI renders a resource as a base64 data URI.
func EncodeDataURI(r Resource) string {
	mimeType := r.MIMEType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return dataurl.New(r.Data, mimeType).String()
}

// IsDataURI reports whether s looks like a data URI.
func IsDataURI(s string) bool {
	return len(s) >= 5 && strings.EqualFold(s[:5], "data:")
}

// ResourceMap stores a document's resources in insertion order.
//
// The zero value is an empty map ready to use.
type ResourceMap struct {
	ids  []ResourceID
	byID map[ResourceID]Resource
}

// Add stores r under a freshly generated id and returns the id.
func (m *ResourceMap) Add(r Resource) ResourceID {
	id := NewResourceID()
	m.Put(id, r)
	return id
}

// Put stores r under id, replacing any previous resource with that id.
func (m *ResourceMap) Put(id ResourceID, r Resource) {
	if m.byID == nil {
		m.byID = make(map[ResourceID]Resource)
	}
	if _, exists := m.byID[id]; !exists {
		m.ids = append(m.ids, id)
	}
	m.byID[id] = r
}

// Get returns the resource stored under id.
func (m ResourceMap) Get(id ResourceID) (Resource, bool) {
	r, ok := m.byID[id]
	return r, ok
}

// Remove deletes the resource stored under id.
func (m *ResourceMap) Remove(id ResourceID) bool {
	if _, ok := m.byID[id]; !ok {
		return false
	}
	delete(m.byID, id)
	for i, existing := range m.ids {
		if existing == id {
			m.ids = append(m.ids[:i:i], m.ids[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of resources.
func (m ResourceMap) Len() int { return len(m.ids) }

// IDs returns the resource ids in insertion order.
func (m ResourceMap) IDs() []ResourceID {
	return append([]ResourceID(nil), m.ids...)
}

// All iterates over the resources in insertion order.
func (m ResourceMap) All() iter.Seq2[ResourceID, Resource] {
	return func(yield func(ResourceID, Resource) bool) {
		for _, id := range m.ids {
			if !yield(id, m.byID[id]) {
				return
			}
		}
	}
}
