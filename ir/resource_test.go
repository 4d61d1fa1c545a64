package ir

import (
	"testing"

	"github.com/rgonek/rescribe/vocab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceIDsAreNotContentAddressed(t *testing.T) {
	doc := NewDocument()
	payload := []byte{0x89, 'P', 'N', 'G'}

	first := doc.Embed(NewResource("image/png", payload))
	second := doc.Embed(NewResource("image/png", payload))

	assert.NotEqual(t, first, second)
	assert.Equal(t, 2, doc.Resources.Len())
	assert.Equal(t, []ResourceID{first, second}, doc.Resources.IDs())

	r1, ok := doc.Resource(first)
	require.True(t, ok)
	r2, ok := doc.Resource(second)
	require.True(t, ok)
	assert.Equal(t, r1.Digest(), r2.Digest(), "digests identify content, ids do not")
}

func TestResourceMapRemove(t *testing.T) {
	var m ResourceMap
	a := m.Add(NewResource("text/plain", []byte("a")))
	b := m.Add(NewResource("text/plain", []byte("b")))

	assert.True(t, m.Remove(a))
	assert.False(t, m.Remove(a))
	assert.Equal(t, []ResourceID{b}, m.IDs())
	_, ok := m.Get(a)
	assert.False(t, ok)
}

func TestResourceURLRoundTrip(t *testing.T) {
	id := NewResourceID()
	parsed, ok := ParseResourceURL(ResourceURL(id))
	require.True(t, ok)
	assert.Equal(t, id, parsed)

	_, ok = ParseResourceURL("http://example.com/a.png")
	assert.False(t, ok)
	_, ok = ParseResourceURL("resource:")
	assert.False(t, ok)
}

func TestDataURIRoundTripIsByteIdentical(t *testing.T) {
	payload := []byte{0x00, 0xff, 0x10, 'h', 'i', 0x7f}
	uri := EncodeDataURI(NewResource("image/png", payload))

	assert.True(t, IsDataURI(uri))
	decoded, err := DecodeDataURI(uri)
	require.NoError(t, err)
	assert.Equal(t, "image/png", decoded.MIMEType)
	assert.Equal(t, payload, decoded.Data)
}

func TestDecodeDataURIRejectsGarbage(t *testing.T) {
	_, err := DecodeDataURI("data:image/png;base64,@@@not-base64@@@")
	assert.Error(t, err)
}

func TestResolveResource(t *testing.T) {
	doc := NewDocument()
	id := doc.Embed(NewResource("image/gif", []byte("GIF89a")))

	byProp := New(vocab.Image).Prop(vocab.Resource, string(id))
	gotID, r, ok := doc.ResolveResource(byProp)
	require.True(t, ok)
	assert.Equal(t, id, gotID)
	assert.Equal(t, "image/gif", r.MIMEType)

	byURL := New(vocab.Image).Prop(vocab.URL, ResourceURL(id))
	_, _, ok = doc.ResolveResource(byURL)
	assert.True(t, ok)

	missing := New(vocab.Image).Prop(vocab.Resource, "res_missing")
	gotID, _, ok = doc.ResolveResource(missing)
	assert.False(t, ok)
	assert.Equal(t, ResourceID("res_missing"), gotID)

	_, _, ok = doc.ResolveResource(New(vocab.Image).Prop(vocab.URL, "a.png"))
	assert.False(t, ok)
}

func TestDocumentCloneOwnsResources(t *testing.T) {
	doc := NewDocument()
	id := doc.Embed(NewResource("application/octet-stream", []byte{1, 2, 3}))

	cloned := doc.Clone()
	r, ok := cloned.Resource(id)
	require.True(t, ok)
	r.Data[0] = 9

	original, ok := doc.Resource(id)
	require.True(t, ok)
	assert.Equal(t, byte(1), original.Data[0])
}
