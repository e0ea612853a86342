package core

import (
	"net/url"
	"sync"

	"astor/models"
)

// PageType describes a concrete page type available for creation. New
// returns a fresh typed instance with type-specific defaults applied.
type PageType struct {
	Tag      string
	Name     string
	HelpText string
	New      func() models.TypedPage
}

// Form binds submitted field values onto a typed page of the type it
// declares through TypeTag. Bind returns FieldErrors for invalid input.
type Form interface {
	TypeTag() string
	Bind(values url.Values, page models.TypedPage) error
}

// Serializer produces the JSON representation for a typed page of the type
// it declares through TypeTag.
type Serializer interface {
	TypeTag() string
	Serialize(page models.TypedPage) map[string]any
}

// Registry holds the concrete page types plus their edit forms and API
// serializers. It is built once at startup and injected into the modules
// that need it; registration order is preserved for "choose a page type"
// listings.
type Registry struct {
	mu          sync.RWMutex
	types       []PageType
	forms       []Form
	serializers []Serializer
}

func NewRegistry() *Registry {
	return &Registry{}
}

// RegisterType adds a page type. Re-registering an already known tag is a
// no-op, not an error.
func (r *Registry) RegisterType(pt PageType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.types {
		if t.Tag == pt.Tag {
			return
		}
	}
	r.types = append(r.types, pt)
}

// Types returns the registered page types in registration order.
func (r *Registry) Types() []PageType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]PageType, len(r.types))
	copy(out, r.types)
	return out
}

// TypeFor resolves a stored type tag to its descriptor.
func (r *Registry) TypeFor(tag string) (PageType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.types {
		if t.Tag == tag {
			return t, true
		}
	}
	return PageType{}, false
}

// RegisterForm adds an edit form. Idempotent on the form's type tag.
func (r *Registry) RegisterForm(f Form) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.forms {
		if existing.TypeTag() == f.TypeTag() {
			return
		}
	}
	r.forms = append(r.forms, f)
}

// Forms returns the registered forms in registration order.
func (r *Registry) Forms() []Form {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Form, len(r.forms))
	copy(out, r.forms)
	return out
}

// FormFor scans the registered forms for one matching the instance's exact
// concrete type. No match is a configuration error, not a data error.
func (r *Registry) FormFor(page models.TypedPage) (Form, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, f := range r.forms {
		if f.TypeTag() == page.TypeTag() {
			return f, nil
		}
	}
	return nil, ErrNoFormRegistered
}

// RegisterSerializer adds an API serializer. Idempotent on the type tag.
func (r *Registry) RegisterSerializer(s Serializer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.serializers {
		if existing.TypeTag() == s.TypeTag() {
			return
		}
	}
	r.serializers = append(r.serializers, s)
}

// SerializerFor scans the registered serializers for an exact type match.
func (r *Registry) SerializerFor(page models.TypedPage) (Serializer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.serializers {
		if s.TypeTag() == page.TypeTag() {
			return s, nil
		}
	}
	return nil, ErrNoSerializerRegistered
}

// Reset clears all registrations. Exposed for tests that need a clean
// registry between cases.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = nil
	r.forms = nil
	r.serializers = nil
}

// RegisterDefaultTypes installs the built-in page types in their canonical
// order: content, index, upload.
func RegisterDefaultTypes(r *Registry) {
	r.RegisterType(PageType{
		Tag:      models.TypeContent,
		Name:     "Content page",
		HelpText: "An article with a title, abstract and rich-text body.",
		New:      func() models.TypedPage { return models.NewContentPage() },
	})
	r.RegisterType(PageType{
		Tag:      models.TypeIndex,
		Name:     "Index page",
		HelpText: "A container page with a title and abstract only.",
		New:      func() models.TypedPage { return models.NewIndexPage() },
	})
	r.RegisterType(PageType{
		Tag:      models.TypeUpload,
		Name:     "HTML upload page",
		HelpText: "Serves an uploaded HTML file as the page content.",
		New:      func() models.TypedPage { return models.NewUploadPage() },
	})
}
