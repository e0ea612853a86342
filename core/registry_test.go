package core

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astor/models"
)

type stubForm struct{ tag string }

func (f stubForm) TypeTag() string                         { return f.tag }
func (f stubForm) Bind(url.Values, models.TypedPage) error { return nil }

type stubSerializer struct{ tag string }

func (s stubSerializer) TypeTag() string                           { return s.tag }
func (s stubSerializer) Serialize(models.TypedPage) map[string]any { return nil }

func TestRegisterType_Idempotent(t *testing.T) {
	r := NewRegistry()
	RegisterDefaultTypes(r)
	RegisterDefaultTypes(r)

	assert.Len(t, r.Types(), 3)
}

func TestTypes_RegistrationOrder(t *testing.T) {
	r := NewRegistry()
	RegisterDefaultTypes(r)

	types := r.Types()
	require.Len(t, types, 3)
	assert.Equal(t, models.TypeContent, types[0].Tag)
	assert.Equal(t, models.TypeIndex, types[1].Tag)
	assert.Equal(t, models.TypeUpload, types[2].Tag)
}

func TestTypeFor_Unknown(t *testing.T) {
	r := NewRegistry()
	RegisterDefaultTypes(r)

	_, ok := r.TypeFor("mystery")
	assert.False(t, ok)
}

func TestRegisterForm_Idempotent(t *testing.T) {
	r := NewRegistry()
	r.RegisterForm(stubForm{tag: models.TypeContent})
	r.RegisterForm(stubForm{tag: models.TypeContent})

	assert.Len(t, r.Forms(), 1)
}

func TestFormFor_ExactTagMatch(t *testing.T) {
	r := NewRegistry()
	r.RegisterForm(stubForm{tag: models.TypeContent})

	form, err := r.FormFor(models.NewContentPage())
	require.NoError(t, err)
	assert.Equal(t, models.TypeContent, form.TypeTag())

	_, err = r.FormFor(models.NewIndexPage())
	assert.ErrorIs(t, err, ErrNoFormRegistered)
}

func TestSerializerFor_Missing(t *testing.T) {
	r := NewRegistry()
	r.RegisterSerializer(stubSerializer{tag: models.TypeIndex})

	_, err := r.SerializerFor(models.NewContentPage())
	assert.ErrorIs(t, err, ErrNoSerializerRegistered)
}

func TestReset_ClearsEverything(t *testing.T) {
	r := NewRegistry()
	RegisterDefaultTypes(r)
	r.RegisterForm(stubForm{tag: models.TypeContent})
	r.RegisterSerializer(stubSerializer{tag: models.TypeContent})

	r.Reset()

	assert.Empty(t, r.Types())
	assert.Empty(t, r.Forms())
	_, err := r.SerializerFor(models.NewContentPage())
	assert.ErrorIs(t, err, ErrNoSerializerRegistered)
}
