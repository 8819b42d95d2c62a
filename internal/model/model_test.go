package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validFields() map[string]string {
	return map[string]string{
		FieldAuthor:  "alice",
		FieldTitle:   "hello",
		FieldContent: "body",
		FieldDate:    "2016-11-09",
	}
}

func TestTableName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "Paste", want: "tbl_pastes"},
		{in: "News", want: "tbl_news"},
		{in: "UserAccount", want: "tbl_useraccounts"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, TableName(tt.in))
		})
	}
}

func TestNewPaste(t *testing.T) {
	t.Parallel()

	p, err := NewPaste(validFields())
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Author)
	assert.Equal(t, "2016-11-09", p.Date)
	_, ok := p.ID()
	assert.False(t, ok)
	assert.False(t, p.Normalized())
}

func TestNewPasteRejectsBadFields(t *testing.T) {
	t.Parallel()

	missing := validFields()
	delete(missing, FieldDate)
	_, err := NewPaste(missing)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingField))

	extra := validFields()
	extra["views"] = "10"
	_, err = NewPaste(extra)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownField))
}

func TestEqualIgnoresIdentity(t *testing.T) {
	t.Parallel()

	a, err := NewPaste(validFields())
	require.NoError(t, err)
	b, err := NewPaste(validFields())
	require.NoError(t, err)
	a.SetID(7)
	b.MarkNormalized()

	assert.True(t, a.Equal(b))
	assert.True(t, Equal(a, b))

	b.Content = "other"
	assert.False(t, a.Equal(b))
	assert.False(t, a.Equal(nil))
}

func TestSetFieldUnknown(t *testing.T) {
	t.Parallel()

	p := NewEmptyPaste()
	err := p.SetField("views", "1")
	assert.ErrorIs(t, err, ErrUnknownField)
	_, err = p.Field("views")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestPasteString(t *testing.T) {
	t.Parallel()

	p, err := NewPaste(validFields())
	require.NoError(t, err)
	p.SetID(3)
	assert.Equal(t, "id: 3\nauthor: alice\ntitle: hello\ncontent: body\ndate: 2016-11-09", p.String())
}

func TestManifestValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, PasteManifest.Validate())

	bad := Manifest{TypeName: "Bad", Table: "tbl bad", Fields: []Field{{Name: "a"}}}
	assert.Error(t, bad.Validate())

	dup := Manifest{TypeName: "Dup", Table: "tbl_dups", Fields: []Field{{Name: "a"}, {Name: "a"}}}
	assert.Error(t, dup.Validate())

	empty := Manifest{TypeName: "Empty", Table: "tbl_empties"}
	assert.Error(t, empty.Validate())

	unordered := Manifest{TypeName: "Note", Table: "tbl_notes", Fields: []Field{{Name: "a"}}, OrderBy: "b"}
	assert.ErrorContains(t, unordered.Validate(), `order field "b"`)
}

func TestRegistryCollision(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register(PasteManifest))
	require.NoError(t, r.Register(PasteManifest))

	other := Manifest{TypeName: "Pastes", Table: PasteManifest.Table, Fields: []Field{{Name: "body"}}}
	err := r.Register(other)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTableCollision)

	var collision *CollisionError
	require.ErrorAs(t, err, &collision)
	assert.Equal(t, "Paste", collision.Existing)
	assert.Len(t, r.Manifests(), 1)
}
