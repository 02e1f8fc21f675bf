package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestTaskCreate_Validate(t *testing.T) {
	tests := []struct {
		name       string
		in         TaskCreate
		wantFields []string
	}{
		{"valid", TaskCreate{Title: "Write docs", Description: "README and API"}, nil},
		{"missing title", TaskCreate{Description: "d"}, []string{"title"}},
		{"blank title", TaskCreate{Title: "   ", Description: "d"}, []string{"title"}},
		{"missing both", TaskCreate{}, []string{"title", "description"}},
		{"title too long", TaskCreate{Title: strings.Repeat("a", MaxTitleLength+1), Description: "d"}, []string{"title"}},
		{"title at limit in runes", TaskCreate{Title: strings.Repeat("é", MaxTitleLength), Description: "d"}, nil},
		{"description too long", TaskCreate{Title: "t", Description: strings.Repeat("x", MaxDescriptionLength+1)}, []string{"description"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.in
			err := in.Validate()
			if tt.wantFields == nil {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			var got []string
			for _, f := range verr.Fields {
				got = append(got, f.Field)
			}
			assert.Equal(t, tt.wantFields, got)
		})
	}
}

func TestTaskCreate_Normalize(t *testing.T) {
	// "e" followed by a combining acute accent composes to a single rune under NFC.
	in := TaskCreate{Title: "  Cafe\u0301  ", Description: "\tnotes\n"}
	require.NoError(t, in.Validate())
	assert.Equal(t, "Caf\u00e9", in.Title)
	assert.Equal(t, "notes", in.Description)
}

func TestTaskCreate_Messages(t *testing.T) {
	in := TaskCreate{Title: "", Description: strings.Repeat("x", MaxDescriptionLength+1)}
	err := in.Validate()

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{
		"Title is required.",
		"Description must be at most 2000 characters.",
	}, verr.Messages())
	assert.Contains(t, verr.Error(), "title: Title is required.")
}

func TestTaskUpdate(t *testing.T) {
	t.Run("empty update is valid", func(t *testing.T) {
		in := TaskUpdate{}
		require.NoError(t, in.Validate())
		assert.True(t, in.IsEmpty())
	})

	t.Run("blank title is rejected", func(t *testing.T) {
		in := TaskUpdate{Title: strPtr("  ")}
		err := in.Validate()
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("apply only touches set fields", func(t *testing.T) {
		task := Task{ID: 1, Title: "old", Description: "keep"}
		in := TaskUpdate{Title: strPtr(" new ")}
		require.NoError(t, in.Validate())
		in.Apply(&task)
		assert.Equal(t, "new", task.Title)
		assert.Equal(t, "keep", task.Description)
	})
}
