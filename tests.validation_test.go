package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateBook(t *testing.T) {
	testCases := []struct {
		name   string
		book   Book
		fields []string
	}{
		{"valid book", Book{Name: "Habits", Rating: IntPtr(5)}, nil},
		{"zero rating", Book{Name: "Habits", Rating: IntPtr(0)}, nil},
		{"missing name", Book{Rating: IntPtr(3)}, []string{"name"}},
		{"missing rating", Book{Name: "Habits"}, []string{"rating"}},
		{"large rating", Book{Name: "Big", Rating: IntPtr(7)}, nil},
		{"negative rating", Book{Name: "Habits", Rating: IntPtr(-1)}, nil},
		{"nothing set", Book{}, []string{"name", "rating"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateBook(&tc.book)
			if tc.fields == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			var fields []string
			for _, fe := range err.(ValidationErrors) {
				fields = append(fields, fe.Field)
			}
			assert.Equal(t, tc.fields, fields)
		})
	}
}

func TestValidationErrors_Error(t *testing.T) {
	err := ValidateBook(&Book{Summary: "no name nor rating"})
	require.Error(t, err)
	assert.Equal(t, "validation failed: name is required; rating is required", err.Error())
}

func TestParseBookID(t *testing.T) {
	id, err := ParseBookID("12")
	assert.NoError(t, err)
	assert.Equal(t, int64(12), id)

	for _, s := range []string{"", "0", "-1", "x1", "9223372036854775808"} {
		_, err = ParseBookID(s)
		assert.Equal(t, ErrInvalidBookID, err, s)
	}
}
