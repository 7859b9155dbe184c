package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPageRequest_Bounds(t *testing.T) {
	cases := []struct {
		name   string
		page   int
		limit  int
		field  string
		errors bool
	}{
		{name: "first page", page: 1, limit: 20},
		{name: "max limit", page: 3, limit: MaxPageLimit},
		{name: "page zero", page: 0, limit: 20, errors: true, field: "page"},
		{name: "negative page", page: -1, limit: 20, errors: true, field: "page"},
		{name: "limit zero", page: 1, limit: 0, errors: true, field: "limit"},
		{name: "limit too large", page: 1, limit: MaxPageLimit + 1, errors: true, field: "limit"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewPageRequest(tc.page, tc.limit)
			if !tc.errors {
				require.NoError(t, err)
				return
			}
			var validation *ValidationError
			require.True(t, errors.As(err, &validation))
			assert.Equal(t, tc.field, validation.Field)
		})
	}
}

func TestPageRequest_Offset(t *testing.T) {
	p, err := NewPageRequest(2, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, p.Offset())
	assert.Equal(t, 20, p.Window())
}

func TestNewPageInfo_HasNextOnlyWhenRowsRemain(t *testing.T) {
	p, err := NewPageRequest(2, 10)
	require.NoError(t, err)

	info := NewPageInfo(p, 20)
	assert.Equal(t, 2, info.TotalPages)
	assert.False(t, info.HasNext)
	assert.True(t, info.HasPrev)

	info = NewPageInfo(p, 21)
	assert.Equal(t, 3, info.TotalPages)
	assert.True(t, info.HasNext)
}

func TestNewPageInfo_Empty(t *testing.T) {
	p, err := NewPageRequest(1, 10)
	require.NoError(t, err)

	info := NewPageInfo(p, 0)
	assert.Equal(t, 0, info.TotalPages)
	assert.False(t, info.HasNext)
	assert.False(t, info.HasPrev)
}
