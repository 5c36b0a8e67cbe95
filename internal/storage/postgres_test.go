package storage

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	opaque := errors.New("something else")

	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil passes through", nil, nil},
		{"no rows", sql.ErrNoRows, ErrNotFound},
		{"wrapped no rows", fmt.Errorf("query: %w", sql.ErrNoRows), ErrNotFound},
		{"bad connection", driver.ErrBadConn, ErrUnavailable},
		{"unique violation", &pq.Error{Code: "23505"}, ErrDuplicateKey},
		{"foreign key violation", &pq.Error{Code: "23503"}, ErrInvalidReference},
		{"connection exception class", &pq.Error{Code: "08006"}, ErrUnavailable},
		{"insufficient resources class", &pq.Error{Code: "53300"}, ErrUnavailable},
		{"operator intervention class", &pq.Error{Code: "57P01"}, ErrUnavailable},
		{"other constraint violations pass through", &pq.Error{Code: "23514"}, nil},
		{"unknown errors pass through", opaque, opaque},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.in)
			if tt.want == nil && tt.in != nil {
				// Pass-through: the original error comes back unchanged.
				assert.Equal(t, tt.in, got)
				return
			}
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}
