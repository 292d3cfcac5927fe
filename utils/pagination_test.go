package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePagination(t *testing.T) {
	cases := []struct {
		name     string
		url      string
		page     int
		pageSize int
	}{
		{"defaults", "/ai/decisions", 1, 20},
		{"explicit values", "/ai/decisions?page=3&pageSize=50", 3, 50},
		{"page below one clamps to one", "/ai/decisions?page=0", 1, 20},
		{"negative page clamps to one", "/ai/decisions?page=-4", 1, 20},
		{"pageSize above cap clamps to cap", "/ai/decisions?pageSize=500", 1, 100},
		{"pageSize below one clamps to one", "/ai/decisions?pageSize=0", 1, 1},
		{"non-numeric values fall back to defaults", "/ai/decisions?page=abc&pageSize=xyz", 1, 20},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.url, nil)
			page, pageSize := ParsePagination(req)
			assert.Equal(t, tc.page, page)
			assert.Equal(t, tc.pageSize, pageSize)
		})
	}
}
