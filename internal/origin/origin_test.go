package origin

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheck(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name           string
		origin         string
		url            string
		originPatterns []string
		success        bool
	}{
		{
			name:    "no_origin",
			success: true,
			url:     "https://example.com/echo/000/s1/xhr",
		},
		{
			name:    "null_origin",
			origin:  "null",
			url:     "https://example.com/echo/000/s1/xhr",
			success: true,
		},
		{
			name:    "invalid_host",
			origin:  "invalid",
			url:     "https://example.com/echo/000/s1/xhr",
			success: false,
		},
		{
			name:    "unauthorized",
			origin:  "https://evil.example",
			url:     "https://example.com/echo/000/s1/xhr",
			success: false,
		},
		{
			name:    "same_origin",
			origin:  "https://example.com",
			url:     "https://example.com/echo/000/s1/xhr",
			success: true,
		},
		{
			name:    "same_origin_case_insensitive",
			origin:  "https://examplE.com",
			url:     "https://example.com/echo/000/s1/xhr",
			success: true,
		},
		{
			name:   "pattern_match",
			origin: "https://two.Example.com",
			url:    "https://example.com/echo/000/s1/xhr",
			originPatterns: []string{
				"*.example.com",
				"foo.com",
			},
			success: true,
		},
		{
			name:   "pattern_cyrillic_e_in_origin",
			origin: "https://two.Ðµxample.com",
			url:    "https://example.com/echo/000/s1/xhr",
			originPatterns: []string{
				"*.example.com",
				"foo.com",
			},
			success: false,
		},
		{
			name:   "pattern_no_match",
			origin: "https://two.example.com",
			url:    "https://example.com/echo/000/s1/xhr",
			originPatterns: []string{
				"foo.com",
				"bar.com",
			},
			success: false,
		},
		{
			name:           "wildcard",
			origin:         "https://anything.example",
			url:            "https://example.com/echo/000/s1/xhr",
			originPatterns: []string{"*"},
			success:        true,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest("GET", tc.url, nil)
			r.Header.Set("Origin", tc.origin)

			c, err := NewChecker(tc.originPatterns)
			require.NoError(t, err)
			err = c.Check(r)
			if tc.success {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestNewCheckerMalformedPattern(t *testing.T) {
	t.Parallel()
	_, err := NewChecker([]string{"[unterminated"})
	require.Error(t, err)
}
