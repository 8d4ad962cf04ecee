package pagination

import (
	"math"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	p := New(6, 100)

	params := p.Parse(url.Values{})
	assert.Equal(t, Params{Page: 1, Limit: 6}, params)
	assert.Equal(t, 0, params.Offset())
}

func TestParseClampsLimit(t *testing.T) {
	p := New(6, 100)

	params := p.Parse(url.Values{"page": {"3"}, "limit": {"500"}})
	assert.Equal(t, 3, params.Page)
	assert.Equal(t, 100, params.Limit)
	assert.Equal(t, 200, params.Offset())
}

func TestParseInvalidValues(t *testing.T) {
	p := New(6, 100)

	params := p.Parse(url.Values{"page": {"-2"}, "limit": {"abc"}})
	assert.Equal(t, Params{Page: 1, Limit: 6}, params)
}

func TestNewPageLinks(t *testing.T) {
	u, err := url.Parse("http://localhost:8080/api/recipes/?limit=2&page=2&tags=lunch")
	require.NoError(t, err)

	page := NewPage(u, Params{Page: 2, Limit: 2}, 5, []int{3, 4})

	require.NotNil(t, page.Next)
	require.NotNil(t, page.Previous)
	assert.Equal(t, "http://localhost:8080/api/recipes/?limit=2&page=3&tags=lunch", *page.Next)
	assert.Equal(t, "http://localhost:8080/api/recipes/?limit=2&tags=lunch", *page.Previous)
	assert.Equal(t, int64(5), page.Count)
	assert.Equal(t, []int{3, 4}, page.Results)
}

func TestNewPageLastPage(t *testing.T) {
	u, err := url.Parse("http://localhost/api/users/?page=3&limit=2")
	require.NoError(t, err)

	page := NewPage[int](u, Params{Page: 3, Limit: 2}, 5, nil)

	assert.Nil(t, page.Next)
	require.NotNil(t, page.Previous)
	assert.Equal(t, "http://localhost/api/users/?limit=2&page=2", *page.Previous)
	assert.NotNil(t, page.Results)
	assert.Empty(t, page.Results)
}

func TestParseHugePageStaysPastTheEnd(t *testing.T) {
	p := New(6, 100)
	u, err := url.Parse("http://localhost/api/recipes/")
	require.NoError(t, err)

	for _, raw := range []string{"4611686018427387905", "99999999999999999999999"} {
		params := p.Parse(url.Values{"page": {raw}, "limit": {"4"}})

		assert.Greater(t, params.Page, 1, raw)
		assert.Greater(t, params.Offset(), 10, raw)

		page := NewPage[int](u, params, 10, nil)
		assert.Nil(t, page.Next, raw)
		assert.NotNil(t, page.Previous, raw)
	}
}

func TestOffsetSaturates(t *testing.T) {
	assert.Equal(t, math.MaxInt, Params{Page: math.MaxInt, Limit: 4}.Offset())
	assert.Equal(t, 0, Params{Page: 0, Limit: 4}.Offset())
}
