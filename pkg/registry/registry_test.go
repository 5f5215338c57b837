package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Sources(t *testing.T) {
	r := Default()
	assert.Equal(t, []string{"vietnamnet", "vnexpress"}, r.Names())

	vne, err := r.Source("vnexpress")
	require.NoError(t, err)
	assert.Equal(t, "https://vnexpress.net", vne.Origin)
	assert.Len(t, vne.Categories, 12)

	vnn, err := r.Source("vietnamnet")
	require.NoError(t, err)
	assert.Len(t, vnn.Categories, 12)

	c, err := vnn.CategoryByID(13)
	require.NoError(t, err)
	assert.Equal(t, "oto-xe-may", c.Key)
	assert.Equal(t, "Ô tô - Xe máy", c.Name)
}

func TestSource_ListURL(t *testing.T) {
	r := Default()
	vne, _ := r.Source("vnexpress")
	vnn, _ := r.Source("vietnamnet")

	assert.Equal(t, "https://vnexpress.net/the-gioi", vne.ListURL("the-gioi", 1))
	assert.Equal(t, "https://vnexpress.net/the-gioi-p3", vne.ListURL("the-gioi", 3))
	assert.Equal(t, "https://vietnamnet.vn/the-gioi", vnn.ListURL("the-gioi", 1))
	assert.Equal(t, "https://vietnamnet.vn/the-gioi-page2", vnn.ListURL("the-gioi", 2))
	assert.Equal(t, "https://vnexpress.net/rss/the-gioi.rss", vne.FeedURL("the-gioi"))
}

func TestSource_Category_KeyOrID(t *testing.T) {
	vne, _ := Default().Source("vnexpress")

	c, err := vne.Category("kinh-doanh")
	require.NoError(t, err)
	assert.Equal(t, 3, c.ID)

	c, err = vne.Category("6")
	require.NoError(t, err)
	assert.Equal(t, "phap-luat", c.Key)

	_, err = vne.Category("99")
	assert.ErrorIs(t, err, ErrUnknownCategory)
	_, err = vne.Category("oto-xe-may")
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestRegistry_UnknownSource(t *testing.T) {
	_, err := Default().Source("tuoitre")
	assert.ErrorIs(t, err, ErrUnknownSource)
}

func TestSource_Maps(t *testing.T) {
	vnn, _ := Default().Source("vietnamnet")
	assert.Equal(t, 11, vnn.CategoryIDs()["cong-nghe"])
	assert.Equal(t, "Công nghệ", vnn.CategoryNames()[11])
	_, hasLaw := vnn.CategoryNames()[6]
	assert.False(t, hasLaw)
}

func TestLoad_Validation(t *testing.T) {
	_, err := Load([]byte("sources: []"))
	assert.ErrorIs(t, err, ErrNoSources)

	_, err = Load([]byte(`
sources:
  - name: a
    categories: [{key: x, id: 1}]
`))
	assert.ErrorIs(t, err, ErrMissingOrigin)

	_, err = Load([]byte(`
sources:
  - name: a
    origin: https://a.example
    categories: [{key: x, id: 1}, {key: x, id: 2}]
`))
	assert.ErrorIs(t, err, ErrDuplicateCategory)

	_, err = Load([]byte(`
sources:
  - name: a
    origin: https://a.example
    categories: [{key: x, id: 1}, {key: y, id: 1}]
`))
	assert.ErrorIs(t, err, ErrDuplicateCategory)

	_, err = Load([]byte(`
sources:
  - name: a
    origin: https://a.example
  - name: a
    origin: https://b.example
`))
	assert.ErrorIs(t, err, ErrDuplicateSource)
}
