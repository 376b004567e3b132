package cadastre

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_SkipsNonPolygonal(t *testing.T) {
	c := mustParse(t, fixtureGeoJSON)

	assert.Equal(t, 4, c.Len())
	assert.Equal(t, 2, c.Skipped)
	for i, f := range c.Features {
		assert.Equal(t, i, f.Index)
	}
	_, isMulti := c.Features[3].Geometry.(orb.MultiPolygon)
	assert.True(t, isMulti)
}

func TestParse_Properties(t *testing.T) {
	data := `{"type":"FeatureCollection","features":[
	  {"type":"Feature","properties":{"CCA":1234,"PDA":null},
	   "geometry":{"type":"Polygon","coordinates":[[[0,0],[0,1],[1,1],[1,0],[0,0]]]}},
	  {"type":"Feature","properties":null,
	   "geometry":{"type":"Polygon","coordinates":[[[0,0],[0,1],[1,1],[1,0],[0,0]]]}}
	]}`
	c := mustParse(t, data)
	require.Equal(t, 2, c.Len())

	require.NotNil(t, c.Features[0].Props.CCA)
	assert.Equal(t, "1234", *c.Features[0].Props.CCA)
	assert.Nil(t, c.Features[0].Props.PDA)
	assert.Equal(t, "1234-", c.Features[0].Props.Key())

	assert.Nil(t, c.Features[1].Props.CCA)
	assert.Equal(t, "-", c.Features[1].Props.Key())
}

func TestParse_MissingPDA(t *testing.T) {
	c := mustParse(t, fixtureGeoJSON)
	f := c.Features[3]
	assert.Equal(t, "004", *f.Props.CCA)
	assert.Nil(t, f.Props.PDA)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte(`{"type":"FeatureCollection","features":`), "test")
	assert.Error(t, err)

	_, err = Parse([]byte(`<html>not found</html>`), "test")
	assert.Error(t, err)
}

func TestCollection_ByCCA(t *testing.T) {
	c := mustParse(t, fixtureGeoJSON)

	f, ok := c.ByCCA("002")
	require.True(t, ok)
	assert.Equal(t, "B1", *f.Props.PDA)

	_, ok = c.ByCCA("005") // null 几何已被跳过
	assert.False(t, ok)

	var nilColl *Collection
	_, ok = nilColl.ByCCA("001")
	assert.False(t, ok)
}

func TestCollection_ByCCADuplicateLastWins(t *testing.T) {
	c := mustParse(t, `{"type":"FeatureCollection","features":[
	 {"type":"Feature","properties":{"CCA":"100","PDA":"old"},
	  "geometry":{"type":"Polygon","coordinates":[[[0,0],[0,1],[1,1],[1,0],[0,0]]]}},
	 {"type":"Feature","properties":{"CCA":"200","PDA":"x"},
	  "geometry":{"type":"Polygon","coordinates":[[[2,0],[2,1],[3,1],[3,0],[2,0]]]}},
	 {"type":"Feature","properties":{"CCA":"100","PDA":"new"},
	  "geometry":{"type":"Polygon","coordinates":[[[4,0],[4,1],[5,1],[5,0],[4,0]]]}}]}`)

	f, ok := c.ByCCA("100")
	require.True(t, ok)
	assert.Equal(t, "new", *f.Props.PDA)
	assert.Equal(t, 2, f.Index)
}

func TestCollection_GeoJSON(t *testing.T) {
	c := mustParse(t, fixtureGeoJSON)

	b, err := json.Marshal(c.GeoJSON())
	require.NoError(t, err)

	var out struct {
		Type     string `json:"type"`
		Features []struct {
			Properties map[string]any `json:"properties"`
			Geometry   struct {
				Type string `json:"type"`
			} `json:"geometry"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "FeatureCollection", out.Type)
	require.Len(t, out.Features, 4)
	assert.Equal(t, "001", out.Features[0].Properties["CCA"])
	assert.NotContains(t, out.Features[0].Properties, "OWNER")
	assert.Nil(t, out.Features[3].Properties["PDA"])
	assert.Equal(t, "MultiPolygon", out.Features[3].Geometry.Type)
}

func TestParse_DigestFollowsContent(t *testing.T) {
	a := mustParse(t, fixtureGeoJSON)
	b := mustParse(t, fixtureGeoJSON)
	h := mustParse(t, holeGeoJSON)

	assert.Len(t, a.Digest, 16)
	assert.Equal(t, a.Digest, b.Digest)
	assert.NotEqual(t, a.Digest, h.Digest)
}
