package cadastre

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// 10x10 方块 + (3,3)-(7,7) 洞；B 与 A 重叠；C 外环未闭合；D 缺 PDA；
// 其后为应被跳过的 null 几何与点要素
const fixtureGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"CCA": "001", "PDA": "A1", "OWNER": "ignored"},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[0,10],[10,10],[10,0],[0,0]]]}},
    {"type": "Feature", "properties": {"CCA": "002", "PDA": "B1"},
     "geometry": {"type": "Polygon", "coordinates": [[[5,5],[5,15],[15,15],[15,5],[5,5]]]}},
    {"type": "Feature", "properties": {"CCA": "003", "PDA": "C1"},
     "geometry": {"type": "Polygon", "coordinates": [[[20,0],[20,10],[30,10],[30,0]]]}},
    {"type": "Feature", "properties": {"CCA": "004"},
     "geometry": {"type": "MultiPolygon", "coordinates": [
        [[[40,0],[40,10],[50,10],[50,0],[40,0]]],
        [[[60,0],[60,10],[70,10],[70,0],[60,0]], [[63,3],[63,7],[67,7],[67,3],[63,3]]]
     ]}},
    {"type": "Feature", "properties": {"CCA": "005", "PDA": "E1"}, "geometry": null},
    {"type": "Feature", "properties": {"CCA": "006"},
     "geometry": {"type": "Point", "coordinates": [1,1]}}
  ]
}`

const holeGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"CCA": "010", "PDA": "H1"},
     "geometry": {"type": "Polygon", "coordinates": [
        [[0,0],[0,10],[10,10],[10,0],[0,0]],
        [[3,3],[3,7],[7,7],[7,3],[3,3]]
     ]}}
  ]
}`

func mustParse(t *testing.T, s string) *Collection {
	t.Helper()
	c, err := Parse([]byte(s), "test")
	require.NoError(t, err)
	return c
}
