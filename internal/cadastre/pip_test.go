package cadastre

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_Square(t *testing.T) {
	c := mustParse(t, fixtureGeoJSON)

	f, ok := Resolve(c, orb.Point{2, 2})
	require.True(t, ok)
	assert.Equal(t, "001", *f.Props.CCA)

	_, ok = Resolve(c, orb.Point{-5, -5})
	assert.False(t, ok)
}

func TestResolve_OutsideEverything(t *testing.T) {
	c := mustParse(t, holeGeoJSON)
	_, ok := Resolve(c, orb.Point{15, 15})
	assert.False(t, ok)
}

func TestResolve_HoleExcluded(t *testing.T) {
	c := mustParse(t, holeGeoJSON)

	_, ok := Resolve(c, orb.Point{5, 5})
	assert.False(t, ok, "point inside the hole must not match")

	f, ok := Resolve(c, orb.Point{1, 5})
	require.True(t, ok)
	assert.Equal(t, "H1", *f.Props.PDA)
}

func TestResolve_FirstMatchWins(t *testing.T) {
	c := mustParse(t, fixtureGeoJSON)
	// (7,7) 同时落在 001 与 002 中
	for i := 0; i < 50; i++ {
		f, ok := Resolve(c, orb.Point{7, 7})
		require.True(t, ok)
		assert.Equal(t, 0, f.Index)
		assert.Equal(t, "001", *f.Props.CCA)
	}
	// 只在 002 中
	f, ok := Resolve(c, orb.Point{12, 12})
	require.True(t, ok)
	assert.Equal(t, "002", *f.Props.CCA)
}

func TestResolve_UnclosedRing(t *testing.T) {
	c := mustParse(t, fixtureGeoJSON)
	f, ok := Resolve(c, orb.Point{25, 5})
	require.True(t, ok)
	assert.Equal(t, "003", *f.Props.CCA)

	_, ok = Resolve(c, orb.Point{31, 5})
	assert.False(t, ok)
}

func TestResolve_MultiPolygon(t *testing.T) {
	c := mustParse(t, fixtureGeoJSON)

	for _, pt := range []orb.Point{{45, 5}, {61, 1}} {
		f, ok := Resolve(c, pt)
		require.True(t, ok, "point %v", pt)
		assert.Equal(t, "004", *f.Props.CCA)
	}
	// 两个成员之间的空隙，以及第二个成员的洞
	for _, pt := range []orb.Point{{55, 5}, {65, 5}} {
		_, ok := Resolve(c, pt)
		assert.False(t, ok, "point %v", pt)
	}
}

func TestResolve_BoundaryConvention(t *testing.T) {
	c := mustParse(t, holeGeoJSON)

	tests := []struct {
		name string
		pt   orb.Point
		want bool
	}{
		{"outer edge", orb.Point{0, 5}, true},
		{"outer vertex", orb.Point{10, 10}, true},
		{"hole edge", orb.Point{3, 5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, _ := Resolve(c, tt.pt)
			for i := 0; i < 10; i++ {
				again, _ := Resolve(c, tt.pt)
				assert.Same(t, first, again)
			}
			assert.Equal(t, tt.want, first != nil)
		})
	}
}

func TestResolve_NilAndEmpty(t *testing.T) {
	_, ok := Resolve(nil, orb.Point{0, 0})
	assert.False(t, ok)

	c := newCollection([]Feature{{Geometry: orb.Polygon{}, Bound: orb.Bound{Max: orb.Point{1, 1}}}}, 0, "test")
	_, ok = Resolve(c, orb.Point{0.5, 0.5})
	assert.False(t, ok, "polygon without rings never matches")
}
