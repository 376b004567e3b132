package cadastre

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// 文档注释：把 GeoJSON FeatureCollection 解析为地块快照
// 背景：数据来自市政地籍导出，几何为 Polygon/MultiPolygon，properties 含可选的 CCA/PDA。
// 约束：null 几何或非面几何的要素跳过并计数，不中断加载；整体 JSON 非法时返回错误。
func Parse(data []byte, source string) (*Collection, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse feature collection: %w", err)
	}
	features := make([]Feature, 0, len(fc.Features))
	skipped := 0
	for _, gf := range fc.Features {
		f, ok := toFeature(gf)
		if !ok {
			skipped++
			continue
		}
		features = append(features, f)
	}
	c := newCollection(features, skipped, source)
	sum := sha256.Sum256(data)
	c.Digest = hex.EncodeToString(sum[:8])
	return c, nil
}

func toFeature(gf *geojson.Feature) (Feature, bool) {
	if gf == nil || gf.Geometry == nil {
		return Feature{}, false
	}
	switch gf.Geometry.(type) {
	case orb.Polygon, orb.MultiPolygon:
	default:
		return Feature{}, false
	}
	return Feature{
		Props: Properties{
			CCA: getStr(gf.Properties, "CCA"),
			PDA: getStr(gf.Properties, "PDA"),
		},
		Geometry: gf.Geometry,
		Bound:    gf.Geometry.Bound(),
	}, true
}

// getStr：取可空字符串属性；数字/布尔转文本，其余类型视为缺失
func getStr(p geojson.Properties, k string) *string {
	v, ok := p[k]
	if !ok || v == nil {
		return nil
	}
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(x)
	default:
		return nil
	}
	return &s
}
