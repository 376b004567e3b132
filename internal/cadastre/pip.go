package cadastre

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// 文档注释：点入多边形判定
// 背景：外环命中且不在任一洞内视为命中；多面中任一成员命中即命中。
// 约束：边界约定沿用 orb 的环判定，落在外环边/顶点上算命中，落在洞边上算未命中；
// 同一坐标多次调用结果恒定。无环的多边形永不命中。
func containsPoint(g orb.Geometry, pt orb.Point) bool {
	switch v := g.(type) {
	case orb.Polygon:
		return polygonContains(v, pt)
	case orb.MultiPolygon:
		for _, p := range v {
			if polygonContains(p, pt) {
				return true
			}
		}
	}
	return false
}

func polygonContains(p orb.Polygon, pt orb.Point) bool {
	if len(p) == 0 || len(p[0]) == 0 {
		return false
	}
	return planar.PolygonContains(p, pt)
}

// 文档注释：按文件顺序返回第一个包含该点的地块
// 背景：地籍数据存在重叠地块，首个命中是可复现的裁决规则，不可改为任意顺序。
// 约束：先做包围盒快速过滤再做精确判定；pt 为 orb 约定的 [lon, lat]；快照为 nil 视为空。
func Resolve(c *Collection, pt orb.Point) (*Feature, bool) {
	if c == nil {
		return nil, false
	}
	for i := range c.Features {
		f := &c.Features[i]
		if !f.Bound.Contains(pt) {
			continue
		}
		if containsPoint(f.Geometry, pt) {
			return f, true
		}
	}
	return nil, false
}
