package cadastre

import (
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// 文档注释：地块属性（CCA 区段码 / PDA 地块码）
// 背景：GeoJSON properties 是开放字典；引擎只认这两个字段，其余字段一律忽略。
// 约束：缺失或 null 为 nil；数字/布尔值按文本保存，编码在引擎内视为不透明字符串。
type Properties struct {
	CCA *string
	PDA *string
}

// Key：悬停去重用的身份键，缺失字段按空串拼接
func (p Properties) Key() string {
	return deref(p.CCA) + "-" + deref(p.PDA)
}

// Feature：单个地块；Geometry 仅为 orb.Polygon 或 orb.MultiPolygon
// 多边形第一环为外环，其余为洞；环可闭合也可不闭合，判定时按隐式闭合处理。
type Feature struct {
	Index    int
	Props    Properties
	Geometry orb.Geometry
	Bound    orb.Bound
}

// 文档注释：加载结果快照
// 背景：加载后只读，可被任意数量的读者并发共享；Features 保持文件顺序，重叠地块按首个命中裁决。
type Collection struct {
	Features []Feature
	Skipped  int
	Source   string
	LoadedAt time.Time
	// Digest：原始文件内容的 sha256（十六进制前 16 位），内容相同的进程得到相同值
	Digest string

	byCCA map[string]int
}

func newCollection(features []Feature, skipped int, source string) *Collection {
	c := &Collection{
		Features: features,
		Skipped:  skipped,
		Source:   source,
		LoadedAt: time.Now(),
		byCCA:    make(map[string]int, len(features)),
	}
	for i := range c.Features {
		c.Features[i].Index = i
		if cca := c.Features[i].Props.CCA; cca != nil && *cca != "" {
			c.byCCA[*cca] = i
		}
	}
	return c
}

// Len：地块数量；nil 快照视为空
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Features)
}

// ByCCA：按 CCA 取地块；同一 CCA 出现多次时文件中最后一个生效
// 背景：房源只保存 CCA，地图层需要据此找回地块几何再绘制；与前端图层的 CCA 索引保持一致。
func (c *Collection) ByCCA(cca string) (*Feature, bool) {
	if c == nil {
		return nil, false
	}
	i, ok := c.byCCA[cca]
	if !ok {
		return nil, false
	}
	return &c.Features[i], true
}

// GeoJSON：还原为 FeatureCollection 供前端直接绘制；properties 只输出 CCA/PDA
func (c *Collection) GeoJSON() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if c == nil {
		return fc
	}
	for i := range c.Features {
		fc.Append(c.Features[i].GeoJSON())
	}
	return fc
}

// GeoJSON：单个地块的 GeoJSON 表示
func (f *Feature) GeoJSON() *geojson.Feature {
	gf := geojson.NewFeature(f.Geometry)
	gf.Properties["CCA"] = nullable(f.Props.CCA)
	gf.Properties["PDA"] = nullable(f.Props.PDA)
	return gf
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
