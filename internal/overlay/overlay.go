// 包 overlay：地图会话的悬停/选中高亮状态（单写者，多读者）
package overlay

import (
	"encoding/json"

	"parcel-api/internal/cadastre"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Placeholder：编码缺失时标签中的占位符
const Placeholder = "—"

// Overlay：一块高亮几何及其标签；Label 为空表示不显示标签
// Key 为去重身份（"CCA-PDA"，缺失按空串），不参与渲染
type Overlay struct {
	Geometry orb.Geometry
	Label    string
	Key      string
}

// FromFeature：由地块构造高亮，标签格式 "CCA x · PDA y"
func FromFeature(f *cadastre.Feature) *Overlay {
	if f == nil {
		return nil
	}
	return &Overlay{
		Geometry: f.Geometry,
		Label:    Label(f.Props.CCA, f.Props.PDA),
		Key:      f.Props.Key(),
	}
}

// Label：缺失或空编码显示占位符
func Label(cca, pda *string) string {
	return "CCA " + orPlaceholder(cca) + " · PDA " + orPlaceholder(pda)
}

func orPlaceholder(s *string) string {
	if s == nil || *s == "" {
		return Placeholder
	}
	return *s
}

type overlayJSON struct {
	Geometry *geojson.Geometry `json:"geometry"`
	Label    string            `json:"label,omitempty"`
}

// MarshalJSON：输出 {geometry: GeoJSON 几何, label?}
func (o *Overlay) MarshalJSON() ([]byte, error) {
	out := overlayJSON{Label: o.Label}
	if o.Geometry != nil {
		out.Geometry = geojson.NewGeometry(o.Geometry)
	}
	return json.Marshal(out)
}
