package pointer

import (
	"encoding/json"

	"parcel-api/internal/cadastre"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// LatLng：地图表面上报的坐标（WGS84）；引擎内部转换为 orb 的 [lon, lat]
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p LatLng) Point() orb.Point { return orb.Point{p.Lng, p.Lat} }

// Handlers：地图表面需要回调的三类事件
type Handlers struct {
	Move  func(LatLng)
	Click func(LatLng)
	Leave func()
}

// 文档注释：宿主地图表面（外部协作方）
// 背景：引擎不依赖任何渲染技术的事件名，只要求能订阅移动/点击/离开三类事件并能退订。
// 约束：回调必须在协调器所用调度器的协程上触发。
type Surface interface {
	Subscribe(h Handlers) (unsubscribe func())
}

// 文档注释：点击命中地块后交给建房源流程的记录
// 约束：Geometry 必填（未命中不产生记录）；Lat/Lon 为点击处原始坐标，不是质心。
type SelectedParcel struct {
	CCA      *string
	PDA      *string
	Geometry orb.Geometry
	Lat      float64
	Lon      float64
}

// NewSelectedParcel：从命中地块与点击坐标构造记录，编码做值拷贝
func NewSelectedParcel(f *cadastre.Feature, at LatLng) SelectedParcel {
	return SelectedParcel{
		CCA:      clone(f.Props.CCA),
		PDA:      clone(f.Props.PDA),
		Geometry: f.Geometry,
		Lat:      at.Lat,
		Lon:      at.Lng,
	}
}

type selectedParcelJSON struct {
	CCA      *string           `json:"CCA"`
	PDA      *string           `json:"PDA"`
	Geometry *geojson.Geometry `json:"geometry"`
	Lat      float64           `json:"lat"`
	Lon      float64           `json:"lon"`
}

func (p SelectedParcel) MarshalJSON() ([]byte, error) {
	out := selectedParcelJSON{CCA: p.CCA, PDA: p.PDA, Lat: p.Lat, Lon: p.Lon}
	if p.Geometry != nil {
		out.Geometry = geojson.NewGeometry(p.Geometry)
	}
	return json.Marshal(out)
}

func clone(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
