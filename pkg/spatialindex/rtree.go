package spatialindex

import (
	"github.com/lintang-b-s/ehorizon/pkg/geo"
	"github.com/paulmach/orb"
	"github.com/tidwall/rtree"
)

// EdgeIndex. r-tree over edge bounding boxes, leaf data is the edge id.
type EdgeIndex struct {
	tr *rtree.RTreeG[int64]
}

func NewEdgeIndex() *EdgeIndex {
	var tr rtree.RTreeG[int64]
	return &EdgeIndex{
		tr: &tr,
	}
}

func toRect(bound orb.Bound) ([2]float64, [2]float64) {
	return [2]float64{bound.Min.Lon(), bound.Min.Lat()}, [2]float64{bound.Max.Lon(), bound.Max.Lat()}
}

func (ei *EdgeIndex) Insert(id int64, bound orb.Bound) {
	min, max := toRect(bound)
	ei.tr.Insert(min, max, id)
}

// Delete. bound must be the bound the edge was inserted with.
func (ei *EdgeIndex) Delete(id int64, bound orb.Bound) {
	min, max := toRect(bound)
	ei.tr.Delete(min, max, id)
}

func (ei *EdgeIndex) Len() int {
	return ei.tr.Len()
}

// Contains. ids of every leaf whose box contains p.
func (ei *EdgeIndex) Contains(p orb.Point) []int64 {
	return ei.Search(orb.Bound{Min: p, Max: p})
}

// Search. ids of every leaf whose box intersects bound.
func (ei *EdgeIndex) Search(bound orb.Bound) []int64 {
	min, max := toRect(bound)
	ids := make([]int64, 0)
	ei.tr.Search(min, max, func(min, max [2]float64, id int64) bool {
		ids = append(ids, id)
		return true
	})
	return ids
}

// SearchWithinRadius. ids of every leaf intersecting the box of radius meters around p.
func (ei *EdgeIndex) SearchWithinRadius(p orb.Point, radius float64) []int64 {
	ruler := geo.NewMeterRuler(p.Lat())
	return ei.Search(ruler.BufferPoint(p, radius))
}
