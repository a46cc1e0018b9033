package territory

// 文档注释：按首次插入顺序保持键序的邮编索引
// 背景：输出顺序与推断的同分裁决都依赖稳定的遍历顺序，map 本身无序，故额外保存键序。
// 约束：重复写入同一邮编只替换值，不改变位置（最后一行生效）。
type GeoIndex struct {
	order []string
	byZIP map[string]GeoRecord
}

func NewGeoIndex() *GeoIndex {
	return &GeoIndex{byZIP: make(map[string]GeoRecord)}
}

func (g *GeoIndex) Put(r GeoRecord) {
	if _, ok := g.byZIP[r.ZIP]; !ok {
		g.order = append(g.order, r.ZIP)
	}
	g.byZIP[r.ZIP] = r
}

func (g *GeoIndex) Get(zip string) (GeoRecord, bool) {
	r, ok := g.byZIP[zip]
	return r, ok
}

func (g *GeoIndex) Has(zip string) bool {
	_, ok := g.byZIP[zip]
	return ok
}

func (g *GeoIndex) Len() int { return len(g.order) }

// Records：按索引顺序返回全部记录
func (g *GeoIndex) Records() []GeoRecord {
	out := make([]GeoRecord, 0, len(g.order))
	for _, z := range g.order {
		out = append(out, g.byZIP[z])
	}
	return out
}

// OwnerIndex：邮编 -> 活跃负责人（胜出的聚合记录），键序为首次出现顺序
type OwnerIndex struct {
	order []string
	byZIP map[string]ActivityRecord
}

func NewOwnerIndex() *OwnerIndex {
	return &OwnerIndex{byZIP: make(map[string]ActivityRecord)}
}

func (o *OwnerIndex) put(r ActivityRecord) {
	if _, ok := o.byZIP[r.ZIP]; !ok {
		o.order = append(o.order, r.ZIP)
	}
	o.byZIP[r.ZIP] = r
}

func (o *OwnerIndex) Get(zip string) (ActivityRecord, bool) {
	r, ok := o.byZIP[zip]
	return r, ok
}

func (o *OwnerIndex) Len() int { return len(o.order) }

// ActivePoint：推断阶段使用的“活跃点”（已确认负责人的邮编及其坐标）
type ActivePoint struct {
	ZIP        string
	Lat        float64
	Lng        float64
	OwnerEmail string
	OwnerName  string
	DealCount  int
}

// Points：结合主数据坐标生成活跃点列表，顺序与索引一致；主数据缺失的邮编被跳过
func (o *OwnerIndex) Points(geo *GeoIndex) []ActivePoint {
	out := make([]ActivePoint, 0, len(o.order))
	for _, z := range o.order {
		g, ok := geo.Get(z)
		if !ok {
			continue
		}
		w := o.byZIP[z]
		out = append(out, ActivePoint{
			ZIP:        z,
			Lat:        g.Lat,
			Lng:        g.Lng,
			OwnerEmail: w.OwnerEmail,
			OwnerName:  w.OwnerName,
			DealCount:  w.DealCount,
		})
	}
	return out
}
