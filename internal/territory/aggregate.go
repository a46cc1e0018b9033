package territory

import "zip-territory/internal/zipcode"

type pairKey struct{ zip, email string }

// 文档注释：销售活动聚合器
// 约束：同一 (邮编, 邮箱) 只保留一条；成交数累加；状态取“曾经活跃”的逻辑或，一旦 ACTIVE 不再回退；
// 非空姓名以最近一次为准；州代码取该组合首行。输出顺序为组合首次出现顺序。
type Aggregator struct {
	order []pairKey
	recs  map[pairKey]*ActivityRecord
}

func NewAggregator() *Aggregator {
	return &Aggregator{recs: make(map[pairKey]*ActivityRecord)}
}

// Add：并入一行已归一化的活动记录（ZIP 须已归一化，Status 须为 ACTIVE/INACTIVE）
func (a *Aggregator) Add(r ActivityRecord) {
	if r.DealCount < 0 {
		r.DealCount = 0
	}
	k := pairKey{zip: r.ZIP, email: r.OwnerEmail}
	cur, ok := a.recs[k]
	if !ok {
		rec := r
		a.recs[k] = &rec
		a.order = append(a.order, k)
		return
	}
	cur.DealCount += r.DealCount
	if r.Status == zipcode.StatusActive {
		cur.Status = zipcode.StatusActive
	}
	if r.OwnerName != "" {
		cur.OwnerName = r.OwnerName
	}
}

func (a *Aggregator) Len() int { return len(a.order) }

// Records：聚合结果（首次出现顺序）
func (a *Aggregator) Records() []ActivityRecord {
	out := make([]ActivityRecord, 0, len(a.order))
	for _, k := range a.order {
		out = append(out, *a.recs[k])
	}
	return out
}
