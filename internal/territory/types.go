// 包 territory：领地归属的领域模型与核心算法（活跃负责人选择、近邻推断、结果合并）
// 约束：本包不做任何 IO；所有索引均为显式持有的对象，由调用方在组件之间传递
package territory

import "zip-territory/internal/zipcode"

// GeoRecord：邮编主数据中的一行（归一化后），加载完成后只读
type GeoRecord struct {
	ZIP        string
	Lat        float64
	Lng        float64
	City       string
	StateID    string
	StateName  string
	CountyName string
	Population *int
	Timezone   string
}

// ActivityRecord：按 (邮编, 负责人邮箱) 聚合后的销售活动
type ActivityRecord struct {
	ZIP        string
	State      string
	OwnerName  string
	OwnerEmail string
	DealCount  int
	Status     string
}

func (a ActivityRecord) IsActive() bool { return a.Status == zipcode.StatusActive }

// TerritoryAssignment：每个邮编恰好一条
// 约束：活跃分支（Owner*、DealCount）与推断分支（Prospective*、InferenceReason）互斥，未使用的一侧为空值
type TerritoryAssignment struct {
	ZIP                   string
	Lat                   float64
	Lng                   float64
	City                  string
	StateID               string
	StateName             string
	CountyName            string
	OwnerEmail            string
	OwnerName             string
	OwnerStatus           string
	DealCount             int
	ProspectiveOwnerEmail string
	ProspectiveOwnerName  string
	InferenceReason       string
}

// HasActiveOwner：是否为直接归属（活跃分支）
func (t TerritoryAssignment) HasActiveOwner() bool { return t.OwnerStatus != "" }

// HasProspectiveOwner：是否推断出了潜在负责人
func (t TerritoryAssignment) HasProspectiveOwner() bool {
	return t.ProspectiveOwnerEmail != "" || t.InferenceReason != ""
}

func newAssignment(g GeoRecord) TerritoryAssignment {
	return TerritoryAssignment{
		ZIP:        g.ZIP,
		Lat:        g.Lat,
		Lng:        g.Lng,
		City:       g.City,
		StateID:    g.StateID,
		StateName:  g.StateName,
		CountyName: g.CountyName,
	}
}
