package api

import "zip-territory/internal/territory"

// 文档注释：归属查询返回结构（对外）
// 约束：字段名与导出文件列名一致；空值序列化为 null
type assignmentItem struct {
	ZIP                   string  `json:"zip"`
	Lat                   float64 `json:"lat"`
	Lng                   float64 `json:"lng"`
	City                  *string `json:"city"`
	StateID               *string `json:"state_id"`
	StateName             *string `json:"state_name"`
	CountyName            *string `json:"county_name"`
	OwnerEmail            *string `json:"owner_email"`
	OwnerName             *string `json:"owner_name"`
	OwnerStatus           *string `json:"owner_status"`
	DealCount             int     `json:"deal_count"`
	ProspectiveOwnerEmail *string `json:"prospective_owner_email"`
	ProspectiveOwnerName  *string `json:"prospective_owner_name"`
	InferenceReason       *string `json:"inference_reason"`
}

type pageResult struct {
	Total int              `json:"total"`
	Page  int              `json:"page"`
	Size  int              `json:"size"`
	Items []assignmentItem `json:"items"`
}

type healthResult struct {
	Status   string `json:"status"`
	Rows     int    `json:"rows"`
	DataPath string `json:"data_path"`
}

func opt(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toItem(a territory.TerritoryAssignment) assignmentItem {
	return assignmentItem{
		ZIP:                   a.ZIP,
		Lat:                   a.Lat,
		Lng:                   a.Lng,
		City:                  opt(a.City),
		StateID:               opt(a.StateID),
		StateName:             opt(a.StateName),
		CountyName:            opt(a.CountyName),
		OwnerEmail:            opt(a.OwnerEmail),
		OwnerName:             opt(a.OwnerName),
		OwnerStatus:           opt(a.OwnerStatus),
		DealCount:             a.DealCount,
		ProspectiveOwnerEmail: opt(a.ProspectiveOwnerEmail),
		ProspectiveOwnerName:  opt(a.ProspectiveOwnerName),
		InferenceReason:       opt(a.InferenceReason),
	}
}
