package territory

import "strings"

// SelectActiveOwners：为每个邮编在 ACTIVE 聚合记录中选出唯一负责人
// 规则：成交数最高者胜；成交数相同取邮箱（忽略大小写）字典序较小者；没有 ACTIVE 记录的邮编不出现在结果中
func SelectActiveOwners(activity []ActivityRecord) *OwnerIndex {
	idx := NewOwnerIndex()
	for _, rec := range activity {
		if !rec.IsActive() {
			continue
		}
		cur, ok := idx.Get(rec.ZIP)
		if !ok || outranks(rec, cur) {
			idx.put(rec)
		}
	}
	return idx
}

func outranks(a, b ActivityRecord) bool {
	if a.DealCount != b.DealCount {
		return a.DealCount > b.DealCount
	}
	return strings.ToLower(a.OwnerEmail) < strings.ToLower(b.OwnerEmail)
}
