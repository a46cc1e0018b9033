package territory

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"zip-territory/internal/geo"
)

// 评分参数
const (
	MagnitudeWeight = 0.5
	DominanceWeight = 0.35
	// MinDistanceMiles 距离下限，近零距离时避免除法发散
	MinDistanceMiles = 0.1
	unknownRep       = "unknown"
)

// Inference：单个邮编的推断结果；无活跃点时为零值
type Inference struct {
	OwnerEmail string
	OwnerName  string
	Reason     string
	Score      float64
	Magnitude  float64
	Dominance  float64
	Neighbors  int
}

func (i Inference) Found() bool { return i.OwnerEmail != "" }

type neighbor struct {
	pt   *ActivePoint
	dist float64
}

type repStat struct {
	rep   string
	name  string
	mag   float64
	count int
}

// 文档注释：近邻推断潜在负责人（距离 × 成交量 × 邻域占比）
// 背景：未被直接归属的邮编，从周边活跃点中按“量级 + 主导度”打分选出潜在负责人。
// 约束：
//   - 候选为半径内的活跃点，按距离稳定排序后最多取 maxNeighbors 个；半径内为空时退化为全局最近的 maxNeighbors 个；
//   - 距离下限 0.1 英里；量级 = Σ 成交数/距离；主导度 = 该负责人近邻数/近邻总数；
//   - 得分 = 0.5×量级 + 0.35×主导度，严格更高者胜，同分保留先评估者（按近邻扫描的首次出现顺序）；
//   - 纯函数，结果只依赖输入及其顺序。
func InferProspectiveOwner(target GeoRecord, points []ActivePoint, radiusMiles float64, maxNeighbors int) Inference {
	if len(points) == 0 || maxNeighbors <= 0 {
		return Inference{}
	}
	all := make([]neighbor, 0, len(points))
	var within []neighbor
	for i := range points {
		p := &points[i]
		d := geo.HaversineMiles(target.Lat, target.Lng, p.Lat, p.Lng)
		n := neighbor{pt: p, dist: d}
		all = append(all, n)
		if d <= radiusMiles {
			within = append(within, n)
		}
	}
	cands := within
	if len(cands) == 0 {
		cands = all
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].dist < cands[j].dist })
	if len(cands) > maxNeighbors {
		cands = cands[:maxNeighbors]
	}

	total := len(cands)
	var stats []*repStat
	byRep := make(map[string]*repStat)
	for _, n := range cands {
		d := n.dist
		if d < MinDistanceMiles {
			d = MinDistanceMiles
		}
		rep := n.pt.OwnerEmail
		if rep == "" {
			rep = unknownRep
		}
		st, ok := byRep[rep]
		if !ok {
			st = &repStat{rep: rep, name: n.pt.OwnerName}
			byRep[rep] = st
			stats = append(stats, st)
		}
		st.mag += float64(n.pt.DealCount) / d
		st.count++
	}

	var best Inference
	bestScore := -1.0
	for _, st := range stats {
		dominance := float64(st.count) / float64(total)
		score := MagnitudeWeight*st.mag + DominanceWeight*dominance
		if score > bestScore {
			bestScore = score
			best = Inference{
				OwnerEmail: st.rep,
				OwnerName:  st.name,
				Score:      score,
				Magnitude:  st.mag,
				Dominance:  dominance,
				Neighbors:  total,
			}
		}
	}
	if best.OwnerEmail == "" {
		return Inference{}
	}
	best.Reason = fmt.Sprintf("mag=%.3f; dominance=%.3f; neighbors=%d; radius_miles=%s",
		best.Magnitude, best.Dominance, best.Neighbors, formatMiles(radiusMiles))
	return best
}

// formatMiles：半径按最短形式输出，整数值保留一位小数（25 -> "25.0"）
func formatMiles(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}
