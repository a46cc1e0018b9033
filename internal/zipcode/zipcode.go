// 包 zipcode：邮编与负责人状态的归一化原语，所有原始邮编进入系统前均经过此处
package zipcode

import "strings"

// 负责人状态取值
const (
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
)

// Normalize：将任意邮编文本归一化为 5 位数字串
// 规则：剔除所有非数字字符；无数字时返回 ok=false；否则左侧补零到 5 位并截取前 5 位
// 示例："123" -> "00123"，"60601-1234" -> "60601"，"" -> 无
func Normalize(raw string) (string, bool) {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	digits := b.String()
	if digits == "" {
		return "", false
	}
	if len(digits) < 5 {
		digits = strings.Repeat("0", 5-len(digits)) + digits
	}
	return digits[:5], true
}

var activeTokens = map[string]struct{}{
	"1":      {},
	"active": {},
	"true":   {},
	"yes":    {},
}

// ParseStatus：负责人状态归一化，大小写不敏感；不在活跃词表内的一律视为 INACTIVE
func ParseStatus(raw string) string {
	if _, ok := activeTokens[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return StatusActive
	}
	return StatusInactive
}
