package sshmonitor

import "strings"

// SplitListing 将探针输出按行拆分
// 末尾换行产生的空串与其他记录一样保留，快照之间比较时自然抵消
func SplitListing(text string) []string {
	return strings.Split(text, "\n")
}

// NewLogins 返回 current 中不在 previous 里的记录，保持 current 的顺序
// 仅做集合成员判断，空字符串与其他记录一视同仁
func NewLogins(previous, current []string) []string {
	seen := make(map[string]struct{}, len(previous))
	for _, login := range previous {
		seen[login] = struct{}{}
	}

	var fresh []string
	for _, login := range current {
		if _, ok := seen[login]; ok {
			continue
		}
		fresh = append(fresh, login)
	}
	return fresh
}
