package sshmonitor

import (
	"strings"
)

// addressMarker 登录记录中来源地址前的分隔符
const addressMarker = " - "

// LoginFields 插件侧按位置解析出的登录字段
type LoginFields struct {
	Date string `json:"date"`
	Host string `json:"host"`
	User string `json:"user"`
	From string `json:"from"`
}

// SourceAddress 提取登录记录的来源地址，用于白名单比对
// 格式: "<时间> <主机> <用户> - <地址>:<端口>"，取 " - " 与最后一个 ":" 之间的内容
// 缺少分隔符时返回空字符串
func SourceAddress(record string) string {
	start := strings.Index(record, addressMarker)
	if start < 0 {
		return sshdSourceAddress(record)
	}
	start += len(addressMarker)
	end := strings.LastIndex(record, ":")
	if end < start {
		return ""
	}
	return strings.TrimSpace(record[start:end])
}

// sshdSourceAddress 兼容 sshd 原始日志格式: "... from <地址> port <端口>"
func sshdSourceAddress(record string) string {
	fields := strings.Fields(record)
	for i := 0; i+2 < len(fields); i++ {
		if fields[i] == "from" && fields[i+2] == "port" {
			return fields[i+1]
		}
	}
	return ""
}

// ParseFields 按空格位置解析登录记录: [0]=时间 [1]=主机 [2]=用户 [4]=来源
func ParseFields(record string) LoginFields {
	parts := strings.Split(record, " ")
	at := func(i int) string {
		if i < len(parts) {
			return parts[i]
		}
		return ""
	}
	return LoginFields{
		Date: at(0),
		Host: at(1),
		User: at(2),
		From: at(4),
	}
}
