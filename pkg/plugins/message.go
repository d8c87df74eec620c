package plugins

import (
	"html"

	"github.com/dushixiang/sshwatchdog/pkg/sshmonitor"
	"github.com/valyala/fasttemplate"
)

// Message 插件通知内容
type Message struct {
	Login   string
	Fields  sshmonitor.LoginFields
	Addr    string
	Country string
	System  SystemInfo
}

// NewMessage 根据登录记录构建通知内容，locator 可以为 nil
func NewMessage(login string, system SystemInfo, locator Locator) Message {
	msg := Message{
		Login:  login,
		Fields: sshmonitor.ParseFields(login),
		Addr:   sshmonitor.SourceAddress(login),
		System: system,
	}
	if locator != nil && msg.Addr != "" {
		msg.Country = locator.Country(msg.Addr)
	}
	return msg
}

func (m Message) values(escape func(string) string) map[string]interface{} {
	values := map[string]string{
		"login":     m.Login,
		"date":      m.Fields.Date,
		"host":      m.Fields.Host,
		"user":      m.Fields.User,
		"from":      m.Fields.From,
		"addr":      m.Addr,
		"country":   m.Country,
		"system":    m.System.Hostname,
		"system_ip": m.System.IP,
	}
	out := make(map[string]interface{}, len(values))
	for k, v := range values {
		if escape != nil {
			v = escape(v)
		}
		out[k] = v
	}
	return out
}

// Render 渲染模板，支持 {login} {date} {host} {user} {from} {addr} {country} {system} {system_ip}
// 未知标签原样保留
func (m Message) Render(tmpl string) string {
	return fasttemplate.ExecuteStringStd(tmpl, "{", "}", m.values(nil))
}

// RenderHTML 与 Render 相同，但对替换值做 HTML 转义
func (m Message) RenderHTML(tmpl string) string {
	return fasttemplate.ExecuteStringStd(tmpl, "{", "}", m.values(html.EscapeString))
}
