package plugins

import (
	"net"

	"github.com/oschwald/geoip2-golang"
)

// Locator 根据 IP 查询国家
type Locator interface {
	Country(ip string) string
}

// GeoIP 基于 MaxMind 数据库的 Locator
type GeoIP struct {
	reader *geoip2.Reader
}

// OpenGeoIP 打开 GeoIP 数据库
func OpenGeoIP(path string) (*GeoIP, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &GeoIP{reader: reader}, nil
}

// Country 返回国家英文名，未知时返回 ISO 代码或空字符串
func (g *GeoIP) Country(ip string) string {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return ""
	}
	record, err := g.reader.Country(parsed)
	if err != nil {
		return ""
	}
	if name := record.Country.Names["en"]; name != "" {
		return name
	}
	return record.Country.IsoCode
}

// Close 关闭数据库
func (g *GeoIP) Close() error {
	return g.reader.Close()
}
