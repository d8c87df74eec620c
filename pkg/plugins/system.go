package plugins

import (
	"context"
	"net"
	"slices"

	"github.com/shirou/gopsutil/v4/host"
	psnet "github.com/shirou/gopsutil/v4/net"
)

// SystemInfo 本机信息
type SystemInfo struct {
	Hostname string
	IP       string
}

// LookupSystem 获取主机名和第一个非回环 IPv4 地址
func LookupSystem(ctx context.Context) SystemInfo {
	info := SystemInfo{IP: "127.0.0.1"}
	if hi, err := host.InfoWithContext(ctx); err == nil {
		info.Hostname = hi.Hostname
	}
	if ifaces, err := psnet.InterfacesWithContext(ctx); err == nil {
		if ip := firstIPv4(ifaces); ip != "" {
			info.IP = ip
		}
	}
	return info
}

func firstIPv4(ifaces psnet.InterfaceStatList) string {
	for _, iface := range ifaces {
		if slices.Contains(iface.Flags, "loopback") || !slices.Contains(iface.Flags, "up") {
			continue
		}
		for _, addr := range iface.Addrs {
			ip, _, err := net.ParseCIDR(addr.Addr)
			if err != nil {
				ip = net.ParseIP(addr.Addr)
			}
			if ip == nil || ip.IsLoopback() || ip.To4() == nil {
				continue
			}
			return ip.String()
		}
	}
	return ""
}
