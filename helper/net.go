package helper

import (
	"net"
	"net/http"
	"strings"
)

// NetInterface 本机网卡
type NetInterface struct {
	Name    string
	Address []string
}

// IsPrivateIP 判断是否为内网地址（不含回环地址）
func IsPrivateIP(ip string) bool {
	addr := net.ParseIP(ip)
	if addr == nil {
		return false
	}
	return addr.IsPrivate()
}

// IsLocalAddress 判断是否为内网、回环或链路本地地址
func IsLocalAddress(ip string) bool {
	addr := net.ParseIP(ip)
	if addr == nil {
		return false
	}
	return addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast()
}

// GetClientIP 获取客户端 IP。只有直连地址是本机或内网代理时才采信
// X-Forwarded-For（取第一个公网地址）与 X-Real-IP
func GetClientIP(r *http.Request) string {
	remote := remoteHost(r)
	if !IsLocalAddress(remote) {
		return remote
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		var first string
		for _, part := range strings.Split(xff, ",") {
			ip := strings.TrimSpace(part)
			if net.ParseIP(ip) == nil {
				continue
			}
			if first == "" {
				first = ip
			}
			if !IsLocalAddress(ip) {
				return ip
			}
		}
		if first != "" {
			return first
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(realIP) != nil {
		return realIP
	}
	return remote
}

// remoteHost 去掉 RemoteAddr 中的端口
func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// GetNetInterface 获取本机已启用且非回环的网卡
func GetNetInterface() ([]NetInterface, error) {
	allInterfaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var result []NetInterface
	for _, iface := range allInterfaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		ni := NetInterface{Name: iface.Name}
		for _, addr := range addrs {
			if ipNet, ok := addr.(*net.IPNet); ok {
				ni.Address = append(ni.Address, ipNet.IP.String())
			}
		}
		result = append(result, ni)
	}
	return result, nil
}
