// internal/netutil/lan.go - Local IPv4 discovery for the startup banner
package netutil

import (
	"net"
	"strconv"
)

// LANIPv4s returns the IPv4 addresses of every up, non-loopback interface.
func LANIPv4s() ([]string, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var ips []string
	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		ips = append(ips, ipv4s(addrs)...)
	}
	return ips, nil
}

// URLs turns each address into an http URL on port.
func URLs(ips []string, port int) []string {
	urls := make([]string, 0, len(ips))
	for _, ip := range ips {
		urls = append(urls, "http://"+net.JoinHostPort(ip, strconv.Itoa(port)))
	}
	return urls
}

func ipv4s(addrs []net.Addr) []string {
	var out []string
	for _, addr := range addrs {
		var ip net.IP
		switch a := addr.(type) {
		case *net.IPNet:
			ip = a.IP
		case *net.IPAddr:
			ip = a.IP
		}
		if v4 := ip.To4(); v4 != nil && !v4.IsLoopback() {
			out = append(out, v4.String())
		}
	}
	return out
}
