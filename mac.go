// 用主网卡的 MAC 地址作为默认实例标识

package bpfsscript

import (
	"net"
	"strings"

	"github.com/pkg/errors"
)

// ifaceWeight 给网卡打分：物理网卡、已启用、有 IPv4 地址各加 10 分
func ifaceWeight(iface net.Interface) int {
	weight := 0
	if !strings.Contains(iface.Name, "vmnet") && !strings.Contains(iface.Name, "vboxnet") {
		weight += 10
	}
	if iface.Flags&net.FlagUp != 0 {
		weight += 10
	}

	addrs, err := iface.Addrs()
	if err != nil {
		return 0
	}
	for _, addr := range addrs {
		if ipNet, ok := addr.(*net.IPNet); ok && !ipNet.IP.IsLoopback() && ipNet.IP.To4() != nil {
			weight += 10
			break
		}
	}
	return weight
}

// GetPrimaryMACAddress 返回得分最高的非回环网卡的MAC地址
func GetPrimaryMACAddress() (string, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return "", err
	}

	var best string
	bestWeight := 0
	for _, iface := range interfaces {
		if len(iface.HardwareAddr) == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if w := ifaceWeight(iface); w > bestWeight {
			best, bestWeight = iface.HardwareAddr.String(), w
		}
	}

	if best == "" {
		return "", errors.New("no MAC address found")
	}
	// 冒号不适合出现在文件名中
	return strings.ReplaceAll(best, ":", ""), nil
}
