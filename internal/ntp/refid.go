package ntp

import (
	"encoding/binary"
	"net"
	"strings"
)

// ReferenceID is the 32-bit reference identifier. Stratum 0 and 1 servers
// put a four character ASCII code in it, everything else an IPv4 address.
type ReferenceID uint32

func (id ReferenceID) bytes() []byte {
	idBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(idBytes, uint32(id))
	return idBytes
}

func (id ReferenceID) String() string {
	return strings.TrimRight(string(id.bytes()), "\x00")
}

func (id ReferenceID) IP() net.IP {
	return net.IP(id.bytes())
}

func (id ReferenceID) Describe(stratum uint8) string {
	if stratum <= 1 {
		return id.String()
	}
	return id.IP().String()
}

func ReferenceIDFromIP(ip net.IP) ReferenceID {
	v4 := ip.To4()
	if v4 == nil {
		return 0
	}
	return ReferenceID(binary.BigEndian.Uint32(v4))
}
