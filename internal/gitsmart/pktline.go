package gitsmart

import "fmt"

// pkt-line framing: 4 hex digits of total length (payload + 4) followed
// by the payload. "0000" is the flush packet.

func pktLine(data string) []byte {
	return []byte(fmt.Sprintf("%04x%s", len(data)+4, data))
}

func pktFlush() []byte {
	return []byte("0000")
}

// serviceHeader builds the smart HTTP service announcement that must
// precede the advertisement body. The git service binaries do not emit it
// themselves in --advertise-refs mode.
func serviceHeader(service Service) []byte {
	header := pktLine(fmt.Sprintf("# service=%s\n", service))
	return append(header, pktFlush()...)
}
