//go:build !unix

package livelink

import "syscall"

func reuseAddrControl(network, address string, c syscall.RawConn) error {
	return nil
}
