// Package wol wakes powered-down staging targets via Wake-on-LAN.
package wol

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// MagicPacket is fixed at 102 bytes: 6 bytes of 0xFF, then the MAC
// repeated 16 times.
type MagicPacket [102]byte

// NewMagicPacket builds a WoL packet for the given MAC address.
func NewMagicPacket(macAddr string) (*MagicPacket, error) {
	mac, err := net.ParseMAC(macAddr)
	if err != nil {
		return nil, err
	}

	var packet MagicPacket
	copy(packet[0:], []byte{255, 255, 255, 255, 255, 255})
	offset := 6
	for i := 0; i < 16; i++ {
		copy(packet[offset:], mac)
		offset += 6
	}
	return &packet, nil
}

// Send broadcasts the packet. Port 9 is the WoL convention.
func (mp *MagicPacket) Send(broadcastIP string) error {
	addr := fmt.Sprintf("%s:9", broadcastIP)
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.Write(mp[:])
	return err
}

// WaitForPort polls until a TCP connect to ip:port succeeds or the
// timeout elapses.
func WaitForPort(ip string, port int, timeout time.Duration) error {
	target := net.JoinHostPort(ip, strconv.Itoa(port))
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", target, 1*time.Second)
		if err == nil {
			conn.Close()
			return nil
		}
		time.Sleep(1 * time.Second)
	}
	return fmt.Errorf("timed out waiting for %s", target)
}
