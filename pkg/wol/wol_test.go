package wol

import (
	"bytes"
	"net"
	"testing"
	"time"
)

func TestNewMagicPacket(t *testing.T) {
	mac := "AA:BB:CC:DD:EE:FF"
	packet, err := NewMagicPacket(mac)
	if err != nil {
		t.Fatalf("NewMagicPacket failed: %v", err)
	}

	// Header: first 6 bytes must be 0xFF
	expectedHeader := []byte{255, 255, 255, 255, 255, 255}
	if !bytes.Equal(packet[0:6], expectedHeader) {
		t.Errorf("Header mismatch")
	}

	// Body: MAC repeated 16 times
	expectedMac := []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	for i := 0; i < 16; i++ {
		offset := 6 + (i * 6)
		if !bytes.Equal(packet[offset:offset+6], expectedMac) {
			t.Errorf("Body MAC mismatch at repetition %d", i)
		}
	}
}

func TestNewMagicPacket_InvalidMAC(t *testing.T) {
	_, err := NewMagicPacket("invalid-mac")
	if err == nil {
		t.Error("Expected error for invalid MAC, got nil")
	}
}

// TestWaitForPort_Integration verifies that WaitForPort actually waits for
// a TCP listener to come up.
func TestWaitForPort_Integration(t *testing.T) {
	port := 54321
	ip := "127.0.0.1"

	go func() {
		time.Sleep(300 * time.Millisecond)
		ln, err := net.Listen("tcp", "127.0.0.1:54321")
		if err != nil {
			t.Logf("Failed to listen: %v", err)
			return
		}
		defer ln.Close()
		conn, _ := ln.Accept()
		if conn != nil {
			conn.Close()
		}
	}()

	start := time.Now()
	err := WaitForPort(ip, port, 2*time.Second)
	if err != nil {
		t.Fatalf("WaitForPort failed: %v", err)
	}

	duration := time.Since(start)
	if duration < 300*time.Millisecond {
		t.Errorf("WaitForPort returned too early (%v), expected >300ms", duration)
	}
}

func TestWaitForPort_Timeout(t *testing.T) {
	// nothing listens here
	err := WaitForPort("127.0.0.1", 54329, 1500*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error")
	}
}
