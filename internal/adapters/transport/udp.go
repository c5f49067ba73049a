// Package transport wires two UDP sockets into the narrow
// pipeline.Source/pipeline.Sink contracts: one bound socket the GCS
// talks to, one connected socket reaching the router. Everything else a
// real deployment needs around that — ethernet interface auto-detection,
// broadcast address computation, link-down reconnection — belongs to
// the transport-listener layer the specification places out of scope;
// this adapter only needs to read and write datagrams.
//
// Grounded on other_examples/DangAW2002-DroneBridge__forwarder.go's
// dual listener/sender socket shape (a GCS-facing node and a
// server/router-facing node run side by side), reduced to plain
// net.UDPConn since the gomavlib framing and ethernet auto-setup that
// file layers on top are out of scope here.
package transport

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/k4hvh/madbridge/internal/types"
)

const maxDatagramSize = 2048

// Transport reads MAVLink datagrams from whichever side sent one and
// writes them back out the opposite side, satisfying
// pipeline.Source/pipeline.Sink without pipeline importing net.
type Transport struct {
	gcsConn    *net.UDPConn
	routerConn *net.UDPConn

	gcsAddr atomic.Pointer[net.UDPAddr]

	packets   chan packet
	errs      chan error
	closing   chan struct{}
	closeOnce sync.Once
}

type packet struct {
	data []byte
	dir  types.Direction
}

// Open binds gcsListenAddr:gcsListenPort for the GCS side and dials
// routerAddr:routerPort for the router side, then starts both read
// loops. The returned Transport must be closed by the caller.
func Open(gcsListenAddr string, gcsListenPort int, routerAddr string, routerPort int) (*Transport, error) {
	gcsConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP(gcsListenAddr), Port: gcsListenPort})
	if err != nil {
		return nil, fmt.Errorf("listen for GCS on %s:%d: %w", gcsListenAddr, gcsListenPort, err)
	}

	routerConn, err := net.DialUDP("udp", nil, &net.UDPAddr{IP: net.ParseIP(routerAddr), Port: routerPort})
	if err != nil {
		gcsConn.Close()
		return nil, fmt.Errorf("dial router at %s:%d: %w", routerAddr, routerPort, err)
	}

	t := &Transport{
		gcsConn:    gcsConn,
		routerConn: routerConn,
		packets:    make(chan packet, 256),
		errs:       make(chan error, 2),
		closing:    make(chan struct{}),
	}
	go t.readLoop(gcsConn, types.GCSToRouter)
	go t.readLoop(routerConn, types.RouterToGCS)
	return t, nil
}

func (t *Transport) readLoop(conn *net.UDPConn, dir types.Direction) {
	buf := make([]byte, maxDatagramSize)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case t.errs <- err:
			case <-t.closing:
			}
			return
		}
		if dir == types.GCSToRouter && addr != nil {
			t.gcsAddr.Store(addr)
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		select {
		case t.packets <- packet{data: data, dir: dir}:
		case <-t.closing:
			return
		}
	}
}

// Read blocks until a datagram arrives from either side, or either read
// loop errors, or Close is called.
func (t *Transport) Read() ([]byte, types.Direction, error) {
	select {
	case p := <-t.packets:
		return p.data, p.dir, nil
	case err := <-t.errs:
		return nil, "", err
	case <-t.closing:
		return nil, "", fmt.Errorf("transport closed")
	}
}

// Write sends packet toward dir: GCSToRouter reaches the router over
// the dialed connection, RouterToGCS replies to whichever GCS address
// last sent a datagram. Writing toward the GCS before any GCS datagram
// has arrived is a no-op: there is nowhere to send it yet.
func (t *Transport) Write(dir types.Direction, pkt []byte) error {
	switch dir {
	case types.GCSToRouter:
		_, err := t.routerConn.Write(pkt)
		return err
	case types.RouterToGCS:
		addr := t.gcsAddr.Load()
		if addr == nil {
			return nil
		}
		_, err := t.gcsConn.WriteToUDP(pkt, addr)
		return err
	default:
		return fmt.Errorf("unknown direction %q", dir)
	}
}

// Close shuts down both sockets and unblocks any pending Read.
func (t *Transport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.closing)
		if e := t.gcsConn.Close(); e != nil {
			err = e
		}
		if e := t.routerConn.Close(); e != nil && err == nil {
			err = e
		}
	})
	return err
}
