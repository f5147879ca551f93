// Package discovery announces the server's presence on the local network
// over UDP so peers can find it without configuration.
//
// The beacon answers {"type":"discover"} probes immediately and broadcasts
// the same announcement to 255.255.255.255 on a fixed interval. Discovery is
// presence-only: peers learn the HTTP address from the announcement and talk
// sync over HTTP, never over UDP.
package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/himslabs/syncserver/internal/timeutil"
)

// BroadcastInterval is how often the unsolicited announcement goes out.
const BroadcastInterval = 5 * time.Second

// Announcement is the payload sent in broadcasts and probe responses.
type Announcement struct {
	ServerIP  string `json:"serverIP"`
	Port      int    `json:"port"`
	Name      string `json:"name"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// probe is the only message the beacon reacts to.
type probe struct {
	Type string `json:"type"`
}

// Beacon is the UDP presence responder. Create with New, run with Start,
// stop by cancelling the context passed to Start.
type Beacon struct {
	serverPort int
	port       int
	name       string
	version    string
	serverIP   string
	conn       *net.UDPConn
	log        *logrus.Entry
}

// New creates a Beacon advertising an HTTP server on serverPort, listening
// for probes on discoveryPort.
func New(serverPort, discoveryPort int, name, version string) *Beacon {
	return &Beacon{
		serverPort: serverPort,
		port:       discoveryPort,
		name:       name,
		version:    version,
		log:        logrus.WithField("component", "discovery"),
	}
}

// Start binds the UDP socket and launches the probe and broadcast loops.
// It returns once the socket is bound; cancelling ctx closes the socket and
// winds both loops down.
func (b *Beacon) Start(ctx context.Context) error {
	lc := net.ListenConfig{Control: enableBroadcast}
	pc, err := lc.ListenPacket(ctx, "udp4", fmt.Sprintf(":%d", b.port))
	if err != nil {
		return fmt.Errorf("bind discovery port %d: %w", b.port, err)
	}
	b.conn = pc.(*net.UDPConn)
	b.serverIP = LocalIP()

	b.log.WithFields(logrus.Fields{
		"addr": b.conn.LocalAddr().String(), "server_ip": b.serverIP,
	}).Info("discovery listening")

	go b.serve()
	go b.broadcast(ctx)
	go func() {
		<-ctx.Done()
		b.conn.Close()
	}()
	return nil
}

// Addr returns the bound UDP address. Valid only after Start.
func (b *Beacon) Addr() net.Addr {
	return b.conn.LocalAddr()
}

func (b *Beacon) announcement() []byte {
	payload, _ := json.Marshal(Announcement{
		ServerIP:  b.serverIP,
		Port:      b.serverPort,
		Name:      b.name,
		Version:   b.version,
		Timestamp: timeutil.Now(),
	})
	return payload
}

// serve answers discovery probes until the socket closes. Malformed and
// unrelated datagrams are ignored.
func (b *Beacon) serve() {
	buf := make([]byte, 2048)
	for {
		n, addr, err := b.conn.ReadFromUDP(buf)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				b.log.WithError(err).Error("discovery read failed")
			}
			b.log.Info("discovery stopped")
			return
		}

		var p probe
		if err := json.Unmarshal(buf[:n], &p); err != nil {
			b.log.WithField("from", addr.String()).Debug("ignoring non-JSON datagram")
			continue
		}
		if p.Type != "discover" {
			continue
		}

		if _, err := b.conn.WriteToUDP(b.announcement(), addr); err != nil {
			b.log.WithError(err).WithField("to", addr.String()).Error("discovery response failed")
			continue
		}
		b.log.WithField("to", addr.String()).Info("discovery response sent")
	}
}

// broadcast sends the unsolicited announcement every BroadcastInterval.
func (b *Beacon) broadcast(ctx context.Context) {
	dest := &net.UDPAddr{IP: net.IPv4bcast, Port: b.port}
	ticker := time.NewTicker(BroadcastInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := b.conn.WriteToUDP(b.announcement(), dest); err != nil {
				b.log.WithError(err).Debug("broadcast failed")
			}
		}
	}
}

// LocalIP returns the first non-loopback IPv4 address of this host, or
// "0.0.0.0" when none is found.
func LocalIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "0.0.0.0"
	}
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipnet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return "0.0.0.0"
}

// Broadcasting to 255.255.255.255 requires SO_BROADCAST on the socket.
func enableBroadcast(network, address string, c syscall.RawConn) error {
	var serr error
	if err := c.Control(func(fd uintptr) {
		serr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1)
	}); err != nil {
		return err
	}
	return serr
}
