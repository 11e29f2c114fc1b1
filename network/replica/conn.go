package replica

import (
	"errors"
	"net"
	"syscall"
	"time"

	"branchstore/configs"
	"branchstore/utils"
)

// Comm owns the node's listener. The wire protocol is one UTF-8 text
// message per connection, at most configs.MaxFrameSize bytes, read in a
// single recv. Outbound sends open a fresh connection each time; there are
// no persistent peer objects.
type Comm struct {
	done     chan bool
	listener net.Listener
	stmt     *Context
	sem      chan struct{}
}

func NewComm(stmt *Context, address string) (*Comm, error) {
	res := &Comm{stmt: stmt}
	res.done = make(chan bool, 1)
	tcpAddr, err := net.ResolveTCPAddr("tcp4", address)
	if err != nil {
		return nil, err
	}
	res.listener, err = net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Run accepts connections until Stop; each inbound message is handled in
// its own goroutine so a blocked round never stalls the accept loop.
func (c *Comm) Run() {
	c.sem = make(chan struct{}, configs.MaxConnectionHandler)
	for {
		conn, err := c.listener.Accept()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
				configs.Warn(false, "accept failed: "+err.Error())
				continue
			}
		}
		c.sem <- struct{}{}
		go func() {
			defer func() {
				<-c.sem
			}()
			c.handleRequest(conn)
		}()
	}
}

func (c *Comm) handleRequest(conn net.Conn) {
	defer conn.Close()
	buf := make([]byte, configs.MaxFrameSize+1)
	n, err := conn.Read(buf)
	if err != nil {
		configs.Warn(false, "read failed: "+err.Error())
		return
	}
	if n > configs.MaxFrameSize {
		// Oversized frame: protocol error, logged and dropped.
		configs.Warn(false, "oversized frame dropped")
		return
	}
	c.stmt.Manager.handleRequest(conn, string(buf[:n]))
}

func (c *Comm) Stop() {
	c.done <- true
	configs.CheckError(c.listener.Close())
	// Give in-flight handlers a beat to drain before the store goes away.
	time.Sleep(configs.ListenBacklogClose)
}

// sendMsg opens one connection, writes the payload, and closes. The
// returned error keeps its syscall cause so callers can branch on it.
func sendMsg(to string, msg string) error {
	conn, err := net.DialTimeout("tcp", to, configs.DialTimeout)
	if err != nil {
		return err
	}
	defer conn.Close()
	if err = conn.SetWriteDeadline(time.Now().Add(configs.DialTimeout)); err != nil {
		return err
	}
	_, err = conn.Write([]byte(msg))
	return err
}

// sendRecv writes the payload and waits for a single reply frame on the
// same connection; only the master-mutex grant path uses it.
func sendRecv(to string, msg string, replyTimeout time.Duration) (string, error) {
	conn, err := net.DialTimeout("tcp", to, configs.DialTimeout)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	if err = conn.SetWriteDeadline(time.Now().Add(configs.DialTimeout)); err != nil {
		return "", err
	}
	if _, err = conn.Write([]byte(msg)); err != nil {
		return "", err
	}
	if err = conn.SetReadDeadline(time.Now().Add(replyTimeout)); err != nil {
		return "", err
	}
	buf := make([]byte, configs.MaxFrameSize+1)
	n, err := conn.Read(buf)
	if err != nil {
		return "", err
	}
	if n > configs.MaxFrameSize {
		return "", utils.ProtocolError("oversized reply frame")
	}
	return string(buf[:n]), nil
}

// peerUnreachable reports whether err means the peer process is gone
// (connection refused) or the host is gone (no route). These two, and only
// these two, trigger master failover.
func peerUnreachable(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EHOSTUNREACH)
}

// isTimeout reports whether err is a network timeout.
func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
