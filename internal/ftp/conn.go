// Package ftp adapts github.com/jlaffaye/ftp to the listing and transfer
// interfaces of the sync engine. A Pool holds up to a fixed number of logged-in
// sessions; each session runs one command at a time.
package ftp

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	goftp "github.com/jlaffaye/ftp"
)

// Config describes how to reach and log in to the server.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	// TLS enables explicit FTPS (AUTH TLS on the control port).
	TLS        bool
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// Address returns host:port.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// String identifies the server without the password.
func (c Config) String() string {
	scheme := "ftp"
	if c.TLS {
		scheme = "ftps"
	}
	return fmt.Sprintf("%s://%s@%s", scheme, c.User, c.Address())
}

// Conn is the subset of a logged-in session the pool uses.
type Conn interface {
	List(path string) ([]*goftp.Entry, error)
	Retr(path string) (io.ReadCloser, error)
	Quit() error
}

// Dialer opens and logs in a new session.
type Dialer func(ctx context.Context) (Conn, error)

type serverConn struct {
	c *goftp.ServerConn
}

func (s serverConn) List(path string) ([]*goftp.Entry, error) {
	return s.c.List(path)
}

func (s serverConn) Retr(path string) (io.ReadCloser, error) {
	r, err := s.c.Retr(path)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s serverConn) Quit() error {
	return s.c.Quit()
}

// NewDialer returns a Dialer that connects with cfg.
func NewDialer(cfg Config) Dialer {
	return func(ctx context.Context) (Conn, error) {
		opts := []goftp.DialOption{
			goftp.DialWithContext(ctx),
			goftp.DialWithTimeout(cfg.Timeout),
		}
		if cfg.TLS {
			opts = append(opts, goftp.DialWithExplicitTLS(&tls.Config{
				ServerName: cfg.Host,
				MinVersion: tls.VersionTLS12,
			}))
		}

		c, err := goftp.Dial(cfg.Address(), opts...)
		if err != nil {
			return nil, err
		}
		if err := c.Login(cfg.User, cfg.Password); err != nil {
			_ = c.Quit()
			return nil, err
		}
		return serverConn{c: c}, nil
	}
}
