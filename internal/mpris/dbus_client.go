package mpris

import (
	"context"
	"fmt"
	"strings"

	"github.com/genricoloni/mprisbar/internal/domain"
	"github.com/godbus/dbus/v5"
)

const (
	objectPath      = "/org/mpris/MediaPlayer2"
	playerInterface = "org.mpris.MediaPlayer2.Player"
	propMetadata    = playerInterface + ".Metadata"
	propStatus      = playerInterface + ".PlaybackStatus"
)

// DBusClient defines the interface for D-Bus operations.
// This abstraction allows us to mock D-Bus interactions in tests.
//
//go:generate mockgen -destination=mocks/dbus_client_mock.go -package=mocks github.com/genricoloni/mprisbar/internal/mpris DBusClient
type DBusClient interface {
	// Close closes the D-Bus connection
	Close() error

	// AddMatchSignal adds a signal match rule
	AddMatchSignal(options ...dbus.MatchOption) error

	// Signal registers a channel to receive D-Bus signals
	Signal(ch chan<- *dbus.Signal)

	// NameHasOwner reports whether a well-known name is currently owned
	NameHasOwner(ctx context.Context, name string) (bool, error)

	// GetNameOwner returns the unique name that owns the given well-known name
	GetNameOwner(ctx context.Context, name string) (string, error)

	// GetProperty retrieves a property from a D-Bus object
	// dest: The bus name (e.g., "org.mpris.MediaPlayer2.spotify")
	// path: The object path (e.g., "/org/mpris/MediaPlayer2")
	// prop: The property name (e.g., "org.mpris.MediaPlayer2.Player.Metadata")
	GetProperty(ctx context.Context, dest, path, prop string) (dbus.Variant, error)

	// CallMethod invokes a method without arguments and discards its reply
	CallMethod(ctx context.Context, dest, path, method string) error
}

// Connector opens connections to the session bus
type Connector interface {
	// Connect returns a fresh connection owned by the caller
	Connect(ctx context.Context) (DBusClient, error)
}

// SessionConnector opens a private session bus connection per call
type SessionConnector struct{}

// NewSessionConnector creates the session bus connection provider
func NewSessionConnector() *SessionConnector {
	return &SessionConnector{}
}

// Connect dials the session bus. The connection is closed when ctx ends.
// Errors wrap domain.ErrConnection.
func (SessionConnector) Connect(ctx context.Context) (DBusClient, error) {
	conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConnection, err)
	}
	return &StdDBusClient{conn: conn}, nil
}

// StdDBusClient is the real implementation using godbus
type StdDBusClient struct {
	conn *dbus.Conn
}

// Close closes the D-Bus connection
func (c *StdDBusClient) Close() error {
	return c.conn.Close()
}

// AddMatchSignal adds a signal match rule
func (c *StdDBusClient) AddMatchSignal(options ...dbus.MatchOption) error {
	return c.conn.AddMatchSignal(options...)
}

// Signal registers a channel to receive D-Bus signals
func (c *StdDBusClient) Signal(ch chan<- *dbus.Signal) {
	c.conn.Signal(ch)
}

// NameHasOwner asks the bus daemon whether name is owned
func (c *StdDBusClient) NameHasOwner(ctx context.Context, name string) (bool, error) {
	var owned bool
	err := c.conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.NameHasOwner", 0, name).Store(&owned)
	return owned, err
}

// GetNameOwner returns the unique name that owns the given well-known name
func (c *StdDBusClient) GetNameOwner(ctx context.Context, name string) (string, error) {
	var owner string
	err := c.conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.GetNameOwner", 0, name).Store(&owner)
	return owner, err
}

// GetProperty retrieves a property through org.freedesktop.DBus.Properties.Get
func (c *StdDBusClient) GetProperty(ctx context.Context, dest, path, prop string) (dbus.Variant, error) {
	idx := strings.LastIndex(prop, ".")
	if idx <= 0 || idx == len(prop)-1 {
		return dbus.Variant{}, fmt.Errorf("invalid property name %q", prop)
	}

	var v dbus.Variant
	obj := c.conn.Object(dest, dbus.ObjectPath(path))
	err := obj.CallWithContext(ctx, "org.freedesktop.DBus.Properties.Get", 0, prop[:idx], prop[idx+1:]).Store(&v)
	return v, err
}

// CallMethod invokes method on the object at dest/path
func (c *StdDBusClient) CallMethod(ctx context.Context, dest, path, method string) error {
	obj := c.conn.Object(dest, dbus.ObjectPath(path))
	return obj.CallWithContext(ctx, method, 0).Err
}
