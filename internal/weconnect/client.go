// Package weconnect polls the vehicle service and notifies observers about changed vehicle attributes.
package weconnect

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/michalkurzeja/go-clock"
	log "github.com/sirupsen/logrus"

	"github.com/futurehomeno/edge-vwarmup/internal/config"
	"github.com/futurehomeno/edge-vwarmup/internal/jwt"
)

var (
	// ErrNotLoggedIn is returned by Update when there is no valid session.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrUnauthorized is returned when the vehicle service rejected the session.
	ErrUnauthorized = errors.New("unauthorized: re-login is required")
	// ErrNoVehicle is returned when the account has no vehicle matching the configuration.
	ErrNoVehicle = errors.New("no vehicle found")
)

// Client is a stateful vehicle service client.
type Client interface {
	// Login authenticates with the configured credentials and selects the vehicle.
	Login(ctx context.Context) error
	// Update fetches the vehicle status and notifies observers about changed attributes.
	Update(ctx context.Context) error
	// AddObserver registers an observer for events of the attribute which match the flags.
	AddObserver(address string, flags EventFlag, fn Observer)
	// LoggedIn checks if the client holds a session which has not expired.
	LoggedIn() bool
}

type client struct {
	http        HTTPClient
	cfg         *config.Service
	logger      *log.Entry
	timerLogger *log.Entry

	mu         sync.Mutex
	token      *Token
	expiresAt  time.Time
	vin        string
	attributes map[string]string

	observersMu sync.RWMutex
	observers   map[string][]registration
}

// NewClient creates a new vehicle client. The timer logger receives the per-update chatter.
func NewClient(http HTTPClient, cfg *config.Service, logger, timerLogger *log.Entry) Client {
	return &client{
		http:        http,
		cfg:         cfg,
		logger:      logger,
		timerLogger: timerLogger,
		attributes:  make(map[string]string),
		observers:   make(map[string][]registration),
	}
}

func (c *client) Login(ctx context.Context) error {
	creds := c.cfg.GetVehicleCredentials()

	token, err := c.http.Login(ctx, creds.Username, creds.Password)
	if err != nil {
		return fmt.Errorf("failed to log in to the vehicle service: %w", err)
	}

	vehicles, err := c.http.Vehicles(ctx, token.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to list vehicles: %w", err)
	}

	vin, err := selectVehicle(vehicles, c.cfg.GetVIN())
	if err != nil {
		return err
	}

	fallback := clock.Now().Add(time.Duration(token.ExpiresIn) * time.Second)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = token
	c.expiresAt = jwt.ExpiresAt(token.AccessToken, fallback)
	c.vin = vin

	c.logger.
		WithField("vin", vin).
		WithField("expires_at", c.expiresAt.Format(time.RFC3339)).
		Info("vehicle client: logged in")

	return nil
}

func (c *client) LoggedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.loggedIn()
}

func (c *client) loggedIn() bool {
	if c.token == nil {
		return false
	}

	if !c.expiresAt.IsZero() && !clock.Now().Before(c.expiresAt) {
		return false
	}

	return true
}

func (c *client) Update(ctx context.Context) error {
	events, err := c.update(ctx)
	if err != nil {
		return err
	}

	c.notify(events)

	return nil
}

// update commits the new attribute snapshot and returns the events to fire.
func (c *client) update(ctx context.Context) ([]Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loggedIn() {
		c.dropSession()

		return nil, ErrNotLoggedIn
	}

	c.timerLogger.WithField("vin", c.vin).Debug("vehicle client: fetching vehicle status")

	status, err := c.http.SelectiveStatus(ctx, c.token.AccessToken, c.vin, JobClimatisation)
	if err != nil {
		var httpErr HTTPError
		if errors.As(err, &httpErr) && httpErr.Status == http.StatusUnauthorized {
			c.dropSession()

			return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
		}

		return nil, fmt.Errorf("failed to fetch vehicle status: %w", err)
	}

	next := status.attributes()
	events := diff(c.attributes, next)
	c.attributes = next

	c.timerLogger.
		WithField("attributes", next).
		WithField("events", len(events)).
		Debug("vehicle client: vehicle status updated")

	return events, nil
}

func (c *client) dropSession() {
	c.token = nil
	c.expiresAt = time.Time{}
}

func (c *client) AddObserver(address string, flags EventFlag, fn Observer) {
	c.observersMu.Lock()
	defer c.observersMu.Unlock()

	c.observers[address] = append(c.observers[address], registration{flags: flags, observer: fn})
}

func (c *client) notify(events []Event) {
	c.observersMu.RLock()
	defer c.observersMu.RUnlock()

	for _, e := range events {
		for _, r := range c.observers[e.Address] {
			if r.flags.Has(e.Flags) {
				r.observer(e)
			}
		}
	}
}

// diff compares two attribute snapshots. Events are ordered by address.
func diff(prev, next map[string]string) []Event {
	var events []Event

	for address, value := range next {
		old, ok := prev[address]

		switch {
		case !ok:
			events = append(events, Event{Address: address, Value: value, Flags: EventEnabled | EventValueChanged})
		case old != value:
			events = append(events, Event{Address: address, Value: value, Flags: EventValueChanged})
		}
	}

	for address := range prev {
		if _, ok := next[address]; !ok {
			events = append(events, Event{Address: address, Flags: EventDisabled})
		}
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].Address < events[j].Address
	})

	return events
}

func selectVehicle(vehicles []Vehicle, vin string) (string, error) {
	if len(vehicles) == 0 {
		return "", ErrNoVehicle
	}

	if vin == "" {
		return vehicles[0].VIN, nil
	}

	for _, v := range vehicles {
		if v.VIN == vin {
			return v.VIN, nil
		}
	}

	return "", fmt.Errorf("%w: vin %s", ErrNoVehicle, vin)
}
