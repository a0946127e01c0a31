package easee

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/futurehomeno/cliffhanger/backoff"
	"github.com/michalkurzeja/go-clock"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/futurehomeno/edge-vwarmup/internal/jwt"
)

// refreshMargin makes the session refresh the access token slightly before it actually expires.
const refreshMargin = 30 * time.Second

// Connector opens authenticated sessions with the Easee API.
type Connector interface {
	// Connect logs in and returns a new session. The caller must close the session.
	Connect(ctx context.Context, userName, password string) (Session, error)
}

// Session is a short-lived authenticated connection to the Easee API.
type Session interface {
	// PrimarySite returns the first site of the account, including its circuits and chargers.
	PrimarySite(ctx context.Context) (*Site, error)
	// PrimaryCircuit returns the first circuit of the site.
	PrimaryCircuit(site *Site) (*Circuit, error)
	// PrimaryCharger returns the first charger of the circuit.
	PrimaryCharger(circuit *Circuit) (*Charger, error)
	// State returns the current state of the charger.
	State(ctx context.Context, charger *Charger) (*ChargerState, error)
	// SetSmartCharging enables or disables smart charging on the charger.
	SetSmartCharging(ctx context.Context, charger *Charger, enabled bool) error
	// Close ends the session. It is safe to call it more than once.
	Close() error
}

type connector struct {
	mu      sync.Mutex
	http    HTTPClient
	backoff backoff.Stateful
}

// NewConnector creates a new connector. Failed logins engage the provided backoff.
func NewConnector(http HTTPClient, loginBackoff backoff.Stateful) Connector {
	return &connector{
		http:    http,
		backoff: loginBackoff,
	}
}

func (c *connector) Connect(ctx context.Context, userName, password string) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.backoff.Should() {
		return nil, ErrBackoff
	}

	creds, err := c.http.Login(ctx, userName, password)
	if err != nil {
		c.backoff.Fail()

		return nil, fmt.Errorf("failed to log in to easee: %w", err)
	}

	c.backoff.Reset()

	s := &session{http: c.http}
	s.setCredentials(creds)

	return s, nil
}

type session struct {
	mu     sync.Mutex
	http   HTTPClient
	closed bool

	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

func (s *session) PrimarySite(ctx context.Context) (*Site, error) {
	token, err := s.token(ctx)
	if err != nil {
		return nil, err
	}

	sites, err := s.http.Sites(ctx, token)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list sites")
	}

	if len(sites) == 0 {
		return nil, errors.Wrap(ErrNotFound, "account has no sites")
	}

	site, err := s.http.Site(ctx, token, sites[0].ID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get details of site %d", sites[0].ID)
	}

	return site, nil
}

func (s *session) PrimaryCircuit(site *Site) (*Circuit, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	if site == nil || len(site.Circuits) == 0 {
		return nil, errors.Wrap(ErrNotFound, "site has no circuits")
	}

	return &site.Circuits[0], nil
}

func (s *session) PrimaryCharger(circuit *Circuit) (*Charger, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	if circuit == nil || len(circuit.Chargers) == 0 {
		return nil, errors.Wrap(ErrNotFound, "circuit has no chargers")
	}

	return &circuit.Chargers[0], nil
}

func (s *session) State(ctx context.Context, charger *Charger) (*ChargerState, error) {
	token, err := s.token(ctx)
	if err != nil {
		return nil, err
	}

	state, err := s.http.ChargerState(ctx, token, charger.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get state of charger %s", charger.ID)
	}

	return state, nil
}

func (s *session) SetSmartCharging(ctx context.Context, charger *Charger, enabled bool) error {
	token, err := s.token(ctx)
	if err != nil {
		return err
	}

	if err := s.http.UpdateSmartCharging(ctx, token, charger.ID, enabled); err != nil {
		return errors.Wrapf(err, "failed to set smart charging of charger %s", charger.ID)
	}

	return nil
}

func (s *session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	s.accessToken = ""
	s.refreshToken = ""
	s.http.CloseIdleConnections()

	return nil
}

func (s *session) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}

	return nil
}

// token returns a valid access token, refreshing it first when it is about to expire.
func (s *session) token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrSessionClosed
	}

	if clock.Now().Before(s.expiresAt.Add(-refreshMargin)) {
		return s.accessToken, nil
	}

	log.WithField("expired_at", s.expiresAt.Format(time.RFC3339)).
		Debug("easee: access token expired, refreshing...")

	creds, err := s.http.RefreshToken(ctx, s.accessToken, s.refreshToken)
	if err != nil {
		return "", errors.Wrap(err, "failed to refresh the access token")
	}

	s.setCredentials(creds)

	return s.accessToken, nil
}

func (s *session) setCredentials(creds *Credentials) {
	fallback := clock.Now().Add(time.Duration(creds.ExpiresIn) * time.Second)

	s.accessToken = creds.AccessToken
	s.refreshToken = creds.RefreshToken
	s.expiresAt = jwt.ExpiresAt(creds.AccessToken, fallback)
}
