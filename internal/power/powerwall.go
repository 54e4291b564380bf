package power

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"solar_mining/internal/config"
	"solar_mining/internal/logger"

	"github.com/foogod/go-powerwall"
)

const (
	powerwallName = "powerwall"
	siteMeter     = "site"
)

var errNoSiteMeter = errors.New("meters response has no site meter")

// gateway is the part of the Powerwall client the source uses.
type gateway interface {
	DoLogin() error
	GetMetersAggregates() (*map[string]powerwall.MeterAggregatesData, error)
}

// Powerwall polls a Tesla Powerwall gateway on the local network. The client
// renews its login on its own when the gateway rejects a session.
type Powerwall struct {
	gw      gateway
	pinCert func() error
	timeout time.Duration
	log     *logger.Logger
}

// NewPowerwall builds a client for the gateway at cfg.Host. The gateway's
// self-signed certificate is pinned on first contact in Authenticate.
func NewPowerwall(cfg config.PowerwallSettings, log *logger.Logger) (*Powerwall, error) {
	host := gatewayAddress(cfg.Host)
	if host == "" {
		return nil, errors.New("powerwall host is not configured")
	}
	client := powerwall.NewClient(host, cfg.Email, cfg.Password)
	return &Powerwall{
		gw: client,
		pinCert: func() error {
			cert, err := client.FetchTLSCert()
			if err != nil {
				return fmt.Errorf("fetch gateway certificate: %w", err)
			}
			client.SetTLSCert(cert)
			return nil
		},
		timeout: cfg.Timeout,
		log:     log,
	}, nil
}

// gatewayAddress strips the scheme and trailing slashes; the client always speaks https.
func gatewayAddress(host string) string {
	host = strings.TrimSpace(host)
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	return strings.TrimRight(host, "/")
}

// Authenticate pins the gateway certificate and logs in with the customer account.
func (p *Powerwall) Authenticate(ctx context.Context) error {
	_, err := callGateway(ctx, p.timeout, func() (struct{}, error) {
		if p.pinCert != nil {
			if err := p.pinCert(); err != nil {
				return struct{}{}, err
			}
		}
		return struct{}{}, p.gw.DoLogin()
	})
	if err != nil {
		return &AuthenticationError{Source: powerwallName, Err: err}
	}
	p.log.Debugw("powerwall login successful")
	return nil
}

// InstantPower returns the site meter's instant power.
func (p *Powerwall) InstantPower(ctx context.Context) (float64, error) {
	meters, err := callGateway(ctx, p.timeout, p.gw.GetMetersAggregates)
	if err != nil {
		return 0, &ReadError{Source: powerwallName, Err: err}
	}
	if meters == nil {
		return 0, &ReadError{Source: powerwallName, Err: errNoSiteMeter}
	}
	site, ok := (*meters)[siteMeter]
	if !ok {
		return 0, &ReadError{Source: powerwallName, Err: errNoSiteMeter}
	}
	return float64(site.InstantPower), nil
}

// callGateway runs a blocking client call, giving up when ctx ends or
// timeout (if positive) elapses. An abandoned call finishes in the background.
func callGateway[T any](ctx context.Context, timeout time.Duration, fn func() (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
