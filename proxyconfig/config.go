// Copyright (c) 2026 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package proxyconfig builds a routing proxy and its transport from YAML or TOML
// configuration.
//
//  client: 0x1001
//  transport: uds
//  prefix: /run/ybus
//  unreliable: true
//  registration:
//    timeout: 500ms
//    backoff:
//      exponential:
//        first: 10ms
//        max: 1s
//  transportOptions:
//    queueSize: 256
//    flushInterval: 2ms
//  logging:
//    level: info
package proxyconfig

import (
	"fmt"
	"io"
	"io/ioutil"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/uber-go/mapdecode"
	"github.com/uber-go/tally"
	"go.uber.org/multierr"
	"go.uber.org/ybus/api/endpoint"
	"go.uber.org/ybus/api/routing"
	"go.uber.org/ybus/proxy"
	"go.uber.org/ybus/wire"
	"go.uber.org/ybus/ybuserrors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// Supported values of Config.Transport.
const (
	TransportUDS    = "uds"
	TransportInproc = "inproc"
)

// Config configures one routing proxy.
type Config struct {
	// Client, when set, must match the client of the Host passed to Build.
	Client     wire.ClientID `config:"client"`
	Transport  string        `config:"transport"`
	Prefix     string        `config:"prefix"`
	Unreliable bool          `config:"unreliable"`

	Registration     Registration     `config:"registration"`
	TransportOptions TransportOptions `config:"transportOptions"`
	Logging          Logging          `config:"logging"`
}

// Registration configures how the proxy registers with the daemon.
type Registration struct {
	Timeout time.Duration `config:"timeout"`
	Backoff Backoff       `config:"backoff"`
}

// TransportOptions tunes the endpoint transport. Zero values keep the
// transport's defaults.
type TransportOptions struct {
	QueueSize     int           `config:"queueSize"`
	FlushInterval time.Duration `config:"flushInterval"`
	DialTimeout   time.Duration `config:"dialTimeout"`
	WriteTimeout  time.Duration `config:"writeTimeout"`
}

// Load reads a YAML document and decodes it into a validated Config.
func Load(r io.Reader) (Config, error) {
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return Config{}, err
	}

	var data map[string]interface{}
	if err := yaml.Unmarshal(b, &data); err != nil {
		return Config{}, err
	}
	return LoadMap(data)
}

// LoadTOML reads a TOML document with the same keys as Load.
func LoadTOML(r io.Reader) (Config, error) {
	var data map[string]interface{}
	if _, err := toml.NewDecoder(r).Decode(&data); err != nil {
		return Config{}, err
	}
	return LoadMap(data)
}

// LoadMap decodes an already parsed document into a validated Config.
func LoadMap(data map[string]interface{}) (Config, error) {
	var cfg Config
	if err := mapdecode.Decode(&cfg, data, mapdecode.TagName("config")); err != nil {
		return Config{}, ybuserrors.InvalidArgumentErrorf("failed to decode routing proxy config: %v", err)
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) withDefaults() Config {
	if c.Transport == "" {
		c.Transport = TransportUDS
	}
	if c.Prefix == "" {
		c.Prefix = proxy.DefaultAddressPrefix
	}
	return c
}

// Validate reports every problem with the configuration.
func (c Config) Validate() error {
	var err error
	switch c.Transport {
	case TransportUDS, TransportInproc:
	default:
		err = multierr.Append(err,
			fmt.Errorf("unknown transport %q: want %q or %q", c.Transport, TransportUDS, TransportInproc))
	}
	if c.Prefix == "" {
		err = multierr.Append(err, fmt.Errorf("address prefix must not be empty"))
	}
	if c.Registration.Timeout < 0 {
		err = multierr.Append(err, fmt.Errorf("registration timeout must not be negative: %v", c.Registration.Timeout))
	}
	if _, berr := c.Registration.Backoff.Strategy(); berr != nil {
		err = multierr.Append(err, fmt.Errorf("invalid registration backoff: %v", berr))
	}
	err = multierr.Append(err, c.TransportOptions.validate())
	if err != nil {
		return ybuserrors.InvalidArgumentErrorf("invalid routing proxy config: %v", err)
	}
	return nil
}

func (o TransportOptions) validate() error {
	var err error
	if o.QueueSize < 0 {
		err = multierr.Append(err, fmt.Errorf("transport queue size must not be negative: %d", o.QueueSize))
	}
	if o.FlushInterval < 0 {
		err = multierr.Append(err, fmt.Errorf("transport flush interval must not be negative: %v", o.FlushInterval))
	}
	if o.DialTimeout < 0 {
		err = multierr.Append(err, fmt.Errorf("transport dial timeout must not be negative: %v", o.DialTimeout))
	}
	if o.WriteTimeout < 0 {
		err = multierr.Append(err, fmt.Errorf("transport write timeout must not be negative: %v", o.WriteTimeout))
	}
	return err
}

// Build constructs the transport and a proxy for host. Extra options are
// applied after the ones derived from the configuration.
func (c Config) Build(host routing.Host, logger *zap.Logger, scope tally.Scope, opts ...proxy.Option) (*proxy.Proxy, error) {
	c = c.withDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.Client != wire.DaemonClient && c.Client != host.Client() {
		return nil, ybuserrors.InvalidArgumentErrorf(
			"routing proxy configured for client %v but host is client %v", c.Client, host.Client())
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if scope == nil {
		scope = tally.NoopScope
	}
	logger = c.Logging.apply(logger)

	strategy, err := c.Registration.Backoff.Strategy()
	if err != nil {
		return nil, err
	}

	popts := []proxy.Option{
		proxy.Transport(c.transport(logger)),
		proxy.AddressPrefix(c.Prefix),
		proxy.Logger(logger),
		proxy.Scope(scope),
		proxy.Unreliable(c.Unreliable),
		proxy.RegistrationBackoff(strategy),
	}
	if c.Registration.Timeout > 0 {
		popts = append(popts, proxy.RegistrationTimeout(c.Registration.Timeout))
	}
	return proxy.New(host, append(popts, opts...)...), nil
}

func (c Config) transport(logger *zap.Logger) endpoint.Transport {
	if c.Transport == TransportInproc {
		return inprocTransport(c.Prefix, c.TransportOptions, logger)
	}
	return udsTransport(c.TransportOptions, logger)
}
