package discovery

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/consul/api"
	"github.com/rs/zerolog"
)

// Registration describes how the service announces itself to Consul.
type Registration struct {
	Name       string
	Address    string
	Port       int
	Tags       []string
	HealthPath string
}

// ConsulRegistrar registers one service instance and removes it again on shutdown.
type ConsulRegistrar struct {
	client    *api.Client
	logger    *zerolog.Logger
	serviceID string
}

func NewConsulRegistrar(logger *zerolog.Logger, consulAddr string) (*ConsulRegistrar, error) {
	client, err := api.NewClient(&api.Config{Address: consulAddr})
	if err != nil {
		return nil, err
	}

	return &ConsulRegistrar{client: client, logger: logger}, nil
}

// Register announces the instance with an HTTP health check against HealthPath.
func (r *ConsulRegistrar) Register(reg Registration) error {
	address := reg.Address
	if address == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return err
		}
		address = hostname
	}

	r.serviceID = fmt.Sprintf("%s-%s-%d", reg.Name, address, reg.Port)

	registration := &api.AgentServiceRegistration{
		ID:      r.serviceID,
		Name:    reg.Name,
		Address: address,
		Port:    reg.Port,
		Tags:    reg.Tags,
		Check: &api.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s:%d%s", address, reg.Port, reg.HealthPath),
			Interval:                       (10 * time.Second).String(),
			Timeout:                        (3 * time.Second).String(),
			DeregisterCriticalServiceAfter: time.Minute.String(),
		},
	}

	if err := r.client.Agent().ServiceRegister(registration); err != nil {
		return err
	}

	r.logger.Info().Str("service_id", r.serviceID).Msg("registered with consul")
	return nil
}

// Deregister removes the instance registered by Register.
func (r *ConsulRegistrar) Deregister() error {
	if r.serviceID == "" {
		return nil
	}

	if err := r.client.Agent().ServiceDeregister(r.serviceID); err != nil {
		return err
	}

	r.logger.Info().Str("service_id", r.serviceID).Msg("deregistered from consul")
	return nil
}
