package lifecycle

import (
	"fmt"
	"os"

	"github.com/yukikurage/field-service-api/internal/models"
	"gopkg.in/yaml.v3"
)

// Channel identifies the front end a transition request comes from.
type Channel string

const (
	ChannelWeb Channel = "web"
	ChannelBot Channel = "bot"
)

type edge struct {
	from models.TaskStatus
	to   models.TaskStatus
}

// Rule is one location-gating flag as written in a policy file.
type Rule struct {
	From            models.TaskStatus `yaml:"from"`
	To              models.TaskStatus `yaml:"to"`
	RequireLocation bool              `yaml:"require_location"`
}

// Policy decides which transitions need a location fix, per channel.
// The zero value gates nothing.
type Policy struct {
	gated map[Channel]map[edge]bool
}

// DefaultPolicy mirrors the legacy behavior of both front ends: the web client
// gates only the arrival on site, the bot gates every transition that leaves
// a location trail.
func DefaultPolicy() *Policy {
	p := &Policy{}
	p.Set(ChannelWeb, models.TaskStatusEnRoute, models.TaskStatusInProgress, true)

	p.Set(ChannelBot, models.TaskStatusAssigned, models.TaskStatusEnRoute, true)
	p.Set(ChannelBot, models.TaskStatusEnRoute, models.TaskStatusInProgress, true)
	p.Set(ChannelBot, models.TaskStatusAssigned, models.TaskStatusInProgress, true)
	p.Set(ChannelBot, models.TaskStatusInProgress, models.TaskStatusCompleted, true)
	return p
}

// Set overrides the gate of one transition for one channel.
func (p *Policy) Set(ch Channel, from, to models.TaskStatus, requireLocation bool) {
	if p.gated == nil {
		p.gated = make(map[Channel]map[edge]bool)
	}
	if p.gated[ch] == nil {
		p.gated[ch] = make(map[edge]bool)
	}
	p.gated[ch][edge{from: from, to: to}] = requireLocation
}

// RequireLocation reports whether moving from → to through ch needs a
// coordinate.
func (p *Policy) RequireLocation(ch Channel, from, to models.TaskStatus) bool {
	if p == nil {
		return false
	}
	return p.gated[ch][edge{from: from, to: to}]
}

// ParsePolicy applies YAML overrides on top of DefaultPolicy.
func ParsePolicy(data []byte) (*Policy, error) {
	var raw map[Channel][]Rule
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse lifecycle policy: %w", err)
	}

	p := DefaultPolicy()
	for ch, rules := range raw {
		if ch != ChannelWeb && ch != ChannelBot {
			return nil, fmt.Errorf("unknown channel %q in lifecycle policy", ch)
		}
		for _, r := range rules {
			if !CanTransition(r.From, r.To) {
				return nil, fmt.Errorf("policy rule %s -> %s for %s: %w", r.From, r.To, ch, ErrInvalidTransition)
			}
			p.Set(ch, r.From, r.To, r.RequireLocation)
		}
	}
	return p, nil
}

// LoadPolicy reads a policy file. An empty path yields DefaultPolicy.
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lifecycle policy: %w", err)
	}
	return ParsePolicy(data)
}
