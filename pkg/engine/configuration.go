package engine

import (
	"fmt"
	"time"

	"github.com/lintang-b-s/ehorizon/pkg/horizon"
	"github.com/lintang-b-s/ehorizon/pkg/util"
)

const (
	DEFAULT_HORIZON_DISTANCE = 1000 // meters
	DEFAULT_UPDATE_FREQUENCY = 200  // milliseconds

	// upper bound of the horizon distance, the tile cover of the buffered position grows with its square.
	MAX_HORIZON_DISTANCE = 10000 // meters
)

/*
Configuration. runtime settings of a map engine. every field is optional, an update applies only the fields
that are set.
*/
type Configuration struct {
	HorizonDistance *int               `json:"horizon_distance,omitempty"`
	UpdateFrequency *int               `json:"update_frequency,omitempty"`
	Expansion       *horizon.Expansion `json:"expansion,omitempty"`
}

func NewConfiguration() Configuration {
	return Configuration{}
}

func DefaultConfiguration() Configuration {
	return NewConfiguration().
		WithHorizonDistance(DEFAULT_HORIZON_DISTANCE).
		WithUpdateFrequency(DEFAULT_UPDATE_FREQUENCY).
		WithExpansion(horizon.LIMITED)
}

func (c Configuration) WithHorizonDistance(meters int) Configuration {
	c.HorizonDistance = &meters
	return c
}

func (c Configuration) WithUpdateFrequency(millis int) Configuration {
	c.UpdateFrequency = &millis
	return c
}

func (c Configuration) WithExpansion(expansion horizon.Expansion) Configuration {
	c.Expansion = &expansion
	return c
}

// Merge. c with every field set in other replaced by other's value.
func (c Configuration) Merge(other Configuration) Configuration {
	if other.HorizonDistance != nil {
		c = c.WithHorizonDistance(*other.HorizonDistance)
	}
	if other.UpdateFrequency != nil {
		c = c.WithUpdateFrequency(*other.UpdateFrequency)
	}
	if other.Expansion != nil {
		c = c.WithExpansion(*other.Expansion)
	}
	return c
}

func (c Configuration) IsEmpty() bool {
	return c.HorizonDistance == nil && c.UpdateFrequency == nil && c.Expansion == nil
}

// Validate. set fields must be positive, the horizon distance at most MAX_HORIZON_DISTANCE.
func (c Configuration) Validate() error {
	if c.HorizonDistance != nil && *c.HorizonDistance <= 0 {
		return util.WrapErrorf(nil, util.ErrBadParamInput, "horizon distance must be positive, got %d", *c.HorizonDistance)
	}
	if c.HorizonDistance != nil && *c.HorizonDistance > MAX_HORIZON_DISTANCE {
		return util.WrapErrorf(nil, util.ErrBadParamInput, "horizon distance must be at most %d meters, got %d",
			MAX_HORIZON_DISTANCE, *c.HorizonDistance)
	}
	if c.UpdateFrequency != nil && *c.UpdateFrequency <= 0 {
		return util.WrapErrorf(nil, util.ErrBadParamInput, "update frequency must be positive, got %d", *c.UpdateFrequency)
	}
	return nil
}

func (c Configuration) GetHorizonDistance() int {
	if c.HorizonDistance == nil {
		return DEFAULT_HORIZON_DISTANCE
	}
	return *c.HorizonDistance
}

func (c Configuration) GetUpdateFrequency() time.Duration {
	if c.UpdateFrequency == nil {
		return DEFAULT_UPDATE_FREQUENCY * time.Millisecond
	}
	return time.Duration(*c.UpdateFrequency) * time.Millisecond
}

func (c Configuration) GetExpansion() horizon.Expansion {
	if c.Expansion == nil {
		return horizon.LIMITED
	}
	return *c.Expansion
}

func (c Configuration) String() string {
	return fmt.Sprintf("horizon_distance=%dm, update_frequency=%s, expansion=%s",
		c.GetHorizonDistance(), c.GetUpdateFrequency(), c.GetExpansion())
}
