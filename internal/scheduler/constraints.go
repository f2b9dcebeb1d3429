package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	ErrNetworkUnavailable = errors.New("network unavailable")
	ErrBatteryLow         = errors.New("battery low")
)

// Constraints gate every job run. A non-nil error defers the job without
// spending a retry attempt.
type Constraints interface {
	Check(ctx context.Context) error
}

type ConstraintFunc func(ctx context.Context) error

func (f ConstraintFunc) Check(ctx context.Context) error {
	return f(ctx)
}

type allConstraints []Constraints

// All combines constraints; the first unmet one wins.
func All(constraints ...Constraints) Constraints {
	return allConstraints(constraints)
}

func (c allConstraints) Check(ctx context.Context) error {
	for _, constraint := range c {
		if constraint == nil {
			continue
		}
		if err := constraint.Check(ctx); err != nil {
			return err
		}
	}
	return nil
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// NetworkConstraint requires the remote store to answer a ping.
func NetworkConstraint(pinger Pinger) Constraints {
	return ConstraintFunc(func(ctx context.Context) error {
		if err := pinger.Ping(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrNetworkUnavailable, err)
		}
		return nil
	})
}

const defaultPowerSupplyDir = "/sys/class/power_supply"

// BatteryConstraint reads the Linux power supply class. Machines without a
// battery, and batteries that are charging, always pass.
type BatteryConstraint struct {
	MinPercent int
	Dir        string
}

func (b BatteryConstraint) Check(ctx context.Context) error {
	if b.MinPercent <= 0 {
		return nil
	}

	dir := b.Dir
	if dir == "" {
		dir = defaultPowerSupplyDir
	}

	supplies, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	for _, supply := range supplies {
		path := filepath.Join(dir, supply.Name())
		if readAttr(path, "type") != "Battery" {
			continue
		}
		if readAttr(path, "status") == "Charging" {
			continue
		}
		capacity, err := strconv.Atoi(readAttr(path, "capacity"))
		if err != nil {
			continue
		}
		if capacity < b.MinPercent {
			return fmt.Errorf("%w: %d%% < %d%%", ErrBatteryLow, capacity, b.MinPercent)
		}
	}
	return nil
}

func readAttr(dir, name string) string {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
