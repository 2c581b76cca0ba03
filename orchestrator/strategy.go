package orchestrator

import (
	"fmt"
	"strings"
)

// Strategy selects how a search is dispatched across providers
type Strategy int

const (
	// Failover tries providers in order until one succeeds
	Failover Strategy = iota
	// LoadBalance sends each search to exactly one provider, round robin
	LoadBalance
	// Aggregate queries every provider and merges the successes
	Aggregate
	// Race queries providers concurrently and keeps the first success
	Race
)

var strategyNames = map[Strategy]string{
	Failover:    "failover",
	LoadBalance: "load-balance",
	Aggregate:   "aggregate",
	Race:        "race",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

func (s Strategy) valid() bool {
	_, ok := strategyNames[s]
	return ok
}

// ParseStrategy converts a user supplied strategy name
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "failover", "":
		return Failover, nil
	case "load-balance", "load_balance", "loadbalance":
		return LoadBalance, nil
	case "aggregate":
		return Aggregate, nil
	case "race", "race-first", "race_first":
		return Race, nil
	}
	return Failover, &ConfigError{Field: "strategy", Message: fmt.Sprintf("unknown strategy %q", s)}
}

func (s Strategy) MarshalText() ([]byte, error) {
	if !s.valid() {
		return nil, &ConfigError{Field: "strategy", Message: fmt.Sprintf("unknown strategy %d", int(s))}
	}
	return []byte(s.String()), nil
}

func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
