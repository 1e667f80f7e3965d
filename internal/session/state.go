package session

import "time"

// State is a map session's lifecycle stage.
type State int

const (
	Idle State = iota
	WaitingForSdk
	ConstructingMap
	Settling
	Ready
	Failed
)

var stateNames = [...]string{
	Idle:            "Idle",
	WaitingForSdk:   "WaitingForSdk",
	ConstructingMap: "ConstructingMap",
	Settling:        "Settling",
	Ready:           "Ready",
	Failed:          "Failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// Active reports whether the state is a non-terminal step of a started session.
func (s State) Active() bool {
	return s == WaitingForSdk || s == ConstructingMap || s == Settling
}

// Session is a snapshot of one attempt to stand up a map.
type Session struct {
	ID    string
	State State
	// AttemptCount is the number of SDK readiness retries run.
	AttemptCount int
	MaxAttempts  int
	// GeometryAttempts is the number of container measurements taken in ConstructingMap.
	GeometryAttempts int
	// LastError is set only in Failed.
	LastError error
	// Since is when the session entered State.
	Since time.Time
}

// Listener observes transitions. It runs synchronously on the loop.
type Listener func(prev, next Session)

// Config bounds the session's retries and delays.
type Config struct {
	// MaxAttempts bounds SDK readiness polling.
	MaxAttempts  int
	PollInterval time.Duration
	// LoadTimeout bounds the wait for the SDK's load callback once its namespace is present.
	// Zero means MaxAttempts × PollInterval.
	LoadTimeout time.Duration
	// GeometryAttempts bounds container measurements; zero means MaxAttempts.
	GeometryAttempts      int
	GeometryRetryInterval time.Duration
	// FallbackWidth and FallbackHeight are forced onto a zero-size container before retrying.
	FallbackWidth  int
	FallbackHeight int
	SettleDelay    time.Duration
	MaxLevel       int
}

// DefaultConfig is the retry policy shared by every map view.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:           10,
		PollInterval:          500 * time.Millisecond,
		LoadTimeout:           5 * time.Second,
		GeometryAttempts:      10,
		GeometryRetryInterval: 100 * time.Millisecond,
		FallbackWidth:         360,
		FallbackHeight:        400,
		SettleDelay:           300 * time.Millisecond,
		MaxLevel:              14,
	}
}

func (c Config) geometryAttempts() int {
	if c.GeometryAttempts > 0 {
		return c.GeometryAttempts
	}
	if c.MaxAttempts > 0 {
		return c.MaxAttempts
	}
	return 1
}

func (c Config) loadTimeout() time.Duration {
	if c.LoadTimeout > 0 {
		return c.LoadTimeout
	}
	if d := time.Duration(c.MaxAttempts) * c.PollInterval; d > 0 {
		return d
	}
	return c.PollInterval
}
