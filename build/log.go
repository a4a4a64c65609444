package build

import (
	"fmt"
	"sort"
	"strings"

	"github.com/btcsuite/btclog/v2"
)

// NewSubLogger constructs a new subsystem logger using the given generator
// function. If no generator is provided, logging for the subsystem is
// disabled until a logger is installed via the package's UseLogger function.
func NewSubLogger(subsystem string,
	genSubLogger func(string) btclog.Logger) btclog.Logger {

	if genSubLogger != nil {
		return genSubLogger(subsystem)
	}

	return btclog.Disabled
}

// SubLoggers is a type that holds a map of subsystem loggers keyed by their
// subsystem name.
type SubLoggers map[string]btclog.Logger

// LeveledSubLogger provides the ability to retrieve the subsystem loggers of
// a logger and set their log levels individually or all at once.
type LeveledSubLogger interface {
	// SubLoggers returns the map of all registered subsystem loggers.
	SubLoggers() SubLoggers

	// SupportedSubsystems returns a slice of strings containing the names
	// of the supported subsystems, sorted.
	SupportedSubsystems() []string

	// SetLogLevel assigns an individual subsystem logger a new log level.
	SetLogLevel(subsystemID string, logLevel string)

	// SetLogLevels assigns all subsystem loggers the same new log level.
	SetLogLevels(logLevel string)
}

// Manager dispenses subsystem loggers that all share a single log handler and
// keeps track of them so their levels can be adjusted at run time. It
// implements the LeveledSubLogger interface.
type Manager struct {
	handler btclog.Handler
	loggers SubLoggers
}

// NewManager creates a new logger Manager writing through the given handler.
func NewManager(handler btclog.Handler) *Manager {
	return &Manager{
		handler: handler,
		loggers: make(SubLoggers),
	}
}

// GenSubLogger returns a new subsystem logger backed by the manager's
// handler, registering it so its level can be changed later. It is meant to
// be passed to NewSubLogger as the generator function.
func (m *Manager) GenSubLogger(subsystem string) btclog.Logger {
	logger := btclog.NewSLogger(m.handler).SubSystem(subsystem)
	m.loggers[subsystem] = logger

	return logger
}

// SubLoggers returns all currently registered subsystem loggers.
//
// NOTE: Part of the LeveledSubLogger interface.
func (m *Manager) SubLoggers() SubLoggers {
	return m.loggers
}

// SupportedSubsystems returns a sorted slice of registered subsystem names.
//
// NOTE: Part of the LeveledSubLogger interface.
func (m *Manager) SupportedSubsystems() []string {
	subsystems := make([]string, 0, len(m.loggers))
	for subsystem := range m.loggers {
		subsystems = append(subsystems, subsystem)
	}
	sort.Strings(subsystems)

	return subsystems
}

// SetLogLevel assigns the given subsystem logger a new log level, if the
// level parses.
//
// NOTE: Part of the LeveledSubLogger interface.
func (m *Manager) SetLogLevel(subsystemID string, logLevel string) {
	logger, ok := m.loggers[subsystemID]
	if !ok {
		return
	}

	level, _ := btclog.LevelFromString(logLevel)
	logger.SetLevel(level)
}

// SetLogLevels assigns all registered subsystem loggers the same log level.
//
// NOTE: Part of the LeveledSubLogger interface.
func (m *Manager) SetLogLevels(logLevel string) {
	level, _ := btclog.LevelFromString(logLevel)
	for _, logger := range m.loggers {
		logger.SetLevel(level)
	}
}

// ParseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly on the given logger. An appropriate error is
// returned if anything is invalid.
func ParseAndSetDebugLevels(level string, logger LeveledSubLogger) error {
	// Split at the delimiter.
	levels := strings.Split(level, ",")
	if len(levels) == 0 {
		return fmt.Errorf("invalid log level: %v", level)
	}

	// If the first entry has no =, treat it as the log level for all
	// subsystems.
	globalLevel := levels[0]
	if !strings.Contains(globalLevel, "=") {
		if !validLogLevel(globalLevel) {
			return fmt.Errorf("the specified debug level [%v] "+
				"is invalid", globalLevel)
		}

		logger.SetLogLevels(globalLevel)

		// The rest will target specific subsystems.
		levels = levels[1:]
	}

	// Go through the subsystem/level pairs while detecting issues and
	// update the log levels accordingly.
	for _, logLevelPair := range levels {
		fields := strings.Split(logLevelPair, "=")
		if len(fields) != 2 {
			return fmt.Errorf("the specified debug level has an "+
				"invalid format [%v] -- use format "+
				"subsystem1=level1,subsystem2=level2",
				logLevelPair)
		}
		subsysID, logLevel := fields[0], fields[1]

		if _, exists := logger.SubLoggers()[subsysID]; !exists {
			return fmt.Errorf("the specified subsystem [%v] is "+
				"invalid -- supported subsystems are %v",
				subsysID, logger.SupportedSubsystems())
		}

		if !validLogLevel(logLevel) {
			return fmt.Errorf("the specified debug level [%v] "+
				"is invalid", logLevel)
		}

		logger.SetLogLevel(subsysID, logLevel)
	}

	return nil
}

// validLogLevel returns whether or not logLevel is a valid debug log level.
func validLogLevel(logLevel string) bool {
	switch logLevel {
	case "trace", "debug", "info", "warn", "error", "critical", "off":
		return true
	}

	return false
}
