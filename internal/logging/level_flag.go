// File: internal/logging/level_flag.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package logging

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var levelStrings = map[string]zapcore.Level{
	"debug": zap.DebugLevel,
	"info":  zap.InfoLevel,
	"error": zap.ErrorLevel,
}

// LevelFlagValue is a pflag.Value that applies the parsed level on Set.
type LevelFlagValue struct {
	onLevelAvailable func(zapcore.Level)
	value            string
}

func NewLevelFlagValue(onLevelAvailable func(zapcore.Level)) LevelFlagValue {
	return LevelFlagValue{onLevelAvailable: onLevelAvailable}
}

// StringToLevel parses a named level or a positive verbosity number.
// logr V(n) maps to zap level -n.
func StringToLevel(value string, defaultLevel zapcore.Level) (zapcore.Level, error) {
	if level, named := levelStrings[strings.ToLower(value)]; named {
		return level, nil
	}

	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return defaultLevel, fmt.Errorf("invalid log level %q", value)
	}
	return zapcore.Level(int8(-n)), nil
}

func (lfv *LevelFlagValue) Set(flagValue string) error {
	level, err := StringToLevel(flagValue, zapcore.InfoLevel)
	if err != nil {
		return err
	}
	lfv.onLevelAvailable(level)
	lfv.value = flagValue
	return nil
}

func (lfv *LevelFlagValue) String() string {
	return lfv.value
}

func (*LevelFlagValue) Type() string {
	return "level"
}
