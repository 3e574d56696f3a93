/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/tomoncle/sqlkit/utils"
)

const loggerName = "SQLKIT"

// Logger receives client and script runner events. Fields are alternating
// key/value pairs.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

var (
	packageLogger   Logger
	packageLoggerMu sync.RWMutex
)

// SetPackageLogger replaces the logger handed to clients and script runners
// created afterwards. A nil logger restores the logrus default.
func SetPackageLogger(l Logger) {
	packageLoggerMu.Lock()
	defer packageLoggerMu.Unlock()
	packageLogger = l
}

// GetLogger returns the package logger, creating the "SQLKIT" logrus
// logger on first use.
func GetLogger() Logger {
	packageLoggerMu.RLock()
	l := packageLogger
	packageLoggerMu.RUnlock()
	if l != nil {
		return l
	}

	packageLoggerMu.Lock()
	defer packageLoggerMu.Unlock()
	if packageLogger == nil {
		packageLogger = NewDefaultLogger(loggerName)
	}
	return packageLogger
}

// DefaultLogger turns key/value pairs into logrus fields on a named utils
// logger, so both the console and JSON formats render them.
type DefaultLogger struct {
	logger *utils.Logger
}

func NewDefaultLogger(name string) *DefaultLogger {
	return &DefaultLogger{logger: utils.NewLogger(name)}
}

func (l *DefaultLogger) Debug(msg string, fields ...interface{}) { l.with(fields).Debug(msg) }
func (l *DefaultLogger) Info(msg string, fields ...interface{})  { l.with(fields).Info(msg) }
func (l *DefaultLogger) Warn(msg string, fields ...interface{})  { l.with(fields).Warn(msg) }
func (l *DefaultLogger) Error(msg string, fields ...interface{}) { l.with(fields).Error(msg) }

func (l *DefaultLogger) with(fields []interface{}) *logrus.Entry {
	return l.logger.WithFields(logFields(fields))
}

// logFields pairs up keys and values. A dangling key is kept under
// "!BADKEY".
func logFields(kv []interface{}) logrus.Fields {
	fields := make(logrus.Fields, (len(kv)+1)/2)
	for i := 0; i < len(kv); i += 2 {
		if i+1 == len(kv) {
			fields["!BADKEY"] = kv[i]
			break
		}
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return fields
}
