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
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"
)

const (
	defaultScriptRoot = "configs/sql"
	commonScriptDir   = "common"
	defaultFileOrder  = 999
)

var fileOrderPattern = regexp.MustCompile(`^(\d+)_`)

// ScriptRunner executes the .sql files under <root>/common followed by
// <root>/environments/<environment>. Files run in ascending numeric prefix
// order ("010_users.sql"), each one inside its own transaction. File
// contents are rendered as text/template with the process environment,
// ENVIRONMENT and TIMESTAMP as data.
type ScriptRunner struct {
	client      *Client
	environment string
	root        string
	logger      Logger
}

// SQLFileInfo describes a SQL file to be executed.
type SQLFileInfo struct {
	Path        string    `json:"path"`
	Name        string    `json:"name"`
	Order       int       `json:"order"`
	Environment string    `json:"environment"`
	ModTime     time.Time `json:"mod_time"`
}

// ExecutionResult contains the outcome of executing a single SQL file.
type ExecutionResult struct {
	File         string        `json:"file"`
	Success      bool          `json:"success"`
	Error        error         `json:"-"`
	Statements   int           `json:"statements"`
	Duration     time.Duration `json:"duration"`
	RowsAffected int64         `json:"rows_affected"`
}

func NewScriptRunner(client *Client, environment string) *ScriptRunner {
	return &ScriptRunner{
		client:      client,
		environment: environment,
		root:        defaultScriptRoot,
		logger:      GetLogger(),
	}
}

// SetRoot sets the directory from which SQL files are loaded.
func (s *ScriptRunner) SetRoot(path string) {
	s.root = path
}

// Run executes every discovered file and stops at the first failure. The
// results of the files attempted so far are returned either way.
func (s *ScriptRunner) Run(ctx context.Context) ([]ExecutionResult, error) {
	s.logger.Info("Starting SQL initialization", "environment", s.environment, "sql_path", s.root)

	files, err := s.Files()
	if err != nil {
		return nil, fmt.Errorf("failed to get SQL files: %w", err)
	}
	if len(files) == 0 {
		s.logger.Info("No SQL files found to execute")
		return nil, nil
	}

	EnableQuerySilent(true)
	defer EnableQuerySilent(false)

	results := make([]ExecutionResult, 0, len(files))
	for _, file := range files {
		result := s.executeFile(ctx, file)
		results = append(results, result)

		if !result.Success {
			s.logger.Error("SQL file execution failed", "file", result.File, "error", result.Error)
			return results, fmt.Errorf("SQL file execution failed %s: %w", result.File, result.Error)
		}
		s.logger.Info("SQL file executed successfully",
			"file", result.File,
			"duration", result.Duration.String(),
			"rows_affected", result.RowsAffected,
		)
	}

	s.logger.Info("SQL initialization completed", "total_files", len(results), "environment", s.environment)
	return results, nil
}

// Files returns the SQL files from the common and environment directories
// in execution order. Missing directories contribute no files.
func (s *ScriptRunner) Files() ([]SQLFileInfo, error) {
	commonFiles, err := getFilesFromDir(filepath.Join(s.root, commonScriptDir), commonScriptDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get common SQL files: %w", err)
	}
	envFiles, err := getFilesFromDir(filepath.Join(s.root, "environments", s.environment), s.environment)
	if err != nil {
		return nil, fmt.Errorf("failed to get environment SQL files: %w", err)
	}

	byOrder := func(files []SQLFileInfo) {
		sort.SliceStable(files, func(i, j int) bool {
			if files[i].Order != files[j].Order {
				return files[i].Order < files[j].Order
			}
			return files[i].Name < files[j].Name
		})
	}
	byOrder(commonFiles)
	byOrder(envFiles)
	return append(commonFiles, envFiles...), nil
}

func getFilesFromDir(dir, environment string) ([]SQLFileInfo, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	var files []SQLFileInfo
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".sql") {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, SQLFileInfo{
			Path:        path,
			Name:        d.Name(),
			Order:       parseFileOrder(d.Name()),
			Environment: environment,
			ModTime:     info.ModTime(),
		})
		return nil
	})
	return files, err
}

func parseFileOrder(filename string) int {
	matches := fileOrderPattern.FindStringSubmatch(filename)
	if len(matches) > 1 {
		if order, err := strconv.Atoi(matches[1]); err == nil {
			return order
		}
	}
	return defaultFileOrder
}

func (s *ScriptRunner) executeFile(ctx context.Context, file SQLFileInfo) (result ExecutionResult) {
	start := time.Now()
	result.File = file.Path
	defer func() { result.Duration = time.Since(start) }()

	content, err := os.ReadFile(file.Path)
	if err != nil {
		result.Error = fmt.Errorf("failed to read file: %w", err)
		return result
	}
	rendered, err := s.replaceEnvVariables(string(content))
	if err != nil {
		result.Error = err
		return result
	}

	statements := splitSQLStatements(rendered)
	if len(statements) == 0 {
		result.Success = true
		return result
	}

	err = s.client.Transaction(ctx, func(ctx context.Context, conn *Connection) error {
		var totalRowsAffected int64
		for _, stmt := range statements {
			res, execErr := conn.Execute(ctx, stmt)
			if execErr != nil {
				return fmt.Errorf("failed to execute SQL statement: %s, error: %w", stmt, execErr)
			}
			totalRowsAffected += res.AffectedRows
		}
		result.RowsAffected = totalRowsAffected
		return nil
	})
	if err != nil {
		result.Error = err
		return result
	}
	result.Statements = len(statements)
	result.Success = true
	return result
}

func (s *ScriptRunner) replaceEnvVariables(content string) (string, error) {
	if !strings.Contains(content, "{{") {
		return content, nil
	}
	tmpl, err := template.New("sql").Option("missingkey=zero").Parse(content)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	envVars := make(map[string]string)
	for _, env := range os.Environ() {
		if key, value, ok := strings.Cut(env, "="); ok {
			envVars[key] = value
		}
	}
	envVars["ENVIRONMENT"] = s.environment
	envVars["TIMESTAMP"] = time.Now().Format("2006-01-02 15:04:05")

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, envVars); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

// splitSQLStatements splits on lines ending with ';'. Blank lines and "--"
// comment lines are dropped. Lines have no length limit.
func splitSQLStatements(content string) []string {
	var statements []string
	var current strings.Builder

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}

		current.WriteString(line)
		current.WriteString(" ")

		if strings.HasSuffix(line, ";") {
			if stmt := strings.TrimSpace(current.String()); stmt != "" {
				statements = append(statements, stmt)
			}
			current.Reset()
		}
	}

	if stmt := strings.TrimSpace(current.String()); stmt != "" {
		statements = append(statements, stmt)
	}
	return statements
}
