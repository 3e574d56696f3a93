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

// Command sqlkit is a small command line front end for the sqlkit
// database client: it renders parameterised SQL, runs ad hoc queries and
// statements, checks connectivity and applies SQL script directories.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tomoncle/sqlkit/utils"
)

var (
	configFile   string
	outputFormat string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "sqlkit",
	Short: "Render and run SQL against MySQL, PostgreSQL or SQLite",
	Long: `sqlkit drives the sqlkit database client from the shell.

Connection settings come from a YAML file (--config), SQLKIT_* environment
variables and the connection flags, in increasing order of precedence.

Available commands:
  render  - interpolate parameters into a SQL string
  query   - run a SELECT and print the rows
  exec    - run a statement and print the affected rows
  ping    - run a health check
  scripts - apply <root>/common and <root>/environments/<env> SQL files`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// stdout carries command output only.
		utils.SetOutput(cmd.ErrOrStderr())
		if logLevel != "" {
			utils.ConfigureLogLevel(logLevel)
		}
		switch outputFormat {
		case formatJSON, formatYAML:
			return nil
		default:
			return fmt.Errorf("unsupported output format %q (want %s or %s)", outputFormat, formatJSON, formatYAML)
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "path to a YAML connection config")
	flags.StringVarP(&outputFormat, "output", "o", formatJSON, "output format: json or yaml")
	flags.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.String("type", "", "database type: mysql, postgres or sqlite")
	flags.String("host", "", "database host")
	flags.Int("port", 0, "database port")
	flags.String("username", "", "database user")
	flags.String("password", "", "database password")
	flags.String("dbname", "", "database name, or file path for sqlite")

	rootCmd.AddCommand(renderCmd, queryCmd, execCmd, pingCmd, scriptsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
