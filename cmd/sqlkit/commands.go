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

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tomoncle/sqlkit/builder"
	"github.com/tomoncle/sqlkit/database"
)

var renderDialect string

var renderCmd = &cobra.Command{
	Use:   "render SQL [PARAM...]",
	Short: "Interpolate parameters into a SQL string",
	Long: `Replace each ? placeholder in SQL with the matching parameter, quoted
for the chosen dialect. Parameters follow YAML scalar rules, so 42 is a
number, true a boolean and null is NULL. No connection is opened.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRender,
}

var queryCmd = &cobra.Command{
	Use:   "query SQL [PARAM...]",
	Short: "Run a query and print the rows",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuery,
}

var execCmd = &cobra.Command{
	Use:   "exec SQL [PARAM...]",
	Short: "Run a statement and print affected rows and last insert id",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runExec,
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Run a health check against the database",
	Args:  cobra.NoArgs,
	RunE:  runPing,
}

var (
	scriptsEnv    string
	scriptsRoot   string
	scriptsDryRun bool
)

var scriptsCmd = &cobra.Command{
	Use:   "scripts",
	Short: "Apply SQL script directories",
	Long: `Execute <root>/common/*.sql followed by <root>/environments/<env>/*.sql.
Files run in numeric prefix order, each inside its own transaction. The
first failing file stops the run.`,
	Args: cobra.NoArgs,
	RunE: runScripts,
}

func init() {
	renderCmd.Flags().StringVarP(&renderDialect, "dialect", "d", "mysql", "dialect used for quoting: mysql, postgres or sqlite")

	scriptsCmd.Flags().StringVarP(&scriptsEnv, "env", "e", "prod", "environment directory to apply after common")
	scriptsCmd.Flags().StringVar(&scriptsRoot, "root", "configs/sql", "script root directory")
	scriptsCmd.Flags().BoolVar(&scriptsDryRun, "dry-run", false, "list the files that would run without connecting")
}

func runRender(cmd *cobra.Command, args []string) error {
	dialect, err := builder.ParseDialect(renderDialect)
	if err != nil {
		return err
	}
	params, err := parseParams(args[1:])
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), builder.ReplaceParamsFor(dialect, args[0], params...))
	return err
}

func runQuery(cmd *cobra.Command, args []string) error {
	params, err := parseParams(args[1:])
	if err != nil {
		return err
	}
	return withClient(cmd, func(ctx context.Context, client *database.Client) error {
		rows, err := client.Query(ctx, args[0], params...)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), outputFormat, rows)
	})
}

func runExec(cmd *cobra.Command, args []string) error {
	params, err := parseParams(args[1:])
	if err != nil {
		return err
	}
	return withClient(cmd, func(ctx context.Context, client *database.Client) error {
		result, err := client.Execute(ctx, args[0], params...)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), outputFormat, result)
	})
}

func runPing(cmd *cobra.Command, _ []string) error {
	return withClient(cmd, func(ctx context.Context, client *database.Client) error {
		status := client.HealthCheck(ctx)
		if err := writeOutput(cmd.OutOrStdout(), outputFormat, status); err != nil {
			return err
		}
		if !status.Healthy {
			return fmt.Errorf("database unhealthy: %s", status.LastError)
		}
		return nil
	})
}

// scriptResult is the printable form of database.ExecutionResult.
type scriptResult struct {
	database.ExecutionResult
	Error string `json:"error,omitempty"`
}

func runScripts(cmd *cobra.Command, _ []string) error {
	if scriptsDryRun {
		runner := database.NewScriptRunner(nil, scriptsEnv)
		runner.SetRoot(scriptsRoot)
		files, err := runner.Files()
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), outputFormat, files)
	}

	return withClient(cmd, func(ctx context.Context, client *database.Client) error {
		runner := database.NewScriptRunner(client, scriptsEnv)
		runner.SetRoot(scriptsRoot)
		results, runErr := runner.Run(ctx)

		out := make([]scriptResult, 0, len(results))
		for _, r := range results {
			sr := scriptResult{ExecutionResult: r}
			if r.Error != nil {
				sr.Error = r.Error.Error()
			}
			out = append(out, sr)
		}
		if err := writeOutput(cmd.OutOrStdout(), outputFormat, out); err != nil {
			return err
		}
		return runErr
	})
}
