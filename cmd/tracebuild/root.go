// Copyright 2011 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:           "tracebuild [files...]",
	Short:         "Auto-discovering incremental build engine for document pipelines",
	Long:          "tracebuild drives a dependency graph discovered from strace output to a fixed point, rerunning only what a changed file actually influences.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runBuild,
}

// Execute runs the root command and returns the process exit code,
// mirroring spec.md §6's exit codes rather than cobra's own
// success/failure boolean.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return exitCode
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.Flags()
	flags.StringP("log", "l", "", "path of the trace/output log (default autotex.log)")
	flags.Bool("append_log", false, "append to the log instead of truncating it")
	flags.StringP("config", "c", "", "path to a YAML config file")
	flags.BoolP("continuously", "e", false, "watch basedir and rebuild on change")
	flags.StringP("state", "s", "", "path to the persisted graph state (default .autotex.state)")
	flags.BoolP("verbose", "v", false, "debug printing")

	viper.BindPFlag("log", flags.Lookup("log"))
	viper.BindPFlag("append_log", flags.Lookup("append_log"))
	viper.BindPFlag("continuously", flags.Lookup("continuously"))
	viper.BindPFlag("state", flags.Lookup("state"))
	viper.BindPFlag("verbose", flags.Lookup("verbose"))
}

// initConfig arms viper's flag/env layer, following the common
// cobra.OnInitialize(initConfig) pattern; the layered-merge work itself
// (defaults -> config file -> overrides) belongs to internal/config, not
// to viper. SetEnvPrefix plus AutomaticEnv makes TRACEBUILD_LOG,
// TRACEBUILD_APPEND_LOG, etc. resolve through the same bound keys
// flagOverrides reads back in build.go.
func initConfig() {
	viper.SetEnvPrefix("tracebuild")
	viper.AutomaticEnv()
}
