// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package env maps environment variables onto command flags. A flag
// --some-flag of command build is read from FASTPEG_BUILD_SOME_FLAG; flags
// of the root command are read from FASTPEG_<FLAG>.
package env

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Prefix is the environment variable prefix of every command.
const Prefix = "fastpeg"

const errorMessagePrefix = "error mapping environment variables to command flags"

// Prefixed returns the environment prefix of command.
func Prefixed(command *cobra.Command) string {
	if !command.HasParent() {
		return Prefix
	}
	return Prefix + "_" + command.Name()
}

// CheckEnvironmentVariables sets every flag of command that was not given
// on the command line from its environment variable, if that is set.
func CheckEnvironmentVariables(command *cobra.Command) error {
	v := viper.New()
	v.SetEnvPrefix(Prefixed(command))
	v.AutomaticEnv()

	var errs []string
	command.Flags().VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if f.Changed || !v.IsSet(key) {
			return
		}
		if err := command.Flags().Set(f.Name, fmt.Sprint(v.Get(key))); err != nil {
			errs = append(errs, err.Error())
		}
	})

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s: %s", errorMessagePrefix, strings.Join(errs, "; "))
}

// Variable returns the environment variable that sets flag of command.
func Variable(command *cobra.Command, flag string) string {
	return strings.ToUpper(Prefixed(command) + "_" + strings.ReplaceAll(flag, "-", "_"))
}
