// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package module

import (
	"encoding/json"
	"io"

	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/de"
	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/logging"
)

// Debug carries the client log captured when debug is enabled.
type Debug struct {
	SdkOut      string   `json:"sdk_out"`
	SdkOutLines []string `json:"sdk_out_lines"`
}

func debugFrom(captured *logging.Captured) *Debug {
	if captured == nil {
		return nil
	}
	return &Debug{SdkOut: captured.Out, SdkOutLines: captured.Lines}
}

// ServiceResult is the de module output. Service is an empty object when no
// descriptor is available.
type ServiceResult struct {
	Changed  bool        `json:"changed"`
	Service  interface{} `json:"service"`
	Warnings []string    `json:"warnings"`
	*Debug
}

// InfoResult is the de_info module output.
type InfoResult struct {
	Changed  bool         `json:"changed"`
	Services []de.Service `json:"services"`
	*Debug
}

// Failure is written instead of a result when a run fails.
type Failure struct {
	Failed   bool     `json:"failed"`
	Msg      string   `json:"msg"`
	Warnings []string `json:"warnings,omitempty"`
	*Debug

	err error
}

func (f *Failure) Error() string { return f.Msg }

func (f *Failure) Unwrap() error { return f.err }

// Fail builds a Failure from err.
func Fail(err error, captured *logging.Captured, warnings []string) *Failure {
	return &Failure{
		Failed:   true,
		Msg:      err.Error(),
		Warnings: warnings,
		Debug:    debugFrom(captured),
		err:      err,
	}
}

// Exit writes v as the module's JSON result.
func Exit(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	return enc.Encode(v)
}
