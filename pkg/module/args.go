// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package module

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/config"
	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/de"
	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/info"
	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/reconcile"
)

// ErrInvalidArgs wraps every argument validation failure.
var ErrInvalidArgs = errors.New("invalid module arguments")

type kind int

const (
	kindString kind = iota
	kindInt
	kindBool
	kindList
	kindDict
)

func (k kind) String() string {
	switch k {
	case kindInt:
		return "int"
	case kindBool:
		return "bool"
	case kindList:
		return "list"
	case kindDict:
		return "dict"
	default:
		return "str"
	}
}

// param describes one module argument.
type param struct {
	name     string
	aliases  []string
	kind     kind
	required bool
	def      interface{}
	choices  []string
}

var commonParams = []param{
	{name: "verify_tls", aliases: []string{"tls"}, kind: kindBool, def: true},
	{name: "debug", aliases: []string{"debug_endpoints"}, kind: kindBool, def: false},
	{name: "profile", kind: kindString},
	{name: "endpoint", kind: kindString},
	{name: "region", kind: kindString},
	{name: "agent_header", kind: kindString},
}

var serviceParams = append([]param{
	{name: "name", kind: kindString, required: true},
	{name: "environment", aliases: []string{"env"}, kind: kindString, required: true},
	{name: "instance_type", kind: kindString, required: true},
	{name: "minimum_instances", kind: kindInt, required: true},
	{name: "maximum_instances", kind: kindInt, required: true},
	{name: "minimum_spot_instances", kind: kindInt, def: 0},
	{name: "maximum_spot_instances", kind: kindInt, def: 0},
	{name: "chart_value_overrides", kind: kindList},
	{name: "enable_public_endpoint", kind: kindBool, def: false},
	{name: "enable_workload_analytics", kind: kindBool, def: false},
	{name: "initial_instances", kind: kindInt},
	{name: "initial_spot_instances", kind: kindInt},
	{name: "root_volume_size", kind: kindInt},
	{name: "skip_validation", kind: kindBool, def: false},
	{name: "tags", kind: kindDict},
	{name: "use_ssd", kind: kindBool, def: false},
	{name: "whitelist_ips", kind: kindList},
	{name: "force", aliases: []string{"force_delete"}, kind: kindBool, def: false},
	{name: "state", kind: kindString, def: "present", choices: []string{"present", "absent"}},
	{name: "wait", kind: kindBool, def: true},
	{name: "delay", aliases: []string{"polling_delay"}, kind: kindInt, def: 60},
	{name: "timeout", aliases: []string{"polling_timeout"}, kind: kindInt, def: 7200},
}, commonParams...)

var infoParams = append([]param{
	{name: "name", aliases: []string{"workspace", "service"}, kind: kindString},
	{name: "environment", aliases: []string{"env"}, kind: kindString},
}, commonParams...)

// CommonArgs are accepted by every module.
type CommonArgs struct {
	VerifyTLS   bool   `json:"verify_tls"`
	Debug       bool   `json:"debug"`
	Profile     string `json:"profile"`
	Endpoint    string `json:"endpoint"`
	Region      string `json:"region"`
	AgentHeader string `json:"agent_header"`

	CheckMode bool `json:"-"`
}

// Apply overlays the connection arguments onto cfg.
func (a *CommonArgs) Apply(cfg *config.Config) {
	if a.Profile != "" {
		cfg.Profile = a.Profile
	}
	if a.Endpoint != "" {
		cfg.Endpoint = a.Endpoint
	}
	if a.Region != "" {
		cfg.Region = a.Region
	}
	if a.AgentHeader != "" {
		cfg.AgentHeader = a.AgentHeader
	}
	verify := a.VerifyTLS
	cfg.VerifyTLS = &verify
}

// ServiceArgs are the arguments of the de module.
type ServiceArgs struct {
	CommonArgs

	Name                    string                  `json:"name"`
	Environment             string                  `json:"environment"`
	InstanceType            string                  `json:"instance_type"`
	MinimumInstances        int                     `json:"minimum_instances"`
	MaximumInstances        int                     `json:"maximum_instances"`
	MinimumSpotInstances    int                     `json:"minimum_spot_instances"`
	MaximumSpotInstances    int                     `json:"maximum_spot_instances"`
	ChartValueOverrides     []de.ChartValueOverride `json:"chart_value_overrides"`
	EnablePublicEndpoint    bool                    `json:"enable_public_endpoint"`
	EnableWorkloadAnalytics bool                    `json:"enable_workload_analytics"`
	InitialInstances        *int                    `json:"initial_instances"`
	InitialSpotInstances    *int                    `json:"initial_spot_instances"`
	RootVolumeSize          *int                    `json:"root_volume_size"`
	SkipValidation          bool                    `json:"skip_validation"`
	Tags                    map[string]string       `json:"tags"`
	UseSsd                  bool                    `json:"use_ssd"`
	WhitelistIps            []string                `json:"whitelist_ips"`
	Force                   bool                    `json:"force"`
	State                   string                  `json:"state"`
	Wait                    bool                    `json:"wait"`
	Delay                   int                     `json:"delay"`
	Timeout                 int                     `json:"timeout"`
}

// Request converts the arguments into a reconciliation request.
func (a *ServiceArgs) Request() reconcile.Request {
	return reconcile.Request{
		Service: de.EnableRequest{
			Name:                    a.Name,
			Environment:             a.Environment,
			InstanceType:            a.InstanceType,
			MinimumInstances:        a.MinimumInstances,
			MaximumInstances:        a.MaximumInstances,
			MinimumSpotInstances:    a.MinimumSpotInstances,
			MaximumSpotInstances:    a.MaximumSpotInstances,
			ChartValueOverrides:     a.ChartValueOverrides,
			EnablePublicEndpoint:    a.EnablePublicEndpoint,
			EnableWorkloadAnalytics: a.EnableWorkloadAnalytics,
			InitialInstances:        a.InitialInstances,
			InitialSpotInstances:    a.InitialSpotInstances,
			RootVolumeSize:          a.RootVolumeSize,
			SkipValidation:          a.SkipValidation,
			Tags:                    a.Tags,
			UseSsd:                  a.UseSsd,
			WhitelistIps:            a.WhitelistIps,
		},
		State: reconcile.DesiredState(a.State),
		Force: a.Force,
		Wait:  a.Wait,
		Poll: reconcile.PollConfig{
			Delay:   time.Duration(a.Delay) * time.Second,
			Timeout: time.Duration(a.Timeout) * time.Second,
		},
	}
}

// InfoArgs are the arguments of the de_info module.
type InfoArgs struct {
	CommonArgs

	Name        string `json:"name"`
	Environment string `json:"environment"`
}

func (a *InfoArgs) Query() info.Query {
	return info.Query{Name: a.Name, Environment: a.Environment}
}

func ParseServiceArgs(data []byte) (*ServiceArgs, error) {
	var args ServiceArgs
	if err := parse(data, serviceParams, &args, &args.CommonArgs); err != nil {
		return nil, err
	}
	return &args, nil
}

func ParseInfoArgs(data []byte) (*InfoArgs, error) {
	var args InfoArgs
	if err := parse(data, infoParams, &args, &args.CommonArgs); err != nil {
		return nil, err
	}
	return &args, nil
}

// ReadArgsFile reads the JSON arguments file handed to binary modules.
func ReadArgsFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read module arguments %s: %w", path, err)
	}
	return data, nil
}

func parse(data []byte, params []param, out interface{}, common *CommonArgs) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var in map[string]interface{}
	if err := dec.Decode(&in); err != nil {
		return fmt.Errorf("%w: arguments are not a JSON object: %v", ErrInvalidArgs, err)
	}

	resolved, checkMode, err := resolve(in, params)
	if err != nil {
		return err
	}

	encoded, err := json.Marshal(resolved)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(encoded, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}
	common.CheckMode = checkMode
	return nil
}

// resolve maps aliases onto canonical names, applies defaults and converts
// values to the declared kinds.
func resolve(in map[string]interface{}, params []param) (map[string]interface{}, bool, error) {
	known := map[string]bool{}
	for _, p := range params {
		known[p.name] = true
		for _, a := range p.aliases {
			known[a] = true
		}
	}

	var unsupported []string
	checkMode := false
	for key, value := range in {
		if strings.HasPrefix(key, "_ansible_") {
			if key == "_ansible_check_mode" {
				checkMode, _ = toBool(value)
			}
			continue
		}
		if !known[key] {
			unsupported = append(unsupported, key)
		}
	}
	if len(unsupported) > 0 {
		sort.Strings(unsupported)
		return nil, false, fmt.Errorf("%w: unsupported parameters: %s", ErrInvalidArgs, strings.Join(unsupported, ", "))
	}

	out := map[string]interface{}{}
	var missing []string
	var errs []error

	for _, p := range params {
		value, ok := lookup(in, p)
		if !ok {
			if p.required {
				missing = append(missing, p.name)
			} else if p.def != nil {
				out[p.name] = p.def
			}
			continue
		}

		converted, err := convert(value, p.kind)
		if err != nil {
			errs = append(errs, fmt.Errorf("argument %s is of type %T and we were unable to convert to %s: %v", p.name, value, p.kind, err))
			continue
		}
		if len(p.choices) > 0 && !slices.Contains(p.choices, converted.(string)) {
			errs = append(errs, fmt.Errorf("value of %s must be one of: %s, got: %v", p.name, strings.Join(p.choices, ", "), converted))
			continue
		}
		out[p.name] = converted
	}

	if len(missing) > 0 {
		errs = append([]error{fmt.Errorf("missing required arguments: %s", strings.Join(missing, ", "))}, errs...)
	}
	if len(errs) > 0 {
		return nil, false, fmt.Errorf("%w: %w", ErrInvalidArgs, errors.Join(errs...))
	}
	return out, checkMode, nil
}

func lookup(in map[string]interface{}, p param) (interface{}, bool) {
	for _, key := range append([]string{p.name}, p.aliases...) {
		if v, ok := in[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func convert(value interface{}, k kind) (interface{}, error) {
	switch k {
	case kindInt:
		return toInt(value)
	case kindBool:
		return toBool(value)
	case kindList:
		if _, ok := value.([]interface{}); !ok {
			return nil, errors.New("not a list")
		}
		return value, nil
	case kindDict:
		m, ok := value.(map[string]interface{})
		if !ok {
			return nil, errors.New("not a dict")
		}
		out := make(map[string]interface{}, len(m))
		for key, v := range m {
			out[key] = fmt.Sprint(v)
		}
		return out, nil
	default:
		switch v := value.(type) {
		case string:
			return v, nil
		case json.Number:
			return v.String(), nil
		case bool:
			return strconv.FormatBool(v), nil
		default:
			return nil, errors.New("not a string")
		}
	}
}

func toInt(value interface{}) (int, error) {
	switch v := value.(type) {
	case json.Number:
		n, err := v.Int64()
		return int(n), err
	case string:
		return strconv.Atoi(strings.TrimSpace(v))
	default:
		return 0, errors.New("not an integer")
	}
}

func toBool(value interface{}) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case json.Number:
		return v.String() != "0", nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "yes", "on", "1", "true", "y", "t":
			return true, nil
		case "no", "off", "0", "false", "n", "f":
			return false, nil
		}
	}
	return false, fmt.Errorf("%v is not a boolean", value)
}
