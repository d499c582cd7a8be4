// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package validate checks request documents against the normalized request
// contract. Every rule is evaluated; all violations are reported.
package validate

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"github.com/pdiddy/smartbi/pkg/types"
)

// DefaultContractPath is where the contract lives relative to the working directory.
const DefaultContractPath = "contracts/normalized_request.schema.json"

var (
	validLanguages = map[string]bool{
		string(types.LanguageZhTW): true,
		string(types.LanguageZhCN): true,
		string(types.LanguageEn):   true,
	}
	validIntents = map[string]bool{
		string(types.IntentKPIQuery):      true,
		string(types.IntentComparison):    true,
		string(types.IntentTrend):         true,
		string(types.IntentDetailRequest): true,
		string(types.IntentOutOfScope):    true,
	}
	validRangeKinds = map[string]bool{
		string(types.RangeSingleDate):          true,
		string(types.RangeDateRange):           true,
		string(types.RangeMonthToDate):         true,
		string(types.RangeYearToDate):          true,
		string(types.RangeLatestAvailableDate): true,
	}
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Contract is the subset of the JSON schema the validator consumes.
type Contract struct {
	Required []string `json:"required"`
}

// ContractReadError reports a missing, unreadable, or malformed contract file.
type ContractReadError struct {
	Path string
	Err  error
}

func (e *ContractReadError) Error() string {
	return fmt.Sprintf("reading contract %s: %v", e.Path, e.Err)
}

func (e *ContractReadError) Unwrap() error { return e.Err }

// LoadContract reads the contract JSON at path.
func LoadContract(path string) (Contract, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Contract{}, &ContractReadError{Path: path, Err: err}
	}
	var c Contract
	if err := json.Unmarshal(data, &c); err != nil {
		return Contract{}, &ContractReadError{Path: path, Err: err}
	}
	return c, nil
}

// Validator binds a loaded contract.
type Validator struct {
	contract Contract
}

// New loads the contract at path. An empty path uses DefaultContractPath.
func New(path string) (*Validator, error) {
	if path == "" {
		path = DefaultContractPath
	}
	c, err := LoadContract(path)
	if err != nil {
		return nil, err
	}
	return &Validator{contract: c}, nil
}

// NewWithContract binds an in-memory contract.
func NewWithContract(c Contract) *Validator {
	return &Validator{contract: c}
}

// Validate checks doc against the bound contract.
func (v *Validator) Validate(doc types.Document) (bool, []string) {
	return Validate(doc, v.contract)
}

// Validate checks doc against c. It is a pure function of its inputs and
// never fails on well-formed but invalid documents.
func Validate(doc types.Document, c Contract) (bool, []string) {
	errs := []string{}

	for _, key := range c.Required {
		if _, ok := doc[key]; !ok {
			errs = append(errs, fmt.Sprintf("missing required key: %s", key))
		}
	}

	if s, ok := doc["schema_version"].(string); !ok || s != types.SchemaVersion {
		errs = append(errs, "schema_version must be 1.0")
	}

	if rc, ok := objectOrEmpty(doc, "request_context"); !ok {
		errs = append(errs, "request_context must be object")
	} else {
		if !truthy(rc["request_ts"]) {
			errs = append(errs, "request_context.request_ts is required")
		}
		if !truthy(rc["timezone"]) {
			errs = append(errs, "request_context.timezone is required")
		}
	}

	if qc, ok := objectOrEmpty(doc, "query_context"); !ok {
		errs = append(errs, "query_context must be object")
	} else {
		if !inSet(qc["language"], validLanguages) {
			errs = append(errs, "query_context.language invalid")
		}
		if !inSet(qc["intent"], validIntents) {
			errs = append(errs, "query_context.intent invalid")
		}
	}

	if tc, ok := objectOrEmpty(doc, "time_context"); !ok {
		errs = append(errs, "time_context must be object")
	} else if resolved := tc["resolved"]; resolved != nil {
		r, isObj := resolved.(map[string]any)
		if !isObj {
			errs = append(errs, "time_context.resolved must be object|null")
		} else {
			if !inSet(r["type"], validRangeKinds) {
				errs = append(errs, "time_context.resolved.type invalid")
			}
			for _, k := range []string{"start_date", "end_date"} {
				s, isStr := r[k].(string)
				if !isStr || !datePattern.MatchString(s) {
					errs = append(errs, fmt.Sprintf("time_context.resolved.%s invalid", k))
				}
			}
		}
	}

	if mf, present := doc["missing_required_fields"]; present {
		if _, isArr := mf.([]any); !isArr {
			errs = append(errs, "missing_required_fields must be array")
		}
	}

	return len(errs) == 0, errs
}

// objectOrEmpty returns doc[key] as an object. An absent key counts as an
// empty object so the required-key rule alone reports it.
func objectOrEmpty(doc types.Document, key string) (map[string]any, bool) {
	v, present := doc[key]
	if !present {
		return map[string]any{}, true
	}
	m, ok := v.(map[string]any)
	return m, ok
}

func inSet(v any, set map[string]bool) bool {
	s, ok := v.(string)
	return ok && set[s]
}

// truthy mirrors JSON-level emptiness: nil, false, 0, "" and empty
// containers are all absent values.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
