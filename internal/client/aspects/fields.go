package aspects

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/cardkeeper/internal/client/models"
)

const (
	DataTypeString = "STRING"
	DataTypeNumber = "NUMBER"

	CardinalitySingle = "SINGLE"
	CardinalityMulti  = "MULTI"

	ModeFreeText      = "FREE_TEXT"
	ModeSelectionOnly = "SELECTION_ONLY"

	defaultGroup = "Other"
	defaultOrder = 999
)

type layout struct {
	group string
	order int
}

var layoutByName = map[string]layout{
	"Game":                            {"Basic Info", 1},
	"Card Name":                       {"Basic Info", 2},
	"Set":                             {"Basic Info", 3},
	"Card Number":                     {"Basic Info", 4},
	"Graded":                          {"Condition", 1},
	"Professional Grader":             {"Condition", 2},
	"Grade":                           {"Condition", 3},
	"Certification Number":            {"Condition", 4},
	"Card Condition":                  {"Condition", 5},
	"Card Type":                       {"Details", 1},
	"Character":                       {"Details", 2},
	"Creature/Monster Type":           {"Details", 3},
	"Language":                        {"Details", 4},
	"Finish":                          {"Details", 5},
	"Year Manufactured":               {"Details", 6},
	"Autographed":                     {"Advanced", 1},
	"Autograph Authentication":        {"Advanced", 2},
	"Autograph Authentication Number": {"Advanced", 3},
	"Autograph Format":                {"Advanced", 4},
	"Manufacturer":                    {"Advanced", 5},
	"Material":                        {"Advanced", 6},
	"Vintage":                         {"Advanced", 7},
}

// Condition makes an option available only when another aspect holds one
// of Values.
type Condition struct {
	DependsOn string
	Values    []string
}

// Field is an aspect flattened for editing and validation.
type Field struct {
	Name                 string
	DataType             string
	Cardinality          string
	Mode                 string
	Usage                string
	Required             bool
	EnabledForVariations bool
	ApplicableTo         []string
	Format               string
	Options              []string
	ConditionalOptions   map[string][]Condition
	Kind                 string
	Group                string
	Order                int
}

// Fields maps aspects to fields, filling eBay's defaults for missing
// constraint values.
func Fields(aspects []Aspect) []Field {
	out := make([]Field, 0, len(aspects))
	for _, a := range aspects {
		c := Constraint{}
		if a.AspectConstraint != nil {
			c = *a.AspectConstraint
		}

		f := Field{
			Name:                 a.LocalizedAspectName,
			DataType:             orDefault(c.AspectDataType, DataTypeString),
			Cardinality:          orDefault(c.ItemToAspectCardinality, CardinalitySingle),
			Mode:                 orDefault(c.AspectMode, ModeFreeText),
			Usage:                orDefault(c.AspectUsage, "OPTIONAL"),
			Required:             c.AspectRequired,
			EnabledForVariations: c.AspectEnabledForVariations,
			ApplicableTo:         c.AspectApplicableTo,
			Format:               c.AspectFormat,
			ConditionalOptions:   map[string][]Condition{},
			Group:                defaultGroup,
			Order:                defaultOrder,
		}
		f.Kind = kindOf(f)

		for _, v := range a.AspectValues {
			f.Options = append(f.Options, v.LocalizedValue)
			if v.ValueConstraints == nil {
				continue
			}
			conds := make([]Condition, 0, len(v.ValueConstraints))
			for _, vc := range v.ValueConstraints {
				conds = append(conds, Condition{DependsOn: vc.ApplicableForLocalizedAspectName, Values: vc.ApplicableForLocalizedAspectValues})
			}
			f.ConditionalOptions[v.LocalizedValue] = conds
		}

		if l, ok := layoutByName[f.Name]; ok {
			f.Group, f.Order = l.group, l.order
		}
		out = append(out, f)
	}
	return out
}

func kindOf(f Field) string {
	switch {
	case f.Mode == ModeSelectionOnly && f.Cardinality == CardinalityMulti:
		return "multi-select"
	case f.Mode == ModeSelectionOnly:
		return "select"
	case f.DataType == DataTypeNumber:
		return "number"
	case f.Cardinality == CardinalityMulti:
		return "multi-select"
	default:
		return "text"
	}
}

// GroupFields buckets fields by layout group, each bucket sorted by order.
func GroupFields(fields []Field) map[string][]Field {
	grouped := map[string][]Field{}
	for _, f := range fields {
		grouped[f.Group] = append(grouped[f.Group], f)
	}
	for _, fs := range grouped {
		sort.SliceStable(fs, func(i, j int) bool { return fs[i].Order < fs[j].Order })
	}
	return grouped
}

// VisibleOptions lists the options of f that are allowed given the current
// values. An option with conditions needs every condition satisfied.
func VisibleOptions(f Field, values map[string]any) []string {
	if len(f.ConditionalOptions) == 0 {
		return f.Options
	}

	var visible []string
	for _, opt := range f.Options {
		if conditionsMet(f.ConditionalOptions[opt], values) {
			visible = append(visible, opt)
		}
	}
	return visible
}

func conditionsMet(conds []Condition, values map[string]any) bool {
	for _, c := range conds {
		current, _ := valueList(values[c.DependsOn])
		if len(current) == 0 {
			return false
		}
		if !slices.ContainsFunc(current, func(v string) bool { return slices.Contains(c.Values, v) }) {
			return false
		}
	}
	return true
}

// Validate checks values against fields and returns one message per
// problem, in field order. Values are strings, or string slices for
// multi-valued aspects.
func Validate(fields []Field, values map[string]any) []string {
	var msgs []string

	for _, f := range fields {
		vals, isList := valueList(values[f.Name])

		if len(vals) == 0 {
			if f.Required {
				msgs = append(msgs, fmt.Sprintf("%s is required", f.Name))
			}
			continue
		}

		if f.Cardinality == CardinalitySingle && isList {
			msgs = append(msgs, fmt.Sprintf("%s can only have one value", f.Name))
			continue
		}
		if f.Cardinality == CardinalityMulti && !isList {
			msgs = append(msgs, fmt.Sprintf("%s must be an array", f.Name))
			continue
		}

		if f.DataType == DataTypeNumber {
			for _, v := range vals {
				if _, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err != nil {
					msgs = append(msgs, fmt.Sprintf("%s must be a number", f.Name))
				}
			}
		}

		if f.Mode == ModeSelectionOnly {
			visible := VisibleOptions(f, values)
			for _, v := range vals {
				if !slices.Contains(visible, v) {
					msgs = append(msgs, fmt.Sprintf("%s: %q is not a valid option", f.Name, v))
				}
			}
		}
	}
	return msgs
}

// valueList normalizes a value to its strings and reports whether it was
// a list. Empty strings count as absent.
func valueList(v any) ([]string, bool) {
	switch x := v.(type) {
	case nil:
		return nil, false
	case string:
		if x == "" {
			return nil, false
		}
		return []string{x}, false
	case []string:
		return x, true
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			out = append(out, fmt.Sprint(e))
		}
		return out, true
	case float64:
		return []string{strconv.FormatFloat(x, 'f', -1, 64)}, false
	default:
		return []string{fmt.Sprint(x)}, false
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Normalize turns flat string input into validation values: fields with
// MULTI cardinality are split on commas, everything else stays a string.
func Normalize(fields []Field, input map[string]string) map[string]any {
	multi := make(map[string]bool, len(fields))
	for _, f := range fields {
		multi[f.Name] = f.Cardinality == CardinalityMulti
	}

	out := make(map[string]any, len(input))
	for k, v := range input {
		if multi[k] {
			out[k] = models.SplitMulti(v)
			continue
		}
		out[k] = v
	}
	return out
}
