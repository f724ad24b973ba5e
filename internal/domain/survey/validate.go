package survey

import (
	"fmt"
	"sort"
	"strings"
)

// FieldError describes one invalid answer.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every invalid answer in a submission.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Field
	}
	return fmt.Sprintf("invalid answers: %s", strings.Join(names, ", "))
}

func (e *ValidationError) add(field, format string, args ...interface{}) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Validate checks a submission before any slot is claimed. It returns nil or
// a *ValidationError naming every offending field.
func Validate(a *Answers) error {
	ve := &ValidationError{}

	if !a.IsRegisteredNurse {
		ve.add("isRegisteredNurse", "must be affirmed")
	}
	if !a.ProvidesConsent {
		ve.add("providesConsent", "must be affirmed")
	}
	if !a.UnderstandsVoluntary {
		ve.add("understandsVoluntary", "must be affirmed")
	}

	choices := a.choiceAnswers()
	for _, c := range Choices {
		v := choices[c.Field]
		if v == "" {
			ve.add(c.Field, "is required")
			continue
		}
		if !c.Allows(v) {
			ve.add(c.Field, "%q is not an allowed option", v)
			continue
		}
		if c.OtherOption != "" && v == c.OtherOption && strings.TrimSpace(choices[c.OtherField]) == "" {
			ve.add(c.OtherField, "is required when %q is selected", c.OtherOption)
		}
	}

	if !a.NonSharingPledge {
		ve.add("nonSharingPledge", "must be affirmed")
	}

	scales := a.ScaleAnswers()
	keys := make([]string, 0, len(scales))
	for k := range scales {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s, _ := ScaleFor(k)
		n, err := scales[k].Int()
		if err != nil {
			ve.add(k, "is required")
			continue
		}
		if n < s.Min || n > s.Max {
			ve.add(k, "must be between %d and %d", s.Min, s.Max)
		}
	}

	if a.BurnoutLevel == "" {
		ve.add("burnout_level", "is required")
	} else if !validBurnout(a.BurnoutLevel) {
		ve.add("burnout_level", "%q is not an allowed option", a.BurnoutLevel)
	}

	if len(ve.Fields) > 0 {
		return ve
	}
	return nil
}
