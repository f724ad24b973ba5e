package survey

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ScaleValue is a rating answer. Form clients send radio values as strings
// ("3"); API clients may send numbers. Both decode to the same value.
type ScaleValue string

func (v *ScaleValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*v = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = ScaleValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("scale value must be a string or number: %w", err)
	}
	*v = ScaleValue(n.String())
	return nil
}

// Int parses a whole-number value: "3" and "3.0" give 3; "", "abc" and
// values with a fractional part such as "3.9" fail.
func (v ScaleValue) Int() (int, error) {
	s := strings.TrimSpace(string(v))
	if s == "" {
		return 0, fmt.Errorf("empty")
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not a whole number", s)
	}
	return int(f), nil
}

// Answers is the flat record a participant submits.
type Answers struct {
	IsRegisteredNurse    bool `json:"isRegisteredNurse"`
	ProvidesConsent      bool `json:"providesConsent"`
	UnderstandsVoluntary bool `json:"understandsVoluntary"`

	AgeGroup                 string `json:"ageGroup"`
	Gender                   string `json:"gender"`
	MaritalStatus            string `json:"maritalStatus"`
	EducationalQualification string `json:"educationalQualification"`
	EducationalOther         string `json:"educationalOther"`
	Designation              string `json:"designation"`
	IncomeLevel              string `json:"incomeLevel"`
	YearsExperience          string `json:"yearsExperience"`
	WorkingUnit              string `json:"workingUnit"`
	WorkingUnitOther         string `json:"workingUnitOther"`
	WorkShift                string `json:"workShift"`
	HoursPerDay              string `json:"hoursPerDay"`
	NightShiftsPerMonth      string `json:"nightShiftsPerMonth"`
	NightShiftsOther         string `json:"nightShiftsOther"`
	PlaceOfResidence         string `json:"placeOfResidence"`
	ResidenceOther           string `json:"residenceOther"`
	NonSharingPledge         bool   `json:"nonSharingPledge"`

	WHO5Cheerful   ScaleValue `json:"who5_cheerful"`
	WHO5Calm       ScaleValue `json:"who5_calm"`
	WHO5Active     ScaleValue `json:"who5_active"`
	WHO5Rested     ScaleValue `json:"who5_rested"`
	WHO5Interested ScaleValue `json:"who5_interested"`

	PSS4UnableControl      ScaleValue `json:"pss4_unable_control"`
	PSS4ConfidentHandle    ScaleValue `json:"pss4_confident_handle"`
	PSS4GoingYourWay       ScaleValue `json:"pss4_going_your_way"`
	PSS4DifficultiesPiling ScaleValue `json:"pss4_difficulties_piling"`

	CopeConcentratingEfforts ScaleValue `json:"cope_concentrating_efforts"`
	CopeTakingAction         ScaleValue `json:"cope_taking_action"`
	CopeStrategy             ScaleValue `json:"cope_strategy"`
	CopeThinkingSteps        ScaleValue `json:"cope_thinking_steps"`
	CopeDifferentLight       ScaleValue `json:"cope_different_light"`
	CopeLookingGood          ScaleValue `json:"cope_looking_good"`
	CopeAcceptingReality     ScaleValue `json:"cope_accepting_reality"`
	CopeLearningLive         ScaleValue `json:"cope_learning_live"`
	CopeEmotionalSupport     ScaleValue `json:"cope_emotional_support"`
	CopeComfortUnderstanding ScaleValue `json:"cope_comfort_understanding"`
	CopeWorkActivities       ScaleValue `json:"cope_work_activities"`
	CopeMoviesTVReading      ScaleValue `json:"cope_movies_tv_reading"`
	CopeCriticizingMyself    ScaleValue `json:"cope_criticizing_myself"`
	CopeBlamingMyself        ScaleValue `json:"cope_blaming_myself"`

	BurnoutLevel       string `json:"burnout_level"`
	AdditionalComments string `json:"additional_comments"`
}

// ScaleAnswers maps each item key from the instrument catalog to its answer.
func (a *Answers) ScaleAnswers() map[string]ScaleValue {
	return map[string]ScaleValue{
		"who5_cheerful":              a.WHO5Cheerful,
		"who5_calm":                  a.WHO5Calm,
		"who5_active":                a.WHO5Active,
		"who5_rested":                a.WHO5Rested,
		"who5_interested":            a.WHO5Interested,
		"pss4_unable_control":        a.PSS4UnableControl,
		"pss4_confident_handle":      a.PSS4ConfidentHandle,
		"pss4_going_your_way":        a.PSS4GoingYourWay,
		"pss4_difficulties_piling":   a.PSS4DifficultiesPiling,
		"cope_concentrating_efforts": a.CopeConcentratingEfforts,
		"cope_taking_action":         a.CopeTakingAction,
		"cope_strategy":              a.CopeStrategy,
		"cope_thinking_steps":        a.CopeThinkingSteps,
		"cope_different_light":       a.CopeDifferentLight,
		"cope_looking_good":          a.CopeLookingGood,
		"cope_accepting_reality":     a.CopeAcceptingReality,
		"cope_learning_live":         a.CopeLearningLive,
		"cope_emotional_support":     a.CopeEmotionalSupport,
		"cope_comfort_understanding": a.CopeComfortUnderstanding,
		"cope_work_activities":       a.CopeWorkActivities,
		"cope_movies_tv_reading":     a.CopeMoviesTVReading,
		"cope_criticizing_myself":    a.CopeCriticizingMyself,
		"cope_blaming_myself":        a.CopeBlamingMyself,
	}
}

// choiceAnswers maps each demographic field name to its answer.
func (a *Answers) choiceAnswers() map[string]string {
	return map[string]string{
		"ageGroup":                 a.AgeGroup,
		"gender":                   a.Gender,
		"maritalStatus":            a.MaritalStatus,
		"educationalQualification": a.EducationalQualification,
		"educationalOther":         a.EducationalOther,
		"designation":              a.Designation,
		"incomeLevel":              a.IncomeLevel,
		"yearsExperience":          a.YearsExperience,
		"workingUnit":              a.WorkingUnit,
		"workingUnitOther":         a.WorkingUnitOther,
		"workShift":                a.WorkShift,
		"hoursPerDay":              a.HoursPerDay,
		"nightShiftsPerMonth":      a.NightShiftsPerMonth,
		"nightShiftsOther":         a.NightShiftsOther,
		"placeOfResidence":         a.PlaceOfResidence,
		"residenceOther":           a.ResidenceOther,
	}
}
