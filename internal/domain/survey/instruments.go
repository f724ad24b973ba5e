package survey

// Item is one question of a rating-scale instrument. Key doubles as the JSON
// field name in Answers and the column name in pretest_responses.
type Item struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Subscale string `json:"subscale,omitempty"`
}

// Scale is a rating-scale instrument. Every item accepts integers in
// [Min, Max].
type Scale struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	Min      int    `json:"min"`
	Max      int    `json:"max"`
	MinLabel string `json:"min_label"`
	MaxLabel string `json:"max_label"`
	Items    []Item `json:"items"`
}

var WHO5 = Scale{
	Name:     "who5",
	Title:    "WHO-5 Well-Being Index",
	Min:      0,
	Max:      5,
	MinLabel: "At no time",
	MaxLabel: "All of the time",
	Items: []Item{
		{Key: "who5_cheerful", Label: "I have felt cheerful and in good spirits"},
		{Key: "who5_calm", Label: "I have felt calm and relaxed"},
		{Key: "who5_active", Label: "I have felt active and vigorous"},
		{Key: "who5_rested", Label: "I woke up feeling fresh and rested"},
		{Key: "who5_interested", Label: "My daily life has been filled with things that interest me"},
	},
}

var PSS4 = Scale{
	Name:     "pss4",
	Title:    "Perceived Stress Scale (PSS-4)",
	Min:      0,
	Max:      4,
	MinLabel: "Never",
	MaxLabel: "Very often",
	Items: []Item{
		{Key: "pss4_unable_control", Label: "Unable to control important things in life"},
		{Key: "pss4_confident_handle", Label: "Confident about ability to handle problems"},
		{Key: "pss4_going_your_way", Label: "Things were going your way"},
		{Key: "pss4_difficulties_piling", Label: "Difficulties were piling up too high to overcome"},
	},
}

var BriefCOPE = Scale{
	Name:     "brief_cope",
	Title:    "Brief COPE",
	Min:      1,
	Max:      4,
	MinLabel: "Not at all",
	MaxLabel: "A lot",
	Items: []Item{
		{Key: "cope_concentrating_efforts", Subscale: "Active Coping", Label: "I've been concentrating my efforts on doing something about the situation I'm in"},
		{Key: "cope_taking_action", Subscale: "Active Coping", Label: "I've been taking action to try to make the situation better"},
		{Key: "cope_strategy", Subscale: "Planning", Label: "I've been trying to come up with a strategy about what to do"},
		{Key: "cope_thinking_steps", Subscale: "Planning", Label: "I've been thinking hard about what steps to take"},
		{Key: "cope_different_light", Subscale: "Positive Reframing", Label: "I've been trying to see it in a different light, to make it seem more positive"},
		{Key: "cope_looking_good", Subscale: "Positive Reframing", Label: "I've been looking for something good in what is happening"},
		{Key: "cope_accepting_reality", Subscale: "Acceptance", Label: "I've been accepting the reality of the fact that it has happened"},
		{Key: "cope_learning_live", Subscale: "Acceptance", Label: "I've been learning to live with it"},
		{Key: "cope_emotional_support", Subscale: "Emotional Support", Label: "I've been getting emotional support from others"},
		{Key: "cope_comfort_understanding", Subscale: "Emotional Support", Label: "I've been getting comfort and understanding from someone"},
		{Key: "cope_work_activities", Subscale: "Self-Distraction", Label: "I've been turning to work or other activities to take my mind off things"},
		{Key: "cope_movies_tv_reading", Subscale: "Self-Distraction", Label: "I've been doing something to think about it less, such as going to movies, watching TV, reading, daydreaming, sleeping, or shopping"},
		{Key: "cope_criticizing_myself", Subscale: "Self-Blame", Label: "I've been criticizing myself"},
		{Key: "cope_blaming_myself", Subscale: "Self-Blame", Label: "I've been blaming myself for things that happened"},
	},
}

// Scales lists the instruments in form order.
var Scales = []Scale{WHO5, PSS4, BriefCOPE}

// ItemKeys returns every scale item key in form order. The order is also the
// column order used by the response repositories.
func ItemKeys() []string {
	var keys []string
	for _, s := range Scales {
		for _, it := range s.Items {
			keys = append(keys, it.Key)
		}
	}
	return keys
}

// ScaleFor returns the instrument that owns item key.
func ScaleFor(key string) (Scale, bool) {
	for _, s := range Scales {
		for _, it := range s.Items {
			if it.Key == key {
				return s, true
			}
		}
	}
	return Scale{}, false
}

// "Other" sentinels. Choosing one makes the paired free-text field meaningful.
const (
	EducationOther   = "Others"
	WorkingUnitOther = "Any other"
	NightShiftsOther = "Others"
	ResidenceOther   = "Any other"
)

// Choice is a single-select demographic question.
type Choice struct {
	Field   string   `json:"field"`
	Label   string   `json:"label"`
	Options []string `json:"options"`
	// OtherOption, when chosen, requires the free-text answer in OtherField.
	OtherOption string `json:"other_option,omitempty"`
	OtherField  string `json:"other_field,omitempty"`
}

var Choices = []Choice{
	{Field: "ageGroup", Label: "Age group", Options: []string{"Less than 20 years", "20-30 years", "31-35 years", "Above 35 years"}},
	{Field: "gender", Label: "Gender", Options: []string{"Male", "Female"}},
	{Field: "maritalStatus", Label: "Marital status", Options: []string{"Unmarried/Single", "Married", "Widower/Separated/divorced"}},
	{
		Field:       "educationalQualification",
		Label:       "Educational qualification",
		Options:     []string{"Certificate course", "Diploma", "Graduate", "Post Graduate", EducationOther},
		OtherOption: EducationOther,
		OtherField:  "educationalOther",
	},
	{Field: "designation", Label: "Designation", Options: []string{"Ward In-charge", "Staff Nurse", "Nurse in probation", "ANS"}},
	{Field: "incomeLevel", Label: "Monthly income", Options: []string{"Below Rs. 10,000", "Rs.10,001-Rs.20,000", "Rs.20,001-Rs.30,000", "Above Rs.30,000"}},
	{Field: "yearsExperience", Label: "Years of experience", Options: []string{"Less than 5 years", "5 – 10 years", "10 - 15 years", "Above 15 years"}},
	{
		Field: "workingUnit",
		Label: "Working unit",
		Options: []string{
			"Medical ward", "Surgical ward", "Obstetrics & Gynecology", "Pediatrics", "Geriatric",
			"Psychiatric", "OT", "Intensive care Units", "Post-operative units", WorkingUnitOther,
		},
		OtherOption: WorkingUnitOther,
		OtherField:  "workingUnitOther",
	},
	{Field: "workShift", Label: "Work shift", Options: []string{"Fixed/Morning", "Rotating"}},
	{Field: "hoursPerDay", Label: "Working hours per day", Options: []string{"8 hours", "> 8 hours"}},
	{
		Field:       "nightShiftsPerMonth",
		Label:       "Night shifts per month",
		Options:     []string{"Weekly Once", "2 weeks once", "Monthly Once", NightShiftsOther},
		OtherOption: NightShiftsOther,
		OtherField:  "nightShiftsOther",
	},
	{
		Field:       "placeOfResidence",
		Label:       "Place of residence",
		Options:     []string{"Hostel in the Hospital Campus", "Hostel in Outside Hospital Campus", "Home", "PG Hostel", ResidenceOther},
		OtherOption: ResidenceOther,
		OtherField:  "residenceOther",
	},
}

func (c Choice) Allows(v string) bool {
	for _, o := range c.Options {
		if o == v {
			return true
		}
	}
	return false
}

// Option is a value/label pair for the burnout self-assessment.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var BurnoutOptions = []Option{
	{Value: "no_burnout", Label: "I enjoy my work. I have no symptoms of burnout."},
	{Value: "occasional_stress", Label: "Occasionally under stress."},
	{Value: "burning_out", Label: "Definitely burning out."},
	{Value: "symptoms_persist", Label: "Symptoms won't go away."},
	{Value: "completely_burned", Label: "Completely burned out."},
}

func validBurnout(v string) bool {
	for _, o := range BurnoutOptions {
		if o.Value == v {
			return true
		}
	}
	return false
}

// Eligibility statements that must all be affirmed.
var Eligibility = []Item{
	{Key: "isRegisteredNurse", Label: "I am a registered nurse currently employed"},
	{Key: "providesConsent", Label: "I provide informed consent to participate"},
	{Key: "understandsVoluntary", Label: "I understand participation is voluntary and anonymous"},
}

const NonSharingPledge = "I agree that I will not share the mobile app access and login details (if assigned to Intervention group) with colleagues from other wards or study groups."

// Form is the full questionnaire definition served to clients.
type Form struct {
	Eligibility      []Item   `json:"eligibility"`
	Demographics     []Choice `json:"demographics"`
	NonSharingPledge string   `json:"non_sharing_pledge"`
	Scales           []Scale  `json:"scales"`
	Burnout          []Option `json:"burnout"`
}

func Definition() Form {
	return Form{
		Eligibility:      Eligibility,
		Demographics:     Choices,
		NonSharingPledge: NonSharingPledge,
		Scales:           Scales,
		Burnout:          BurnoutOptions,
	}
}
