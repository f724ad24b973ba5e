package survey

// validAnswers returns a complete submission that passes Validate.
func validAnswers() *Answers {
	return &Answers{
		IsRegisteredNurse:        true,
		ProvidesConsent:          true,
		UnderstandsVoluntary:     true,
		AgeGroup:                 "20-30 years",
		Gender:                   "Female",
		MaritalStatus:            "Married",
		EducationalQualification: "Graduate",
		Designation:              "Staff Nurse",
		IncomeLevel:              "Rs.20,001-Rs.30,000",
		YearsExperience:          "5 – 10 years",
		WorkingUnit:              "Pediatrics",
		WorkShift:                "Rotating",
		HoursPerDay:              "8 hours",
		NightShiftsPerMonth:      "Weekly Once",
		PlaceOfResidence:         "Home",
		NonSharingPledge:         true,

		WHO5Cheerful:   "3",
		WHO5Calm:       "2",
		WHO5Active:     "4",
		WHO5Rested:     "1",
		WHO5Interested: "5",

		PSS4UnableControl:      "2",
		PSS4ConfidentHandle:    "3",
		PSS4GoingYourWay:       "0",
		PSS4DifficultiesPiling: "4",

		CopeConcentratingEfforts: "1",
		CopeTakingAction:         "2",
		CopeStrategy:             "3",
		CopeThinkingSteps:        "4",
		CopeDifferentLight:       "1",
		CopeLookingGood:          "2",
		CopeAcceptingReality:     "3",
		CopeLearningLive:         "4",
		CopeEmotionalSupport:     "1",
		CopeComfortUnderstanding: "2",
		CopeWorkActivities:       "3",
		CopeMoviesTVReading:      "4",
		CopeCriticizingMyself:    "1",
		CopeBlamingMyself:        "2",

		BurnoutLevel:       "occasional_stress",
		AdditionalComments: "night shifts are hard",
	}
}
