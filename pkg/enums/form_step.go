package enums

import "fmt"

// FormStep marks how far an intake form session progressed before submission.
type FormStep string

const (
	FormStepStarted          FormStep = "started"
	FormStepContactInfo      FormStep = "contact_info"
	FormStepFinancialInfo    FormStep = "financial_info"
	FormStepVehicleSelection FormStep = "vehicle_selection"
	FormStepReview           FormStep = "review"
)

var validFormSteps = []FormStep{
	FormStepStarted,
	FormStepContactInfo,
	FormStepFinancialInfo,
	FormStepVehicleSelection,
	FormStepReview,
}

func (f FormStep) String() string {
	return string(f)
}

func (f FormStep) IsValid() bool {
	return f.Ordinal() >= 0
}

// Ordinal is the step's position in the form, or -1 for unknown values.
func (f FormStep) Ordinal() int {
	for i, candidate := range validFormSteps {
		if candidate == f {
			return i
		}
	}
	return -1
}

// Furthest returns whichever of a and b is later in the form.
func Furthest(a, b FormStep) FormStep {
	if b.Ordinal() > a.Ordinal() {
		return b
	}
	return a
}

func ParseFormStep(value string) (FormStep, error) {
	for _, candidate := range validFormSteps {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid form step %q", value)
}
