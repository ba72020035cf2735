package eligibility

import (
	"strings"

	"github.com/siherrmann/biolink/model"
)

// Filter returns the candidates a patient is eligible for. Every nil attribute
// disables its rule. The input order is kept and the input is not modified.
func Filter(candidates []*model.Trial, age *int, sex *model.Sex, country *string) []*model.Trial {
	eligible := make([]*model.Trial, 0, len(candidates))
	for _, c := range candidates {
		if c == nil {
			continue
		}
		if AgeEligible(c, age) && SexEligible(c, sex) && CountryEligible(c, country) {
			eligible = append(eligible, c)
		}
	}
	return eligible
}

// AgeEligible checks age against [MinAge, MaxAge], a missing bound is unbounded.
func AgeEligible(trial *model.Trial, age *int) bool {
	if age == nil {
		return true
	}
	if trial.MinAge != nil && *age < *trial.MinAge {
		return false
	}
	if trial.MaxAge != nil && *age > *trial.MaxAge {
		return false
	}
	return true
}

// SexEligible passes trials open to all sexes, otherwise the sexes must match.
func SexEligible(trial *model.Trial, sex *model.Sex) bool {
	if sex == nil {
		return true
	}
	if trial.Sex == "" || trial.Sex == model.SexAll {
		return true
	}
	return trial.Sex == *sex
}

// CountryEligible passes trials without listed countries, otherwise one of the
// listed countries must equal the patient's country ignoring case.
func CountryEligible(trial *model.Trial, country *string) bool {
	if country == nil || strings.TrimSpace(*country) == "" {
		return true
	}
	if len(trial.Countries) == 0 {
		return true
	}
	for _, c := range trial.Countries {
		if strings.EqualFold(strings.TrimSpace(c), strings.TrimSpace(*country)) {
			return true
		}
	}
	return false
}
