package energy

import (
	"math"
	"time"

	"github.com/iot-for-tillgenglighet/streetlight-energy/internal/pkg/infrastructure/repositories/models"
)

const (
	//SwitchingTimesTitle is the title of the per-area switching time recommendation
	SwitchingTimesTitle = "Optimaliseer Schakeltijden Openbare Verlichting"

	//SwitchingTimesDescription is stored with every generated switching time recommendation
	SwitchingTimesDescription = "Onnodig energieverbruik gedetecteerd door straatverlichting die onnodig lang aanstaat of niet meeschaalt met de daglichturen. Door schakeltijden aan te passen of te dimmen tussen 07:00 en 18:00 uur kan significant bespaard worden."

	//ActionStatusNew marks a recommendation nobody has acted upon yet
	ActionStatusNew = "Nieuw"

	//DefaultBaselineKWh is the assumed monthly consumption that percentage savings are relative to
	DefaultBaselineKWh = 50.0

	//DefaultTariffEURPerKWh converts saved kWh into euros
	DefaultTariffEURPerKWh = 0.40

	minGeneratedSavingsKWh = 25.0
	maxGeneratedSavingsKWh = 75.0
)

//Recommendation is the advisory record returned for an area
type Recommendation struct {
	Title                string  `json:"title"`
	Description          string  `json:"description"`
	PotentialSavingsKWh  float64 `json:"potential_savings_kwh"`
	PotentialSavingsEuro float64 `json:"potential_savings_euro"`
	PercentageSavings    float64 `json:"percentage_savings"`
}

//PercentageSavings expresses savingsKWh relative to baselineKWh, and is 0 when either is not positive
func PercentageSavings(savingsKWh, baselineKWh float64) float64 {
	if savingsKWh <= 0 || baselineKWh <= 0 {
		return 0
	}
	return savingsKWh / baselineKWh * 100
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

//newSwitchingTimesRecommendation draws monthly savings from [25, 75) kWh using random, which must
//return values in [0, 1).
func newSwitchingTimesRecommendation(areaID uint, now time.Time, random func() float64, tariff float64) *models.Recommendation {
	kwh := minGeneratedSavingsKWh + random()*(maxGeneratedSavingsKWh-minGeneratedSavingsKWh)
	euro := roundCents(kwh * tariff)

	return &models.Recommendation{
		AreaID:               &areaID,
		DateGenerated:        now,
		Title:                SwitchingTimesTitle,
		Description:          SwitchingTimesDescription,
		PotentialSavingsKWh:  &kwh,
		PotentialSavingsEuro: &euro,
		ActionStatus:         ActionStatusNew,
	}
}

func recommendationFromModel(rec *models.Recommendation, baselineKWh float64) Recommendation {
	result := Recommendation{
		Title:       rec.Title,
		Description: rec.Description,
	}

	if rec.PotentialSavingsKWh != nil {
		result.PotentialSavingsKWh = *rec.PotentialSavingsKWh
	}

	if rec.PotentialSavingsEuro != nil {
		result.PotentialSavingsEuro = *rec.PotentialSavingsEuro
	}

	result.PercentageSavings = PercentageSavings(result.PotentialSavingsKWh, baselineKWh)

	return result
}
