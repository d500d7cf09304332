package demodata

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/iot-for-tillgenglighet/streetlight-energy/internal/pkg/infrastructure/logging"
	"github.com/iot-for-tillgenglighet/streetlight-energy/internal/pkg/infrastructure/repositories/database"
	"github.com/iot-for-tillgenglighet/streetlight-energy/internal/pkg/infrastructure/repositories/models"
)

//Capitals lists the Dutch provincial capitals that get a demo city
var Capitals = []string{
	"Amsterdam", "Rotterdam", "Den Haag", "Utrecht", "Groningen",
	"Leeuwarden", "Arnhem", "Zwolle", "Middelburg", "Maastricht",
	"Haarlem", "'s-Hertogenbosch", "Lelystad", "Assen",
}

const (
	unitTypeLED    = "LED"
	unitTypeSodium = "Hogedruk Natrium"

	historyDays = 40

	dayStartHour = 7
	dayEndHour   = 18
)

//Seeder fills an empty datastore with demo cities, lighting units and hourly readings
type Seeder struct {
	db     database.Datastore
	log    logging.Logger
	now    func() time.Time
	random func() float64
	loc    *time.Location
}

//Option configures a Seeder
type Option func(*Seeder)

//WithClock replaces time.Now as the source of the current time
func WithClock(now func() time.Time) Option {
	return func(s *Seeder) { s.now = now }
}

//WithRandom replaces the uniform [0, 1) random source
func WithRandom(random func() float64) Option {
	return func(s *Seeder) { s.random = random }
}

//WithLocation sets the time zone in which "today" is determined
func WithLocation(loc *time.Location) Option {
	return func(s *Seeder) {
		if loc != nil {
			s.loc = loc
		}
	}
}

//NewSeeder creates a Seeder writing to db
func NewSeeder(db database.Datastore, log logging.Logger, opts ...Option) *Seeder {
	s := &Seeder{
		db:     db,
		log:    log,
		now:    time.Now,
		random: rand.Float64,
		loc:    time.Local,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

//Seed creates the demo topology when the datastore has none and makes sure there are
//hourly readings up to 23:00 today. Running it again only appends the missing hours.
func (s *Seeder) Seed(ctx context.Context) error {
	if err := s.seedTopology(ctx); err != nil {
		return err
	}

	units, err := s.db.GetLightingUnits(ctx)
	if err != nil {
		return err
	}

	now := s.now().In(s.loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	endOfDay := midnight.Add(23 * time.Hour)

	if len(units) == 0 {
		start := now.AddDate(0, 0, -historyDays).Truncate(time.Hour)
		return s.seedLightingUnits(ctx, start, endOfDay)
	}

	latest, found, err := s.db.GetLatestReadingTimestamp(ctx)
	if err != nil {
		return err
	}

	if found && !latest.Before(midnight) {
		s.log.Infof("Demo readings are up to date (last reading at %s), skipping.", latest.Format(time.RFC3339))
		return nil
	}

	start := midnight
	if found {
		start = latest.In(s.loc).Add(time.Hour)
		s.log.Infof("Existing readings end at %s. Generating new readings up to end of today ...", latest.Format(time.RFC3339))
	}

	for _, unit := range units {
		if err = s.db.AppendReadings(ctx, s.readings(unit, start, endOfDay)); err != nil {
			return fmt.Errorf("failed to top up readings for lighting unit %d: %w", unit.ID, err)
		}
	}

	s.log.Infof("New readings generated for %d lighting units.", len(units))
	return nil
}

func (s *Seeder) seedTopology(ctx context.Context) error {
	cities, err := s.db.GetCities(ctx)
	if err != nil {
		return err
	}

	if len(cities) > 0 {
		s.log.Infof("City and area data already exists, skipping demo topology.")
		return nil
	}

	for _, name := range Capitals {
		city, err := s.db.CreateCity(ctx, name)
		if err != nil {
			return err
		}

		_, err = s.db.CreateArea(ctx, city.ID, "Centrum "+name, "Hoofdgebied van "+name)
		if err != nil {
			return err
		}
	}

	s.log.Infof("Demo cities and areas added (%d total).", len(Capitals))
	return nil
}

func (s *Seeder) seedLightingUnits(ctx context.Context, from, to time.Time) error {
	areas, err := s.db.GetAreas(ctx)
	if err != nil {
		return err
	}

	for _, area := range areas {
		units := []struct {
			unitType string
			location string
			watt     int
		}{
			{unitTypeLED, "Hoofdstraat " + area.Name, 50},
			{unitTypeLED, "Kerklaan " + area.Name, 50},
			{unitTypeSodium, "Marktplein " + area.Name, 100},
		}

		readings := []models.EnergyConsumption{}

		for _, u := range units {
			unit, err := s.db.CreateLightingUnit(ctx, area.ID, u.unitType, u.location, u.watt)
			if err != nil {
				return err
			}

			readings = append(readings, s.readings(*unit, from, to)...)
		}

		if err = s.db.AppendReadings(ctx, readings); err != nil {
			return fmt.Errorf("failed to store demo readings for area %s: %w", area.Name, err)
		}
	}

	s.log.Infof("Demo lighting units and readings added for %d areas.", len(areas))
	return nil
}

//readings simulates one reading per hour for unit in [from, to]
func (s *Seeder) readings(unit models.LightingUnit, from, to time.Time) []models.EnergyConsumption {
	readings := []models.EnergyConsumption{}

	for t := from; !t.After(to); t = t.Add(time.Hour) {
		consumption, status := s.simulateHour(unit, t.In(s.loc).Hour())

		readings = append(readings, models.EnergyConsumption{
			LightingUnitID:  unit.ID,
			Timestamp:       t,
			ConsumptionKWh:  consumption,
			StatusRecording: status,
		})
	}

	return readings
}

func (s *Seeder) simulateHour(unit models.LightingUnit, hour int) (float64, string) {
	daytime := hour >= dayStartHour && hour < dayEndHour
	sodium := unit.UnitType == unitTypeSodium

	consumption := 0.0
	status := models.StatusNormal

	if !daytime || sodium {
		consumption = float64(unit.PowerWatt) / 1000 * s.uniform(0.2, 0.5)
	}

	if daytime {
		if sodium {
			status = models.StatusDaylightInefficiency
		} else {
			status = models.StatusDaylightOff
		}
	}

	consumption += s.uniform(-consumption*0.1, consumption*0.1)
	if consumption < 0 {
		consumption = 0
	}

	return consumption, status
}

func (s *Seeder) uniform(min, max float64) float64 {
	return min + (max-min)*s.random()
}
