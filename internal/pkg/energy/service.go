package energy

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/iot-for-tillgenglighet/streetlight-energy/internal/pkg/infrastructure/logging"
	"github.com/iot-for-tillgenglighet/streetlight-energy/internal/pkg/infrastructure/metrics"
	"github.com/iot-for-tillgenglighet/streetlight-energy/internal/pkg/infrastructure/repositories/database"
	"github.com/iot-for-tillgenglighet/streetlight-energy/internal/pkg/infrastructure/repositories/models"
)

//ErrNotFound is returned (wrapped) when the requested area does not exist
var ErrNotFound = errors.New("not found")

//ErrNoData is returned (wrapped) when the area exists but there is nothing to compute from
var ErrNoData = errors.New("no data")

//Publisher is notified when a recommendation has been generated and stored for the first time
type Publisher interface {
	RecommendationCreated(ctx context.Context, area *models.Area, rec *models.Recommendation) error
}

//EnergyData is the consumption report of an area over a period
type EnergyData struct {
	AreaID              uint     `json:"area_id"`
	AreaName            string   `json:"area_name"`
	TotalConsumptionKWh float64  `json:"total_consumption_kwh"`
	ChartData           []Bucket `json:"chart_data"`
	InefficiencyMarkers []Bucket `json:"inefficiency_markers"`
}

//Service answers energy data, recommendation and savings scenario requests for areas
type Service struct {
	db        database.Datastore
	log       logging.Logger
	metrics   *metrics.Metrics
	publisher Publisher

	now         func() time.Time
	random      func() float64
	location    *time.Location
	baselineKWh float64
	tariff      float64
}

//Option configures a Service
type Option func(*Service)

//WithClock replaces time.Now as the source of the current time
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

//WithRandom replaces the source of uniformly distributed values in [0, 1)
func WithRandom(random func() float64) Option {
	return func(s *Service) { s.random = random }
}

//WithLocation sets the time zone bucket keys are formatted in
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

//WithBaselineKWh sets the monthly consumption percentage savings are relative to
func WithBaselineKWh(kwh float64) Option {
	return func(s *Service) { s.baselineKWh = kwh }
}

//WithTariff sets the price per kWh used to estimate savings in euros
func WithTariff(eurPerKWh float64) Option {
	return func(s *Service) { s.tariff = eurPerKWh }
}

//WithMetrics records aggregation and recommendation metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

//WithPublisher announces newly generated recommendations
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

//NewService creates a Service reading from and writing to db
func NewService(db database.Datastore, log logging.Logger, opts ...Option) *Service {
	s := &Service{
		db:          db,
		log:         log,
		now:         time.Now,
		random:      rand.Float64,
		location:    time.Local,
		baselineKWh: DefaultBaselineKWh,
		tariff:      DefaultTariffEURPerKWh,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Service) getArea(ctx context.Context, areaID uint) (*models.Area, error) {
	area, err := s.db.GetAreaFromID(ctx, areaID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("area %d: %w", areaID, ErrNotFound)
		}
		return nil, err
	}
	return area, nil
}

//Aggregate sums the consumption of an area's readings per bucket of the period ending now.
//A non empty status restricts the sum to readings recorded with that status.
func (s *Service) Aggregate(ctx context.Context, areaID uint, period Period, status string) ([]Bucket, error) {
	if _, err := s.getArea(ctx, areaID); err != nil {
		return nil, err
	}

	return s.aggregate(ctx, areaID, period, s.now(), status)
}

func (s *Service) aggregate(ctx context.Context, areaID uint, period Period, now time.Time, status string) ([]Bucket, error) {
	start := time.Now()
	from, to := period.Window(now)

	readings, err := s.db.GetReadingsForArea(ctx, areaID, from, to, status)
	if err != nil {
		return nil, err
	}

	buckets := Aggregate(readings, period, s.location)
	s.metrics.AggregationDone(string(period), time.Since(start))

	return buckets, nil
}

//aggregateWithInefficiency runs the unfiltered and the inefficiency-only aggregation over the same window
func (s *Service) aggregateWithInefficiency(ctx context.Context, areaID uint, period Period) (total, inefficient []Bucket, err error) {
	now := s.now()

	total, err = s.aggregate(ctx, areaID, period, now, "")
	if err != nil {
		return nil, nil, err
	}

	inefficient, err = s.aggregate(ctx, areaID, period, now, models.StatusDaylightInefficiency)
	if err != nil {
		return nil, nil, err
	}

	return total, inefficient, nil
}

//GetEnergyData reports the consumption of an area per bucket together with the
//consumption flagged as daylight inefficiency
func (s *Service) GetEnergyData(ctx context.Context, areaID uint, period Period) (*EnergyData, error) {
	area, err := s.getArea(ctx, areaID)
	if err != nil {
		return nil, err
	}

	total, inefficient, err := s.aggregateWithInefficiency(ctx, area.ID, period)
	if err != nil {
		return nil, err
	}

	return &EnergyData{
		AreaID:              area.ID,
		AreaName:            area.Name,
		TotalConsumptionKWh: Total(total),
		ChartData:           total,
		InefficiencyMarkers: inefficient,
	}, nil
}

//GetSavingsScenario returns the consumption curve of an area with all daylight inefficiency removed
func (s *Service) GetSavingsScenario(ctx context.Context, areaID uint, period Period) ([]Bucket, error) {
	area, err := s.getArea(ctx, areaID)
	if err != nil {
		return nil, err
	}

	total, inefficient, err := s.aggregateWithInefficiency(ctx, area.ID, period)
	if err != nil {
		return nil, err
	}

	if len(total) == 0 {
		return nil, fmt.Errorf("no readings for area %d in the last %s: %w", area.ID, period, ErrNoData)
	}

	return SimulateSavings(total, inefficient), nil
}

//GetRecommendation returns the switching time recommendation of an area, generating and
//storing one on the first request. Later requests return the stored values.
func (s *Service) GetRecommendation(ctx context.Context, areaID uint) (*Recommendation, error) {
	area, err := s.getArea(ctx, areaID)
	if err != nil {
		return nil, err
	}

	existing, err := s.db.GetRecommendation(ctx, area.ID, SwitchingTimesTitle)
	if err == nil {
		s.metrics.RecommendationReused()
		result := recommendationFromModel(existing, s.baselineKWh)
		return &result, nil
	}

	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	candidate := newSwitchingTimesRecommendation(area.ID, s.now(), s.random, s.tariff)

	stored, created, err := s.db.CreateRecommendationIfNotExists(ctx, candidate)
	if err != nil {
		return nil, err
	}

	if created {
		s.log.Infof("Generated recommendation for area %d (%s): %.2f kWh per month", area.ID, area.Name, *stored.PotentialSavingsKWh)
		s.metrics.RecommendationCreated()

		if s.publisher != nil {
			if err := s.publisher.RecommendationCreated(ctx, area, stored); err != nil {
				s.log.Errorf("Failed to publish recommendation for area %d: %s", area.ID, err.Error())
			}
		}
	} else {
		s.metrics.RecommendationReused()
	}

	result := recommendationFromModel(stored, s.baselineKWh)
	return &result, nil
}

//AppendReadings adds a batch of readings to the reading store
func (s *Service) AppendReadings(ctx context.Context, readings []models.EnergyConsumption) error {
	if err := s.db.AppendReadings(ctx, readings); err != nil {
		return err
	}

	s.metrics.ReadingsAppended(len(readings))
	return nil
}
