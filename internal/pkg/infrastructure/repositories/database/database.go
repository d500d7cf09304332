package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iot-for-tillgenglighet/streetlight-energy/internal/pkg/infrastructure/logging"
	"github.com/iot-for-tillgenglighet/streetlight-energy/internal/pkg/infrastructure/repositories/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

//ErrNotFound is returned (wrapped) when a referenced city, area, lighting unit or recommendation does not exist
var ErrNotFound = errors.New("not found")

//ErrInvalidReading is returned (wrapped) when a reading can not be stored as given
var ErrInvalidReading = errors.New("invalid reading")

//Datastore is an interface that is used to inject the database into different handlers to improve testability
type Datastore interface {
	CreateCity(ctx context.Context, name string) (*models.City, error)
	CreateArea(ctx context.Context, cityID uint, name, description string) (*models.Area, error)
	CreateLightingUnit(ctx context.Context, areaID uint, unitType, location string, powerWatt int) (*models.LightingUnit, error)
	DeleteCity(ctx context.Context, cityID uint) error

	GetCities(ctx context.Context) ([]models.City, error)
	GetAreas(ctx context.Context) ([]models.Area, error)
	GetAreaFromID(ctx context.Context, areaID uint) (*models.Area, error)
	GetAreasForCity(ctx context.Context, cityID uint) ([]models.Area, error)
	GetLightingUnits(ctx context.Context) ([]models.LightingUnit, error)
	GetLightingUnitFromID(ctx context.Context, unitID uint) (*models.LightingUnit, error)
	GetLightingUnitsForArea(ctx context.Context, areaID uint) ([]models.LightingUnit, error)

	AppendReadings(ctx context.Context, readings []models.EnergyConsumption) error
	GetReadingsForArea(ctx context.Context, areaID uint, from, to time.Time, status string) ([]models.EnergyConsumption, error)
	GetLatestReadingTimestamp(ctx context.Context) (time.Time, bool, error)

	GetRecommendation(ctx context.Context, areaID uint, title string) (*models.Recommendation, error)
	CreateRecommendationIfNotExists(ctx context.Context, rec *models.Recommendation) (*models.Recommendation, bool, error)
}

type myDB struct {
	impl *gorm.DB
	log  logging.Logger
}

//ConnectorFunc is used to inject a database connection method into NewDatabaseConnection
type ConnectorFunc func() (*gorm.DB, error)

const connectAttempts = 10

//NewPostgreSQLConnector opens a connection to a postgresql database
func NewPostgreSQLConnector(dsn string, log logging.Logger) ConnectorFunc {
	return func() (*gorm.DB, error) {
		var err error
		for attempt := 1; attempt <= connectAttempts; attempt++ {
			log.Infof("Connecting to database (attempt %d/%d) ...", attempt, connectAttempts)

			var db *gorm.DB
			db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
			if err == nil {
				return db, nil
			}

			log.Errorf("Failed to connect to database: %s", err.Error())
			time.Sleep(3 * time.Second)
		}

		return nil, fmt.Errorf("giving up on database after %d attempts: %w", connectAttempts, err)
	}
}

//DefaultSQLiteDSN is a process wide shared in-memory database
const DefaultSQLiteDSN = "file::memory:?cache=shared"

//NewSQLiteConnector opens a connection to a local sqlite database
func NewSQLiteConnector(dsn string) ConnectorFunc {
	if dsn == "" {
		dsn = DefaultSQLiteDSN
	}

	return func() (*gorm.DB, error) {
		db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})

		if err == nil {
			db.Exec("PRAGMA foreign_keys = ON")
		}

		return db, err
	}
}

//NewDatabaseConnection initializes a new connection to the database and wraps it in a Datastore
func NewDatabaseConnection(connect ConnectorFunc, log logging.Logger) (Datastore, error) {
	impl, err := connect()
	if err != nil {
		return nil, err
	}

	db := &myDB{
		impl: impl,
		log:  log,
	}

	err = db.impl.AutoMigrate(
		&models.City{},
		&models.Area{},
		&models.LightingUnit{},
		&models.EnergyConsumption{},
		&models.Recommendation{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

func notFound(result *gorm.DB, what string, id interface{}) error {
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
	}
	return result.Error
}

func (db *myDB) CreateCity(ctx context.Context, name string) (*models.City, error) {
	city := &models.City{Name: name}

	result := db.impl.WithContext(ctx).Create(city)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to create city %s: %w", name, result.Error)
	}

	return city, nil
}

func (db *myDB) CreateArea(ctx context.Context, cityID uint, name, description string) (*models.Area, error) {
	city := &models.City{}
	if result := db.impl.WithContext(ctx).First(city, cityID); result.Error != nil {
		return nil, notFound(result, "city", cityID)
	}

	area := &models.Area{CityID: cityID, Name: name, Description: description}

	result := db.impl.WithContext(ctx).Create(area)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to create area %s: %w", name, result.Error)
	}

	return area, nil
}

func (db *myDB) CreateLightingUnit(ctx context.Context, areaID uint, unitType, location string, powerWatt int) (*models.LightingUnit, error) {
	if _, err := db.GetAreaFromID(ctx, areaID); err != nil {
		return nil, err
	}

	unit := &models.LightingUnit{
		AreaID:    areaID,
		UnitType:  unitType,
		Location:  location,
		PowerWatt: powerWatt,
	}

	result := db.impl.WithContext(ctx).Create(unit)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to create lighting unit at %s: %w", location, result.Error)
	}

	return unit, nil
}

//DeleteCity removes a city together with everything below it in the topology
func (db *myDB) DeleteCity(ctx context.Context, cityID uint) error {
	return db.impl.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		city := &models.City{}
		if result := tx.First(city, cityID); result.Error != nil {
			return notFound(result, "city", cityID)
		}

		areaIDs := tx.Model(&models.Area{}).Select("id").Where("city_id = ?", cityID)
		unitIDs := tx.Model(&models.LightingUnit{}).Select("id").Where("area_id IN (?)", areaIDs)

		steps := []*gorm.DB{
			tx.Where("lighting_unit_id IN (?)", unitIDs).Delete(&models.EnergyConsumption{}),
			tx.Unscoped().Where("area_id IN (?) OR lighting_unit_id IN (?)", areaIDs, unitIDs).Delete(&models.Recommendation{}),
			tx.Unscoped().Where("area_id IN (?)", areaIDs).Delete(&models.LightingUnit{}),
			tx.Unscoped().Where("city_id = ?", cityID).Delete(&models.Area{}),
			tx.Unscoped().Delete(city),
		}

		for _, step := range steps {
			if step.Error != nil {
				return fmt.Errorf("failed to delete city %d: %w", cityID, step.Error)
			}
		}

		return nil
	})
}

func (db *myDB) GetCities(ctx context.Context) ([]models.City, error) {
	cities := []models.City{}
	result := db.impl.WithContext(ctx).Order("id").Find(&cities)
	return cities, result.Error
}

func (db *myDB) GetAreas(ctx context.Context) ([]models.Area, error) {
	areas := []models.Area{}
	result := db.impl.WithContext(ctx).Order("id").Find(&areas)
	return areas, result.Error
}

func (db *myDB) GetAreaFromID(ctx context.Context, areaID uint) (*models.Area, error) {
	area := &models.Area{}
	result := db.impl.WithContext(ctx).First(area, areaID)
	if result.Error != nil {
		return nil, notFound(result, "area", areaID)
	}

	return area, nil
}

func (db *myDB) GetAreasForCity(ctx context.Context, cityID uint) ([]models.Area, error) {
	city := &models.City{}
	if result := db.impl.WithContext(ctx).First(city, cityID); result.Error != nil {
		return nil, notFound(result, "city", cityID)
	}

	areas := []models.Area{}
	result := db.impl.WithContext(ctx).Where("city_id = ?", cityID).Order("id").Find(&areas)
	return areas, result.Error
}

func (db *myDB) GetLightingUnits(ctx context.Context) ([]models.LightingUnit, error) {
	units := []models.LightingUnit{}
	result := db.impl.WithContext(ctx).Order("id").Find(&units)
	return units, result.Error
}

func (db *myDB) GetLightingUnitFromID(ctx context.Context, unitID uint) (*models.LightingUnit, error) {
	unit := &models.LightingUnit{}
	result := db.impl.WithContext(ctx).First(unit, unitID)
	if result.Error != nil {
		return nil, notFound(result, "lighting unit", unitID)
	}

	return unit, nil
}

func (db *myDB) GetLightingUnitsForArea(ctx context.Context, areaID uint) ([]models.LightingUnit, error) {
	if _, err := db.GetAreaFromID(ctx, areaID); err != nil {
		return nil, err
	}

	units := []models.LightingUnit{}
	result := db.impl.WithContext(ctx).Where("area_id = ?", areaID).Order("id").Find(&units)
	return units, result.Error
}

const readingBatchSize = 500

//AppendReadings validates and stores a batch of readings in a single transaction.
//Negative consumption is clamped to zero and an empty status is stored as Normal.
func (db *myDB) AppendReadings(ctx context.Context, readings []models.EnergyConsumption) error {
	if len(readings) == 0 {
		return nil
	}

	unitIDs := map[uint]struct{}{}

	for i := range readings {
		r := &readings[i]

		if r.ID != 0 {
			return fmt.Errorf("reading %d already has id %d: %w", i, r.ID, ErrInvalidReading)
		}

		if r.Timestamp.IsZero() {
			return fmt.Errorf("reading %d has no timestamp: %w", i, ErrInvalidReading)
		}

		if r.StatusRecording == "" {
			r.StatusRecording = models.StatusNormal
		}

		if !models.IsKnownStatus(r.StatusRecording) {
			return fmt.Errorf("reading %d has unknown status %q: %w", i, r.StatusRecording, ErrInvalidReading)
		}

		if r.ConsumptionKWh < 0 {
			r.ConsumptionKWh = 0
		}

		r.Timestamp = r.Timestamp.UTC()
		unitIDs[r.LightingUnitID] = struct{}{}
	}

	ids := make([]uint, 0, len(unitIDs))
	for id := range unitIDs {
		ids = append(ids, id)
	}

	return db.impl.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.LightingUnit{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
			return err
		}

		if count != int64(len(ids)) {
			return fmt.Errorf("readings reference %d unknown lighting unit(s): %w", len(ids)-int(count), ErrNotFound)
		}

		return tx.CreateInBatches(readings, readingBatchSize).Error
	})
}

//GetReadingsForArea returns the timestamp and consumption of every reading taken by a lighting unit
//in the area within [from, to]. An empty status matches every reading.
func (db *myDB) GetReadingsForArea(ctx context.Context, areaID uint, from, to time.Time, status string) ([]models.EnergyConsumption, error) {
	query := db.impl.WithContext(ctx).
		Model(&models.EnergyConsumption{}).
		Select("energy_consumption_data.timestamp, energy_consumption_data.consumption_kwh, energy_consumption_data.status_recording").
		Joins("JOIN lighting_units ON lighting_units.id = energy_consumption_data.lighting_unit_id").
		Where("lighting_units.area_id = ? AND lighting_units.deleted_at IS NULL", areaID).
		Where("energy_consumption_data.timestamp >= ? AND energy_consumption_data.timestamp <= ?", from.UTC(), to.UTC())

	if status != "" {
		query = query.Where("energy_consumption_data.status_recording = ?", status)
	}

	readings := []models.EnergyConsumption{}
	result := query.Order("energy_consumption_data.timestamp").Find(&readings)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to query readings for area %d: %w", areaID, result.Error)
	}

	return readings, nil
}

func (db *myDB) GetLatestReadingTimestamp(ctx context.Context) (time.Time, bool, error) {
	latest := models.EnergyConsumption{}
	result := db.impl.WithContext(ctx).Order("timestamp desc").Limit(1).Find(&latest)
	if result.Error != nil {
		return time.Time{}, false, result.Error
	}

	if result.RowsAffected == 0 {
		return time.Time{}, false, nil
	}

	return latest.Timestamp, true, nil
}

func (db *myDB) GetRecommendation(ctx context.Context, areaID uint, title string) (*models.Recommendation, error) {
	rec := &models.Recommendation{}
	result := db.impl.WithContext(ctx).Where("area_id = ? AND title = ?", areaID, title).First(rec)
	if result.Error != nil {
		return nil, notFound(result, "recommendation for area", areaID)
	}

	return rec, nil
}

//CreateRecommendationIfNotExists inserts rec unless a recommendation with the same area and title
//already exists, and returns whichever row is stored. The boolean reports whether rec was inserted.
func (db *myDB) CreateRecommendationIfNotExists(ctx context.Context, rec *models.Recommendation) (*models.Recommendation, bool, error) {
	if rec.AreaID == nil {
		return nil, false, fmt.Errorf("recommendation %q requires an area", rec.Title)
	}

	result := db.impl.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(rec)
	if result.Error != nil {
		return nil, false, fmt.Errorf("failed to store recommendation for area %d: %w", *rec.AreaID, result.Error)
	}

	created := result.RowsAffected > 0
	if !created {
		db.log.Debugf("Recommendation %q for area %d already existed", rec.Title, *rec.AreaID)
	}

	stored, err := db.GetRecommendation(ctx, *rec.AreaID, rec.Title)
	if err != nil {
		return nil, false, err
	}

	return stored, created, nil
}
