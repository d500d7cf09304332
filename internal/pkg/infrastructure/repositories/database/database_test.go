package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/iot-for-tillgenglighet/streetlight-energy/internal/pkg/infrastructure/logging"
	"github.com/iot-for-tillgenglighet/streetlight-energy/internal/pkg/infrastructure/repositories/models"
)

func TestMain(m *testing.M) {
	os.Exit(m.Run())
}

func TestCreateDatabase(t *testing.T) {
	_, err := NewDatabaseConnection(NewSQLiteConnector(testDSN(t)), logging.NewLogger())

	if err != nil {
		t.Error(err.Error())
	}
}

func TestThatCreateAreaFailsForUnknownCity(t *testing.T) {
	if db, ok := newDatabaseForTest(t); ok {
		_, err := db.CreateArea(context.Background(), 4711, "Centrum Nowhere", "")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	}
}

func TestThatGetAreaFromIDReturnsNotFound(t *testing.T) {
	if db, ok := newDatabaseForTest(t); ok {
		_, err := db.GetAreaFromID(context.Background(), 17)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	}
}

func TestGetAreasForCity(t *testing.T) {
	if db, ok := newDatabaseForTest(t); ok {
		ctx := context.Background()
		city, _ := db.CreateCity(ctx, "Utrecht")
		db.CreateArea(ctx, city.ID, "Centrum Utrecht", "Hoofdgebied van Utrecht")
		db.CreateArea(ctx, city.ID, "Leidsche Rijn", "")

		areas, err := db.GetAreasForCity(ctx, city.ID)
		if err != nil {
			t.Fatal(err.Error())
		}

		if len(areas) != 2 || areas[0].Name != "Centrum Utrecht" {
			t.Errorf("unexpected areas returned: %v", areas)
		}

		_, err = db.GetAreasForCity(ctx, city.ID+100)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound for unknown city, got %v", err)
		}
	}
}

func TestThatAppendReadingsClampsNegativeConsumption(t *testing.T) {
	if db, ok := newDatabaseForTest(t); ok {
		ctx := context.Background()
		area, unit := createTopology(t, db, "Groningen")
		now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

		err := db.AppendReadings(ctx, []models.EnergyConsumption{
			{LightingUnitID: unit.ID, Timestamp: now, ConsumptionKWh: -0.5},
		})
		if err != nil {
			t.Fatal(err.Error())
		}

		readings, _ := db.GetReadingsForArea(ctx, area.ID, now.Add(-time.Hour), now, "")
		if len(readings) != 1 {
			t.Fatalf("expected one reading, got %d", len(readings))
		}

		if readings[0].ConsumptionKWh != 0 {
			t.Errorf("consumption should have been clamped to 0, was %v", readings[0].ConsumptionKWh)
		}

		if readings[0].StatusRecording != models.StatusNormal {
			t.Errorf("empty status should be stored as %s, was %s", models.StatusNormal, readings[0].StatusRecording)
		}
	}
}

func TestThatAppendReadingsRejectsUnknownStatus(t *testing.T) {
	if db, ok := newDatabaseForTest(t); ok {
		_, unit := createTopology(t, db, "Zwolle")

		err := db.AppendReadings(context.Background(), []models.EnergyConsumption{
			{LightingUnitID: unit.ID, Timestamp: time.Now(), ConsumptionKWh: 0.1, StatusRecording: "Broken"},
		})
		if !errors.Is(err, ErrInvalidReading) {
			t.Errorf("expected ErrInvalidReading, got %v", err)
		}
	}
}

func TestThatAppendReadingsRejectsUnknownLightingUnit(t *testing.T) {
	if db, ok := newDatabaseForTest(t); ok {
		_, unit := createTopology(t, db, "Assen")

		err := db.AppendReadings(context.Background(), []models.EnergyConsumption{
			{LightingUnitID: unit.ID, Timestamp: time.Now(), ConsumptionKWh: 0.1},
			{LightingUnitID: unit.ID + 42, Timestamp: time.Now(), ConsumptionKWh: 0.1},
		})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}

		_, found, _ := db.GetLatestReadingTimestamp(context.Background())
		if found {
			t.Error("no reading of a rejected batch should have been stored")
		}
	}
}

func TestThatGetReadingsForAreaFiltersOnWindowAndStatus(t *testing.T) {
	if db, ok := newDatabaseForTest(t); ok {
		ctx := context.Background()
		area, unit := createTopology(t, db, "Arnhem")
		_, otherUnit := createTopology(t, db, "Lelystad")
		now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

		err := db.AppendReadings(ctx, []models.EnergyConsumption{
			{LightingUnitID: unit.ID, Timestamp: now.Add(-48 * time.Hour), ConsumptionKWh: 1.0},
			{LightingUnitID: unit.ID, Timestamp: now.Add(-2 * time.Hour), ConsumptionKWh: 0.2, StatusRecording: models.StatusDaylightInefficiency},
			{LightingUnitID: unit.ID, Timestamp: now.Add(-1 * time.Hour), ConsumptionKWh: 0.3},
			{LightingUnitID: otherUnit.ID, Timestamp: now.Add(-1 * time.Hour), ConsumptionKWh: 5.0},
		})
		if err != nil {
			t.Fatal(err.Error())
		}

		all, err := db.GetReadingsForArea(ctx, area.ID, now.Add(-24*time.Hour), now, "")
		if err != nil {
			t.Fatal(err.Error())
		}

		if len(all) != 2 {
			t.Errorf("expected 2 readings within the window, got %d", len(all))
		}

		inefficient, err := db.GetReadingsForArea(ctx, area.ID, now.Add(-24*time.Hour), now, models.StatusDaylightInefficiency)
		if err != nil {
			t.Fatal(err.Error())
		}

		if len(inefficient) != 1 || inefficient[0].ConsumptionKWh != 0.2 {
			t.Errorf("unexpected inefficient readings: %v", inefficient)
		}
	}
}

func TestThatReadingsRoundTripTheirConsumption(t *testing.T) {
	if db, ok := newDatabaseForTest(t); ok {
		ctx := context.Background()
		area, unit := createTopology(t, db, "Leeuwarden")
		from := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)

		readings := []models.EnergyConsumption{}
		for hour := 0; hour < 4; hour++ {
			readings = append(readings, models.EnergyConsumption{
				LightingUnitID:  unit.ID,
				Timestamp:       from.Add(time.Duration(hour) * time.Hour),
				ConsumptionKWh:  0.25,
				StatusRecording: models.StatusNormal,
			})
		}

		if err := db.AppendReadings(ctx, readings); err != nil {
			t.Fatal(err.Error())
		}

		stored, err := db.GetReadingsForArea(ctx, area.ID, from, from.Add(3*time.Hour), "")
		if err != nil {
			t.Fatal(err.Error())
		}

		total := 0.0
		for _, r := range stored {
			total += r.ConsumptionKWh
			if r.StatusRecording != models.StatusNormal {
				t.Errorf("unexpected status %q", r.StatusRecording)
			}
		}

		if len(stored) != 4 || total != 1.0 {
			t.Errorf("expected 4 readings summing to 1.0 kWh, got %d summing to %f", len(stored), total)
		}
	}
}

func TestThatKWhColumnsKeepTheirNames(t *testing.T) {
	if db, ok := newDatabaseForTest(t); ok {
		migrator := db.(*myDB).impl.Migrator()

		if !migrator.HasColumn(&models.EnergyConsumption{}, "consumption_kwh") {
			t.Error("energy_consumption_data is missing the consumption_kwh column")
		}

		if !migrator.HasColumn(&models.Recommendation{}, "potential_savings_kwh") {
			t.Error("recommendations is missing the potential_savings_kwh column")
		}
	}
}

func TestGetLatestReadingTimestamp(t *testing.T) {
	if db, ok := newDatabaseForTest(t); ok {
		ctx := context.Background()
		_, unit := createTopology(t, db, "Haarlem")
		latest := time.Date(2026, 10, 15, 23, 0, 0, 0, time.UTC)

		db.AppendReadings(ctx, []models.EnergyConsumption{
			{LightingUnitID: unit.ID, Timestamp: latest.Add(-time.Hour), ConsumptionKWh: 0.1},
			{LightingUnitID: unit.ID, Timestamp: latest, ConsumptionKWh: 0.1},
		})

		ts, found, err := db.GetLatestReadingTimestamp(ctx)
		if err != nil || !found {
			t.Fatalf("expected a latest timestamp, got %v (found=%v)", err, found)
		}

		if !ts.Equal(latest) {
			t.Errorf("latest timestamp %v != %v", ts, latest)
		}
	}
}

func TestThatCreateRecommendationIfNotExistsKeepsTheFirstRow(t *testing.T) {
	if db, ok := newDatabaseForTest(t); ok {
		ctx := context.Background()
		area, _ := createTopology(t, db, "Middelburg")

		first, created, err := db.CreateRecommendationIfNotExists(ctx, newRecommendation(area.ID, 30.0))
		if err != nil || !created {
			t.Fatalf("first insert should create a row: %v (created=%v)", err, created)
		}

		second, created, err := db.CreateRecommendationIfNotExists(ctx, newRecommendation(area.ID, 60.0))
		if err != nil {
			t.Fatal(err.Error())
		}

		if created {
			t.Error("second insert for the same area and title must not create a row")
		}

		if second.ID != first.ID || *second.PotentialSavingsKWh != 30.0 {
			t.Errorf("expected the first stored row to win, got %v kWh", *second.PotentialSavingsKWh)
		}
	}
}

func TestThatDeleteCityCascades(t *testing.T) {
	if db, ok := newDatabaseForTest(t); ok {
		ctx := context.Background()
		area, unit := createTopology(t, db, "Maastricht")

		db.AppendReadings(ctx, []models.EnergyConsumption{
			{LightingUnitID: unit.ID, Timestamp: time.Now(), ConsumptionKWh: 0.1},
		})
		db.CreateRecommendationIfNotExists(ctx, newRecommendation(area.ID, 40.0))

		if err := db.DeleteCity(ctx, area.CityID); err != nil {
			t.Fatal(err.Error())
		}

		if _, err := db.GetAreaFromID(ctx, area.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("area should be gone after deleting its city, got %v", err)
		}

		if _, err := db.GetLightingUnitFromID(ctx, unit.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("lighting unit should be gone after deleting its city, got %v", err)
		}

		if _, found, _ := db.GetLatestReadingTimestamp(ctx); found {
			t.Error("readings should be gone after deleting their city")
		}

		if _, err := db.GetRecommendation(ctx, area.ID, "Test"); !errors.Is(err, ErrNotFound) {
			t.Errorf("recommendation should be gone after deleting its city, got %v", err)
		}
	}
}

func newRecommendation(areaID uint, kwh float64) *models.Recommendation {
	euro := kwh * 0.4
	return &models.Recommendation{
		AreaID:               &areaID,
		DateGenerated:        time.Now(),
		Title:                "Test",
		Description:          "Test recommendation",
		PotentialSavingsKWh:  &kwh,
		PotentialSavingsEuro: &euro,
		ActionStatus:         "Nieuw",
	}
}

func createTopology(t *testing.T, db Datastore, cityName string) (*models.Area, *models.LightingUnit) {
	ctx := context.Background()

	city, err := db.CreateCity(ctx, cityName)
	if err != nil {
		t.Fatal(err.Error())
	}

	area, err := db.CreateArea(ctx, city.ID, "Centrum "+cityName, "Hoofdgebied van "+cityName)
	if err != nil {
		t.Fatal(err.Error())
	}

	unit, err := db.CreateLightingUnit(ctx, area.ID, "LED", "Hoofdstraat "+area.Name, 50)
	if err != nil {
		t.Fatal(err.Error())
	}

	return area, unit
}

func testDSN(t *testing.T) string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
}

func newDatabaseForTest(t *testing.T) (Datastore, bool) {
	log := logging.NewLogger()
	db, err := NewDatabaseConnection(NewSQLiteConnector(testDSN(t)), log)

	if err != nil {
		t.Error(err.Error())
		return nil, false
	}

	return db, true
}
