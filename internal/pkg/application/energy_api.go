package application

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"

	"github.com/iot-for-tillgenglighet/streetlight-energy/internal/pkg/energy"
	"github.com/iot-for-tillgenglighet/streetlight-energy/internal/pkg/infrastructure/logging"
	"github.com/iot-for-tillgenglighet/streetlight-energy/internal/pkg/infrastructure/repositories/database"
	"github.com/iot-for-tillgenglighet/streetlight-energy/internal/pkg/infrastructure/repositories/models"
)

type energyAPI struct {
	svc *energy.Service
	db  database.Datastore
	log logging.Logger
}

type cityResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type areaResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type lightingUnitResponse struct {
	ID        uint   `json:"id"`
	AreaID    uint   `json:"area_id"`
	UnitType  string `json:"unit_type"`
	Location  string `json:"location"`
	PowerWatt int    `json:"power_watt"`
}

type readingRequest struct {
	LightingUnitID uint      `json:"lighting_unit_id"`
	Timestamp      time.Time `json:"timestamp"`
	ConsumptionKWh float64   `json:"consumption_kwh"`
	Status         string    `json:"status_recording"`
}

func newAreaResponse(area models.Area) areaResponse {
	return areaResponse{ID: area.ID, Name: area.Name, Description: area.Description}
}

func (api *energyAPI) listCities(w http.ResponseWriter, r *http.Request) {
	cities, err := api.db.GetCities(r.Context())
	if err != nil {
		api.writeError(w, err)
		return
	}

	response := make([]cityResponse, 0, len(cities))
	for _, city := range cities {
		response = append(response, cityResponse{ID: city.ID, Name: city.Name})
	}

	writeJSON(w, http.StatusOK, response)
}

func (api *energyAPI) getAreaForCity(w http.ResponseWriter, r *http.Request) {
	cityID, err := idFromURL(r, "cityID")
	if err != nil {
		api.writeError(w, err)
		return
	}

	areas, err := api.db.GetAreasForCity(r.Context(), cityID)
	if err != nil {
		api.writeError(w, err)
		return
	}

	if len(areas) == 0 {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Area not found for this city"})
		return
	}

	writeJSON(w, http.StatusOK, newAreaResponse(areas[0]))
}

func (api *energyAPI) listAreasForCity(w http.ResponseWriter, r *http.Request) {
	cityID, err := idFromURL(r, "cityID")
	if err != nil {
		api.writeError(w, err)
		return
	}

	areas, err := api.db.GetAreasForCity(r.Context(), cityID)
	if err != nil {
		api.writeError(w, err)
		return
	}

	response := make([]areaResponse, 0, len(areas))
	for _, area := range areas {
		response = append(response, newAreaResponse(area))
	}

	writeJSON(w, http.StatusOK, response)
}

func (api *energyAPI) listLightingUnits(w http.ResponseWriter, r *http.Request) {
	areaID, err := idFromURL(r, "areaID")
	if err != nil {
		api.writeError(w, err)
		return
	}

	units, err := api.db.GetLightingUnitsForArea(r.Context(), areaID)
	if err != nil {
		api.writeError(w, err)
		return
	}

	response := make([]lightingUnitResponse, 0, len(units))
	for _, u := range units {
		response = append(response, lightingUnitResponse{
			ID:        u.ID,
			AreaID:    u.AreaID,
			UnitType:  u.UnitType,
			Location:  u.Location,
			PowerWatt: u.PowerWatt,
		})
	}

	writeJSON(w, http.StatusOK, response)
}

func (api *energyAPI) periodFromQuery(r *http.Request) energy.Period {
	requested := r.URL.Query().Get("period")

	period, known := energy.ParsePeriod(requested)
	if !known {
		api.log.Warnf("Unknown period %q requested, using %s", requested, period)
	}

	return period
}

func (api *energyAPI) getEnergyData(w http.ResponseWriter, r *http.Request) {
	areaID, err := idFromURL(r, "areaID")
	if err != nil {
		api.writeError(w, err)
		return
	}

	data, err := api.svc.GetEnergyData(r.Context(), areaID, api.periodFromQuery(r))
	if err != nil {
		api.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, data)
}

func (api *energyAPI) getRecommendation(w http.ResponseWriter, r *http.Request) {
	areaID, err := idFromURL(r, "areaID")
	if err != nil {
		api.writeError(w, err)
		return
	}

	rec, err := api.svc.GetRecommendation(r.Context(), areaID)
	if err != nil {
		api.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (api *energyAPI) getSavingsScenario(w http.ResponseWriter, r *http.Request) {
	areaID, err := idFromURL(r, "areaID")
	if err != nil {
		api.writeError(w, err)
		return
	}

	scenario, err := api.svc.GetSavingsScenario(r.Context(), areaID, api.periodFromQuery(r))
	if err != nil {
		api.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, scenario)
}

func (api *energyAPI) appendReadings(w http.ResponseWriter, r *http.Request) {
	requests := []readingRequest{}
	if err := json.NewDecoder(r.Body).Decode(&requests); err != nil {
		api.log.Errorf("Failed to decode readings: %s", err.Error())
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed readings: " + err.Error()})
		return
	}

	readings := make([]models.EnergyConsumption, 0, len(requests))
	for _, req := range requests {
		readings = append(readings, models.EnergyConsumption{
			LightingUnitID:  req.LightingUnitID,
			Timestamp:       req.Timestamp,
			ConsumptionKWh:  req.ConsumptionKWh,
			StatusRecording: req.Status,
		})
	}

	if err := api.svc.AppendReadings(r.Context(), readings); err != nil {
		api.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]int{"stored": len(readings)})
}

var errBadID = errors.New("bad id")

func idFromURL(r *http.Request, param string) (uint, error) {
	raw := chi.URLParam(r, param)

	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%s %q is not a valid id: %w", param, raw, errBadID)
	}

	return uint(id), nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func (api *energyAPI) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, energy.ErrNotFound), errors.Is(err, database.ErrNotFound), errors.Is(err, energy.ErrNoData):
		status = http.StatusNotFound
	case errors.Is(err, errBadID), errors.Is(err, database.ErrInvalidReading):
		status = http.StatusBadRequest
	default:
		api.log.Errorf("Request failed: %s", err.Error())
	}

	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
