package application

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/iot-for-tillgenglighet/ngsi-ld-golang/pkg/datamodels/fiware"
	ngsi "github.com/iot-for-tillgenglighet/ngsi-ld-golang/pkg/ngsi-ld"

	"github.com/iot-for-tillgenglighet/streetlight-energy/internal/pkg/infrastructure/logging"
	"github.com/iot-for-tillgenglighet/streetlight-energy/internal/pkg/infrastructure/repositories/database"
	"github.com/iot-for-tillgenglighet/streetlight-energy/internal/pkg/infrastructure/repositories/models"
)

//lightingUnitIDPrefix prefixes the database id of a lighting unit to form its NGSI-LD entity id
const lightingUnitIDPrefix = "urn:ngsi-ld:Device:streetlight-"

var errReadOnly = errors.New("lighting units are read only over NGSI-LD")

//contextSource exposes the lighting units as read only NGSI-LD Device entities
type contextSource struct {
	db  database.Datastore
	log logging.Logger
}

func lightingUnitEntityID(unitID uint) string {
	return lightingUnitIDPrefix + strconv.FormatUint(uint64(unitID), 10)
}

func newDeviceFromLightingUnit(unit models.LightingUnit) *fiware.Device {
	value := fmt.Sprintf("area=%d;type=%s;w=%d", unit.AreaID, unit.UnitType, unit.PowerWatt)
	return fiware.NewDevice(lightingUnitEntityID(unit.ID), url.QueryEscape(value))
}

func (cs contextSource) ProvidesEntitiesWithMatchingID(entityID string) bool {
	return strings.HasPrefix(entityID, lightingUnitIDPrefix)
}

func (cs *contextSource) CreateEntity(typeName, entityID string, req ngsi.Request) error {
	cs.log.Errorf("Refusing to create %s entity %s: %s", typeName, entityID, errReadOnly.Error())
	return errReadOnly
}

func (cs *contextSource) GetEntities(query ngsi.Query, callback ngsi.QueryEntitiesCallback) error {
	if query == nil {
		return errors.New("GetEntities: query may not be nil")
	}

	for _, typeName := range query.EntityTypes() {
		if typeName != "Device" {
			continue
		}

		units, err := cs.db.GetLightingUnits(context.Background())
		if err != nil {
			return fmt.Errorf("unable to get lighting units: %s", err.Error())
		}

		for _, unit := range units {
			if err = callback(newDeviceFromLightingUnit(unit)); err != nil {
				return err
			}
		}
	}

	return nil
}

func (cs *contextSource) RetrieveEntity(entityID string, req ngsi.Request) (ngsi.Entity, error) {
	if !cs.ProvidesEntitiesWithMatchingID(entityID) {
		return nil, fmt.Errorf("entity %s is not a lighting unit", entityID)
	}

	unitID, err := strconv.ParseUint(strings.TrimPrefix(entityID, lightingUnitIDPrefix), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("malformed lighting unit id %s", entityID)
	}

	unit, err := cs.db.GetLightingUnitFromID(context.Background(), uint(unitID))
	if err != nil {
		return nil, err
	}

	return newDeviceFromLightingUnit(*unit), nil
}

func (cs contextSource) ProvidesAttribute(attributeName string) bool {
	return attributeName == "value"
}

func (cs contextSource) ProvidesType(typeName string) bool {
	return typeName == "Device"
}

func (cs *contextSource) UpdateEntityAttributes(entityID string, req ngsi.Request) error {
	cs.log.Errorf("Refusing to update %s: %s", entityID, errReadOnly.Error())
	return errReadOnly
}
