package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/iot-for-tillgenglighet/messaging-golang/pkg/messaging"

	"github.com/iot-for-tillgenglighet/streetlight-energy/internal/pkg/energy"
	"github.com/iot-for-tillgenglighet/streetlight-energy/internal/pkg/infrastructure/repositories/models"
)

//MessagingContext is an interface that allows mocking of messaging.Context parameters
type MessagingContext interface {
	PublishOnTopic(message messaging.TopicMessage) error
}

//RecommendationCreated is published once for every recommendation that is generated and stored
type RecommendationCreated struct {
	EventID              string  `json:"eventId"`
	AreaID               uint    `json:"areaId"`
	AreaName             string  `json:"areaName"`
	Title                string  `json:"title"`
	PotentialSavingsKWh  float64 `json:"potentialSavingsKWh"`
	PotentialSavingsEuro float64 `json:"potentialSavingsEuro"`
	Timestamp            string  `json:"timestamp"`
}

//ContentType returns the content type of the serialized message
func (m *RecommendationCreated) ContentType() string {
	return "application/json"
}

//TopicName returns the topic this message is published on
func (m *RecommendationCreated) TopicName() string {
	return "energy.recommendation.created"
}

type recommendationPublisher struct {
	messenger MessagingContext
}

//NewRecommendationPublisher returns an energy.Publisher that forwards new recommendations to messenger.
//A nil messenger makes publishing a no-op.
func NewRecommendationPublisher(messenger MessagingContext) energy.Publisher {
	return &recommendationPublisher{messenger: messenger}
}

func (p *recommendationPublisher) RecommendationCreated(ctx context.Context, area *models.Area, rec *models.Recommendation) error {
	if p.messenger == nil {
		return nil
	}

	msg := &RecommendationCreated{
		EventID:   uuid.New().String(),
		AreaID:    area.ID,
		AreaName:  area.Name,
		Title:     rec.Title,
		Timestamp: rec.DateGenerated.UTC().Format(time.RFC3339),
	}

	if rec.PotentialSavingsKWh != nil {
		msg.PotentialSavingsKWh = *rec.PotentialSavingsKWh
	}

	if rec.PotentialSavingsEuro != nil {
		msg.PotentialSavingsEuro = *rec.PotentialSavingsEuro
	}

	return p.messenger.PublishOnTopic(msg)
}
