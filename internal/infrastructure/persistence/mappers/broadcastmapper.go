package mappers

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"parceldesk/internal/domain/broadcast"
	"parceldesk/internal/infrastructure/persistence/models"
)

// BroadcastMapper converts between broadcast log entities and
// BroadcastLogModel.
type BroadcastMapper struct{}

func NewBroadcastMapper() *BroadcastMapper {
	return &BroadcastMapper{}
}

func (m *BroadcastMapper) ToModel(l *broadcast.Log) *models.BroadcastLogModel {
	var meta datatypes.JSON
	if l.ProviderMeta() != nil {
		if raw, err := json.Marshal(l.ProviderMeta()); err == nil {
			meta = raw
		}
	}

	return &models.BroadcastLogModel{
		ID:           l.ID(),
		Channel:      l.Channel().String(),
		Recipient:    l.Recipient(),
		TrackingRef:  l.TrackingRef(),
		Message:      l.Message(),
		Status:       l.Status().String(),
		ErrorDetail:  l.ErrorDetail(),
		ProviderMeta: meta,
		SentAt:       l.SentAt().UnixMilli(),
		CreatedAt:    l.CreatedAt().UnixMilli(),
		UpdatedAt:    l.UpdatedAt().UnixMilli(),
	}
}

func (m *BroadcastMapper) ToDomain(model *models.BroadcastLogModel) *broadcast.Log {
	var meta map[string]any
	if len(model.ProviderMeta) > 0 {
		// ignore malformed metadata rather than failing the read
		_ = json.Unmarshal(model.ProviderMeta, &meta)
	}

	return broadcast.ReconstructLog(
		model.ID,
		broadcast.Channel(model.Channel),
		model.Recipient,
		model.TrackingRef,
		model.Message,
		broadcast.Status(model.Status),
		model.ErrorDetail,
		meta,
		time.UnixMilli(model.SentAt).UTC(),
		time.UnixMilli(model.CreatedAt).UTC(),
		time.UnixMilli(model.UpdatedAt).UTC(),
	)
}

func (m *BroadcastMapper) ToDomainList(modelList []*models.BroadcastLogModel) []*broadcast.Log {
	logs := make([]*broadcast.Log, 0, len(modelList))
	for _, model := range modelList {
		logs = append(logs, m.ToDomain(model))
	}
	return logs
}
