package casting

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"owing/backend/internal/adapter"
	"owing/backend/pkg/errors"
)

// GenerateCharacterImage renders a portrait from the casting's fields and
// persists the resulting URL in both stores.
func (s *Service) GenerateCharacterImage(ctx context.Context, castingID int64) (string, error) {
	if s.generator == nil {
		return "", errors.NewGenerationFailed(fmt.Errorf("no generator configured"))
	}

	rec, err := s.store.GetCasting(ctx, castingID)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return "", errors.NewCastingNotFound(castingID)
	}

	prompt := adapter.BuildCharacterPrompt(rec.Name, rec.Age, rec.Gender, rec.Role, rec.Detail)
	imageURL, err := s.generator.GenerateImage(ctx, prompt)
	if err != nil {
		return "", err
	}

	if _, err := s.store.UpdateCastingImage(ctx, castingID, imageURL); err != nil {
		return "", err
	}
	if _, err := s.graph.UpdateCastingNodeImage(ctx, castingID, imageURL); err != nil {
		return "", errors.NewPartialWriteFailure("update casting image", err)
	}

	s.logger.Info("character image generated", zap.Int64("casting_id", castingID))
	return imageURL, nil
}

// ExtractCast asks the chat model which characters appear in the
// manuscript. The project's live castings are passed along so the model
// reuses their ids; new characters come back with id 0.
func (s *Service) ExtractCast(ctx context.Context, projectID int64, manuscript string) ([]adapter.CastingSummary, error) {
	if s.generator == nil {
		return nil, errors.NewGenerationFailed(fmt.Errorf("no generator configured"))
	}

	nodes, err := s.graph.ListCastingNodesByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	known := make([]adapter.CastingSummary, 0, len(nodes))
	for _, node := range nodes {
		known = append(known, adapter.CastingSummary{
			ID:     node.ID,
			Name:   node.Name,
			Gender: node.Gender,
		})
	}

	return s.generator.ExtractCast(ctx, manuscript, known)
}
