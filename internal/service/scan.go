package service

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/vbonduro/pantry/internal/domain"
	"github.com/vbonduro/pantry/internal/vision"
)

// ScanPhoto runs the image through the vision backend and bulk-adds every
// detected item. Detected items go through AddItems, so they are tagged
// "AI Scan" and never reconcile the shopping list.
func (s *PantryService) ScanPhoto(ctx context.Context, imageData []byte, mimeType string) ([]vision.DetectedItem, error) {
	if s.visionAPI == nil {
		return nil, ErrScanUnavailable
	}

	s.logger.Info("vision analysis started", "mime_type", mimeType, "bytes", len(imageData))
	result, err := s.visionAPI.Analyze(ctx, bytes.NewReader(imageData), mimeType)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze image: %w", err)
	}
	s.logger.Info("vision analysis complete", "items_detected", len(result.Items))

	items := make([]NewItem, 0, len(result.Items))
	for _, detected := range result.Items {
		items = append(items, NewItem{
			Item:     detected.Name,
			Quantity: parseQuantity(detected.Quantity),
			Unit:     strings.ToLower(detected.Unit),
			Category: detected.Category,
		})
	}
	if _, err := s.AddItems(ctx, items); err != nil {
		return nil, fmt.Errorf("failed to store detected items: %w", err)
	}
	return result.Items, nil
}

// parseQuantity reads the leading number of a model-reported quantity such as
// "2", "1.5" or "3 cans". Anything else is left for the bulk default.
func parseQuantity(s string) *domain.Amount {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	f, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return nil
	}
	a := domain.Amount(f)
	return &a
}
