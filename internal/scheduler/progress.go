package scheduler

import (
	"context"
	"fmt"
	"strings"
)

// clampRatio limits a per-file progress ratio to [0, 1].
func clampRatio(ratio float64) float64 {
	switch {
	case ratio != ratio: // NaN
		return 0
	case ratio < 0:
		return 0
	case ratio > 1:
		return 1
	default:
		return ratio
	}
}

// foldProgress converts the progress of one file into job-level percent.
func foldProgress(fileIndex, totalFiles int, ratio float64) float64 {
	if totalFiles <= 0 {
		return 0
	}

	return (float64(fileIndex) + clampRatio(ratio)) / float64(totalFiles) * fullProgress
}

// validate checks a landed file against what the job declared.
// Sizes and hashes are compared only when both the declaration and the measurement are present.
func (m *Manager) validate(ctx context.Context, file DownloadFile, result TransferResult) error {
	exists, err := m.adapter.Exists(ctx, file.DestinationPath)
	if err != nil {
		return fmt.Errorf("%w: %w: %s: %w", ErrValidationFailure, ErrFileMissing, file.DestinationPath, err)
	}

	if !exists {
		return fmt.Errorf("%w: %w: %s", ErrValidationFailure, ErrFileMissing, file.DestinationPath)
	}

	if file.ExpectedSizeBytes > 0 && result.SizeBytes > 0 && file.ExpectedSizeBytes != result.SizeBytes {
		return fmt.Errorf("%w: %w: %s: expected %d bytes, got %d",
			ErrValidationFailure, ErrSizeMismatch, file.DestinationPath, file.ExpectedSizeBytes, result.SizeBytes)
	}

	if file.ExpectedSHA256 != "" && result.SHA256 != "" && !strings.EqualFold(file.ExpectedSHA256, result.SHA256) {
		return fmt.Errorf("%w: %w: %s: expected %s, got %s",
			ErrValidationFailure, ErrHashMismatch, file.DestinationPath, file.ExpectedSHA256, result.SHA256)
	}

	return nil
}
