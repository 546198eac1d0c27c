package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Mahdi-Kalfat/IdeaTon/internal/train"
)

func TestLearningRates(t *testing.T) {
	lr1, lr2 := learningRates(0.001, 0)
	require.Equal(t, float32(0.001), lr1)
	require.InDelta(t, 0.0001, float64(lr2), 1e-9)

	// An explicit fine-tune rate wins over the lr/10 default.
	lr1, lr2 = learningRates(0.001, 0.0005)
	require.Equal(t, float32(0.001), lr1)
	require.Equal(t, float32(0.0005), lr2)

	// A fine-tune rate at or above the phase 1 rate passes through
	// here and is rejected by config validation.
	cfg := train.DefaultConfig()
	cfg.LR1, cfg.LR2 = learningRates(0.001, 0.01)
	require.Error(t, cfg.Validate())
}
