package appid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetIsComplete(t *testing.T) {
	id := Get()
	require.NoError(t, id.Validate())
	require.Equal(t, "stocklens", id.BinaryName)
	require.Equal(t, "STOCKLENS_", id.Prefix())
	require.Equal(t, "stocklens", id.TelemetryNamespace())
}

func TestPrefixNormalizesUnderscore(t *testing.T) {
	require.Equal(t, "APP_", Identity{EnvPrefix: "APP"}.Prefix())
	require.Equal(t, "APP_", Identity{EnvPrefix: "APP__"}.Prefix())
	require.Empty(t, Identity{}.Prefix())
}

func TestValidateReportsMissingFields(t *testing.T) {
	err := Identity{BinaryName: "x", ConfigName: "x"}.Validate()
	require.EqualError(t, err, "app identity missing env prefix")
}

func TestTelemetryNamespace(t *testing.T) {
	require.Equal(t, "stock_lens", Identity{BinaryName: "Stock-Lens"}.TelemetryNamespace())
}
