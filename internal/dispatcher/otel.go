package dispatcher

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/roeblinglabs/itwin-poc-2024/internal/dispatcher"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
