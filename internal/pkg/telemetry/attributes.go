package telemetry

import "go.opentelemetry.io/otel/attribute"

// Span attribute keys shared across packages.
const (
	AttrDataset  = attribute.Key("srimap.dataset")
	AttrFile     = attribute.Key("srimap.file")
	AttrFeatures = attribute.Key("srimap.features")
	AttrRadiusKm = attribute.Key("srimap.radius_km")
	AttrResults  = attribute.Key("srimap.results")
	AttrRoute    = attribute.Key("srimap.chat.route")
	AttrCategory = attribute.Key("srimap.chat.category")
	AttrAttempts = attribute.Key("srimap.remote.attempts")
)
