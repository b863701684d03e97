package model

// FeatureSet is the flat mapping sent to the scoring service for one request
type FeatureSet = Attributes

// PredictionResult is the normalized answer of the scoring service.
// Either field is nil when the upstream response did not carry a usable value.
type PredictionResult struct {
	Probability *float64 `json:"approvalProbability"`
	Decision    *string  `json:"decision"`
}

// Explanation is an explanation payload passed through from the scoring service
type Explanation map[string]any
