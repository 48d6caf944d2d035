package models

// WarningCode categorizes warnings by subsystem.
// W1xxx = upstream fetch, W2xxx = normalization, W3xxx = write.
type WarningCode string

const (
	WarnFetchFailed     WarningCode = "W1001" // one ISIN could not be fetched (dropped from the dataset)
	WarnISINRejected    WarningCode = "W1002" // ISIN failed validation before any request
	WarnNormalizeFailed WarningCode = "W2001" // payload for one ISIN was missing expected fields
	WarnNothingToInsert WarningCode = "W3001" // dataset produced zero rows; write skipped
	WarnOrphanSkipped   WarningCode = "W3002" // ISIN has no fund_overview row; dependent rows not fetched
)

// Warning represents a non-fatal issue encountered during an ingestion run.
type Warning struct {
	Code    WarningCode `json:"code"`
	Dataset string      `json:"dataset,omitempty"`
	ISIN    string      `json:"isin,omitempty"`
	Message string      `json:"message"`
}
