package models

// Request/response types for the HTTP surface.

type SubmitReportRequest struct {
	BinID           string  `json:"bin_id" binding:"required"`
	Category        string  `json:"category" binding:"required"`
	Latitude        float64 `json:"latitude" binding:"required"`
	Longitude       float64 `json:"longitude" binding:"required"`
	ClientTimestamp string  `json:"client_timestamp" binding:"required"` // RFC3339
	Image           []byte  `json:"image"`
}

type SubmitReportResponse struct {
	ReportID       string `json:"report_id"`
	Status         string `json:"status"`
	SuspicionScore int    `json:"suspicion_score"`
	PointsAwarded  int    `json:"points_awarded,omitempty"`
}

type CastVoteRequest struct {
	ReportID  string  `json:"report_id" binding:"required"`
	Choice    string  `json:"choice" binding:"required"` // APPROVE or REJECT
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type CastVoteResponse struct {
	ReportID   string `json:"report_id"`
	Status     string `json:"status"`
	Resolution string `json:"resolution,omitempty"`
}

type EmptyBinRequest struct {
	BinID string `json:"bin_id" binding:"required"`
}

type BinResponse struct {
	ID            string `json:"id"`
	Code          string `json:"code"`
	FillLevel     string `json:"fill_level"`
	Status        string `json:"status"`
	LastEmptiedAt string `json:"last_emptied_at,omitempty"`
	LastReportAt  string `json:"last_report_at,omitempty"`
}

type ClaimBountyRequest struct {
	BountyID string `json:"bounty_id" binding:"required"`
	ReportID string `json:"report_id"`
}

type ClaimBountyResponse struct {
	BountyID      string `json:"bounty_id"`
	PointsAwarded int    `json:"points_awarded"`
	SlotsLeft     int    `json:"slots_left"`
}

type SubmitDetectiveRequest struct {
	ProblemType string  `json:"problem_type" binding:"required"`
	Latitude    float64 `json:"latitude" binding:"required"`
	Longitude   float64 `json:"longitude" binding:"required"`
}

type ConfirmDetectiveRequest struct {
	ReportID string `json:"report_id" binding:"required"`
}

type ConfirmDetectiveResponse struct {
	ReportID      string `json:"report_id"`
	Confirmations int    `json:"confirmations"`
	Status        string `json:"status"`
}
