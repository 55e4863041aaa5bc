package salesapi

import "encoding/json"

// Filter selects the time window of a sales report query.
type Filter string

const (
	FilterNone    Filter = ""        // unfiltered full report
	FilterToday   Filter = "today"
	FilterWeek    Filter = "week"
	FilterMonth   Filter = "month"
	FilterQuarter Filter = "quarter"
	FilterCustom  Filter = "custom" // requires explicit start and end dates
)

type loginRequest struct {
	UserLoginID       string `json:"user_login_id"`
	UserLoginPassword string `json:"user_login_password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type reportResponse struct {
	Data []UserReport `json:"data"`
}

// UserReport is one per-user row of the sales report.
type UserReport struct {
	UserName                 string      `json:"userName"`
	UserID                   json.Number `json:"userId"`
	TotalSaleBookingCounts   int64       `json:"totalSaleBookingCounts"`
	TotalCampaignAmount      float64     `json:"totalCampaignAmount"`
	TotalBaseAmount          float64     `json:"totalBaseAmount"`
	TotalGstAmount           float64     `json:"totalGstAmount"`
	TotalRecordServiceAmount float64     `json:"totalRecordServiceAmount"`
	TotalRecordServiceCounts int64       `json:"totalRecordServiceCounts"`
	TotalRequestedAmount     float64     `json:"totalRequestedAmount"`
	TotalApprovedAmount      float64     `json:"totalApprovedAmount"`
}
