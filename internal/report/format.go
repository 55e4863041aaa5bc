package report

import (
	"fmt"

	"github.com/coopco/salesbot/internal/salesapi"
)

// Format renders one report record as a Markdown chat message. Amounts are
// rupee values printed with two decimals.
func Format(r salesapi.UserReport) string {
	return fmt.Sprintf(`*Sales User Report for %s (User ID: %s)*

- Total Sale Booking Counts: %d
- Total Campaign Amount: ₹%.2f
- Total Base Amount: ₹%.2f
- Total GST Amount: ₹%.2f
- Total Record Service Amount: ₹%.2f
- Total Record Service Counts: %d
- Total Requested Amount: ₹%.2f
- Total Approved Amount: ₹%.2f`,
		r.UserName,
		r.UserID,
		r.TotalSaleBookingCounts,
		r.TotalCampaignAmount,
		r.TotalBaseAmount,
		r.TotalGstAmount,
		r.TotalRecordServiceAmount,
		r.TotalRecordServiceCounts,
		r.TotalRequestedAmount,
		r.TotalApprovedAmount,
	)
}
