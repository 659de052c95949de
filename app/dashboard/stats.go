package dashboard

import (
	"github.com/veritas-media/veritas/app/database"
)

type Stats struct {
	Total      int `json:"total"`
	Verified   int `json:"verified"`
	Suspicious int `json:"suspicious"`
	Processing int `json:"processing"`
}

// Project counts a snapshot of articles joined with their checks.
//
// An article without an image URL never gets an image check, so for it the
// image side counts as settled: it is processing only while the text check
// is missing, and verified on a true text check alone.
func Project(snapshot []database.ArticleWithChecks) Stats {
	stats := Stats{Total: len(snapshot)}

	for _, row := range snapshot {
		imageStatus, imageSettled := "", !row.HasImage()
		if row.ImageCheck != nil {
			imageStatus, imageSettled = row.ImageCheck.Status, true
		}
		textStatus := ""
		if row.TextCheck != nil {
			textStatus = row.TextCheck.VerificationStatus
		}

		imageVerified := imageStatus == "verified" || (row.ImageCheck == nil && !row.HasImage())
		if imageVerified && textStatus == "true" {
			stats.Verified++
		}
		if imageStatus == "suspicious" || imageStatus == "manipulated" || textStatus == "false" {
			stats.Suspicious++
		}
		if !imageSettled || row.TextCheck == nil {
			stats.Processing++
		}
	}

	return stats
}
