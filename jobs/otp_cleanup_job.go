package jobs

import (
	"log"
	"time"

	"github.com/anjiri1684/job_connect/database"
	"github.com/anjiri1684/job_connect/models"
)

// CleanupExpiredOTPs removes one-time codes that have passed their expiry.
// Scheduled every six hours from main.
func CleanupExpiredOTPs() {
	log.Println("Running job: CleanupExpiredOTPs...")

	result := database.DB.Where("expires_at < ?", time.Now()).Delete(&models.OTP{})
	if result.Error != nil {
		log.Printf("Error cleaning up expired OTPs: %v", result.Error)
		return
	}

	if result.RowsAffected > 0 {
		log.Printf("Cleaned up %d expired OTPs", result.RowsAffected)
	}
}
